package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"recipe-importer/internal/core/image"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/core/source"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// Service 遠端匯入服務的 HTTP 客戶端
type Service struct {
	client *resty.Client
}

// NewService 創建遠端匯入服務客戶端，不做傳輸層重試
func NewService(cfg config.ImportServiceConfig) *Service {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &Service{client: client}
}

type importURLRequest struct {
	URL      string          `json:"url"`
	Platform source.Platform `json:"platform,omitempty"`
	Options  Options         `json:"options"`
}

type importTextRequest struct {
	Text    string  `json:"text"`
	Options Options `json:"options"`
}

type extractRequest struct {
	Image    string  `json:"image"`
	Language string  `json:"language,omitempty"`
	Options  Options `json:"options"`
}

type structureRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

type processRequest struct {
	Image      string   `json:"image"`
	Operations []string `json:"operations"`
}

type processResponse struct {
	Image   string  `json:"image"`
	Quality float64 `json:"quality"`
}

type saveRequest struct {
	Recipe recipe.Draft `json:"recipe"`
}

type saveResponse struct {
	ID string `json:"id"`
}

// ImportFromURL 匯入一般網頁食譜
func (s *Service) ImportFromURL(ctx context.Context, url string, opts Options) (*ImportResponse, error) {
	body, err := s.post(ctx, "import_url", "/import/url", importURLRequest{URL: url, Options: opts})
	if err != nil {
		return nil, err
	}
	return decodeImportResponse(body)
}

// ImportFromSocial 匯入社群貼文食譜
func (s *Service) ImportFromSocial(ctx context.Context, platform source.Platform, url string, opts Options) (*ImportResponse, error) {
	body, err := s.post(ctx, "import_social", "/import/social", importURLRequest{URL: url, Platform: platform, Options: opts})
	if err != nil {
		return nil, err
	}
	return decodeImportResponse(body)
}

// ImportFromText 匯入貼上的文字
func (s *Service) ImportFromText(ctx context.Context, text string, opts Options) (*ImportResponse, error) {
	body, err := s.post(ctx, "import_text", "/import/text", importTextRequest{Text: text, Options: opts})
	if err != nil {
		return nil, err
	}
	return decodeImportResponse(body)
}

// ExtractTextFromImage 圖片文字辨識
func (s *Service) ExtractTextFromImage(ctx context.Context, img []byte, language string, opts Options) (*ExtractionResult, error) {
	req := extractRequest{
		Image:    base64.StdEncoding.EncodeToString(img),
		Language: language,
		Options:  opts,
	}
	body, err := s.post(ctx, "ocr_extract", "/ocr/extract", req)
	if err != nil {
		return nil, err
	}
	return decodeExtraction(body)
}

// StructureRecipeText 將 OCR 文字結構化
func (s *Service) StructureRecipeText(ctx context.Context, text, language string) (*ImportResponse, error) {
	body, err := s.post(ctx, "ocr_structure", "/ocr/structure", structureRequest{Text: text, Language: language})
	if err != nil {
		return nil, err
	}
	return decodeImportResponse(body)
}

// ProcessImageForOCR 遠端圖片預處理
func (s *Service) ProcessImageForOCR(ctx context.Context, img []byte, ops []image.Operation) (*image.Result, error) {
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.String())
	}
	body, err := s.post(ctx, "ocr_process", "/ocr/process", processRequest{
		Image:      base64.StdEncoding.EncodeToString(img),
		Operations: names,
	})
	if err != nil {
		return nil, err
	}

	var resp processResponse
	if err := common.ParseJSONBytes(body, &resp); err != nil {
		return nil, common.ErrRemoteService.Wrap(fmt.Errorf("decode process response: %w", err))
	}
	data, err := image.DecodePayload(resp.Image)
	if err != nil {
		return nil, common.ErrRemoteService.Wrap(err)
	}
	return &image.Result{Image: data, Quality: resp.Quality}, nil
}

// SaveRecipe 儲存食譜
func (s *Service) SaveRecipe(ctx context.Context, draft recipe.Draft) (string, error) {
	body, err := s.post(ctx, "save_recipe", "/recipes", saveRequest{Recipe: draft})
	if err != nil {
		return "", err
	}
	var resp saveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", common.ErrRemoteService.Wrap(fmt.Errorf("decode save response: %w", err))
	}
	if resp.ID == "" {
		return "", common.ErrRemoteService.Wrap(fmt.Errorf("save response has no recipe id"))
	}
	return resp.ID, nil
}

// Ping 檢查遠端服務是否可用
func (s *Service) Ping(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return common.ErrRemoteService.Wrap(err)
	}
	if resp.IsError() {
		return common.ErrRemoteService.Wrap(fmt.Errorf("health check returned status %d", resp.StatusCode()))
	}
	return nil
}

// post 發送請求，所有失敗都包裝為 RemoteServiceError
func (s *Service) post(ctx context.Context, operation, path string, payload interface{}) ([]byte, error) {
	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(path)
	if err != nil {
		err = common.ErrRemoteService.Wrap(fmt.Errorf("%s request failed: %w", operation, err))
		common.LogRemoteCall(operation, time.Since(start), err)
		return nil, err
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		err = common.ErrRemoteService.Wrap(fmt.Errorf("%s returned status %d: %s", operation, resp.StatusCode(), truncate(resp.String(), 200)))
		common.LogRemoteCall(operation, time.Since(start), err)
		return nil, err
	}

	common.LogRemoteCall(operation, time.Since(start), nil)
	return resp.Body(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var (
	_ Importer        = (*Service)(nil)
	_ TextExtractor   = (*Service)(nil)
	_ Structurer      = (*Service)(nil)
	_ Saver           = (*Service)(nil)
	_ image.Processor = (*Service)(nil)
)
