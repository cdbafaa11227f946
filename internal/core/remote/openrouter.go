package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 模型沒有回報信心時使用的分數
const defaultLLMConfidence = 0.75

const structurePrompt = `You convert recipe text extracted by OCR into JSON.
Respond with a single JSON object and nothing else, using this shape:
{"recipe":{"title":"","description":"","ingredients":[{"name":"","quantity":0,"unit":""}],"instructions":[{"step_number":1,"description":"","duration_minutes":0}],"servings":0},"confidence":0.0}
Rules: keep the original language (%s); omit quantity, unit, servings or duration_minutes when unknown;
confidence is a number between 0 and 1 describing how complete and legible the text was.
Recipe text:
%s`

// OpenRouterStructurer 以 LLM 結構化 OCR 文字
type OpenRouterStructurer struct {
	config config.OpenRouterConfig
	client *resty.Client
}

// NewOpenRouterStructurer 創建 OpenRouter 結構化服務
func NewOpenRouterStructurer(cfg config.OpenRouterConfig) *OpenRouterStructurer {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("HTTP-Referer", "https://recipe-importer.local").
		SetHeader("X-Title", "Recipe Importer")

	return &OpenRouterStructurer{
		config: cfg,
		client: client,
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// StructureRecipeText 請模型輸出草稿 JSON 並驗證
func (s *OpenRouterStructurer) StructureRecipeText(ctx context.Context, text, language string) (*ImportResponse, error) {
	if language == "" {
		language = "pt"
	}
	req := map[string]interface{}{
		"model": s.config.Model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": fmt.Sprintf(structurePrompt, language, text),
			},
		},
		"max_tokens": s.config.MaxTokens,
	}

	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		err = common.ErrRemoteService.Wrap(fmt.Errorf("failed to send request to OpenRouter: %w", err))
		common.LogRemoteCall("openrouter_structure", time.Since(start), err)
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		err = common.ErrRemoteService.Wrap(fmt.Errorf("OpenRouter API returned status %d: %s", resp.StatusCode(), truncate(resp.String(), 200)))
		common.LogRemoteCall("openrouter_structure", time.Since(start), err)
		return nil, err
	}
	common.LogRemoteCall("openrouter_structure", time.Since(start), nil)

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, common.ErrRemoteService.Wrap(fmt.Errorf("failed to parse OpenRouter response: %w", err))
	}
	if len(result.Choices) == 0 {
		return nil, common.ErrRemoteService.Wrap(fmt.Errorf("no choices in OpenRouter response"))
	}

	return parseModelContent(result.Choices[0].Message.Content)
}

// parseModelContent 從模型輸出取出 JSON，必要時補上鍵的引號
func parseModelContent(content string) (*ImportResponse, error) {
	jsonStr, ok := common.ExtractJSONObject(content)
	if !ok {
		return nil, common.ErrRemoteService.Wrap(fmt.Errorf("model output contains no JSON object"))
	}

	// 模型沒有回報信心時補上預設值
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &probe); err != nil {
		common.LogDebug("model output is not strict JSON, quoting keys", zap.Error(err))
		jsonStr = common.QuoteJSONKeys(jsonStr)
		if err := json.Unmarshal([]byte(jsonStr), &probe); err != nil {
			return nil, common.ErrRemoteService.Wrap(fmt.Errorf("failed to parse model output: %w", err))
		}
	}
	if _, ok := probe["confidence"]; !ok {
		probe["confidence"] = json.RawMessage(fmt.Sprintf("%g", defaultLLMConfidence))
	}
	fixed, err := json.Marshal(probe)
	if err != nil {
		return nil, common.ErrRemoteService.Wrap(err)
	}
	return decodeImportResponse(fixed)
}

var _ Structurer = (*OpenRouterStructurer)(nil)
