// Package importer 提供匯入工作階段的 HTTP 介面。
package importer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"recipe-importer/internal/core/image"
	"recipe-importer/internal/core/parser"
	"recipe-importer/internal/core/queue"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/core/remote"
	"recipe-importer/internal/core/session"
	"recipe-importer/internal/core/source"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateImportRequest 建立匯入的請求
type CreateImportRequest struct {
	Input    string         `json:"input"`
	Kind     string         `json:"kind,omitempty"`  // url、social、text 或 image，省略時自動判斷
	Image    string         `json:"image,omitempty"` // data URI 或 base64
	Language string         `json:"language,omitempty"`
	Options  remote.Options `json:"options"`
}

// SaveRequest 儲存請求，draft 為使用者編輯後的版本
type SaveRequest struct {
	Draft *recipe.Draft `json:"draft,omitempty"`
}

// ClassifyRequest 分類請求
type ClassifyRequest struct {
	Input string `json:"input" binding:"required"`
}

// ParseRequest 本地解析預覽請求
type ParseRequest struct {
	Text string `json:"text" binding:"required"`
}

// ParseResponse 本地解析預覽結果
type ParseResponse struct {
	Draft          recipe.Draft `json:"draft"`
	Confidence     float64      `json:"confidence"`
	Warnings       []string     `json:"warnings,omitempty"`
	DiscardedLines int          `json:"discarded_lines"`
}

// AcceptedResponse 已排入隊列的匯入
type AcceptedResponse struct {
	ID    string        `json:"id"`
	State session.State `json:"state"`
}

// Handler 匯入處理程序
type Handler struct {
	registry   *session.Registry
	queue      *queue.Manager
	classifier *source.Classifier
	parser     *parser.Engine
	runTimeout time.Duration
}

// NewHandler 創建匯入處理程序
func NewHandler(registry *session.Registry, q *queue.Manager, classifier *source.Classifier, p *parser.Engine, runTimeout time.Duration) *Handler {
	if classifier == nil {
		classifier = source.NewClassifier()
	}
	if p == nil {
		p = parser.New()
	}
	if runTimeout <= 0 {
		runTimeout = 2 * time.Minute
	}
	return &Handler{
		registry:   registry,
		queue:      q,
		classifier: classifier,
		parser:     p,
		runTimeout: runTimeout,
	}
}

// Register 註冊路由
func (h *Handler) Register(group *gin.RouterGroup) {
	imports := group.Group("/imports")
	{
		imports.POST("", h.HandleCreate)
		imports.GET("/:id", h.HandleGet)
		imports.POST("/:id/save", h.HandleSave)
		imports.POST("/:id/retry", h.HandleRetry)
		imports.DELETE("/:id", h.HandleDelete)
	}
	group.POST("/classify", h.HandleClassify)
	group.POST("/parse", h.HandleParse)
}

// HandleCreate 驗證輸入、建立工作階段並在背景執行匯入
func (h *Handler) HandleCreate(c *gin.Context) {
	var req CreateImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	if err := session.ValidateInput(in); err != nil {
		respondError(c, err)
		return
	}
	s := h.registry.Create()

	common.LogInfo("收到匯入請求",
		zap.String("request_id", requestid.Get(c)),
		zap.String("session_id", s.ID()),
		zap.String("kind", string(in.Kind)),
		zap.Int("image_bytes", len(in.Image)),
	)

	if err := h.enqueue(s, "import", func(ctx context.Context) error {
		_, err := s.StartImport(ctx, in)
		return err
	}); err != nil {
		_ = h.registry.Delete(s.ID())
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, AcceptedResponse{ID: s.ID(), State: s.State()})
}

// HandleGet 回傳工作階段快照
func (h *Handler) HandleGet(c *gin.Context) {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// HandleSave 同步儲存草稿
func (h *Handler) HandleSave(c *gin.Context) {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	// 空的請求體代表直接儲存目前的草稿
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	id, err := s.Save(c.Request.Context(), req.Draft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe_id": id, "state": s.State()})
}

// HandleRetry 以上次的輸入重新匯入
func (h *Handler) HandleRetry(c *gin.Context) {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if st := s.State(); st != session.StateFailed {
		respondError(c, common.ErrInvalidState.WithMessage("retry requires a failed import, current state is %s", st))
		return
	}

	if err := h.enqueue(s, "retry", func(ctx context.Context) error {
		_, err := s.Retry(ctx)
		return err
	}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, AcceptedResponse{ID: s.ID(), State: s.State()})
}

// HandleDelete 重設並移除工作階段，進行中的結果會被丟棄
func (h *Handler) HandleDelete(c *gin.Context) {
	if err := h.registry.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleClassify 只判斷輸入類型
func (h *Handler) HandleClassify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, h.classifier.Classify(req.Input))
}

// HandleParse 以本地引擎預覽解析結果
func (h *Handler) HandleParse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	res := h.parser.Parse(req.Text)
	c.JSON(http.StatusOK, ParseResponse{
		Draft:          res.Draft,
		Confidence:     res.Confidence,
		Warnings:       res.Warnings,
		DiscardedLines: res.DiscardedLines,
	})
}

// enqueue 在背景執行工作階段，結果由工作階段本身保存
func (h *Handler) enqueue(s *session.Session, name string, run func(ctx context.Context) error) error {
	id := s.ID()
	return h.queue.Enqueue(name+":"+id, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, h.runTimeout)
		defer cancel()

		start := time.Now()
		err := run(ctx)
		switch {
		case err == nil:
			common.LogInfo("背景匯入完成", zap.String("session_id", id), zap.Duration("duration", time.Since(start)))
		case errors.Is(err, common.ErrStaleResult):
			common.LogDebug("背景匯入結果已過期", zap.String("session_id", id))
		default:
			common.LogWarn("背景匯入失敗", zap.String("session_id", id), zap.Error(err))
		}
	})
}

// toInput 轉換為工作階段輸入，圖片會先解碼
func (r CreateImportRequest) toInput() (session.RawImportInput, error) {
	in := session.RawImportInput{
		Kind:             source.Kind(strings.ToLower(strings.TrimSpace(r.Kind))),
		Text:             r.Input,
		DeclaredLanguage: r.Language,
		Options:          r.Options,
	}
	if r.Image == "" {
		return in, nil
	}

	data, err := image.DecodePayload(r.Image)
	if err != nil {
		return in, common.ErrInvalidImageFormat.Wrap(err)
	}
	in.Kind = source.KindImage
	in.Image = data
	return in, nil
}

// respondError 將錯誤轉為統一的錯誤響應
func respondError(c *gin.Context, err error) {
	ce := common.AsCustomError(err)
	status := ce.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	resp := common.ErrorResponse{Code: ce.Code, Message: ce.Message}
	if ce.Err != nil && status < http.StatusInternalServerError {
		resp.Details = ce.Err.Error()
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}
