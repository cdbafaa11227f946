// Package image 處理 OCR 前的圖片預處理與品質評估。
package image

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"recipe-importer/internal/pkg/common"
)

// Result 預處理結果
type Result struct {
	Image   []byte  `json:"-"`
	Quality float64 `json:"quality"`
}

// Processor 執行預處理的服務，可為本地或遠端實作
type Processor interface {
	ProcessImageForOCR(ctx context.Context, data []byte, ops []Operation) (*Result, error)
}

// LocalProcessor 在本機解碼並套用像素操作
type LocalProcessor struct{}

// NewLocalProcessor 創建本地圖片處理器
func NewLocalProcessor() *LocalProcessor {
	return &LocalProcessor{}
}

// ProcessImageForOCR 依序套用操作後輸出 JPEG
func (p *LocalProcessor) ProcessImageForOCR(ctx context.Context, data []byte, ops []Operation) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, _, err := decode(data)
	if err != nil {
		return nil, err
	}

	img := toNRGBA(src)
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img = apply(img, op)
	}

	out, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}
	return &Result{Image: out, Quality: qualityScore(img)}, nil
}

// Prepared Prepare 的輸出，失敗時 Image 為原圖並附上 Warning
type Prepared struct {
	Image     []byte
	Quality   float64
	Processed bool
	Warning   string
}

// Preprocessor 包裝 Processor，失敗時退回原圖
type Preprocessor struct {
	processor Processor
	ops       []Operation
}

// NewPreprocessor 創建預處理器
func NewPreprocessor(processor Processor, ops []Operation) *Preprocessor {
	return &Preprocessor{processor: processor, ops: ops}
}

// Prepare 執行預處理，永遠回傳可用的圖片
func (p *Preprocessor) Prepare(ctx context.Context, data []byte) Prepared {
	if p == nil || p.processor == nil || len(p.ops) == 0 {
		return Prepared{Image: data}
	}

	start := time.Now()
	res, err := p.processor.ProcessImageForOCR(ctx, data, p.ops)
	if err == nil && (res == nil || len(res.Image) == 0) {
		err = fmt.Errorf("processor returned an empty image")
	}
	if err != nil {
		common.LogImageProcessing("warn", "preprocessing failed, using original image",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return Prepared{
			Image:   data,
			Warning: fmt.Sprintf("image preprocessing failed, the original image was used: %v", err),
		}
	}

	common.LogImageProcessing("info", "preprocessing completed",
		zap.Int("input_bytes", len(data)),
		zap.Int("output_bytes", len(res.Image)),
		zap.Float64("quality", res.Quality),
		zap.Duration("duration", time.Since(start)),
	)
	return Prepared{Image: res.Image, Quality: res.Quality, Processed: true}
}
