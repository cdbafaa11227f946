// Package remote 定義遠端匯入服務的介面與 HTTP 客戶端。
package remote

import (
	"context"

	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/core/source"
)

// Options 匯入選項，原樣轉送給遠端服務
type Options struct {
	ExtractNutrition bool   `json:"extract_nutrition"`
	AutoCategories   bool   `json:"auto_categories"`
	ExtractImages    bool   `json:"extract_images"`
	ExtractVideo     bool   `json:"extract_video"`
	Language         string `json:"language,omitempty"`
}

// ImportResponse 遠端匯入或結構化的結果
type ImportResponse struct {
	Recipe     recipe.Draft `json:"recipe"`
	Confidence float64      `json:"confidence"`
	Warnings   []string     `json:"warnings,omitempty"`
}

// BoundingBox 文字區塊位置
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextBlock OCR 辨識出的文字區塊
type TextBlock struct {
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"bounding_box"`
	BlockType   string      `json:"block_type,omitempty"`
}

// ExtractionResult OCR 結果
type ExtractionResult struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Blocks     []TextBlock `json:"blocks,omitempty"`
}

// Importer 從網址、社群貼文或文字匯入
type Importer interface {
	ImportFromURL(ctx context.Context, url string, opts Options) (*ImportResponse, error)
	ImportFromSocial(ctx context.Context, platform source.Platform, url string, opts Options) (*ImportResponse, error)
	ImportFromText(ctx context.Context, text string, opts Options) (*ImportResponse, error)
}

// TextExtractor 圖片文字辨識
type TextExtractor interface {
	ExtractTextFromImage(ctx context.Context, image []byte, language string, opts Options) (*ExtractionResult, error)
}

// Structurer 將 OCR 文字結構化為草稿
type Structurer interface {
	StructureRecipeText(ctx context.Context, text, language string) (*ImportResponse, error)
}

// Saver 儲存完成的草稿，回傳食譜 ID
type Saver interface {
	SaveRecipe(ctx context.Context, draft recipe.Draft) (string, error)
}
