package session

import (
	"regexp"
	"strings"

	"recipe-importer/internal/core/remote"
	"recipe-importer/internal/core/source"
	"recipe-importer/internal/pkg/common"
)

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// RawImportInput 單次匯入的輸入，Kind 為空時由分類器判斷
type RawImportInput struct {
	Kind             source.Kind
	Text             string
	Image            []byte
	DeclaredLanguage string
	Options          remote.Options
}

// ValidateInput 在建立工作階段前檢查輸入
func ValidateInput(in RawImportInput) error {
	return in.validate()
}

// validate 在分類前檢查輸入，錯誤時工作階段維持 idle
func (in RawImportInput) validate() error {
	if in.Kind != "" && !in.Kind.Valid() {
		return common.NewValidationError("unknown import kind " + string(in.Kind))
	}
	if in.Kind == source.KindImage {
		if len(in.Image) == 0 {
			return common.NewValidationError("image payload is empty")
		}
		return nil
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return common.NewValidationError("import payload is empty")
	}
	if (in.Kind == source.KindURL || in.Kind == source.KindSocial) && !schemePattern.MatchString(text) {
		return common.NewValidationError("payload is not an http(s) URL")
	}
	return nil
}

// clone 複製圖片位元組，避免呼叫端之後修改
func (in RawImportInput) clone() RawImportInput {
	out := in
	if in.Image != nil {
		out.Image = append([]byte(nil), in.Image...)
	}
	out.Text = strings.TrimSpace(in.Text)
	return out
}

// language 以宣告語言為主，其次是選項中的語言
func (in RawImportInput) language() string {
	if in.DeclaredLanguage != "" {
		return in.DeclaredLanguage
	}
	return in.Options.Language
}
