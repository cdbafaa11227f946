// Package quality 依信心等級與圖片品質產生給使用者的建議。
package quality

import (
	"recipe-importer/internal/core/confidence"
	"recipe-importer/internal/core/image"
)

const (
	SuggestLighting     = "Improve the lighting and use a higher resolution photo so the text is easier to read."
	SuggestManualEntry  = "Consider entering the recipe manually; the automatic extraction is unreliable."
	SuggestRecapture    = "Retake the photo at a better angle, keeping the page flat and fully in frame."
	SuggestReviewFields = "Review the ingredients and steps carefully before saving."
)

// Suggest 依信心等級與圖片品質報告產生建議，report 可為 nil
func Suggest(band confidence.Band, report *image.QualityReport) []string {
	suggestions := make([]string, 0, 4)

	if band.Below(confidence.BandRegular) {
		suggestions = append(suggestions, SuggestLighting)
	}
	if band.Below(confidence.BandLow) {
		suggestions = append(suggestions, SuggestManualEntry, SuggestRecapture)
	}
	if band == confidence.BandRegular {
		suggestions = append(suggestions, SuggestReviewFields)
	}
	if report != nil {
		suggestions = append(suggestions, report.Issues...)
	}

	return suggestions
}
