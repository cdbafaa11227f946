package image

// 圖片大小問題，原文會直接附加到建議清單
const (
	IssueTooSmall = "Image is very small (under 0.1MB); text may be unreadable."
	IssueTooLarge = "Image is very large (over 10MB); consider compressing it."
)

// Limits 圖片大小門檻
type Limits struct {
	MinSizeBytes int64
	MaxSizeBytes int64
}

// DefaultLimits 0.1MB 與 10MB
var DefaultLimits = Limits{MinSizeBytes: 100 * 1024, MaxSizeBytes: 10 * 1024 * 1024}

// QualityReport 圖片品質報告
type QualityReport struct {
	SizeBytes int64    `json:"size_bytes"`
	Issues    []string `json:"issues,omitempty"`
}

// AssessSize 依檔案大小產生品質報告
func AssessSize(data []byte, limits Limits) QualityReport {
	size := int64(len(data))
	report := QualityReport{SizeBytes: size}
	switch {
	case size < limits.MinSizeBytes:
		report.Issues = append(report.Issues, IssueTooSmall)
	case limits.MaxSizeBytes > 0 && size > limits.MaxSizeBytes:
		report.Issues = append(report.Issues, IssueTooLarge)
	}
	return report
}
