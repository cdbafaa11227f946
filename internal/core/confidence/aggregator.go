// Package confidence 將各階段的信心分數合併為單一分數與等級。
package confidence

import "math"

// Stage 產生信心分數的處理階段
type Stage string

const (
	StageOCR               Stage = "ocr"
	StageRemoteImport      Stage = "remote_import"
	StageRemoteStructuring Stage = "remote_structuring"
	StageLocalStructuring  Stage = "local_structuring"
)

// LocalCeiling 本地解析產生草稿時的信心上限
const LocalCeiling = 0.7

// Band 信心等級
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandRegular   Band = "regular"
	BandLow       Band = "low"
	BandVeryLow   Band = "very_low"
)

var bandRank = map[Band]int{
	BandVeryLow:   0,
	BandLow:       1,
	BandRegular:   2,
	BandGood:      3,
	BandExcellent: 4,
}

// Below 判斷等級是否低於 other
func (b Band) Below(other Band) bool {
	return bandRank[b] < bandRank[other]
}

// Score 單一階段的分數
type Score struct {
	Stage Stage   `json:"stage"`
	Value float64 `json:"value"`
}

// Result 合併後的信心
type Result struct {
	Value  float64 `json:"value"`
	Band   Band    `json:"band"`
	Stages []Score `json:"stages"`
}

// Clamp 將分數限制在 [0,1]，NaN 視為 0
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// BandFor 依分數取得等級
func BandFor(v float64) Band {
	switch {
	case v >= 0.9:
		return BandExcellent
	case v >= 0.8:
		return BandGood
	case v >= 0.7:
		return BandRegular
	case v >= 0.6:
		return BandLow
	default:
		return BandVeryLow
	}
}

// Aggregate 取各階段最小值；本地解析參與時不超過 LocalCeiling
func Aggregate(scores ...Score) Result {
	if len(scores) == 0 {
		return Result{Value: 0, Band: BandVeryLow}
	}

	stages := make([]Score, 0, len(scores))
	value := 1.0
	local := false
	for _, s := range scores {
		s.Value = Clamp(s.Value)
		stages = append(stages, s)
		if s.Value < value {
			value = s.Value
		}
		if s.Stage == StageLocalStructuring {
			local = true
		}
	}
	if local && value > LocalCeiling {
		value = LocalCeiling
	}

	return Result{Value: value, Band: BandFor(value), Stages: stages}
}
