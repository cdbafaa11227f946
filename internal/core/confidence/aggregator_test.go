package confidence

import (
	"math"
	"testing"
)

func TestBandFor(t *testing.T) {
	tests := []struct {
		v    float64
		want Band
	}{
		{1, BandExcellent},
		{0.9, BandExcellent},
		{0.89, BandGood},
		{0.8, BandGood},
		{0.79, BandRegular},
		{0.7, BandRegular},
		{0.69, BandLow},
		{0.6, BandLow},
		{0.59, BandVeryLow},
		{0, BandVeryLow},
	}
	for _, tt := range tests {
		if got := BandFor(tt.v); got != tt.want {
			t.Errorf("BandFor(%v) = %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		scores []Score
		want   float64
	}{
		{"empty", nil, 0},
		{"single remote", []Score{{StageRemoteImport, 0.92}}, 0.92},
		{"min of stages", []Score{{StageOCR, 0.85}, {StageRemoteStructuring, 0.95}}, 0.85},
		{"local ceiling", []Score{{StageOCR, 0.95}, {StageLocalStructuring, 0.9}}, LocalCeiling},
		{"local below ceiling", []Score{{StageOCR, 0.5}, {StageLocalStructuring, 0.9}}, 0.5},
		{"clamped high", []Score{{StageRemoteImport, 1.7}}, 1},
		{"clamped negative", []Score{{StageRemoteImport, -0.3}}, 0},
		{"nan", []Score{{StageOCR, math.NaN()}, {StageRemoteImport, 0.9}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.scores...)
			if got.Value != tt.want {
				t.Fatalf("Aggregate() = %v, want %v", got.Value, tt.want)
			}
			if got.Band != BandFor(tt.want) {
				t.Fatalf("band = %s", got.Band)
			}
			if got.Value < 0 || got.Value > 1 {
				t.Fatalf("value out of range: %v", got.Value)
			}
		})
	}
}

func TestAggregateNeverExceedsAnyStage(t *testing.T) {
	scores := []Score{{StageOCR, 0.81}, {StageRemoteStructuring, 0.99}, {StageRemoteImport, 0.83}}
	got := Aggregate(scores...)
	for _, s := range scores {
		if got.Value > s.Value {
			t.Fatalf("aggregate %v exceeds stage %s = %v", got.Value, s.Stage, s.Value)
		}
	}
}

func TestBandBelow(t *testing.T) {
	if !BandVeryLow.Below(BandLow) || !BandLow.Below(BandRegular) {
		t.Fatalf("ordering broken")
	}
	if BandRegular.Below(BandRegular) || BandExcellent.Below(BandGood) {
		t.Fatalf("ordering broken")
	}
}
