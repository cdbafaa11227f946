package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(96 + (x*64)/w)
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func meanLuma(t *testing.T, data []byte) (float64, image.Rectangle) {
	t.Helper()
	img, _, err := decode(data)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	n := toNRGBA(img)
	var sum float64
	for i := 0; i+3 < len(n.Pix); i += 4 {
		sum += float64(luminance(n.Pix[i], n.Pix[i+1], n.Pix[i+2]))
	}
	return sum / float64(len(n.Pix)/4), n.Bounds()
}

func TestParseOperations(t *testing.T) {
	ops, err := ParseOperations([]string{"enhance", "contrast:1.2", " Brightness:1.1 ", ""})
	if err != nil {
		t.Fatalf("ParseOperations() error = %v", err)
	}
	want := []Operation{{Name: OpEnhance}, {Name: OpContrast, Level: 1.2}, {Name: OpBrightness, Level: 1.1}}
	if len(ops) != len(want) {
		t.Fatalf("ops = %+v", ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("ops[%d] = %+v, want %+v", i, ops[i], want[i])
		}
	}
	if ops[1].String() != "contrast:1.2" {
		t.Errorf("String() = %q", ops[1].String())
	}

	for _, bad := range []string{"sharpen", "contrast:abc", "brightness:-1", "enhance:2"} {
		if _, err := ParseOperations([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestLocalProcessorBrightness(t *testing.T) {
	src := samplePNG(t, 40, 20)
	before, _ := meanLuma(t, src)

	res, err := NewLocalProcessor().ProcessImageForOCR(context.Background(), src, []Operation{{Name: OpBrightness, Level: 1.5}})
	if err != nil {
		t.Fatalf("ProcessImageForOCR() error = %v", err)
	}
	after, _ := meanLuma(t, res.Image)
	if after <= before {
		t.Fatalf("brightness did not increase: before %.1f after %.1f", before, after)
	}
	if res.Quality < 0 || res.Quality > 1 {
		t.Fatalf("quality out of range: %v", res.Quality)
	}
}

func TestLocalProcessorEnhanceUpscales(t *testing.T) {
	src := samplePNG(t, 300, 100)
	res, err := NewLocalProcessor().ProcessImageForOCR(context.Background(), src, []Operation{{Name: OpEnhance}})
	if err != nil {
		t.Fatalf("ProcessImageForOCR() error = %v", err)
	}
	_, bounds := meanLuma(t, res.Image)
	if bounds.Dx() != 600 || bounds.Dy() != 200 {
		t.Fatalf("bounds = %v, want 600x200", bounds)
	}
}

func TestLocalProcessorRejectsGarbage(t *testing.T) {
	if _, err := NewLocalProcessor().ProcessImageForOCR(context.Background(), []byte("not an image"), nil); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLocalProcessorHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocalProcessor().ProcessImageForOCR(ctx, samplePNG(t, 10, 10), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type failingProcessor struct{}

func (failingProcessor) ProcessImageForOCR(context.Context, []byte, []Operation) (*Result, error) {
	return nil, errors.New("processor offline")
}

func TestPreprocessorFallsBackToOriginal(t *testing.T) {
	src := samplePNG(t, 10, 10)
	p := NewPreprocessor(failingProcessor{}, []Operation{{Name: OpEnhance}})

	out := p.Prepare(context.Background(), src)
	if !bytes.Equal(out.Image, src) {
		t.Fatalf("expected original image on failure")
	}
	if out.Processed {
		t.Fatalf("processed flag should be false")
	}
	if !strings.Contains(out.Warning, "processor offline") {
		t.Fatalf("warning = %q", out.Warning)
	}
}

func TestPreprocessorWithoutOperationsIsIdentity(t *testing.T) {
	src := samplePNG(t, 10, 10)
	out := NewPreprocessor(NewLocalProcessor(), nil).Prepare(context.Background(), src)
	if !bytes.Equal(out.Image, src) || out.Warning != "" {
		t.Fatalf("unexpected result: %+v", out)
	}
	var nilPre *Preprocessor
	if got := nilPre.Prepare(context.Background(), src); !bytes.Equal(got.Image, src) {
		t.Fatalf("nil preprocessor should pass through")
	}
}

func TestAssessSize(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		issue string
	}{
		{"tiny", 50 * 1024, IssueTooSmall},
		{"normal", 2 * 1024 * 1024, ""},
		{"huge", 11 * 1024 * 1024, IssueTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := AssessSize(make([]byte, tt.size), DefaultLimits)
			if report.SizeBytes != int64(tt.size) {
				t.Fatalf("size = %d", report.SizeBytes)
			}
			if tt.issue == "" && len(report.Issues) != 0 {
				t.Fatalf("unexpected issues: %v", report.Issues)
			}
			if tt.issue != "" && (len(report.Issues) != 1 || report.Issues[0] != tt.issue) {
				t.Fatalf("issues = %v, want %q", report.Issues, tt.issue)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	src := samplePNG(t, 4, 4)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(src)

	got, err := DecodePayload(uri)
	if err != nil || !bytes.Equal(got, src) {
		t.Fatalf("DecodePayload(data uri) = %v, %v", len(got), err)
	}
	raw := strings.SplitN(uri, ",", 2)[1]
	if got, err := DecodePayload(raw); err != nil || !bytes.Equal(got, src) {
		t.Fatalf("DecodePayload(raw) failed: %v", err)
	}
	for _, bad := range []string{"", "data:text/plain;base64,aGVsbG8=", "data:image/png,abc", "%%%"} {
		if _, err := DecodePayload(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
