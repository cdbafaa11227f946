package image

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// 預處理操作名稱
const (
	OpEnhance    = "enhance"
	OpContrast   = "contrast"
	OpBrightness = "brightness"
)

// enhance 時放大到的最小寬度
const minOCRWidth = 1000

// Operation 單一預處理操作，Level 為倍率，1.0 表示不變
type Operation struct {
	Name  string  `json:"name"`
	Level float64 `json:"level,omitempty"`
}

// String 輸出為 "contrast:1.2" 形式
func (o Operation) String() string {
	if o.Name == OpEnhance {
		return o.Name
	}
	return o.Name + ":" + strconv.FormatFloat(o.Level, 'f', -1, 64)
}

// ParseOperations 解析 "enhance"、"contrast:1.2"、"brightness:1.1" 形式的操作
func ParseOperations(specs []string) ([]Operation, error) {
	ops := make([]Operation, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(strings.ToLower(spec))
		if spec == "" {
			continue
		}
		name, rawLevel, hasLevel := strings.Cut(spec, ":")
		switch name {
		case OpEnhance:
			if hasLevel {
				return nil, fmt.Errorf("operation %q takes no level", spec)
			}
			ops = append(ops, Operation{Name: OpEnhance})
		case OpContrast, OpBrightness:
			level := 1.0
			if hasLevel {
				v, err := strconv.ParseFloat(rawLevel, 64)
				if err != nil || v <= 0 || math.IsInf(v, 0) {
					return nil, fmt.Errorf("invalid level in operation %q", spec)
				}
				level = v
			}
			ops = append(ops, Operation{Name: name, Level: level})
		default:
			return nil, fmt.Errorf("unknown image operation %q", spec)
		}
	}
	return ops, nil
}

// toNRGBA 複製成可直接操作像素的 NRGBA
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func apply(img *image.NRGBA, op Operation) *image.NRGBA {
	switch op.Name {
	case OpEnhance:
		return enhance(img)
	case OpContrast:
		mapChannels(img, func(v float64) float64 { return (v-128)*op.Level + 128 })
	case OpBrightness:
		mapChannels(img, func(v float64) float64 { return v * op.Level })
	}
	return img
}

// enhance 灰階、放大小圖並拉伸亮度範圍
func enhance(img *image.NRGBA) *image.NRGBA {
	grayscale(img)

	b := img.Bounds()
	if b.Dx() > 0 && b.Dx() < minOCRWidth {
		scale := float64(minOCRWidth) / float64(b.Dx())
		if scale > 2 {
			scale = 2
		}
		w := int(float64(b.Dx()) * scale)
		h := int(float64(b.Dy()) * scale)
		scaled := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
		img = scaled
	}

	stretch(img)
	return img
}

func grayscale(img *image.NRGBA) {
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		y := luminance(pix[i], pix[i+1], pix[i+2])
		pix[i], pix[i+1], pix[i+2] = y, y, y
	}
}

// stretch 將最暗與最亮像素拉到 0 與 255
func stretch(img *image.NRGBA) {
	lo, hi := uint8(255), uint8(0)
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		y := luminance(pix[i], pix[i+1], pix[i+2])
		if y < lo {
			lo = y
		}
		if y > hi {
			hi = y
		}
	}
	if hi <= lo {
		return
	}
	span := float64(hi - lo)
	mapChannels(img, func(v float64) float64 { return (v - float64(lo)) * 255 / span })
}

func mapChannels(img *image.NRGBA, fn func(float64) float64) {
	var lut [256]uint8
	for i := range lut {
		lut[i] = clampByte(fn(float64(i)))
	}
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = lut[pix[i]]
		pix[i+1] = lut[pix[i+1]]
		pix[i+2] = lut[pix[i+2]]
	}
}

func luminance(r, g, b uint8) uint8 {
	return clampByte(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// qualityScore 以亮度對比與解析度估算辨識品質，範圍 [0,1]
func qualityScore(img *image.NRGBA) float64 {
	pix := img.Pix
	n := len(pix) / 4
	if n == 0 {
		return 0
	}
	var sum, sumSq float64
	for i := 0; i+3 < len(pix); i += 4 {
		y := float64(luminance(pix[i], pix[i+1], pix[i+2]))
		sum += y
		sumSq += y * y
	}
	mean := sum / float64(n)
	stddev := math.Sqrt(math.Max(0, sumSq/float64(n)-mean*mean))

	contrast := math.Min(1, stddev/64)
	resolution := math.Min(1, float64(n)/1_000_000)
	return 0.6*contrast + 0.4*resolution
}
