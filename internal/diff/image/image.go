package image

import (
	"image"
	"image/color"
)

const (
	// DefaultAmplification scales raw channel deltas so small changes stay visible.
	DefaultAmplification = 3.0
	// DefaultThreshold is the luma a pixel must exceed to count as different.
	DefaultThreshold = 10
	// DefaultSpacer is the gap between composite panels in pixels.
	DefaultSpacer = 10
)

// DefaultOverlay tints differing pixels in the highlighted panel.
var DefaultOverlay = color.NRGBA{R: 255, A: 180}

type DiffResult struct {
	// Image is the amplified per-channel difference.
	Image *image.NRGBA
	// Intensity is the luma of Image.
	Intensity *image.Gray
	Mask      *Mask

	DiffPixels  int
	TotalPixels int
}

// Mask marks differing pixels. It is never modified after Calculate returns.
type Mask struct {
	Rect image.Rectangle
	Pix  []bool
}

func NewMask(r image.Rectangle) *Mask {
	return &Mask{
		Rect: r,
		Pix:  make([]bool, r.Dx()*r.Dy()),
	}
}

func (m *Mask) offset(x int, y int) int {
	return (y-m.Rect.Min.Y)*m.Rect.Dx() + (x - m.Rect.Min.X)
}

func (m *Mask) At(x int, y int) bool {
	if !(image.Point{X: x, Y: y}).In(m.Rect) {
		return false
	}
	return m.Pix[m.offset(x, y)]
}

func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Alpha renders the mask as an opaque/transparent alpha image for draw.DrawMask.
func (m *Mask) Alpha() *image.Alpha {
	alpha := image.NewAlpha(m.Rect)
	for i, v := range m.Pix {
		if v {
			alpha.Pix[i] = 0xff
		}
	}
	return alpha
}
