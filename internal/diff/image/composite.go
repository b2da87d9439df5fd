package image

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/xerrors"
)

// Highlight blends overlay into a copy of target wherever mask is set, using
// the overlay alpha as the blend weight.
func Highlight(target *image.NRGBA, mask *Mask, overlay color.NRGBA) *image.NRGBA {
	highlighted := imaging.Clone(target)
	bounds := highlighted.Bounds()

	draw.DrawMask(highlighted, bounds, image.NewUniform(overlay), image.Point{}, mask.Alpha(), mask.Rect.Min, draw.Over)

	return highlighted
}

// Composite lays out baseline, diff and highlighted left to right on an
// opaque white canvas, separated by spacer pixels.
func Composite(baseline *image.NRGBA, diff *image.NRGBA, highlighted *image.NRGBA, spacer int) *image.NRGBA {
	size := baseline.Bounds().Size()

	canvas := imaging.New(size.X*3+spacer*2, size.Y, color.White)
	canvas = imaging.Paste(canvas, baseline, image.Pt(0, 0))
	canvas = imaging.Paste(canvas, diff, image.Pt(size.X+spacer, 0))
	canvas = imaging.Paste(canvas, highlighted, image.Pt(size.X*2+spacer*2, 0))

	return canvas
}

// Encode serializes img in the format implied by the extension of path.
func Encode(img image.Image, path string) ([]byte, error) {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to determine output format of %s: %w", path, err)
	}

	var buffer bytes.Buffer
	if err := imaging.Encode(&buffer, img, format); err != nil {
		return nil, xerrors.Errorf("failed to encode image: %w", err)
	}
	return buffer.Bytes(), nil
}
