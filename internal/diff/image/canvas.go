package image

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/xerrors"

	// Decoders beyond the png/jpeg/gif set imaging registers itself.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode parses any registered raster format into an origin-anchored NRGBA
// buffer. Formats without alpha come back fully opaque.
func Decode(data []byte) (*image.NRGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, xerrors.Errorf("failed to decode image: %w", err)
	}
	return imaging.Clone(img), nil
}

// CanvasSize is the componentwise maximum of both image sizes.
func CanvasSize(a image.Image, b image.Image) image.Point {
	sa := a.Bounds().Size()
	sb := b.Bounds().Size()
	return image.Point{
		X: max(sa.X, sb.X),
		Y: max(sa.Y, sb.Y),
	}
}

// Pad anchors img at the top-left of a transparent canvas of the given size.
// Images that already have that size are returned as is.
func Pad(img *image.NRGBA, size image.Point) *image.NRGBA {
	if img.Bounds().Size() == size && img.Bounds().Min == (image.Point{}) {
		return img
	}

	canvas := imaging.New(size.X, size.Y, color.NRGBA{})
	return imaging.Paste(canvas, img, image.Point{})
}
