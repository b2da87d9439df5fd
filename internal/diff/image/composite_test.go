package image

import (
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func withinOne(a color.NRGBA, b color.NRGBA) bool {
	near := func(x uint8, y uint8) bool {
		return absDiff(x, y) <= 1
	}
	return near(a.R, b.R) && near(a.G, b.G) && near(a.B, b.B) && near(a.A, b.A)
}

func TestHighlight(t *testing.T) {
	target := createTestImage(2, 1, color.White)
	mask := NewMask(target.Bounds())
	mask.Pix[1] = true

	highlighted := Highlight(target, mask, DefaultOverlay)

	if diff := cmp.Diff(color.NRGBA{R: 255, G: 255, B: 255, A: 255}, highlighted.NRGBAAt(0, 0)); diff != "" {
		t.Errorf("unmasked pixel changed (-want +got):\n%s", diff)
	}

	// white blended with 180/255 red: 255*(75/255) = 75 in G and B
	want := color.NRGBA{R: 255, G: 75, B: 75, A: 255}
	if got := highlighted.NRGBAAt(1, 0); !withinOne(want, got) {
		t.Errorf("masked pixel = %v, want %v", got, want)
	}

	if diff := cmp.Diff(color.NRGBA{R: 255, G: 255, B: 255, A: 255}, target.NRGBAAt(1, 0)); diff != "" {
		t.Errorf("target was modified (-want +got):\n%s", diff)
	}
}

func TestHighlight_Black(t *testing.T) {
	target := createTestImage(1, 1, color.Black)
	mask := NewMask(target.Bounds())
	mask.Pix[0] = true

	highlighted := Highlight(target, mask, DefaultOverlay)

	want := color.NRGBA{R: 180, A: 255}
	if got := highlighted.NRGBAAt(0, 0); !withinOne(want, got) {
		t.Errorf("masked pixel = %v, want %v", got, want)
	}
}

func TestComposite(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	green := color.NRGBA{G: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}

	baseline := createTestImage(4, 3, red)
	diff := createTestImage(4, 3, green)
	highlighted := createTestImage(4, 3, blue)

	composite := Composite(baseline, diff, highlighted, DefaultSpacer)

	if d := cmp.Diff(image.Rect(0, 0, 4*3+DefaultSpacer*2, 3), composite.Bounds()); d != "" {
		t.Fatalf("(-want +got):\n%s", d)
	}

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < 3; y++ {
		for x := 0; x < composite.Bounds().Dx(); x++ {
			var want color.NRGBA
			switch {
			case x < 4:
				want = red
			case x < 4+DefaultSpacer:
				want = white
			case x < 8+DefaultSpacer:
				want = green
			case x < 8+DefaultSpacer*2:
				want = white
			default:
				want = blue
			}
			if d := cmp.Diff(want, composite.NRGBAAt(x, y)); d != "" {
				t.Fatalf("pixel (%d,%d) (-want +got):\n%s", x, y, d)
			}
		}
	}
}

func TestComposite_TransparentDiffPanel(t *testing.T) {
	baseline := createTestImage(2, 2, color.Black)
	diff := createTestImage(2, 2, color.NRGBA{})
	highlighted := createTestImage(2, 2, color.Black)

	composite := Composite(baseline, diff, highlighted, DefaultSpacer)

	if d := cmp.Diff(color.NRGBA{}, composite.NRGBAAt(2+DefaultSpacer, 0)); d != "" {
		t.Errorf("diff panel should replace the background (-want +got):\n%s", d)
	}
}

func TestEncode(t *testing.T) {
	img := createTestImage(3, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 40})

	data, err := Encode(img, "screenshot/diff.png")
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(img.Pix, decoded.Pix); d != "" {
		t.Errorf("(-want +got):\n%s", d)
	}

	if _, err := Encode(img, "screenshot/diff.unknown"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
