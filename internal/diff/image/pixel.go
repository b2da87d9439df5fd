package image

import (
	"image"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"golang.org/x/xerrors"
)

type PixelDiff struct {
	threshold int
	amplify   [256]uint8
}

// NewPixelDiff expects a finite amplification >= 0 and a threshold in
// 0..255. Anything else is not rejected: amplified values are clamped to
// 0..255 and a NaN amplification behaves like 0, so callers validate user
// input before getting here.
func NewPixelDiff(amplification float64, threshold int) *PixelDiff {
	p := &PixelDiff{
		threshold: threshold,
	}
	for i := range p.amplify {
		v := math.Floor(float64(i)*amplification + 0.5)
		if math.IsNaN(v) {
			v = 0
		}
		p.amplify[i] = uint8(min(max(v, 0), 255))
	}
	return p
}

// Calculate compares two images of identical bounds. The amplified delta is
// reduced to luma and every pixel whose luma exceeds the threshold is masked.
func (p *PixelDiff) Calculate(baseline *image.NRGBA, target *image.NRGBA) (*DiffResult, error) {
	bounds := baseline.Bounds()
	if !bounds.Eq(target.Bounds()) {
		return nil, xerrors.Errorf("image bounds differ: %v != %v", bounds, target.Bounds())
	}

	diff := image.NewNRGBA(bounds)
	forEachRowRange(bounds, func(startY int, endY int) {
		p.processNRGBA(baseline, target, diff, bounds.Min.X, bounds.Max.X, startY, endY)
	})

	intensity := luma(diff)

	mask := NewMask(bounds)
	var diffPixelCount int64
	forEachRowRange(bounds, func(startY int, endY int) {
		p.processMask(intensity, mask, startY, endY, &diffPixelCount)
	})

	return &DiffResult{
		Image:       diff,
		Intensity:   intensity,
		Mask:        mask,
		DiffPixels:  int(diffPixelCount),
		TotalPixels: bounds.Dx() * bounds.Dy(),
	}, nil
}

// forEachRowRange splits the rows of bounds across GOMAXPROCS workers and
// waits for all of them.
func forEachRowRange(bounds image.Rectangle, fn func(startY int, endY int)) {
	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	numWorkers := runtime.GOMAXPROCS(0)

	height := bounds.Dy()
	rowsPerWorker := height / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		startY := bounds.Min.Y + i*rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = bounds.Max.Y
		}

		go func(startY int, endY int) {
			defer wg.Done()
			if startY < endY {
				fn(startY, endY)
			}
		}(startY, endY)
	}
	wg.Wait()
}

func (p *PixelDiff) processNRGBA(baseline *image.NRGBA, target *image.NRGBA, diff *image.NRGBA, minX int, maxX int, startY int, endY int) {
	width := (maxX - minX) * 4
	for y := startY; y < endY; y++ {
		baselineRow := baseline.Pix[baseline.PixOffset(minX, y):][:width]
		targetRow := target.Pix[target.PixOffset(minX, y):][:width]
		diffRow := diff.Pix[diff.PixOffset(minX, y):][:width]

		for i := range diffRow {
			diffRow[i] = p.amplify[absDiff(baselineRow[i], targetRow[i])]
		}
	}
}

func (p *PixelDiff) processMask(intensity *image.Gray, mask *Mask, startY int, endY int, diffCount *int64) {
	var localDiff int64

	bounds := intensity.Bounds()
	for y := startY; y < endY; y++ {
		row := intensity.Pix[intensity.PixOffset(bounds.Min.X, y):][:bounds.Dx()]
		maskRow := mask.Pix[mask.offset(bounds.Min.X, y):][:bounds.Dx()]

		for x, v := range row {
			if int(v) > p.threshold {
				maskRow[x] = true
				localDiff++
			}
		}
	}

	atomic.AddInt64(diffCount, localDiff)
}

func absDiff(a uint8, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// luma reduces img with Rec. 601 weights (0.299, 0.587, 0.114), rounding
// half up. Alpha is ignored.
func luma(img *image.NRGBA) *image.Gray {
	bounds := img.Bounds()
	gray := imaging.Grayscale(img)

	out := image.NewGray(bounds)
	for y := 0; y < bounds.Dy(); y++ {
		src := gray.Pix[y*gray.Stride:][:bounds.Dx()*4]
		dst := out.Pix[y*out.Stride:][:bounds.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return out
}
