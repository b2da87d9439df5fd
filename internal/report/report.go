package report

import (
	"fmt"
	"io"
)

type Summary struct {
	BeforePath  string  `json:"beforePath"`
	AfterPath   string  `json:"afterPath"`
	DiffPath    string  `json:"diffPath"`
	DiffPixels  int     `json:"diffPixels"`
	TotalPixels int     `json:"totalPixels"`
	DiffAmount  float64 `json:"diffAmount"`
}

func NewSummary(beforePath string, afterPath string, diffPath string, diffPixels int, totalPixels int) *Summary {
	s := &Summary{
		BeforePath:  beforePath,
		AfterPath:   afterPath,
		DiffPath:    diffPath,
		DiffPixels:  diffPixels,
		TotalPixels: totalPixels,
	}
	if totalPixels > 0 {
		s.DiffAmount = float64(diffPixels) / float64(totalPixels)
	}
	return s
}

// Percentage is the share of differing pixels in [0, 100].
func (s *Summary) Percentage() float64 {
	if s.TotalPixels == 0 {
		return 0.0
	}
	return float64(s.DiffPixels) / float64(s.TotalPixels) * 100
}

// Print writes the line scripted pipelines parse, so its shape must not change.
func (s *Summary) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Diff pixels: %d / %d (%.4f%%)\n", s.DiffPixels, s.TotalPixels, s.Percentage())
	return err
}

func PrintSaved(w io.Writer, path string) error {
	_, err := fmt.Fprintf(w, "Saved visual diff to: %s\n", path)
	return err
}

func PrintMissing(w io.Writer, beforePath string, afterPath string) error {
	_, err := fmt.Fprintf(w, "Error: input files not found:\n  before: %s\n  after:  %s\n", beforePath, afterPath)
	return err
}
