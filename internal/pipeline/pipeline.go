package pipeline

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	diffimage "visual-diff/internal/diff/image"
	"visual-diff/internal/report"
	"visual-diff/internal/resolve"
	"visual-diff/internal/storage"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type Options struct {
	Amplification float64
	Threshold     int
	Spacer        int
	Overlay       color.NRGBA
}

func DefaultOptions() Options {
	return Options{
		Amplification: diffimage.DefaultAmplification,
		Threshold:     diffimage.DefaultThreshold,
		Spacer:        diffimage.DefaultSpacer,
		Overlay:       diffimage.DefaultOverlay,
	}
}

type Pipeline struct {
	Storage  storage.Storage
	Options  Options
	Stdout   io.Writer
	Logger   *slog.Logger
	Notifier *report.Notifier
}

// Run compares paths.Before against paths.After and writes the composite to
// paths.Out. Missing inputs fail with *resolve.MissingInputError before
// anything is written.
func (p *Pipeline) Run(ctx context.Context, paths resolve.Paths) (*report.Summary, error) {
	if err := resolve.Check(ctx, p.Storage, paths); err != nil {
		return nil, err
	}

	var before *image.NRGBA
	var after *image.NRGBA
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			img, err := p.load(ctx, paths.Before)
			if err != nil {
				return xerrors.Errorf("failed to load before image: %w", err)
			}
			before = img
			return nil
		})

		eg.Go(func() error {
			img, err := p.load(ctx, paths.After)
			if err != nil {
				return xerrors.Errorf("failed to load after image: %w", err)
			}
			after = img
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	size := diffimage.CanvasSize(before, after)
	before = diffimage.Pad(before, size)
	after = diffimage.Pad(after, size)
	p.logger().Debug("normalized canvas", "width", size.X, "height", size.Y)

	diffResult, err := diffimage.NewPixelDiff(p.Options.Amplification, p.Options.Threshold).Calculate(before, after)
	if err != nil {
		return nil, xerrors.Errorf("failed to calculate diff: %w", err)
	}

	summary := report.NewSummary(paths.Before, paths.After, paths.Out, diffResult.DiffPixels, diffResult.TotalPixels)
	if err := summary.Print(p.Stdout); err != nil {
		return nil, xerrors.Errorf("failed to print summary: %w", err)
	}

	highlighted := diffimage.Highlight(after, diffResult.Mask, p.Options.Overlay)
	composite := diffimage.Composite(before, diffResult.Image, highlighted, p.Options.Spacer)

	data, err := diffimage.Encode(composite, paths.Out)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode composite: %w", err)
	}

	if _, err := p.Storage.Put(ctx, paths.Out, data); err != nil {
		return nil, xerrors.Errorf("failed to save composite: %w", err)
	}
	if err := report.PrintSaved(p.Stdout, paths.Out); err != nil {
		return nil, xerrors.Errorf("failed to print output path: %w", err)
	}
	p.logger().Debug("saved composite", "path", paths.Out, "bytes", len(data))

	if p.Notifier != nil {
		if err := p.Notifier.Send(ctx, summary); err != nil {
			return nil, xerrors.Errorf("failed to notify callback: %w", err)
		}
	}

	return summary, nil
}

func (p *Pipeline) load(ctx context.Context, path string) (*image.NRGBA, error) {
	data, err := p.Storage.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return diffimage.Decode(data)
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
