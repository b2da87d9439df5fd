package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"
	"visual-diff/internal/pipeline"
	"visual-diff/internal/report"
	"visual-diff/internal/resolve"
	"visual-diff/internal/storage"

	"golang.org/x/xerrors"
)

func envOrDefaultValue[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case string:
		return any(value).(T)
	case int:
		if intValue, err := strconv.Atoi(value); err == nil {
			return any(intValue).(T)
		}
	case float64:
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return any(floatValue).(T)
		}
	case bool:
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return any(boolValue).(T)
		}
	case time.Duration:
		if durationValue, err := time.ParseDuration(value); err == nil {
			return any(durationValue).(T)
		}
	}

	return defaultValue
}

var Debug = false

func newLogger(stderr io.Writer) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("GO_LOG"); ok {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, xerrors.Errorf("failed to parse log level: %w", err)
		}
	}
	handlerOpts := &slog.HandlerOptions{
		Level: logLevel,
		// https://opentelemetry.io/docs/specs/otel/logs/data-model/
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.LevelKey:
				a.Key = "severitytext"
			case slog.MessageKey:
				a.Key = "body"
			}
			return a
		},
	}
	if Debug {
		return slog.New(slog.NewTextHandler(stderr, handlerOpts)), nil
	}
	return slog.New(slog.NewJSONHandler(stderr, handlerOpts)), nil
}

func validateOptions(threshold int, amplification float64, spacer int) error {
	if threshold < 0 || threshold > 255 {
		return xerrors.Errorf("threshold must be within 0..255: %d", threshold)
	}
	if math.IsNaN(amplification) || math.IsInf(amplification, 0) || amplification < 0 {
		return xerrors.Errorf("amplification must be a finite non-negative number: %v", amplification)
	}
	if spacer < 0 {
		return xerrors.Errorf("spacer must not be negative: %d", spacer)
	}
	return nil
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	var root string
	var threshold int
	var amplification float64
	var spacer int
	var callbackURL string

	flags := flag.NewFlagSet("visual-diff", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: visual-diff [flags] [before_path] [after_path] [out_path]\n")
		flags.PrintDefaults()
	}
	flags.StringVar(&root, "root", envOrDefaultValue("VISUAL_DIFF_ROOT", "."), "Workspace root holding screenshot/{before,after,diff}.png")
	flags.IntVar(&threshold, "threshold", envOrDefaultValue("VISUAL_DIFF_THRESHOLD", 10), "Luma (0-255) a pixel must exceed to count as different")
	flags.Float64Var(&amplification, "amplification", envOrDefaultValue("VISUAL_DIFF_AMPLIFICATION", 3.0), "Factor applied to channel differences before thresholding")
	flags.IntVar(&spacer, "spacer", envOrDefaultValue("VISUAL_DIFF_SPACER", 10), "Gap between composite panels in pixels")
	flags.StringVar(&callbackURL, "callback-url", envOrDefaultValue("VISUAL_DIFF_CALLBACK_URL", ""), "Callback URL to send the JSON summary to")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if err := validateOptions(threshold, amplification, spacer); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		flags.Usage()
		return 2
	}

	logger, err := newLogger(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	paths := resolve.NewResolver(root).Resolve(flags.Args())

	fileStorage, err := storage.NewFileStorage(ctx, storage.FileConfig{})
	if err != nil {
		logger.Error("failed to create file storage backend", "error", err)
		return 1
	}
	mux := storage.NewMux(fileStorage)
	for _, path := range []string{paths.Before, paths.After, paths.Out} {
		if storage.Scheme(path) == "s3" {
			s3, err := storage.NewS3Storage(ctx)
			if err != nil {
				logger.Error("failed to create S3 storage backend", "error", err)
				return 1
			}
			mux.Handle("s3", s3)
			break
		}
	}

	options := pipeline.DefaultOptions()
	options.Threshold = threshold
	options.Amplification = amplification
	options.Spacer = spacer

	p := &pipeline.Pipeline{
		Storage: mux,
		Options: options,
		Stdout:  stdout,
		Logger:  logger,
	}
	if callbackURL != "" {
		p.Notifier = report.NewNotifier(callbackURL)
	}

	if _, err := p.Run(ctx, paths); err != nil {
		var missing *resolve.MissingInputError
		if errors.As(err, &missing) {
			_ = report.PrintMissing(stdout, missing.Before, missing.After)
			return 1
		}
		logger.Error("failed to generate visual diff", "error", err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
