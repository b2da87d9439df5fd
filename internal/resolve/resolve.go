package resolve

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/xerrors"
)

// Paths are the two comparison inputs and the composite output.
type Paths struct {
	Before string
	After  string
	Out    string
}

// Resolver fills in paths that were not given on the command line from
// the screenshot directory under Root.
type Resolver struct {
	Root string
}

func NewResolver(root string) *Resolver {
	if root == "" {
		root = "."
	}
	return &Resolver{
		Root: root,
	}
}

func (r *Resolver) Defaults() Paths {
	directory := filepath.Join(r.Root, "screenshot")
	return Paths{
		Before: filepath.Join(directory, "before.png"),
		After:  filepath.Join(directory, "after.png"),
		Out:    filepath.Join(directory, "diff.png"),
	}
}

// Resolve maps up to three positional arguments onto Paths. Extra arguments
// are ignored.
func (r *Resolver) Resolve(args []string) Paths {
	paths := r.Defaults()
	if len(args) >= 1 {
		paths.Before = args[0]
	}
	if len(args) >= 2 {
		paths.After = args[1]
	}
	if len(args) >= 3 {
		paths.Out = args[2]
	}
	return paths
}

type MissingInputError struct {
	Before string
	After  string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("input files not found: before=%s after=%s", e.Before, e.After)
}

type Exister interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// Check fails with *MissingInputError when either input does not exist.
func Check(ctx context.Context, e Exister, paths Paths) error {
	beforeExists, err := e.Exists(ctx, paths.Before)
	if err != nil {
		return xerrors.Errorf("failed to check %s: %w", paths.Before, err)
	}
	afterExists, err := e.Exists(ctx, paths.After)
	if err != nil {
		return xerrors.Errorf("failed to check %s: %w", paths.After, err)
	}

	if !beforeExists || !afterExists {
		return &MissingInputError{
			Before: paths.Before,
			After:  paths.After,
		}
	}
	return nil
}
