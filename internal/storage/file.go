package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"
)

type fileStorage struct {
	config FileConfig
}

type FileConfig struct {
	// Directory is prepended to relative paths. Empty means the working directory.
	Directory string
}

// NewFileStorage creates a new file storage backend
func NewFileStorage(ctx context.Context, f FileConfig) (Storage, error) {
	return &fileStorage{
		config: f,
	}, nil
}

func (a *fileStorage) resolve(path string) string {
	if a.config.Directory == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.config.Directory, path)
}

func (a *fileStorage) Put(ctx context.Context, path string, data []byte) (string, error) {
	filePath := a.resolve(path)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", xerrors.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", xerrors.Errorf("failed to write file: %w", err)
	}

	return filePath, nil
}

func (a *fileStorage) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(a.resolve(path))
	if err != nil {
		return nil, xerrors.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

func (a *fileStorage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(a.resolve(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, xerrors.Errorf("failed to stat file: %w", err)
}
