package storage

import (
	"context"
	"strings"

	"golang.org/x/xerrors"
)

type Storage interface {
	// Put stores data at the given path and returns the location it was written to
	Put(ctx context.Context, path string, data []byte) (string, error)
	// Get retrieves data from the given path
	Get(ctx context.Context, path string) ([]byte, error)
	// Exists reports whether something is stored at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Scheme returns the URL scheme of path, or "" for plain file system paths.
func Scheme(path string) string {
	scheme, _, ok := strings.Cut(path, "://")
	if !ok || scheme == "" || strings.ContainsAny(scheme, `/\`) {
		return ""
	}
	return scheme
}

// Mux dispatches each path to the backend registered for its scheme.
// Paths without a scheme go to the fallback backend.
type Mux struct {
	fallback Storage
	backends map[string]Storage
}

func NewMux(fallback Storage) *Mux {
	return &Mux{
		fallback: fallback,
		backends: map[string]Storage{},
	}
}

func (m *Mux) Handle(scheme string, s Storage) {
	m.backends[scheme] = s
}

func (m *Mux) backend(path string) (Storage, error) {
	scheme := Scheme(path)
	if scheme == "" {
		return m.fallback, nil
	}
	s, ok := m.backends[scheme]
	if !ok {
		return nil, xerrors.Errorf("no storage backend for scheme %q", scheme)
	}
	return s, nil
}

func (m *Mux) Put(ctx context.Context, path string, data []byte) (string, error) {
	s, err := m.backend(path)
	if err != nil {
		return "", err
	}
	return s.Put(ctx, path, data)
}

func (m *Mux) Get(ctx context.Context, path string) ([]byte, error) {
	s, err := m.backend(path)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, path)
}

func (m *Mux) Exists(ctx context.Context, path string) (bool, error) {
	s, err := m.backend(path)
	if err != nil {
		return false, err
	}
	return s.Exists(ctx, path)
}
