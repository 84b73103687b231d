package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirStore writes objects to a local directory served under baseURL.
type DirStore struct {
	dir     string
	baseURL string
}

// NewDirStore creates the directory if needed.
func NewDirStore(dir, baseURL string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create graph directory: %w", err)
	}
	return &DirStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory objects are written to.
func (s *DirStore) Dir() string {
	return s.dir
}

// Put writes body to <dir>/<key> and returns <baseURL>/<key>.
func (s *DirStore) Put(ctx context.Context, key string, body []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if key != filepath.Base(key) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	if err := os.WriteFile(filepath.Join(s.dir, key), body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write graph %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}
