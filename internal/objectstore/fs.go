package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FS stores objects as files under a root directory that the HTTP server
// exposes at BaseURL. Meant for development and tests.
type FS struct {
	root   string
	prefix string
}

// NewFS returns a filesystem store rooted at root, creating it if needed.
func NewFS(root, baseURL string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("fs store: %w", err)
	}
	return &FS{root: root, prefix: strings.TrimRight(baseURL, "/") + "/"}, nil
}

// Root returns the directory objects are written to.
func (s *FS) Root() string { return s.root }

// Put writes data to root/key and returns its URL.
func (s *FS) Put(ctx context.Context, key, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, ok := keyFromURL(s.prefix+key, s.prefix); !ok {
		return "", fmt.Errorf("fs store: bad key %q", key)
	}
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("fs store: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("fs store: %w", err)
	}
	return s.prefix + key, nil
}

// DeleteByURL removes the file behind url if it is under BaseURL.
func (s *FS) DeleteByURL(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, ok := keyFromURL(url, s.prefix)
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fs store: %w", err)
	}
	return nil
}
