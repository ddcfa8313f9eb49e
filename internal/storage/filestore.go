package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps assets as files below a root directory.
// Keys are slash-separated paths relative to the root.
type FileStore struct {
	root string
}

// NewFileStore returns a FileStore rooted at root.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Fetch implements Fetcher.
func (s *FileStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, &FetchError{Kind: NotFound, Key: key, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Kind: TransientIO, Key: key, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FetchError{Kind: NotFound, Key: key, Err: err}
		}
		return nil, &FetchError{Kind: TransientIO, Key: key, Err: err}
	}
	return data, nil
}

// Store implements Storer. The content type is not recorded on disk.
func (s *FileStore) Store(ctx context.Context, key string, data []byte, _ string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("store %q: %w", key, err)
	}
	tmp := path + ".partial"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("store %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("store %q: %w", key, err)
	}
	return key, nil
}

// resolve maps key to a path below the root, rejecting keys that escape it.
func (s *FileStore) resolve(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey
	}
	cleaned := filepath.Clean(filepath.FromSlash("/" + key))
	rel := strings.TrimPrefix(cleaned, string(filepath.Separator))
	if rel == "" || rel == "." {
		return "", fmt.Errorf("invalid asset key %q", key)
	}
	return filepath.Join(s.root, rel), nil
}
