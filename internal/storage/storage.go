package storage

import (
	"context"
	"errors"
	"fmt"
)

// Fetcher retrieves the complete content stored under key.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Storer writes content under key and returns the key it was stored at.
type Storer interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ContentStore is a backend that can both fetch and store assets.
type ContentStore interface {
	Fetcher
	Storer
}

// ErrEmptyKey is returned for blank asset keys.
var ErrEmptyKey = errors.New("empty asset key")

// FetchKind classifies asset retrieval failures.
type FetchKind string

const (
	// NotFound is terminal: the key does not exist.
	NotFound FetchKind = "not_found"
	// TransientIO may succeed if the caller retries.
	TransientIO FetchKind = "transient_io"
)

// FetchError describes why an asset could not be retrieved.
type FetchError struct {
	Kind FetchKind
	Key  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q: %s: %v", e.Key, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the fetch.
func (e *FetchError) Retryable() bool {
	return e.Kind == TransientIO
}
