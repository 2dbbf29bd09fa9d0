package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned by Open for a path that holds no blob.
var ErrNotFound = errors.New("blob not found")

// Backend is a named, pluggable byte store. Paths are slash-separated and
// relative; directories are implied by path prefixes.
type Backend interface {
	Exists(ctx context.Context, path string) (bool, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Put replaces the blob at path atomically and returns the bytes written.
	Put(ctx context.Context, path string, r io.Reader) (int64, error)
	// Delete removes one blob. Missing blobs are ignored.
	Delete(ctx context.Context, path string) error
	// DeleteDirectory removes every blob under prefix. Missing prefixes are ignored.
	DeleteDirectory(ctx context.Context, prefix string) error
}

// CleanPath validates a backend path and returns its canonical form.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("blob path is required")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return "", fmt.Errorf("blob path must be relative: %q", p)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid blob path: %q", p)
	}
	return clean, nil
}
