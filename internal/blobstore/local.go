package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const localTmpDir = ".tmp"

// LocalFS stores blobs as plain files below a root directory.
type LocalFS struct {
	root string
}

// NewLocalFS creates a local backend rooted at root.
func NewLocalFS(root string) (*LocalFS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local backend root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, localTmpDir), 0o755); err != nil {
		return nil, err
	}
	return &LocalFS{root: abs}, nil
}

// Root returns the absolute root directory.
func (l *LocalFS) Root() string {
	return l.root
}

// Exists reports whether a blob is stored at p.
func (l *LocalFS) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full, err := l.resolve(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// Open returns a reader for the blob at p.
func (l *LocalFS) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := l.resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, err
	}
	return f, nil
}

// Put streams r into a temp file and renames it over p.
func (l *LocalFS) Put(ctx context.Context, p string, r io.Reader) (int64, error) {
	if r == nil {
		return 0, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	full, err := l.resolve(p)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(filepath.Join(l.root, localTmpDir), "put-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return n, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return n, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return n, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		cleanup()
		return n, err
	}
	if err := os.Rename(tmpPath, full); err != nil {
		cleanup()
		return n, err
	}
	return n, nil
}

// Delete removes the blob at p. Missing files are ignored.
func (l *LocalFS) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DeleteDirectory removes prefix and everything below it.
func (l *LocalFS) DeleteDirectory(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.resolve(prefix)
	if err != nil {
		return err
	}
	return os.RemoveAll(full)
}

func (l *LocalFS) resolve(p string) (string, error) {
	if l == nil {
		return "", fmt.Errorf("blob store is not configured")
	}
	clean, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	if clean == localTmpDir || strings.HasPrefix(clean, localTmpDir+"/") {
		return "", fmt.Errorf("blob path %q is reserved", p)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}
