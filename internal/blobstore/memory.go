package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process backend. It is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{blobs: map[string][]byte{}}
}

func (m *Memory) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	clean, err := CleanPath(p)
	if err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[clean]
	return ok, nil
}

func (m *Memory) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.blobs[clean]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put buffers r fully before publishing it, so readers never observe a
// partial blob.
func (m *Memory) Put(ctx context.Context, p string, r io.Reader) (int64, error) {
	if r == nil {
		return 0, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	clean, err := CleanPath(p)
	if err != nil {
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), err
	}
	m.mu.Lock()
	m.blobs[clean] = data
	m.mu.Unlock()
	return int64(len(data)), nil
}

func (m *Memory) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := CleanPath(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.blobs, clean)
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeleteDirectory(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := CleanPath(prefix)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.blobs {
		if key == clean || strings.HasPrefix(key, clean+"/") {
			delete(m.blobs, key)
		}
	}
	return nil
}

// Paths lists every stored path in sorted order.
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.blobs))
	for key := range m.blobs {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
