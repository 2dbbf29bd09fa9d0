package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Compressed wraps a backend and stores every payload zstd-compressed.
// Paths and existence are unchanged; only the stored bytes differ.
type Compressed struct {
	inner Backend
	level zstd.EncoderLevel
}

// NewCompressed wraps inner with transparent zstd compression.
func NewCompressed(inner Backend) *Compressed {
	return &Compressed{inner: inner, level: zstd.SpeedDefault}
}

// Unwrap returns the backend holding the compressed bytes.
func (c *Compressed) Unwrap() Backend {
	return c.inner
}

func (c *Compressed) Exists(ctx context.Context, p string) (bool, error) {
	return c.inner.Exists(ctx, p)
}

func (c *Compressed) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	rc, err := c.inner.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	return &zstdReadCloser{dec: dec, src: rc}, nil
}

// Put returns the uncompressed byte count.
func (c *Compressed) Put(ctx context.Context, p string, r io.Reader) (int64, error) {
	if r == nil {
		return 0, fmt.Errorf("reader is required")
	}
	pr, pw := io.Pipe()
	type result struct {
		n   int64
		err error
	}
	done := make(chan result, 1)

	go func() {
		enc, err := zstd.NewWriter(pw, zstd.WithEncoderLevel(c.level))
		if err != nil {
			_ = pw.CloseWithError(err)
			done <- result{err: err}
			return
		}
		n, err := io.Copy(enc, r)
		if err != nil {
			_ = enc.Close()
			_ = pw.CloseWithError(err)
			done <- result{n: n, err: err}
			return
		}
		if err := enc.Close(); err != nil {
			_ = pw.CloseWithError(err)
			done <- result{n: n, err: err}
			return
		}
		done <- result{n: n, err: pw.Close()}
	}()

	_, putErr := c.inner.Put(ctx, p, pr)
	// Unblock the encoder if the inner backend stopped reading early.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	res := <-done
	if putErr != nil {
		return res.n, putErr
	}
	if res.err != nil {
		return res.n, res.err
	}
	return res.n, nil
}

func (c *Compressed) Delete(ctx context.Context, p string) error {
	return c.inner.Delete(ctx, p)
}

func (c *Compressed) DeleteDirectory(ctx context.Context, prefix string) error {
	return c.inner.DeleteDirectory(ctx, prefix)
}

type zstdReadCloser struct {
	dec *zstd.Decoder
	src io.Closer
}

func (z *zstdReadCloser) Read(p []byte) (int, error) {
	return z.dec.Read(p)
}

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.src.Close()
}
