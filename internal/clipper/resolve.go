package clipper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"clipper/internal/blobstore"
	"clipper/internal/models"
	"clipper/internal/processor"
)

// Resolve returns a stream of the blob selected by opts. Empty options
// select the original. A derivative that is not cached yet is generated
// from the original through the save hooks of the pipeline, stored, and
// then read back. Concurrent misses for the same path share one generation.
func (s *Service) Resolve(ctx context.Context, file *models.File, opts models.Options) (_ io.ReadCloser, err error) {
	const op = "resolve"
	start := time.Now()
	hit := true
	defer func() { s.observer.ObserveResolve(hit, time.Since(start), err) }()

	p, err := s.Path(file, opts)
	if err != nil {
		return nil, err
	}
	backend, err := s.backend(op, file.Backend)
	if err != nil {
		return nil, err
	}

	if opts.IsEmpty() {
		return openBlob(ctx, op, backend, p)
	}

	exists, err := backend.Exists(ctx, p)
	if err != nil {
		return nil, storageFailure(op, err)
	}
	if exists {
		return openBlob(ctx, op, backend, p)
	}

	hit = false
	s.logger.Debug("derivative cache miss", "file_id", file.ID, "backend", file.Backend, "path", p)

	// Generation is detached from caller cancellation. Each caller waits
	// on its own context.
	flightKey := file.Backend + "\x00" + p
	gctx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(flightKey, func() (any, error) {
		// Another flight may have written p since the check above.
		exists, err := backend.Exists(gctx, p)
		if err != nil {
			return nil, storageFailure(op, err)
		}
		if exists {
			return nil, nil
		}
		return nil, s.generate(gctx, backend, file, opts, p)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("derivative generation shared", "file_id", file.ID, "path", p)
		}
	}
	return openBlob(ctx, op, backend, p)
}

// ResolveByID loads the file and resolves it.
func (s *Service) ResolveByID(ctx context.Context, id int64, opts models.Options) (io.ReadCloser, error) {
	file, err := s.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, file, opts)
}

// ResolveBySlot resolves the file occupying slot for owner.
func (s *Service) ResolveBySlot(ctx context.Context, owner models.Owner, slot string, opts models.Options) (io.ReadCloser, error) {
	file, err := s.FindBySlot(ctx, owner, slot)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, file, opts)
}

// generate copies the original into scratch space, runs it through the
// save hooks with opts attached and writes the result to p.
func (s *Service) generate(ctx context.Context, backend blobstore.Backend, file *models.File, opts models.Options, p string) (err error) {
	const op = "generate derivative"
	start := time.Now()
	var written int64
	defer func() { s.observer.ObserveGeneration(time.Since(start), written, err) }()

	original, err := openBlob(ctx, op, backend, originalPath(file))
	if err != nil {
		return err
	}
	scratch, err := s.copyToScratch(original)
	_ = original.Close()
	if err != nil {
		return err
	}
	defer scratch.release()

	pc := processor.Context{File: *file, Options: opts.Clone()}
	stream, ok, err := s.runSaveHooks(ctx, scratch.file, pc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return aborted(op)
	}

	written, err = backend.Put(ctx, p, stream)
	if err != nil {
		if cleanupErr := backend.Delete(ctx, p); cleanupErr != nil {
			s.logger.Warn("derivative cleanup failed", "path", p, "error", cleanupErr)
		}
		return storageFailure(op, err)
	}
	s.logger.Debug("derivative generated", "file_id", file.ID, "path", p, "bytes", written, "duration", time.Since(start))
	return nil
}

// runSaveHooks dispatches BeforeSave and then Save.
func (s *Service) runSaveHooks(ctx context.Context, r io.Reader, pc processor.Context) (io.Reader, bool, error) {
	stream, ok, err := s.pipeline.DispatchStream(ctx, processor.BeforeSave, r, pc)
	if err != nil || !ok {
		return nil, ok, err
	}
	return s.pipeline.DispatchStream(ctx, processor.Save, stream, pc)
}

type scratchFile struct {
	file *os.File
}

func (f *scratchFile) release() {
	name := f.file.Name()
	_ = f.file.Close()
	_ = os.Remove(name)
}

// copyToScratch spools r into a temp file no larger than maxScratchBytes
// and rewinds it. The file is removed on every error path.
func (s *Service) copyToScratch(r io.Reader) (_ *scratchFile, err error) {
	const op = "scratch"
	tmp, err := os.CreateTemp(s.scratchDir, "clipper-scratch-*")
	if err != nil {
		return nil, storageFailure(op, err)
	}
	scratch := &scratchFile{file: tmp}
	defer func() {
		if err != nil {
			scratch.release()
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(r, s.maxScratchBytes+1))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, notFound(op, err)
		}
		return nil, storageFailure(op, err)
	}
	if n > s.maxScratchBytes {
		return nil, storageFailure(op, fmt.Errorf("original exceeds scratch limit of %d bytes", s.maxScratchBytes))
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, storageFailure(op, err)
	}
	return scratch, nil
}
