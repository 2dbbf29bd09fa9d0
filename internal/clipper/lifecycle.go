package clipper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"clipper/internal/blobstore"
	"clipper/internal/models"
	"clipper/internal/processor"
	"clipper/internal/store"
)

// Delete removes the blob selected by opts. With empty options the whole
// file goes: every blob in its directory, the registry row and, through the
// cascade, its attachments. ok is false when a processor vetoed.
func (s *Service) Delete(ctx context.Context, file *models.File, opts models.Options) (bool, error) {
	const op = "delete"
	if file == nil {
		return false, validation(op, errors.New("file is required"))
	}
	p, err := s.Path(file, opts)
	if err != nil {
		return false, err
	}
	backend, err := s.backend(op, file.Backend)
	if err != nil {
		return false, err
	}

	ok, err := s.pipeline.DispatchEvent(ctx, processor.Delete, processor.Context{File: *file, Options: opts.Clone()})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		s.logger.Info("delete vetoed by processor", "file_id", file.ID)
		return false, nil
	}

	if !opts.IsEmpty() {
		if err := backend.Delete(ctx, p); err != nil {
			return false, storageFailure(op, err)
		}
		return true, nil
	}

	if err := backend.DeleteDirectory(ctx, file.Directory()); err != nil {
		return false, storageFailure(op, err)
	}
	existed, err := s.files.DeleteFile(ctx, file.ID)
	if err != nil {
		return false, fmt.Errorf("delete file row: %w", err)
	}
	if !existed {
		return false, notFound(op, fmt.Errorf("file %d not found", file.ID))
	}
	return true, nil
}

// Move copies the original of file to target, points the row at target and
// drops the old directory. Derivatives are not copied; they regenerate on
// the next resolve. ok is false when a processor vetoed.
func (s *Service) Move(ctx context.Context, file *models.File, target string) (_ *models.File, ok bool, err error) {
	const op = "move"
	if file == nil {
		return nil, false, validation(op, errors.New("file is required"))
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, false, validation(op, errors.New("target backend is required"))
	}
	if target == file.Backend {
		return file, true, nil
	}
	source, err := s.backend(op, file.Backend)
	if err != nil {
		return nil, false, err
	}
	dest, err := s.backend(op, target)
	if err != nil {
		return nil, false, err
	}

	ok, err = s.pipeline.DispatchEvent(ctx, processor.Move, processor.Context{File: *file, Target: target})
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		s.logger.Info("move vetoed by processor", "file_id", file.ID, "target", target)
		return nil, false, nil
	}

	p := originalPath(file)
	original, err := openBlob(ctx, op, source, p)
	if err != nil {
		return nil, false, err
	}
	_, err = dest.Put(ctx, p, original)
	_ = original.Close()
	if err != nil {
		s.dropDirectory(ctx, dest, file)
		return nil, false, storageFailure(op, err)
	}

	if err := s.files.UpdateFile(ctx, file.ID, store.FileUpdate{Backend: &target}); err != nil {
		s.dropDirectory(ctx, dest, file)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, notFound(op, fmt.Errorf("file %d not found", file.ID))
		}
		return nil, false, fmt.Errorf("update file backend: %w", err)
	}
	s.dropDirectory(ctx, source, file)

	moved, err := s.GetFile(ctx, file.ID)
	if err != nil {
		return nil, false, err
	}
	return moved, true, nil
}

func (s *Service) dropDirectory(ctx context.Context, backend blobstore.Backend, file *models.File) {
	if err := backend.DeleteDirectory(context.WithoutCancel(ctx), file.Directory()); err != nil {
		s.logger.Warn("directory cleanup failed", "file_id", file.ID, "error", err)
	}
}

// Update changes the label or mime type of a file. Backends change only
// through Move.
func (s *Service) Update(ctx context.Context, id int64, update store.FileUpdate) (*models.File, error) {
	const op = "update"
	if update.Backend != nil {
		return nil, validation(op, errors.New("backend changes go through move"))
	}
	if update.MimeType != nil {
		normalized, err := models.NormalizeMimeType(*update.MimeType)
		if err != nil {
			return nil, validation(op, err)
		}
		update.MimeType = &normalized
	}
	if err := s.files.UpdateFile(ctx, id, update); err != nil {
		switch {
		case errors.Is(err, store.ErrLabelTaken):
			return nil, validation(op, err)
		case errors.Is(err, sql.ErrNoRows):
			return nil, notFound(op, fmt.Errorf("file %d not found", id))
		}
		return nil, fmt.Errorf("update file: %w", err)
	}
	return s.GetFile(ctx, id)
}
