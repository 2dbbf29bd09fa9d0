package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clipper/internal/models"
)

// ErrLabelTaken is returned when a file label already belongs to another file.
var ErrLabelTaken = errors.New("label already in use")

const fileColumns = "id, label, backend, mime_type, created_at, updated_at"

// FileUpdate carries the file fields to change. Nil fields are left alone.
// An empty Label clears the label.
type FileUpdate struct {
	Label    *string
	MimeType *string
	Backend  *string
}

// ListFilesFilter narrows ListFiles.
type ListFilesFilter struct {
	Backend       string
	MimeType      string
	Unattached    bool
	CreatedBefore time.Time
	// AfterID skips files with an ID at or below it, for paging.
	AfterID int64
	Limit   int
}

// CreateFile inserts a file row and assigns its ID.
func (s *Store) CreateFile(ctx context.Context, file *models.File) error {
	if file == nil {
		return fmt.Errorf("file is required")
	}
	now := time.Now().UTC()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	if file.UpdatedAt.IsZero() {
		file.UpdatedAt = file.CreatedAt
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO files (label, backend, mime_type, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		nullIfEmpty(strings.TrimSpace(file.Label)), file.Backend, file.MimeType,
		formatTime(file.CreatedAt), formatTime(file.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraint(err, "files.label") {
			return ErrLabelTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	file.ID = id
	return nil
}

// GetFile fetches a file by ID. A missing file returns (nil, nil).
func (s *Store) GetFile(ctx context.Context, id int64) (*models.File, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE id = ?", id)
	return scanFile(row)
}

// GetFileByLabel fetches a file by its unique label.
func (s *Store) GetFileByLabel(ctx context.Context, label string) (*models.File, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE label = ?", label)
	return scanFile(row)
}

// UpdateFile applies update to the file and bumps updated_at.
func (s *Store) UpdateFile(ctx context.Context, id int64, update FileUpdate) error {
	sets := []string{}
	args := []any{}

	if update.Label != nil {
		sets = append(sets, "label = ?")
		args = append(args, nullIfEmpty(strings.TrimSpace(*update.Label)))
	}
	if update.MimeType != nil {
		sets = append(sets, "mime_type = ?")
		args = append(args, *update.MimeType)
	}
	if update.Backend != nil {
		sets = append(sets, "backend = ?")
		args = append(args, *update.Backend)
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now().UTC()), id)

	res, err := s.db.ExecContext(ctx, "UPDATE files SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		if isUniqueConstraint(err, "files.label") {
			return ErrLabelTaken
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteFile removes a file row; its attachments go with it. It reports
// whether a row existed.
func (s *Store) DeleteFile(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ForceDeleteFile removes a file row regardless of its state. It is used to
// roll back a registration whose first write failed, and never errors on a
// missing row.
func (s *Store) ForceDeleteFile(ctx context.Context, id int64) error {
	_, err := s.DeleteFile(ctx, id)
	return err
}

// ListFiles returns files matching filter, oldest first.
func (s *Store) ListFiles(ctx context.Context, filter ListFilesFilter) ([]models.File, error) {
	query := "SELECT " + fileColumns + " FROM files"
	conds := []string{}
	args := []any{}

	if filter.Backend != "" {
		conds = append(conds, "backend = ?")
		args = append(args, filter.Backend)
	}
	if filter.MimeType != "" {
		conds = append(conds, "mime_type = ?")
		args = append(args, filter.MimeType)
	}
	if filter.Unattached {
		conds = append(conds, "NOT EXISTS (SELECT 1 FROM attachments a WHERE a.file_id = files.id)")
	}
	if !filter.CreatedBefore.IsZero() {
		conds = append(conds, "created_at < ?")
		args = append(args, formatTime(filter.CreatedBefore))
	}
	if filter.AfterID > 0 {
		conds = append(conds, "id > ?")
		args = append(args, filter.AfterID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(scanner rowScanner) (*models.File, error) {
	var (
		file      models.File
		label     sql.NullString
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&file.ID, &label, &file.Backend, &file.MimeType, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	file.Label = label.String

	var err error
	if file.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if file.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &file, nil
}
