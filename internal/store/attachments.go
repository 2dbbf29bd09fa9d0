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

const attachmentColumns = "id, file_id, owner_type, owner_id, slot, created_at, updated_at"

// AttachmentFilter narrows ListAttachments. Slots and WithoutSlot are
// alternatives; Slots wins when both are set.
type AttachmentFilter struct {
	Slots            []string
	WithoutSlot      bool
	IntegerSlotsOnly bool
}

// Attach links fileID to owner. When slot is set, any attachment currently
// holding that slot for the owner has its slot cleared in the same
// transaction, so at most one file occupies an (owner, slot) pair.
func (s *Store) Attach(ctx context.Context, fileID int64, owner models.Owner, slot *string) (_ *models.Attachment, err error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if slot != nil {
		if _, err = tx.ExecContext(ctx,
			"UPDATE attachments SET slot = NULL, updated_at = ? WHERE owner_type = ? AND owner_id = ? AND slot = ?",
			formatTime(now), owner.Type, owner.ID, *slot,
		); err != nil {
			return nil, err
		}
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO attachments (file_id, owner_type, owner_id, slot, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		fileID, owner.Type, owner.ID, nullString(slot), formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &models.Attachment{
		ID:        id,
		FileID:    fileID,
		Owner:     owner,
		Slot:      slot,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetAttachment fetches an attachment by ID. A missing row returns (nil, nil).
func (s *Store) GetAttachment(ctx context.Context, id int64) (*models.Attachment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+attachmentColumns+" FROM attachments WHERE id = ?", id)
	return scanAttachment(row)
}

// GetAttachmentBySlot returns the attachment occupying slot for owner.
func (s *Store) GetAttachmentBySlot(ctx context.Context, owner models.Owner, slot string) (*models.Attachment, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+attachmentColumns+" FROM attachments WHERE owner_type = ? AND owner_id = ? AND slot = ?",
		owner.Type, owner.ID, slot,
	)
	return scanAttachment(row)
}

// ListAttachments returns the owner's attachments, oldest first. With
// IntegerSlotsOnly the result is ordered by numeric slot value instead.
func (s *Store) ListAttachments(ctx context.Context, owner models.Owner, filter AttachmentFilter) ([]models.Attachment, error) {
	conds := []string{"owner_type = ?", "owner_id = ?"}
	args := []any{owner.Type, owner.ID}

	switch {
	case len(filter.Slots) > 0:
		conds = append(conds, fmt.Sprintf("slot IN (%s)", placeholders(len(filter.Slots))))
		for _, slot := range filter.Slots {
			args = append(args, slot)
		}
	case filter.WithoutSlot:
		conds = append(conds, "slot IS NULL")
	}
	if filter.IntegerSlotsOnly {
		conds = append(conds, "slot IS NOT NULL", "slot <> ''", "slot NOT GLOB '*[^0-9]*'")
	}

	order := " ORDER BY id ASC"
	if filter.IntegerSlotsOnly {
		order = " ORDER BY CAST(slot AS INTEGER) ASC, id ASC"
	}

	query := "SELECT " + attachmentColumns + " FROM attachments WHERE " + strings.Join(conds, " AND ") + order
	return s.queryAttachments(ctx, query, args...)
}

// ListAttachmentsByFile returns every edge pointing at fileID.
func (s *Store) ListAttachmentsByFile(ctx context.Context, fileID int64) ([]models.Attachment, error) {
	return s.queryAttachments(ctx,
		"SELECT "+attachmentColumns+" FROM attachments WHERE file_id = ? ORDER BY id ASC", fileID)
}

// DeleteAttachment removes one edge and reports whether it existed.
func (s *Store) DeleteAttachment(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM attachments WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteAttachmentsByOwner removes every edge of owner and returns the
// removed rows so callers can follow up on the files.
func (s *Store) DeleteAttachmentsByOwner(ctx context.Context, owner models.Owner) (_ []models.Attachment, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx,
		"SELECT "+attachmentColumns+" FROM attachments WHERE owner_type = ? AND owner_id = ? ORDER BY id ASC",
		owner.Type, owner.ID,
	)
	if err != nil {
		return nil, err
	}
	removed, err := collectAttachments(rows)
	if err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		"DELETE FROM attachments WHERE owner_type = ? AND owner_id = ?", owner.Type, owner.ID,
	); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return removed, nil
}

// CountLabeledForOwner counts the owner's attachments whose file carries label.
func (s *Store) CountLabeledForOwner(ctx context.Context, label string, owner models.Owner) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM attachments a
JOIN files f ON f.id = a.file_id
WHERE f.label = ? AND a.owner_type = ? AND a.owner_id = ?`,
		strings.TrimSpace(label), owner.Type, owner.ID,
	).Scan(&count)
	return count, err
}

func (s *Store) queryAttachments(ctx context.Context, query string, args ...any) ([]models.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAttachments(rows)
}

func collectAttachments(rows *sql.Rows) ([]models.Attachment, error) {
	defer rows.Close()
	var out []models.Attachment
	for rows.Next() {
		attachment, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *attachment)
	}
	return out, rows.Err()
}

func scanAttachment(scanner rowScanner) (*models.Attachment, error) {
	var (
		attachment models.Attachment
		slot       sql.NullString
		createdAt  string
		updatedAt  string
	)
	if err := scanner.Scan(
		&attachment.ID, &attachment.FileID, &attachment.Owner.Type, &attachment.Owner.ID,
		&slot, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if slot.Valid {
		value := slot.String
		attachment.Slot = &value
	}

	var err error
	if attachment.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if attachment.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &attachment, nil
}
