package clipper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clipper/internal/models"
	"clipper/internal/store"
)

// Attach binds file to owner. A slot already held for owner is taken over;
// the previous edge stays with its slot cleared.
func (s *Service) Attach(ctx context.Context, file *models.File, owner models.Owner, slot *string) (*models.Attachment, error) {
	const op = "attach"
	if file == nil {
		return nil, validation(op, errors.New("file is required"))
	}
	if err := owner.Validate(); err != nil {
		return nil, validation(op, err)
	}
	if slot != nil {
		slot = models.Slot(*slot)
	}
	if _, err := s.GetFile(ctx, file.ID); err != nil {
		return nil, err
	}
	attachment, err := s.attachments.Attach(ctx, file.ID, owner, slot)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return attachment, nil
}

// Detach removes one attachment edge. The file itself stays.
func (s *Service) Detach(ctx context.Context, attachmentID int64) error {
	deleted, err := s.attachments.DeleteAttachment(ctx, attachmentID)
	if err != nil {
		return fmt.Errorf("detach: %w", err)
	}
	if !deleted {
		return notFound("detach", fmt.Errorf("attachment %d not found", attachmentID))
	}
	return nil
}

// DeleteOwner removes every edge of owner, as when the owning entity is
// deleted. Files left unattached are reclaimed by Prune.
func (s *Service) DeleteOwner(ctx context.Context, owner models.Owner) ([]models.Attachment, error) {
	if err := owner.Validate(); err != nil {
		return nil, validation("delete owner", err)
	}
	removed, err := s.attachments.DeleteAttachmentsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("delete owner %s: %w", owner, err)
	}
	return removed, nil
}

// FindBySlot returns the file occupying slot for owner.
func (s *Service) FindBySlot(ctx context.Context, owner models.Owner, slot string) (*models.File, error) {
	const op = "find by slot"
	if err := owner.Validate(); err != nil {
		return nil, validation(op, err)
	}
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return nil, validation(op, errors.New("slot is required"))
	}
	attachment, err := s.attachments.GetAttachmentBySlot(ctx, owner, slot)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if attachment == nil {
		return nil, notFound(op, fmt.Errorf("no file in slot %q of %s", slot, owner))
	}
	return s.GetFile(ctx, attachment.FileID)
}

// Attachments lists the edges of owner.
func (s *Service) Attachments(ctx context.Context, owner models.Owner, filter store.AttachmentFilter) ([]models.Attachment, error) {
	if err := owner.Validate(); err != nil {
		return nil, validation("attachments", err)
	}
	return s.attachments.ListAttachments(ctx, owner, filter)
}

// Exists reports whether a file labeled label exists. With an owner it
// must also be attached to that owner.
func (s *Service) Exists(ctx context.Context, label string, owner *models.Owner) (bool, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return false, validation("exists", errors.New("label is required"))
	}
	if owner == nil {
		file, err := s.files.GetFileByLabel(ctx, label)
		if err != nil {
			return false, fmt.Errorf("exists: %w", err)
		}
		return file != nil, nil
	}
	count, err := s.attachments.CountLabeledForOwner(ctx, label, *owner)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return count > 0, nil
}
