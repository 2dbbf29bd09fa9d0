package store

import (
	"context"

	"clipper/internal/models"
)

// FileStore abstracts the file registry.
type FileStore interface {
	CreateFile(ctx context.Context, file *models.File) error
	GetFile(ctx context.Context, id int64) (*models.File, error)
	GetFileByLabel(ctx context.Context, label string) (*models.File, error)
	UpdateFile(ctx context.Context, id int64, update FileUpdate) error
	DeleteFile(ctx context.Context, id int64) (bool, error)
	ForceDeleteFile(ctx context.Context, id int64) error
	ListFiles(ctx context.Context, filter ListFilesFilter) ([]models.File, error)
}

// AttachmentStore abstracts the attachment ledger.
type AttachmentStore interface {
	Attach(ctx context.Context, fileID int64, owner models.Owner, slot *string) (*models.Attachment, error)
	GetAttachment(ctx context.Context, id int64) (*models.Attachment, error)
	GetAttachmentBySlot(ctx context.Context, owner models.Owner, slot string) (*models.Attachment, error)
	ListAttachments(ctx context.Context, owner models.Owner, filter AttachmentFilter) ([]models.Attachment, error)
	ListAttachmentsByFile(ctx context.Context, fileID int64) ([]models.Attachment, error)
	DeleteAttachment(ctx context.Context, id int64) (bool, error)
	DeleteAttachmentsByOwner(ctx context.Context, owner models.Owner) ([]models.Attachment, error)
	CountLabeledForOwner(ctx context.Context, label string, owner models.Owner) (int, error)
}

var (
	_ FileStore       = (*Store)(nil)
	_ AttachmentStore = (*Store)(nil)
)
