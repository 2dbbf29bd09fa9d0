// Package clipper stores uploaded files, materializes their derivatives on
// demand through the processor pipeline and binds files to owners through
// slots.
package clipper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"clipper/internal/blobstore"
	"clipper/internal/fingerprint"
	"clipper/internal/models"
	"clipper/internal/processor"
	"clipper/internal/store"
)

const (
	defaultMaxScratchBytes int64 = 512 << 20
	defaultFetchTimeout          = 30 * time.Second
	defaultPruneBatchSize        = 200
)

// Config wires a Service. Files, Attachments and Backends are required.
type Config struct {
	Files       store.FileStore
	Attachments store.AttachmentStore
	Backends    *blobstore.Registry
	Pipeline    *processor.Pipeline

	// DefaultBackend is used by saves that name no backend.
	DefaultBackend string
	// ScratchDir holds temp copies of originals during generation. Empty
	// means the OS temp dir.
	ScratchDir      string
	MaxScratchBytes int64
	PruneBatchSize  int

	Logger     *slog.Logger
	Observer   Observer
	HTTPClient *http.Client
}

// Service is the derivative resolver together with the file registry and
// attachment ledger operations built on it.
type Service struct {
	files       store.FileStore
	attachments store.AttachmentStore
	backends    *blobstore.Registry
	pipeline    *processor.Pipeline

	defaultBackend  string
	scratchDir      string
	maxScratchBytes int64
	pruneBatchSize  int

	logger   *slog.Logger
	observer Observer
	client   *http.Client

	flight singleflight.Group
}

// New validates cfg and returns a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Files == nil || cfg.Attachments == nil {
		return nil, fmt.Errorf("clipper: file and attachment stores are required")
	}
	if cfg.Backends == nil {
		return nil, fmt.Errorf("clipper: backend registry is required")
	}
	if cfg.DefaultBackend != "" {
		if _, err := cfg.Backends.Get(cfg.DefaultBackend); err != nil {
			return nil, fmt.Errorf("clipper: default backend: %w", err)
		}
	}

	s := &Service{
		files:           cfg.Files,
		attachments:     cfg.Attachments,
		backends:        cfg.Backends,
		pipeline:        cfg.Pipeline,
		defaultBackend:  cfg.DefaultBackend,
		scratchDir:      cfg.ScratchDir,
		maxScratchBytes: cfg.MaxScratchBytes,
		pruneBatchSize:  cfg.PruneBatchSize,
		logger:          cfg.Logger,
		observer:        cfg.Observer,
		client:          cfg.HTTPClient,
	}
	if s.pipeline == nil {
		s.pipeline = processor.NewPipeline()
	}
	if s.scratchDir == "" {
		s.scratchDir = os.TempDir()
	}
	if s.maxScratchBytes <= 0 {
		s.maxScratchBytes = defaultMaxScratchBytes
	}
	if s.pruneBatchSize <= 0 {
		s.pruneBatchSize = defaultPruneBatchSize
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "clipper")
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return s, nil
}

// Name returns the blob name for opts within a file directory: the
// original name for empty options, the option fingerprint otherwise.
func Name(file *models.File, opts models.Options) (string, error) {
	if opts.IsEmpty() {
		return fingerprint.OriginalName, nil
	}
	key, err := fingerprint.Key(file.ID, opts)
	if err != nil {
		return "", err
	}
	return key, nil
}

// Path returns the backend path of the blob selected by opts.
func (s *Service) Path(file *models.File, opts models.Options) (string, error) {
	if file == nil {
		return "", validation("path", errors.New("file is required"))
	}
	name, err := Name(file, opts)
	if err != nil {
		return "", validation("path", err)
	}
	return path.Join(file.Directory(), name), nil
}

func originalPath(file *models.File) string {
	return path.Join(file.Directory(), fingerprint.OriginalName)
}

// GetFile loads a file by ID.
func (s *Service) GetFile(ctx context.Context, id int64) (*models.File, error) {
	file, err := s.files.GetFile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get file %d: %w", id, err)
	}
	if file == nil {
		return nil, notFound("get file", fmt.Errorf("file %d not found", id))
	}
	return file, nil
}

// GetFileByLabel loads a file by its label.
func (s *Service) GetFileByLabel(ctx context.Context, label string) (*models.File, error) {
	file, err := s.files.GetFileByLabel(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("get file by label: %w", err)
	}
	if file == nil {
		return nil, notFound("get file", fmt.Errorf("no file labeled %q", strings.TrimSpace(label)))
	}
	return file, nil
}

// ListFiles passes through to the registry.
func (s *Service) ListFiles(ctx context.Context, filter store.ListFilesFilter) ([]models.File, error) {
	return s.files.ListFiles(ctx, filter)
}

func (s *Service) backend(op, name string) (blobstore.Backend, error) {
	backend, err := s.backends.Get(name)
	if err != nil {
		return nil, validation(op, err)
	}
	return backend, nil
}

// openBlob maps a missing blob to ErrNotFound and any other read failure
// to ErrStorage.
func openBlob(ctx context.Context, op string, backend blobstore.Backend, p string) (io.ReadCloser, error) {
	rc, err := backend.Open(ctx, p)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, notFound(op, err)
		}
		return nil, storageFailure(op, err)
	}
	return rc, nil
}
