package clipper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"clipper/internal/models"
	"clipper/internal/processor"
	"clipper/internal/store"
)

// sniffLen is how much of a stream is buffered for mime detection.
const sniffLen = 3072

// SaveInput describes a new file. MimeType may be empty for sources that
// can be sniffed. Backend falls back to the configured default. Owner and
// Slot attach the saved file in the same call.
type SaveInput struct {
	MimeType string
	Backend  string
	Label    string
	Owner    *models.Owner
	Slot     *string
}

// Save registers a file and writes r as its original. The BeforeSave and
// Save hooks run first; a veto leaves neither row nor blob behind and is
// reported as ok=false. A failed write removes the row again before the
// error is returned.
func (s *Service) Save(ctx context.Context, r io.Reader, in SaveInput) (_ *models.File, ok bool, err error) {
	const op = "save"
	start := time.Now()
	var written int64
	defer func() { s.observer.ObserveSave(time.Since(start), written, err) }()

	if r == nil {
		return nil, false, validation(op, errors.New("source stream is required"))
	}
	if strings.TrimSpace(in.MimeType) == "" {
		in.MimeType, r, err = sniff(r)
		if err != nil {
			return nil, false, storageFailure(op, err)
		}
	}
	mimeType, err := models.NormalizeMimeType(in.MimeType)
	if err != nil {
		return nil, false, validation(op, err)
	}
	backendName := strings.TrimSpace(in.Backend)
	if backendName == "" {
		backendName = s.defaultBackend
	}
	if backendName == "" {
		return nil, false, validation(op, errors.New("no backend given and no default backend configured"))
	}
	backend, err := s.backend(op, backendName)
	if err != nil {
		return nil, false, err
	}
	if in.Owner != nil {
		if err := in.Owner.Validate(); err != nil {
			return nil, false, validation(op, err)
		}
	} else if in.Slot != nil {
		return nil, false, validation(op, errors.New("slot requires an owner"))
	}

	file := &models.File{Label: strings.TrimSpace(in.Label), MimeType: mimeType, Backend: backendName}
	if err := s.files.CreateFile(ctx, file); err != nil {
		if errors.Is(err, store.ErrLabelTaken) {
			return nil, false, validation(op, fmt.Errorf("label %q: %w", file.Label, err))
		}
		return nil, false, fmt.Errorf("create file: %w", err)
	}

	// Every exit below that does not return the file undoes the row.
	committed := false
	defer func() {
		if committed {
			return
		}
		if delErr := s.files.ForceDeleteFile(context.WithoutCancel(ctx), file.ID); delErr != nil {
			s.logger.Warn("compensating delete failed", "file_id", file.ID, "error", delErr)
			return
		}
		s.logger.Warn("file registration rolled back", "file_id", file.ID)
	}()

	pc := processor.Context{File: *file, Owner: in.Owner}
	stream, ok, err := s.runSaveHooks(ctx, r, pc)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		s.logger.Info("save vetoed by processor", "mime_type", mimeType)
		return nil, false, nil
	}

	p := originalPath(file)
	written, err = backend.Put(ctx, p, stream)
	if err != nil {
		if delErr := backend.DeleteDirectory(context.WithoutCancel(ctx), file.Directory()); delErr != nil {
			s.logger.Warn("blob cleanup failed", "path", p, "error", delErr)
		}
		return nil, false, storageFailure(op, err)
	}

	if in.Owner != nil {
		slot := in.Slot
		if slot != nil {
			slot = models.Slot(*slot)
		}
		if _, err := s.attachments.Attach(ctx, file.ID, *in.Owner, slot); err != nil {
			if delErr := backend.DeleteDirectory(context.WithoutCancel(ctx), file.Directory()); delErr != nil {
				s.logger.Warn("blob cleanup failed", "path", p, "error", delErr)
			}
			return nil, false, fmt.Errorf("attach saved file: %w", err)
		}
	}

	committed = true
	s.logger.Debug("file saved", "file_id", file.ID, "backend", backendName, "mime_type", mimeType, "bytes", written)
	return file, true, nil
}

// SaveFromPath saves the file at filePath, sniffing its mime type when in
// carries none.
func (s *Service) SaveFromPath(ctx context.Context, filePath string, in SaveInput) (*models.File, bool, error) {
	const op = "save from path"
	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, notFound(op, err)
		}
		return nil, false, storageFailure(op, err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.IsDir() {
		return nil, false, makeError(ErrUnsupportedSource, op, fmt.Errorf("%s is a directory", filePath))
	}
	if strings.TrimSpace(in.MimeType) == "" {
		detected, err := mimetype.DetectReader(f)
		if err != nil {
			return nil, false, storageFailure(op, err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, false, storageFailure(op, err)
		}
		in.MimeType = detected.String()
	}
	return s.Save(ctx, f, in)
}

// SaveFromURL downloads rawURL and saves it. The mime type comes from in,
// then from a HEAD request, then from sniffing the body.
func (s *Service) SaveFromURL(ctx context.Context, rawURL string, in SaveInput) (*models.File, bool, error) {
	const op = "save from url"
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, false, makeError(ErrUnsupportedSource, op, fmt.Errorf("not an http(s) url: %q", rawURL))
	}

	if strings.TrimSpace(in.MimeType) == "" {
		in.MimeType = s.headContentType(ctx, u.String())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, false, makeError(ErrUnsupportedSource, op, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false, storageFailure(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, false, notFound(op, fmt.Errorf("GET %s: %s", u.Redacted(), resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, false, storageFailure(op, fmt.Errorf("GET %s: %s", u.Redacted(), resp.Status))
	}

	// An empty mime type makes Save sniff the body.
	return s.Save(ctx, resp.Body, in)
}

// headContentType returns the Content-Type a HEAD request reports, or ""
// when the request fails or the type is generic.
func (s *Service) headContentType(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return ""
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("HEAD request failed", "url", rawURL, "error", err)
		return ""
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ""
	}
	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if normalized, err := models.NormalizeMimeType(contentType); err != nil || normalized == "application/octet-stream" {
		return ""
	}
	return contentType
}

// SaveFrom classifies source and saves it. Accepted are io.Reader (an
// *os.File included), []byte, a file path or http(s) URL string, and
// *url.URL with an http, https or file scheme.
func (s *Service) SaveFrom(ctx context.Context, source any, in SaveInput) (*models.File, bool, error) {
	const op = "save"
	switch src := source.(type) {
	case *os.File:
		if src == nil {
			break
		}
		return s.Save(ctx, src, in)
	case []byte:
		return s.Save(ctx, bytes.NewReader(src), in)
	case *url.URL:
		if src == nil {
			break
		}
		switch src.Scheme {
		case "http", "https":
			return s.SaveFromURL(ctx, src.String(), in)
		case "file":
			return s.SaveFromPath(ctx, src.Path, in)
		}
	case string:
		trimmed := strings.TrimSpace(src)
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			return s.SaveFromURL(ctx, trimmed, in)
		}
		if trimmed != "" {
			return s.SaveFromPath(ctx, trimmed, in)
		}
	case io.Reader:
		if src == nil {
			break
		}
		return s.Save(ctx, src, in)
	}
	return nil, false, makeError(ErrUnsupportedSource, op, fmt.Errorf("cannot save from %T", source))
}

// sniff detects the mime type from the head of r and returns a reader
// that still yields the whole stream.
func sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}
