package clipper

import (
	"context"
	"fmt"
	"strings"

	"clipper/internal/models"
)

// PublicURI makes sure the blob selected by opts exists, generating it if
// needed, and returns its address under the public prefix of the file's
// backend.
func (s *Service) PublicURI(ctx context.Context, file *models.File, opts models.Options) (string, error) {
	const op = "public uri"
	p, err := s.Path(file, opts)
	if err != nil {
		return "", err
	}
	prefix, ok := s.backends.PublicPrefix(file.Backend)
	if !ok {
		return "", validation(op, fmt.Errorf("backend %q has no public prefix", file.Backend))
	}

	rc, err := s.Resolve(ctx, file, opts)
	if err != nil {
		return "", err
	}
	_ = rc.Close()

	return strings.TrimRight(prefix, "/") + "/" + p, nil
}
