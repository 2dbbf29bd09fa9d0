package models

import (
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"
)

// File is the registry entry for one logical uploaded artifact. Its blobs
// (the original plus any derivatives) live under Directory() on Backend.
type File struct {
	ID        int64     `json:"id" yaml:"id"`
	Label     string    `json:"label,omitempty" yaml:"label,omitempty"`
	MimeType  string    `json:"mime_type" yaml:"mime_type"`
	Backend   string    `json:"backend" yaml:"backend"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Directory returns the storage directory keyed by the file identity.
func (f File) Directory() string {
	return strconv.FormatInt(f.ID, 10)
}

// HasLabel reports whether the file carries a unique label.
func (f File) HasLabel() bool {
	return strings.TrimSpace(f.Label) != ""
}

// NormalizeMimeType parses raw as a media type and returns its lower-cased
// base type without parameters.
func NormalizeMimeType(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("mime type is required")
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", fmt.Errorf("invalid mime type %q", raw)
	}
	return strings.ToLower(parsed), nil
}
