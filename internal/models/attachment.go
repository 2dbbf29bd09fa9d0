package models

import (
	"fmt"
	"strings"
	"time"
)

// Owner identifies the entity a file is attached to.
type Owner struct {
	Type string `json:"type" yaml:"type"`
	ID   string `json:"id" yaml:"id"`
}

// ParseOwner parses the "Type:ID" form used on the command line.
func ParseOwner(raw string) (Owner, error) {
	typ, id, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return Owner{}, fmt.Errorf("owner must be TYPE:ID, got %q", raw)
	}
	owner := Owner{Type: strings.TrimSpace(typ), ID: strings.TrimSpace(id)}
	if err := owner.Validate(); err != nil {
		return Owner{}, err
	}
	return owner, nil
}

// Validate checks that both parts of the owner are present.
func (o Owner) Validate() error {
	if strings.TrimSpace(o.Type) == "" {
		return fmt.Errorf("owner type is required")
	}
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("owner id is required")
	}
	return nil
}

func (o Owner) String() string {
	return o.Type + ":" + o.ID
}

// Attachment links a file to an owner, optionally under a slot. A nil slot
// means the edge is kept for history but occupies nothing.
type Attachment struct {
	ID        int64     `json:"id" yaml:"id"`
	FileID    int64     `json:"file_id" yaml:"file_id"`
	Owner     Owner     `json:"owner" yaml:"owner"`
	Slot      *string   `json:"slot,omitempty" yaml:"slot,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// HasSlot reports whether the attachment currently occupies a slot.
func (a Attachment) HasSlot() bool {
	return a.Slot != nil
}

// SlotValue returns the slot name or "" when the slot is cleared.
func (a Attachment) SlotValue() string {
	if a.Slot == nil {
		return ""
	}
	return *a.Slot
}

// Slot returns a pointer to a trimmed slot name, or nil for blank input.
func Slot(name string) *string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return &name
}
