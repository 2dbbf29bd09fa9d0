// Package processor defines the mime-scoped hooks that run around saving,
// deleting and moving files, and the pipeline that dispatches them.
package processor

import (
	"context"
	"errors"
	"io"

	"clipper/internal/models"
)

// Hook names one dispatch point of the pipeline.
type Hook int

const (
	BeforeSave Hook = iota
	Save
	Delete
	Move
)

func (h Hook) String() string {
	switch h {
	case BeforeSave:
		return "before_save"
	case Save:
		return "save"
	case Delete:
		return "delete"
	case Move:
		return "move"
	default:
		return "unknown"
	}
}

// ErrVeto may be returned by any hook to stop the surrounding operation.
// The pipeline reports it as a veto outcome, not as an error.
var ErrVeto = errors.New("processor vetoed operation")

// Context is handed to every hook invocation.
type Context struct {
	Hook    Hook
	File    models.File
	Owner   *models.Owner
	Options models.Options
	// Target is the destination backend of a move.
	Target string
}

// IsDerivative reports whether the dispatch is generating a derivative
// rather than storing an original.
func (c Context) IsDerivative() bool {
	return !c.Options.IsEmpty()
}

// Processor is one transformation or validation step. Stream hooks return
// the stream for the next processor; returning a nil reader vetoes. Event
// hooks veto by returning false.
type Processor interface {
	RegisteredMimes() []string
	OnBeforeSave(ctx context.Context, r io.Reader, pc Context) (io.Reader, error)
	OnSave(ctx context.Context, r io.Reader, pc Context) (io.Reader, error)
	OnDelete(ctx context.Context, pc Context) (bool, error)
	OnMove(ctx context.Context, pc Context) (bool, error)
}

// Base implements every hook as a pass-through. Embed it and override the
// hooks a processor cares about.
type Base struct{}

func (Base) OnBeforeSave(_ context.Context, r io.Reader, _ Context) (io.Reader, error) {
	return r, nil
}

func (Base) OnSave(_ context.Context, r io.Reader, _ Context) (io.Reader, error) {
	return r, nil
}

func (Base) OnDelete(context.Context, Context) (bool, error) {
	return true, nil
}

func (Base) OnMove(context.Context, Context) (bool, error) {
	return true, nil
}
