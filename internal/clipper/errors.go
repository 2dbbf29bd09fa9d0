package clipper

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrPipelineAborted   = errors.New("pipeline aborted")
	ErrStorage           = errors.New("storage failure")
	ErrUnsupportedSource = errors.New("unsupported source")
)

// Error carries the kind of failure, the operation it happened in and the
// underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Op == "":
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func makeError(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func notFound(op string, err error) error {
	return makeError(ErrNotFound, op, err)
}

func validation(op string, err error) error {
	return makeError(ErrValidation, op, err)
}

func storageFailure(op string, err error) error {
	return makeError(ErrStorage, op, err)
}

func aborted(op string) error {
	return makeError(ErrPipelineAborted, op, nil)
}

// KindOf returns the kind of err, or nil when it carries none.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrValidation, ErrPipelineAborted, ErrStorage, ErrUnsupportedSource} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
