package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Pipeline holds processors in registration order.
type Pipeline struct {
	mu         sync.RWMutex
	processors []Processor
}

// NewPipeline returns a pipeline with the given processors registered.
func NewPipeline(processors ...Processor) *Pipeline {
	p := &Pipeline{}
	p.Register(processors...)
	return p
}

// Register appends processors. Nil entries are skipped.
func (p *Pipeline) Register(processors ...Processor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, proc := range processors {
		if proc != nil {
			p.processors = append(p.processors, proc)
		}
	}
}

// Len returns the number of registered processors.
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.processors)
}

// For returns the processors registered for mimeType, in order.
func (p *Pipeline) For(mimeType string) []Processor {
	if p == nil {
		return nil
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Processor
	for _, proc := range p.processors {
		for _, pattern := range proc.RegisteredMimes() {
			if MatchMime(pattern, mimeType) {
				out = append(out, proc)
				break
			}
		}
	}
	return out
}

// DispatchStream threads r through the stream hook of every matching
// processor. ok is false when a processor vetoed.
func (p *Pipeline) DispatchStream(ctx context.Context, hook Hook, r io.Reader, pc Context) (_ io.Reader, ok bool, err error) {
	if hook != BeforeSave && hook != Save {
		return nil, false, fmt.Errorf("%s is not a stream hook", hook)
	}
	pc.Hook = hook
	current := r
	for _, proc := range p.For(pc.File.MimeType) {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		var next io.Reader
		if hook == BeforeSave {
			next, err = proc.OnBeforeSave(ctx, current, pc)
		} else {
			next, err = proc.OnSave(ctx, current, pc)
		}
		if errors.Is(err, ErrVeto) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("%s hook: %w", hook, err)
		}
		if next == nil {
			return nil, false, nil
		}
		current = next
	}
	return current, true, nil
}

// DispatchEvent runs the delete or move hook of every matching processor.
func (p *Pipeline) DispatchEvent(ctx context.Context, hook Hook, pc Context) (bool, error) {
	if hook != Delete && hook != Move {
		return false, fmt.Errorf("%s is not an event hook", hook)
	}
	pc.Hook = hook
	for _, proc := range p.For(pc.File.MimeType) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		var (
			ok  bool
			err error
		)
		if hook == Delete {
			ok, err = proc.OnDelete(ctx, pc)
		} else {
			ok, err = proc.OnMove(ctx, pc)
		}
		if errors.Is(err, ErrVeto) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%s hook: %w", hook, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// MatchMime matches a registered pattern ("image/jpeg", "image/*" or
// "*/*") against a concrete mime type.
func MatchMime(pattern, mimeType string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" || mimeType == "" {
		return false
	}
	if pattern == "*/*" || pattern == "*" || pattern == mimeType {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(mimeType, prefix+"/")
	}
	return false
}
