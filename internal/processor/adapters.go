package processor

import (
	"context"
	"io"
	"sync"
)

// StreamFunc adapts a function into a processor that runs it on the Save
// hook.
type StreamFunc struct {
	Base
	Mimes []string
	Fn    func(ctx context.Context, r io.Reader, pc Context) (io.Reader, error)
}

func (s StreamFunc) RegisteredMimes() []string { return s.Mimes }

func (s StreamFunc) OnSave(ctx context.Context, r io.Reader, pc Context) (io.Reader, error) {
	if s.Fn == nil {
		return r, nil
	}
	return s.Fn(ctx, r, pc)
}

// Counting wraps a processor and counts hook invocations.
type Counting struct {
	Processor

	mu    sync.Mutex
	calls map[Hook]int
}

// NewCounting wraps p.
func NewCounting(p Processor) *Counting {
	return &Counting{Processor: p, calls: map[Hook]int{}}
}

// Calls returns how often hook ran.
func (c *Counting) Calls(hook Hook) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[hook]
}

func (c *Counting) record(hook Hook) {
	c.mu.Lock()
	c.calls[hook]++
	c.mu.Unlock()
}

func (c *Counting) OnBeforeSave(ctx context.Context, r io.Reader, pc Context) (io.Reader, error) {
	c.record(BeforeSave)
	return c.Processor.OnBeforeSave(ctx, r, pc)
}

func (c *Counting) OnSave(ctx context.Context, r io.Reader, pc Context) (io.Reader, error) {
	c.record(Save)
	return c.Processor.OnSave(ctx, r, pc)
}

func (c *Counting) OnDelete(ctx context.Context, pc Context) (bool, error) {
	c.record(Delete)
	return c.Processor.OnDelete(ctx, pc)
}

func (c *Counting) OnMove(ctx context.Context, pc Context) (bool, error) {
	c.record(Move)
	return c.Processor.OnMove(ctx, pc)
}

// Scoped replaces the mime list of the wrapped processor.
type Scoped struct {
	Processor
	Mimes []string
}

func (s Scoped) RegisteredMimes() []string { return s.Mimes }
