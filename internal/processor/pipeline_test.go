package processor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"clipper/internal/models"
)

type recorder struct {
	Base
	name  string
	mimes []string
	log   *[]string
	veto  Hook
	vetos bool
}

func (r *recorder) RegisteredMimes() []string { return r.mimes }

func (r *recorder) OnSave(_ context.Context, in io.Reader, _ Context) (io.Reader, error) {
	*r.log = append(*r.log, r.name)
	if r.vetos && r.veto == Save {
		return nil, nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	return strings.NewReader(string(data) + "+" + r.name), nil
}

func (r *recorder) OnDelete(context.Context, Context) (bool, error) {
	*r.log = append(*r.log, r.name)
	if r.vetos && r.veto == Delete {
		return false, nil
	}
	return true, nil
}

func jpegContext() Context {
	return Context{File: models.File{ID: 1, MimeType: "image/jpeg"}}
}

func TestDispatchStreamRunsMatchingProcessorsInOrder(t *testing.T) {
	var log []string
	p := NewPipeline(
		&recorder{name: "a", mimes: []string{"image/jpeg"}, log: &log},
		&recorder{name: "skip", mimes: []string{"application/pdf"}, log: &log},
		&recorder{name: "b", mimes: []string{"image/*"}, log: &log},
		&recorder{name: "c", mimes: []string{"*/*"}, log: &log},
	)

	out, ok, err := p.DispatchStream(context.Background(), Save, strings.NewReader("x"), jpegContext())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !ok {
		t.Fatal("expected dispatch to proceed")
	}
	data, _ := io.ReadAll(out)
	if string(data) != "x+a+b+c" {
		t.Fatalf("expected chained output, got %q", data)
	}
	if strings.Join(log, ",") != "a,b,c" {
		t.Fatalf("unexpected order %v", log)
	}
}

func TestDispatchStreamVetoStopsChain(t *testing.T) {
	var log []string
	p := NewPipeline(
		&recorder{name: "a", mimes: []string{"image/jpeg"}, log: &log, vetos: true, veto: Save},
		&recorder{name: "b", mimes: []string{"image/jpeg"}, log: &log},
	)
	out, ok, err := p.DispatchStream(context.Background(), Save, strings.NewReader("x"), jpegContext())
	if err != nil {
		t.Fatalf("veto must not be an error: %v", err)
	}
	if ok || out != nil {
		t.Fatalf("expected veto, got ok=%v out=%v", ok, out)
	}
	if len(log) != 1 {
		t.Fatalf("expected chain to stop after veto, ran %v", log)
	}
}

func TestDispatchStreamErrVetoIsOutcome(t *testing.T) {
	p := NewPipeline(StreamFunc{Mimes: []string{"image/jpeg"}, Fn: func(context.Context, io.Reader, Context) (io.Reader, error) {
		return nil, ErrVeto
	}})
	_, ok, err := p.DispatchStream(context.Background(), Save, strings.NewReader("x"), jpegContext())
	if err != nil || ok {
		t.Fatalf("expected veto outcome, got ok=%v err=%v", ok, err)
	}
}

func TestDispatchStreamPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipeline(StreamFunc{Mimes: []string{"image/jpeg"}, Fn: func(context.Context, io.Reader, Context) (io.Reader, error) {
		return nil, boom
	}})
	_, ok, err := p.DispatchStream(context.Background(), Save, strings.NewReader("x"), jpegContext())
	if !errors.Is(err, boom) || ok {
		t.Fatalf("expected boom, got ok=%v err=%v", ok, err)
	}
}

func TestDispatchStreamPassesOptionsAndHook(t *testing.T) {
	var seen Context
	p := NewPipeline(StreamFunc{Mimes: []string{"image/jpeg"}, Fn: func(_ context.Context, r io.Reader, pc Context) (io.Reader, error) {
		seen = pc
		return r, nil
	}})
	pc := jpegContext()
	pc.Options = models.Options{"width": 10}
	if _, _, err := p.DispatchStream(context.Background(), Save, strings.NewReader("x"), pc); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if seen.Hook != Save || seen.Options["width"] != 10 || !seen.IsDerivative() {
		t.Fatalf("unexpected context %#v", seen)
	}
}

func TestDispatchEvent(t *testing.T) {
	var log []string
	p := NewPipeline(
		&recorder{name: "a", mimes: []string{"image/jpeg"}, log: &log},
		&recorder{name: "b", mimes: []string{"image/jpeg"}, log: &log, vetos: true, veto: Delete},
		&recorder{name: "c", mimes: []string{"image/jpeg"}, log: &log},
	)
	ok, err := p.DispatchEvent(context.Background(), Delete, jpegContext())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if ok {
		t.Fatal("expected veto")
	}
	if strings.Join(log, ",") != "a,b" {
		t.Fatalf("unexpected order %v", log)
	}

	ok, err = p.DispatchEvent(context.Background(), Move, jpegContext())
	if err != nil || !ok {
		t.Fatalf("expected base move hook to allow, got ok=%v err=%v", ok, err)
	}
}

func TestDispatchRejectsWrongHookKind(t *testing.T) {
	p := NewPipeline()
	if _, _, err := p.DispatchStream(context.Background(), Delete, strings.NewReader(""), jpegContext()); err == nil {
		t.Fatal("expected error for event hook on stream dispatch")
	}
	if _, err := p.DispatchEvent(context.Background(), Save, jpegContext()); err == nil {
		t.Fatal("expected error for stream hook on event dispatch")
	}
}

func TestEmptyPipelinePassesThrough(t *testing.T) {
	var p *Pipeline
	if p.Len() != 0 || p.For("image/jpeg") != nil {
		t.Fatal("nil pipeline should be empty")
	}
	out, ok, err := NewPipeline().DispatchStream(context.Background(), BeforeSave, strings.NewReader("x"), jpegContext())
	if err != nil || !ok {
		t.Fatalf("expected pass-through, got ok=%v err=%v", ok, err)
	}
	data, _ := io.ReadAll(out)
	if string(data) != "x" {
		t.Fatalf("expected x, got %q", data)
	}
}

func TestCountingRecordsHooks(t *testing.T) {
	c := NewCounting(StreamFunc{Mimes: []string{"image/jpeg"}})
	p := NewPipeline(c)
	ctx := context.Background()
	_, _, _ = p.DispatchStream(ctx, BeforeSave, strings.NewReader("x"), jpegContext())
	_, _, _ = p.DispatchStream(ctx, Save, strings.NewReader("x"), jpegContext())
	_, _, _ = p.DispatchStream(ctx, Save, strings.NewReader("x"), jpegContext())
	_, _ = p.DispatchEvent(ctx, Delete, jpegContext())
	if c.Calls(BeforeSave) != 1 || c.Calls(Save) != 2 || c.Calls(Delete) != 1 || c.Calls(Move) != 0 {
		t.Fatalf("unexpected counts before=%d save=%d delete=%d move=%d",
			c.Calls(BeforeSave), c.Calls(Save), c.Calls(Delete), c.Calls(Move))
	}
}

func TestScopedOverridesMimes(t *testing.T) {
	c := NewCounting(StreamFunc{Mimes: []string{"image/jpeg"}})
	p := NewPipeline(Scoped{Processor: c, Mimes: []string{"text/*"}})
	if got := len(p.For("image/jpeg")); got != 0 {
		t.Fatalf("expected scoped processor to skip jpeg, got %d", got)
	}
	if got := len(p.For("text/plain")); got != 1 {
		t.Fatalf("expected scoped processor for text/plain, got %d", got)
	}
	_, _, _ = p.DispatchStream(context.Background(), Save, strings.NewReader("x"), Context{File: models.File{MimeType: "text/plain"}})
	if c.Calls(Save) != 1 {
		t.Fatalf("expected wrapped processor to run, got %d", c.Calls(Save))
	}
}

func TestMatchMime(t *testing.T) {
	cases := []struct {
		pattern, mime string
		want          bool
	}{
		{"image/jpeg", "image/jpeg", true},
		{"IMAGE/JPEG", "image/jpeg", true},
		{"image/*", "image/png", true},
		{"image/*", "imagex/png", false},
		{"*/*", "application/pdf", true},
		{"image/png", "image/jpeg", false},
		{"", "image/jpeg", false},
	}
	for _, tc := range cases {
		if got := MatchMime(tc.pattern, tc.mime); got != tc.want {
			t.Fatalf("MatchMime(%q, %q) = %v, want %v", tc.pattern, tc.mime, got, tc.want)
		}
	}
}
