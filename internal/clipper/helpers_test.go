package clipper

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipper/internal/blobstore"
	"clipper/internal/models"
	"clipper/internal/processor"
	"clipper/internal/store"
)

const testPrefix = "https://cdn.example.test/media"

type testEnv struct {
	svc     *Service
	store   *store.Store
	mem     *blobstore.Memory
	archive *blobstore.Memory
	scratch string
}

func newTestEnv(t *testing.T, cfg Config, processors ...processor.Processor) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	env := &testEnv{
		store:   st,
		mem:     blobstore.NewMemory(),
		archive: blobstore.NewMemory(),
		scratch: t.TempDir(),
	}
	registry := cfg.Backends
	if registry == nil {
		registry = blobstore.NewRegistry()
		if err := registry.Register("mem", env.mem, testPrefix); err != nil {
			t.Fatalf("register mem: %v", err)
		}
		if err := registry.Register("archive", env.archive, ""); err != nil {
			t.Fatalf("register archive: %v", err)
		}
	}

	cfg.Files = st
	cfg.Attachments = st
	cfg.Backends = registry
	cfg.Pipeline = processor.NewPipeline(processors...)
	if cfg.DefaultBackend == "" {
		cfg.DefaultBackend = "mem"
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = env.scratch
	} else {
		env.scratch = cfg.ScratchDir
	}

	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	env.svc = svc
	return env
}

func (e *testEnv) save(t *testing.T, content, mimeType string) *models.File {
	t.Helper()
	file, ok, err := e.svc.Save(context.Background(), strings.NewReader(content), SaveInput{MimeType: mimeType})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !ok {
		t.Fatal("save vetoed")
	}
	return file
}

// readAll is curried so a (stream, error) call can be passed straight in:
// readAll(t)(svc.Resolve(ctx, file, opts)).
func readAll(t *testing.T) func(io.ReadCloser, error) []byte {
	return func(rc io.ReadCloser, err error) []byte {
		t.Helper()
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return data
	}
}

func scratchEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	return len(entries)
}

// upper is a derivative-only processor that upper-cases text.
func upper() *processor.Counting {
	return processor.NewCounting(processor.StreamFunc{
		Mimes: []string{"text/*"},
		Fn: func(_ context.Context, r io.Reader, pc processor.Context) (io.Reader, error) {
			if !pc.IsDerivative() {
				return r, nil
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			return bytes.NewReader(bytes.ToUpper(data)), nil
		},
	})
}

// vetoBeforeSave rejects every stream on the BeforeSave hook.
type vetoBeforeSave struct {
	processor.Base
}

func (vetoBeforeSave) RegisteredMimes() []string { return []string{"*/*"} }

func (vetoBeforeSave) OnBeforeSave(context.Context, io.Reader, processor.Context) (io.Reader, error) {
	return nil, nil
}

// vetoEvents refuses deletes and moves.
type vetoEvents struct {
	processor.Base
}

func (vetoEvents) RegisteredMimes() []string { return []string{"*/*"} }

func (vetoEvents) OnDelete(context.Context, processor.Context) (bool, error) { return false, nil }

func (vetoEvents) OnMove(context.Context, processor.Context) (bool, error) { return false, nil }

// failingPut wraps a backend and fails every write.
type failingPut struct {
	blobstore.Backend
}

var errDiskFull = errors.New("disk full")

func (failingPut) Put(context.Context, string, io.Reader) (int64, error) {
	return 0, errDiskFull
}
