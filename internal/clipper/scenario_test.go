package clipper_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"path/filepath"
	"testing"

	"clipper/internal/blobstore"
	"clipper/internal/clipper"
	"clipper/internal/models"
	"clipper/internal/processor"
	"clipper/internal/processor/imaging"
	"clipper/internal/store"
)

type scenario struct {
	svc     *clipper.Service
	st      *store.Store
	s3      *blobstore.Memory
	rotate  *processor.Counting
	resize  *processor.Counting
	file42  *models.File
	options models.Options
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	s3 := blobstore.NewMemory()
	registry := blobstore.NewRegistry()
	if err := registry.Register("s3", s3, "https://bucket.example.test"); err != nil {
		t.Fatalf("register: %v", err)
	}
	rotate := processor.NewCounting(imaging.NewFixRotation())
	resize := processor.NewCounting(imaging.NewResize())

	svc, err := clipper.New(clipper.Config{
		Files:          st,
		Attachments:    st,
		Backends:       registry,
		Pipeline:       processor.NewPipeline(rotate, resize),
		DefaultBackend: "s3",
		ScratchDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	// Occupy ids 1..41 so the scenario file gets id 42.
	for i := 0; i < 41; i++ {
		if err := st.CreateFile(ctx, &models.File{MimeType: "text/plain", Backend: "s3"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	var jpegData bytes.Buffer
	if err := jpeg.Encode(&jpegData, image.NewRGBA(image.Rect(0, 0, 400, 200)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	file, ok, err := svc.Save(ctx, &jpegData, clipper.SaveInput{MimeType: "image/jpeg", Backend: "s3"})
	if err != nil || !ok {
		t.Fatalf("save: %v, %v", ok, err)
	}

	return &scenario{
		svc:     svc,
		st:      st,
		s3:      s3,
		rotate:  rotate,
		resize:  resize,
		file42:  file,
		options: models.Options{"width": 100, "height": 100, "preserveRatio": true},
	}
}

// readResolved is curried so a (stream, error) call can be passed straight in:
// readResolved(t)(svc.Resolve(ctx, file, opts)).
func readResolved(t *testing.T) func(io.ReadCloser, error) []byte {
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

func TestScenarioSaveAndResize(t *testing.T) {
	sc := newScenario(t)
	ctx := context.Background()

	if sc.file42.ID != 42 || sc.file42.MimeType != "image/jpeg" {
		t.Fatalf("expected file 42 image/jpeg, got %+v", sc.file42)
	}

	data := readResolved(t)(sc.svc.Resolve(ctx, sc.file42, sc.options))
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode derivative: %v", err)
	}
	if format != "jpeg" || cfg.Width != 100 || cfg.Height != 50 {
		t.Fatalf("expected 100x50 jpeg, got %dx%d %s", cfg.Width, cfg.Height, format)
	}

	p, err := sc.svc.Path(sc.file42, sc.options)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if filepath.Dir(p) != "42" {
		t.Fatalf("expected derivative under 42/, got %s", p)
	}
	if exists, _ := sc.s3.Exists(ctx, p); !exists {
		t.Fatalf("expected derivative stored at %s", p)
	}
	if sc.rotate.Calls(processor.Save) != 2 || sc.resize.Calls(processor.Save) != 2 {
		t.Fatalf("expected save and generation hook calls, got rotate=%d resize=%d",
			sc.rotate.Calls(processor.Save), sc.resize.Calls(processor.Save))
	}
}

func TestScenarioRepeatIsCacheHit(t *testing.T) {
	sc := newScenario(t)
	ctx := context.Background()

	first := readResolved(t)(sc.svc.Resolve(ctx, sc.file42, sc.options))
	resizeCalls := sc.resize.Calls(processor.Save)

	again := models.Options{"preserveRatio": true, "height": 100, "width": 100}
	second := readResolved(t)(sc.svc.Resolve(ctx, sc.file42, again))
	if !bytes.Equal(first, second) {
		t.Fatal("expected byte-identical output on repeat")
	}
	if sc.resize.Calls(processor.Save) != resizeCalls {
		t.Fatalf("resize ran again: %d -> %d", resizeCalls, sc.resize.Calls(processor.Save))
	}
}

func TestScenarioDeleteThenResolve(t *testing.T) {
	sc := newScenario(t)
	ctx := context.Background()
	readResolved(t)(sc.svc.Resolve(ctx, sc.file42, sc.options))

	ok, err := sc.svc.Delete(ctx, sc.file42, models.Options{})
	if err != nil || !ok {
		t.Fatalf("delete: %v, %v", ok, err)
	}
	if _, err := sc.svc.Resolve(ctx, sc.file42, models.Options{}); !errors.Is(err, clipper.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScenarioSlotReplacement(t *testing.T) {
	sc := newScenario(t)
	ctx := context.Background()
	post := models.Owner{Type: "Post", ID: "5"}

	// Fill ids up to 98 so the replacement is file 99.
	for i := 43; i < 99; i++ {
		if err := sc.st.CreateFile(ctx, &models.File{MimeType: "text/plain", Backend: "s3"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	file99 := &models.File{MimeType: "image/jpeg", Backend: "s3"}
	if err := sc.st.CreateFile(ctx, file99); err != nil {
		t.Fatalf("create: %v", err)
	}
	if file99.ID != 99 {
		t.Fatalf("expected id 99, got %d", file99.ID)
	}

	edge42, err := sc.svc.Attach(ctx, sc.file42, post, models.Slot("cover"))
	if err != nil {
		t.Fatalf("attach 42: %v", err)
	}
	if _, err := sc.svc.Attach(ctx, file99, post, models.Slot("cover")); err != nil {
		t.Fatalf("attach 99: %v", err)
	}

	found, err := sc.svc.FindBySlot(ctx, post, "cover")
	if err != nil {
		t.Fatalf("find by slot: %v", err)
	}
	if found.ID != 99 {
		t.Fatalf("expected file 99, got %d", found.ID)
	}
	edge, err := sc.st.GetAttachment(ctx, edge42.ID)
	if err != nil {
		t.Fatalf("get edge: %v", err)
	}
	if edge == nil || edge.HasSlot() {
		t.Fatalf("expected edge for file 42 with slot cleared, got %+v", edge)
	}
}
