package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipper/internal/blobstore"
	"clipper/internal/clipper"
	"clipper/internal/config"
	"clipper/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "clipper.db")
	cfg.Backends = map[string]config.BackendConfig{
		"local":   {Driver: config.DriverLocal, Root: "files", PublicPrefix: "https://cdn.example.test/"},
		"archive": {Driver: config.DriverMemory, Compress: true},
	}
	cfg.Processors = config.DefaultProcessors()
	return &cfg
}

func runCLI(t *testing.T, cfg *config.Config, args ...string) error {
	t.Helper()
	root := newRootCmd(cfg)
	root.SetArgs(args)
	return root.Execute()
}

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, "in.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestCLISaveGetDelete(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	src := writePNG(t, dir, 40, 20)

	if err := runCLI(t, cfg, "save", src, "--label", "avatar", "--owner", "User:1", "--slot", "avatar"); err != nil {
		t.Fatalf("save: %v", err)
	}

	original := filepath.Join(filepath.Dir(cfg.DBPath), "files", "1", "original")
	if _, err := os.Stat(original); err != nil {
		t.Fatalf("expected original under the db dir: %v", err)
	}

	out := filepath.Join(dir, "thumb.png")
	metricsFile := filepath.Join(dir, "metrics.prom")
	if err := runCLI(t, cfg, "get", "avatar", "--opt", "width=10", "--opt", "height=5", "-o", out, "--metrics-file", metricsFile); err != nil {
		t.Fatalf("get: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 5 {
		t.Fatalf("expected 10x5 derivative, got %dx%d", b.Dx(), b.Dy())
	}
	metrics, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(metrics), "clipper_operations_total") {
		t.Fatalf("expected clipper metrics, got:\n%s", metrics)
	}

	if err := runCLI(t, cfg, "get", "avatar", "-o", out); err == nil {
		t.Fatal("expected refusal to overwrite without --force")
	}

	a, err := openApp(cfg)
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	file, err := a.service.FindBySlot(context.Background(), models.Owner{Type: "User", ID: "1"}, "avatar")
	a.close()
	if err != nil {
		t.Fatalf("find by slot: %v", err)
	}
	if file.Label != "avatar" || file.MimeType != "image/png" || file.Backend != "local" {
		t.Fatalf("unexpected file: %+v", file)
	}

	if err := runCLI(t, cfg, "delete", "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(original)); !os.IsNotExist(err) {
		t.Fatalf("expected file directory removed, got %v", err)
	}
	err = runCLI(t, cfg, "get", "avatar")
	if !errors.Is(err, clipper.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestCLIRejectsBadInput(t *testing.T) {
	cfg := testConfig(t)
	cases := [][]string{
		{"save"},
		{"save", "ftp://example.test/a.png"},
		{"get", "1", "--opt", "width"},
		{"attach", "1", "nobody"},
		{"detach"},
		{"detach", "1", "--owner", "User:1"},
		{"update", "1"},
		{"ls", "--json", "--yaml"},
	}
	for _, args := range cases {
		if err := runCLI(t, cfg, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestBuildBackends(t *testing.T) {
	cfg := testConfig(t)
	base := t.TempDir()
	registry, err := buildBackends(cfg, base)
	if err != nil {
		t.Fatalf("build backends: %v", err)
	}
	if names := registry.Names(); len(names) != 2 || names[0] != "archive" || names[1] != "local" {
		t.Fatalf("unexpected backends %v", names)
	}

	local, err := registry.Get("local")
	if err != nil {
		t.Fatalf("get local: %v", err)
	}
	fs, ok := local.(*blobstore.LocalFS)
	if !ok || fs.Root() != filepath.Join(base, "files") {
		t.Fatalf("expected local root resolved against base, got %#v", local)
	}
	if prefix, _ := registry.PublicPrefix("local"); prefix != "https://cdn.example.test/" {
		t.Fatalf("unexpected prefix %q", prefix)
	}

	archive, err := registry.Get("archive")
	if err != nil {
		t.Fatalf("get archive: %v", err)
	}
	compressed, ok := archive.(*blobstore.Compressed)
	if !ok {
		t.Fatalf("expected compressed archive backend, got %T", archive)
	}
	if _, ok := compressed.Unwrap().(*blobstore.Memory); !ok {
		t.Fatalf("expected memory under compression, got %T", compressed.Unwrap())
	}
}

func TestBuildPipeline(t *testing.T) {
	pipeline, err := buildPipeline([]config.ProcessorConfig{
		{Name: "fix_rotation"},
		{Name: "resize", Mimes: []string{"image/webp"}},
	})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	if pipeline.Len() != 2 {
		t.Fatalf("expected 2 processors, got %d", pipeline.Len())
	}
	if got := len(pipeline.For("image/png")); got != 0 {
		t.Fatalf("expected scoped resize to skip png, got %d", got)
	}
	if got := len(pipeline.For("image/webp")); got != 1 {
		t.Fatalf("expected scoped resize for webp, got %d", got)
	}

	if _, err := buildPipeline([]config.ProcessorConfig{{Name: "sharpen"}}); err == nil {
		t.Fatal("expected unknown processor error")
	}
}

func TestOpenAppRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.DefaultBackend = "missing"
	if _, err := openApp(cfg); err == nil {
		t.Fatal("expected config error")
	}
	cfg = testConfig(t)
	cfg.DBPath = ""
	if _, err := openApp(cfg); err == nil {
		t.Fatal("expected db path error")
	}
}

func TestEffectiveConfigExpandsBackends(t *testing.T) {
	cfg := testConfig(t)
	entries, err := effectiveConfig(cfg)
	if err != nil {
		t.Fatalf("effective config: %v", err)
	}
	values := map[string]string{}
	for _, entry := range entries {
		if strings.Contains(entry.Key, "<name>") {
			t.Fatalf("unexpanded template key %q", entry.Key)
		}
		values[entry.Key] = entry.Value
	}
	if values["backends.archive.compress"] != "true" {
		t.Fatalf("expected archive compress=true, got %q", values["backends.archive.compress"])
	}
	if values["backends.local.public_prefix"] != "https://cdn.example.test/" {
		t.Fatalf("unexpected local prefix %q", values["backends.local.public_prefix"])
	}
	if values["default_backend"] != cfg.DefaultBackend {
		t.Fatalf("expected default_backend %q, got %q", cfg.DefaultBackend, values["default_backend"])
	}
}
