package store

import (
	"context"
	"path/filepath"
	"testing"

	"clipper/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func createFile(t *testing.T, st *Store, label string) *models.File {
	t.Helper()
	file := &models.File{Label: label, MimeType: "image/png", Backend: "local"}
	if err := st.CreateFile(context.Background(), file); err != nil {
		t.Fatalf("create file: %v", err)
	}
	return file
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	file := &models.File{MimeType: "text/plain", Backend: "local"}
	if err := st.CreateFile(context.Background(), file); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	got, err := st.GetFile(context.Background(), file.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.MimeType != "text/plain" {
		t.Fatalf("unexpected file after reopen: %+v", got)
	}
}

func TestStoreInfo(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	info, err := st.StoreInfo(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.SchemaVersion == 0 {
		t.Fatal("expected non-zero schema version")
	}
	if info.TotalFiles != 0 {
		t.Fatalf("expected 0 files, got %d", info.TotalFiles)
	}

	a := createFile(t, st, "")
	createFile(t, st, "")
	other := &models.File{MimeType: "image/png", Backend: "archive"}
	if err := st.CreateFile(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.Attach(ctx, a.ID, models.Owner{Type: "Post", ID: "1"}, models.Slot("cover")); err != nil {
		t.Fatalf("attach: %v", err)
	}

	info, err = st.StoreInfo(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.TotalFiles != 3 {
		t.Fatalf("expected 3 files, got %d", info.TotalFiles)
	}
	if info.TotalAttachments != 1 {
		t.Fatalf("expected 1 attachment, got %d", info.TotalAttachments)
	}
	if info.UnattachedFiles != 2 {
		t.Fatalf("expected 2 unattached, got %d", info.UnattachedFiles)
	}
	if info.FilesByBackend["local"] != 2 || info.FilesByBackend["archive"] != 1 {
		t.Fatalf("unexpected backend counts: %v", info.FilesByBackend)
	}
}
