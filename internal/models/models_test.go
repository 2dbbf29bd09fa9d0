package models

import "testing"

func TestParseOwner(t *testing.T) {
	owner, err := ParseOwner(" Post:5 ")
	if err != nil {
		t.Fatalf("parse owner: %v", err)
	}
	if owner.Type != "Post" || owner.ID != "5" {
		t.Fatalf("unexpected owner: %#v", owner)
	}
	if owner.String() != "Post:5" {
		t.Fatalf("expected Post:5, got %q", owner.String())
	}

	for _, raw := range []string{"", "Post", ":5", "Post:"} {
		if _, err := ParseOwner(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestNormalizeMimeType(t *testing.T) {
	got, err := NormalizeMimeType(" Image/JPEG; charset=binary ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", got)
	}
	if _, err := NormalizeMimeType(""); err == nil {
		t.Fatal("expected empty mime error")
	}
	if _, err := NormalizeMimeType("not a mime//"); err == nil {
		t.Fatal("expected invalid mime error")
	}
}

func TestFileDirectory(t *testing.T) {
	if got := (File{ID: 42}).Directory(); got != "42" {
		t.Fatalf("expected 42, got %q", got)
	}
}

func TestOptionsCloneIsDeep(t *testing.T) {
	orig := Options{"crop": map[string]any{"x": 1}, "tags": []any{"a"}}
	clone := orig.Clone()
	clone["crop"].(map[string]any)["x"] = 2
	clone["tags"].([]any)[0] = "b"

	if orig["crop"].(map[string]any)["x"] != 1 {
		t.Fatal("nested map was shared")
	}
	if orig["tags"].([]any)[0] != "a" {
		t.Fatal("nested slice was shared")
	}
}

func TestSlotHelpers(t *testing.T) {
	if Slot("  ") != nil {
		t.Fatal("expected nil slot for blank name")
	}
	a := Attachment{Slot: Slot(" cover ")}
	if !a.HasSlot() || a.SlotValue() != "cover" {
		t.Fatalf("unexpected slot: %#v", a.Slot)
	}
}
