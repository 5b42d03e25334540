package docstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveReturnsStableRef(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	ref, err := store.Save(context.Background(), "front damage (1).jpg", []byte("jpegdata"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if strings.ContainsAny(ref, " ()/") {
		t.Fatalf("ref not sanitized: %q", ref)
	}

	data, err := os.ReadFile(filepath.Join(dir, ref))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "jpegdata" {
		t.Fatalf("content mismatch: %q", data)
	}
}

func TestSaveRejectsEmpty(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if _, err := store.Save(context.Background(), "x.jpg", nil); err == nil {
		t.Fatalf("expected error for empty file")
	}
}
