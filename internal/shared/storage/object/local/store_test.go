package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atsbeaters-backend/internal/shared/storage/object"
)

func TestPutOverwritesAndOpens(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	loc, n, err := store.Put(ctx, "Optimized_Resume_a.docx", "application/octet-stream", strings.NewReader("first"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if loc != filepath.Join(dir, "Optimized_Resume_a.docx") || n != 5 {
		t.Fatalf("unexpected location %q size %d", loc, n)
	}

	if _, _, err := store.Put(ctx, "Optimized_Resume_a.docx", "application/octet-stream", strings.NewReader("second")); err != nil {
		t.Fatalf("second put: %v", err)
	}

	rc, err := store.Open(ctx, "Optimized_Resume_a.docx")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "second" {
		t.Fatalf("expected overwritten content, got %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected a single file, got %d", len(entries))
	}
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, _, err := store.Put(context.Background(), "../escape.docx", "", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, err := store.Open(context.Background(), "/etc/passwd"); err == nil {
		t.Fatalf("expected absolute key to be rejected")
	}
}

func TestOpenMissingIsNotFound(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "Optimized_Resume_missing.docx"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
