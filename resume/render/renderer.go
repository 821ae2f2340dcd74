package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"atsbeaters-backend/internal/shared/storage/object"
	"atsbeaters-backend/internal/shared/util"
)

// ErrRenderFailure wraps any failure building, validating or storing a document.
var ErrRenderFailure = errors.New("render failure")

// Document describes a stored render.
type Document struct {
	Key       string
	Location  string
	SizeBytes int64
	Blocks    int
}

// Renderer converts markdown to DOCX and writes it to an object store.
type Renderer struct {
	store object.ObjectStore
}

// NewRenderer returns a renderer writing to store.
func NewRenderer(store object.ObjectStore) *Renderer {
	return &Renderer{store: store}
}

// FileName returns the deterministic output name for identifier.
func FileName(identifier string) (string, error) {
	id, err := util.SanitizeIdentifier(identifier)
	if err != nil {
		return "", err
	}
	return "Optimized_Resume_" + id + ".docx", nil
}

// Render writes the document for markdown under a name derived from identifier.
// Rendering the same identifier again replaces the earlier document.
func (r *Renderer) Render(ctx context.Context, markdown, identifier string) (Document, error) {
	key, err := FileName(identifier)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}

	blocks := Parse(markdown)
	data, err := BuildDOCX(blocks)
	if err != nil {
		return Document{}, fmt.Errorf("%w: build docx: %v", ErrRenderFailure, err)
	}

	location, size, err := r.store.Put(ctx, key, ContentType, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%w: store %s: %v", ErrRenderFailure, key, err)
	}
	return Document{Key: key, Location: location, SizeBytes: size, Blocks: len(blocks)}, nil
}
