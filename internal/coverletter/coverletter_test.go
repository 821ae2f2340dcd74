package coverletter

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"atsbeaters-backend/internal/llm"
	"atsbeaters-backend/internal/shared/telemetry"
)

func TestGenerateUsesJobDescription(t *testing.T) {
	var prompt string
	gen := llm.GeneratorFunc(func(ctx context.Context, p string) (string, error) {
		prompt = p
		return "Dear Hiring Manager,\n\n...", nil
	})

	out := NewStage(gen).Generate(context.Background(), "Led 5 launches", "Senior Go Engineer")
	if !strings.HasPrefix(out, "Dear Hiring Manager") {
		t.Fatalf("unexpected letter %q", out)
	}
	if !strings.Contains(prompt, "Led 5 launches") || !strings.Contains(prompt, "Senior Go Engineer") {
		t.Fatalf("prompt missing inputs: %q", prompt)
	}
}

func TestGenerateFallsBack(t *testing.T) {
	defer telemetry.SetOutput(io.Discard)()

	failing := llm.GeneratorFunc(func(ctx context.Context, p string) (string, error) {
		return "", errors.New("unavailable")
	})
	if got := NewStage(failing).Generate(context.Background(), "h", "jd"); got != FallbackText {
		t.Fatalf("expected fallback, got %q", got)
	}

	empty := llm.GeneratorFunc(func(ctx context.Context, p string) (string, error) {
		return " ", nil
	})
	if got := NewStage(empty).Generate(context.Background(), "h", "jd"); got != FallbackText {
		t.Fatalf("expected fallback for empty output, got %q", got)
	}
}

func TestHighlightsTruncatesByRune(t *testing.T) {
	short := "short resume"
	if Highlights(short) != short {
		t.Fatalf("short resume should be returned unchanged")
	}

	long := strings.Repeat("é", HighlightsLimit+20)
	got := Highlights(long)
	if n := utf8.RuneCountInString(got); n != HighlightsLimit {
		t.Fatalf("expected %d runes, got %d", HighlightsLimit, n)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("highlights split a rune")
	}
}
