package util

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFileName(t *testing.T) {
	if _, err := SanitizeFileName("../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	got, err := SanitizeFileName(" a/b\\c.docx ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a_b_c.docx" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "run-123", want: "run-123"},
		{in: "user@example.com", want: "user_example.com"},
		{in: ".hidden", want: "_hidden"},
		{in: "a b/c", want: "a_b_c"},
		{in: "a/b", want: "a_b"},
		{in: "a_b", want: "a_b"},
	}
	for _, tt := range tests {
		got, err := SanitizeIdentifier(tt.in)
		if err != nil {
			t.Fatalf("SanitizeIdentifier(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("SanitizeIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	got, err := SanitizeIdentifier("../../secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "..") || strings.Contains(got, "/") {
		t.Fatalf("traversal survived sanitizing: %q", got)
	}
	if _, err := SanitizeIdentifier("   "); err == nil {
		t.Fatalf("expected empty identifier to be rejected")
	}
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "single line", err: errors.New("boom"), want: "boom"},
		{name: "multi line", err: errors.New(" decode json:\ninvalid\r\ncharacter \n"), want: "decode json: invalid character"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeError(tt.err); got != tt.want {
				t.Fatalf("SanitizeError = %q, want %q", got, tt.want)
			}
		})
	}

	long := SanitizeError(errors.New(strings.Repeat("é", 400)))
	if len(long) > 500 || !utf8.ValidString(long) {
		t.Fatalf("expected valid capped message, got %d bytes", len(long))
	}
}
