package util

import (
	"errors"
	"strings"
)

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// SanitizeIdentifier maps an arbitrary identifier onto [A-Za-z0-9._-]. Other runes become '_'.
// Leading dots are replaced so the result never names a hidden or parent entry.
func SanitizeIdentifier(id string) (string, error) {
	s := strings.TrimSpace(id)
	if s == "" {
		return "", errors.New("invalid identifier")
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.':
			if b.Len() == 0 {
				b.WriteByte('_')
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", "__")
	}
	return out, nil
}

// SanitizeError flattens err onto one line for logs and error payloads, capped at 500 bytes.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(err.Error())
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = strings.ToValidUTF8(msg[:maxLen], "")
	}
	return msg
}
