// Package extract turns uploaded or on-disk resumes into the plain text the
// pipeline analyzes.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	mimeText = "text/plain"
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrEmptyText is returned when a file yields no usable text.
	ErrEmptyText = errors.New("no text extracted")
	// ErrUnsupportedType is returned for formats other than text, PDF and DOCX.
	ErrUnsupportedType = errors.New("unsupported resume format")
	// ErrInvalidText is returned for plain-text payloads that are not UTF-8.
	ErrInvalidText = errors.New("text file is not valid UTF-8")
)

// ExtractFile reads a resume from disk. Plain text is returned unchanged; .pdf and
// .docx files are converted to text.
func ExtractFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read resume %s: %w", path, err)
	}
	text, err := ExtractTextFromBytes(ctx, data, mimeFromExtension(path), filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("extract resume %s: %w", path, err)
	}
	return text, nil
}

// ExtractTextFromBytes extracts resume text from an in-memory payload. The
// declared mime type wins unless it is empty or generic, in which case the
// file name and then the content decide.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch kind := detectType(mimeType, fileName, data); kind {
	case mimeText:
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(data) {
			return "", ErrInvalidText
		}
		// Plain text is the pipeline's native input and passes through as is.
		text = string(data)
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyText
		}
		return text, nil
	case mimePDF:
		text, err = extractPDF(data)
	case mimeDOCX:
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
	if err != nil {
		return "", err
	}

	text = tidy(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}
	defer doc.Close()
	return docxText(doc.Editable().GetContent()), nil
}

// docxText keeps character data and ends a line at every paragraph, break
// and tab-separated cell.
func docxText(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var b strings.Builder
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				b.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p", "br", "tc":
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

// tidy normalizes extracted text: unified newlines, no trailing spaces, no
// control characters and at most one blank line in a row.
func tidy(text string) string {
	text = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\f", "\n", "\x00", "").Replace(text)
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t ")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			line = ""
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func mimeFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return mimePDF
	case ".docx":
		return mimeDOCX
	case ".txt", ".md", ".markdown", ".text":
		return mimeText
	default:
		return ""
	}
}

func detectType(mimeType string, fileName string, data []byte) string {
	kind := baseMime(mimeType)
	if kind == "" || kind == "application/octet-stream" {
		if byExt := mimeFromExtension(fileName); byExt != "" {
			return byExt
		}
		kind = baseMime(http.DetectContentType(data))
	}
	if kind == "application/zip" && isDOCXPackage(data) {
		return mimeDOCX
	}
	return kind
}

func baseMime(v string) string {
	v, _, _ = strings.Cut(v, ";")
	return strings.ToLower(strings.TrimSpace(v))
}

func isDOCXPackage(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}
