package main

import (
	"archive/zip"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	localstore "atsbeaters-backend/internal/shared/storage/object/local"
	"atsbeaters-backend/resume/render"
)

const sampleMarkdown = `# Jordan Lee
Senior Backend Engineer | jordan.lee@example.com | Austin, TX
## Summary
Backend engineer with 8+ years of experience building resilient APIs and data services.
## Experience
Senior Backend Engineer, Acme Logistics (2021 - Present)
- Designed a routing service that reduced shipment latency by 18%.
- Implemented distributed tracing to cut incident triage time by 35%.
Backend Engineer, Blue Harbor Systems (2018 - 2021)
* Built event-driven ingestion pipelines for compliance data feeds.
## Skills
- Go, Java, PostgreSQL, Redis, AWS, Docker, Kubernetes
`

func main() {
	outDir := flag.String("out", "./out", "output directory for the generated DOCX")
	inPath := flag.String("in", "", "optional markdown file; a built-in sample is used when empty")
	id := flag.String("id", "sample", "document identifier")
	flag.Parse()

	markdown := sampleMarkdown
	if *inPath != "" {
		raw, err := os.ReadFile(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read input: %v\n", err)
			os.Exit(1)
		}
		markdown = string(raw)
	}

	store := localstore.New(*outDir)
	doc, err := render.NewRenderer(store).Render(context.Background(), markdown, *id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render failed: %v\n", err)
		os.Exit(1)
	}

	if err := validateRenderedDocx(doc.Location, doc.Blocks); err != nil {
		fmt.Fprintf(os.Stderr, "render validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OK: wrote %s (%d blocks, %d bytes)\n", doc.Location, doc.Blocks, doc.SizeBytes)
}

func validateRenderedDocx(path string, wantParagraphs int) error {
	docxBytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	reader, err := zip.NewReader(bytes.NewReader(docxBytes), int64(len(docxBytes)))
	if err != nil {
		return err
	}

	for _, file := range reader.File {
		if normalizeZipName(file.Name) != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return err
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		text := string(content)
		if got := strings.Count(text, "<w:p>"); got != wantParagraphs {
			return fmt.Errorf("expected %d paragraphs, found %d", wantParagraphs, got)
		}
		return nil
	}

	return fmt.Errorf("document.xml not found in docx")
}

func normalizeZipName(name string) string {
	return strings.ReplaceAll(name, "\\", "/")
}
