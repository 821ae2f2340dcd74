package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
)

const (
	wmlNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// ContentType is the MIME type of a rendered document.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// zipEpoch is stamped on every part so identical input yields identical bytes.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

const contentTypesXML = xmlHeader +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>` +
	`</Types>`

const rootRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const documentRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/>` +
	`</Relationships>`

type packagePart struct {
	name    string
	content string
}

// BuildDOCX assembles a minimal word-processing package with one paragraph per block.
func BuildDOCX(blocks []Block) ([]byte, error) {
	documentXML, err := buildDocumentXML(blocks)
	if err != nil {
		return nil, err
	}
	if err := validateDocumentXML(documentXML, len(blocks)); err != nil {
		return nil, err
	}

	parts := []packagePart{
		{name: "[Content_Types].xml", content: contentTypesXML},
		{name: "_rels/.rels", content: rootRelsXML},
		{name: "word/document.xml", content: documentXML},
		{name: "word/styles.xml", content: stylesXML},
		{name: "word/numbering.xml", content: numberingXML},
		{name: "word/_rels/document.xml.rels", content: documentRelsXML},
	}

	var output bytes.Buffer
	writer := zip.NewWriter(&output)
	for _, part := range parts {
		if err := writeZipPart(writer, part); err != nil {
			_ = writer.Close()
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

func writeZipPart(writer *zip.Writer, part packagePart) error {
	header := &zip.FileHeader{
		Name:     part.name,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	}
	w, err := writer.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create zip part %s: %w", part.name, err)
	}
	if _, err := w.Write([]byte(part.content)); err != nil {
		return fmt.Errorf("write zip part %s: %w", part.name, err)
	}
	return nil
}

func buildDocumentXML(blocks []Block) (string, error) {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<w:document xmlns:w="` + wmlNamespace + `" xmlns:r="` + relNamespace + `"><w:body>`)
	for _, block := range blocks {
		if err := writeParagraph(&b, block); err != nil {
			return "", err
		}
	}
	b.WriteString(`<w:sectPr>`)
	b.WriteString(`<w:pgSz w:w="` + strconv.Itoa(pageWidthTwips) + `" w:h="` + strconv.Itoa(pageHeightTwips) + `"/>`)
	m := strconv.Itoa(MarginTwips)
	b.WriteString(`<w:pgMar w:top="` + m + `" w:right="` + m + `" w:bottom="` + m + `" w:left="` + m + `" w:header="720" w:footer="720" w:gutter="0"/>`)
	b.WriteString(`</w:sectPr></w:body></w:document>`)
	return b.String(), nil
}

func writeParagraph(b *bytes.Buffer, block Block) error {
	style, ok := StyleMap[block.Kind]
	if !ok {
		return fmt.Errorf("unknown block kind %d", block.Kind)
	}
	b.WriteString(`<w:p><w:pPr><w:pStyle w:val="` + style.StyleID + `"/>`)
	if block.Kind == BlockBullet {
		b.WriteString(`<w:numPr><w:ilvl w:val="0"/><w:numId w:val="` + strconv.Itoa(bulletNumID) + `"/></w:numPr>`)
	}
	b.WriteString(`</w:pPr><w:r><w:rPr>` + runFonts)
	if style.Bold {
		b.WriteString(`<w:b/><w:bCs/>`)
	}
	b.WriteString(runSize + `</w:rPr><w:t xml:space="preserve">`)
	if err := xml.EscapeText(b, []byte(block.Text)); err != nil {
		return err
	}
	b.WriteString(`</w:t></w:r></w:p>`)
	return nil
}
