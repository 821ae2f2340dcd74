package render

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ValidationError reports a document.xml that Word would refuse or misrender.
type ValidationError struct {
	Rule    string
	Snippet string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document.xml invalid: %s\n%s", e.Rule, e.Snippet)
}

// rootPrefixes are the prefixes document.xml must declare on <w:document>.
var rootPrefixes = map[string]string{
	wmlNamespace: "w",
	relNamespace: "r",
}

// validateDocumentXML checks, in one pass, that document.xml is well formed,
// declares every WordprocessingML prefix it uses on the root element, never
// nests paragraphs, keeps run properties ahead of run text and holds exactly
// wantParagraphs paragraphs.
func validateDocumentXML(xmlText string, wantParagraphs int) error {
	fail := func(rule string, args ...any) error {
		return &ValidationError{Rule: fmt.Sprintf(rule, args...), Snippet: firstLines(xmlText, 5)}
	}

	decoder := xml.NewDecoder(strings.NewReader(xmlText))
	var (
		declared   map[string]string
		depth      int
		inPara     bool
		paraDepth  int
		runHasText []bool
		paragraphs int
	)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail("parse: %v", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if declared == nil {
				declared = rootDeclarations(t)
			}
			if err := checkNamespace(t.Name, "element", declared); err != "" {
				return fail("%s", err)
			}
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns") {
					continue
				}
				if err := checkNamespace(attr.Name, "attribute", declared); err != "" {
					return fail("%s", err)
				}
			}

			switch {
			case isWML(t.Name, "p"):
				if inPara {
					return fail("nested <w:p>")
				}
				inPara, paraDepth = true, depth
				paragraphs++
			case isWML(t.Name, "r"):
				runHasText = append(runHasText, false)
			case isWML(t.Name, "t") && len(runHasText) > 0:
				runHasText[len(runHasText)-1] = true
			case isWML(t.Name, "rPr") && len(runHasText) > 0 && runHasText[len(runHasText)-1]:
				return fail("<w:rPr> after <w:t> in a run")
			}

		case xml.EndElement:
			if isWML(t.Name, "r") && len(runHasText) > 0 {
				runHasText = runHasText[:len(runHasText)-1]
			}
			if inPara && depth == paraDepth {
				inPara = false
			}
			depth--
		}
	}

	if declared == nil {
		return fail("no root element")
	}
	if wantParagraphs >= 0 && paragraphs != wantParagraphs {
		return fail("%d paragraphs for %d blocks", paragraphs, wantParagraphs)
	}
	return nil
}

func rootDeclarations(root xml.StartElement) map[string]string {
	out := make(map[string]string)
	for _, attr := range root.Attr {
		switch {
		case attr.Name.Space == "xmlns":
			out[attr.Name.Local] = attr.Value
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			out[""] = attr.Value
		}
	}
	return out
}

// checkNamespace returns a description of the problem, or "" when name is fine.
func checkNamespace(name xml.Name, kind string, declared map[string]string) string {
	if name.Space == "" {
		return ""
	}
	prefix, known := rootPrefixes[name.Space]
	if !known {
		// The decoder leaves an undeclared prefix as the space itself.
		if !strings.Contains(name.Space, ":") {
			return fmt.Sprintf("undeclared prefix on %s %s:%s", kind, name.Space, name.Local)
		}
		return ""
	}
	if declared[prefix] == name.Space {
		return ""
	}
	return fmt.Sprintf("root does not declare xmlns:%s used by %s %s:%s", prefix, kind, prefix, name.Local)
}

func isWML(name xml.Name, local string) bool {
	return name.Local == local && name.Space == wmlNamespace
}

func firstLines(text string, count int) string {
	lines := strings.SplitN(text, "\n", count+1)
	if len(lines) > count {
		lines = lines[:count]
	}
	return strings.Join(lines, "\n")
}
