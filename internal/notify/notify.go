package notify

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"atsbeaters-backend/internal/analysis"
)

// Payload is the rendered notification for one run.
type Payload struct {
	Subject string
	HTML    string
	Text    string
}

var reportTemplate = template.Must(template.New("report").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; border: 1px solid #eee; padding: 20px;">
<h2 style="color: #4F46E5;">ATSBeaters: Your Optimization Report is Ready</h2>
<p>Hello,</p>
<p>We've successfully processed your resume. Your current ATS Score is: <strong>{{.Score}}%</strong></p>
<p><strong>Top Recommendations:</strong></p>
<ul>
{{- range .Fixes}}
<li>{{.}}</li>
{{- end}}
</ul>
<hr>
{{- if .Attached}}
<p>Find your fully rewritten, ATS-compatible document attached to this email.</p>
{{- else}}
<p>Your rewritten document could not be generated this time. The recommendations above still apply to your current resume.</p>
{{- end}}
<div style="background: #F3F4F6; padding: 15px; border-radius: 8px;">
<p><strong>Pro Tip:</strong> Ensure you use the exact keywords highlighted in our analysis before applying.</p>
</div>
</div>
`))

var textPolicy = bluemonday.StrictPolicy()

// Subject returns the report subject line for score.
func Subject(score int) string {
	return fmt.Sprintf("ATSBeaters Report: Score %d%%", score)
}

// Build renders the notification for report. attached controls whether the body
// refers to an attached document.
func Build(report analysis.Report, attached bool) (Payload, error) {
	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, struct {
		Score    int
		Fixes    []string
		Attached bool
	}{
		Score:    report.ATSScore,
		Fixes:    report.PriorityFixes,
		Attached: attached,
	})
	if err != nil {
		return Payload{}, fmt.Errorf("render notification: %w", err)
	}

	body := buf.String()
	return Payload{
		Subject: Subject(report.ATSScore),
		HTML:    body,
		Text:    plainText(body),
	}, nil
}

// plainText strips markup and collapses the result to one trimmed line per block.
func plainText(body string) string {
	stripped := html.UnescapeString(textPolicy.Sanitize(body))
	lines := strings.Split(stripped, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
