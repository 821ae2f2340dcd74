package analysis

import (
	"strings"
	"testing"
)

const validReport = `{
  "ats_score": 62,
  "critical_issues": ["No contact section"],
  "formatting_problems": [],
  "missing_keywords": ["Python", "Kubernetes"],
  "weak_achievements": ["Worked on projects"],
  "strengths": ["Clear job titles"],
  "priority_fixes": ["Add metrics", "Add keywords: Python"]
}`

func TestParseReportAcceptsFencedPayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "bare", raw: validReport},
		{name: "json fence", raw: "```json\n" + validReport + "\n```"},
		{name: "plain fence", raw: "```\n" + validReport + "\n```"},
		{name: "surrounding whitespace", raw: "\n\n  ```json\n" + validReport + "\n```  \n"},
		{name: "tag on first line", raw: "```json " + validReport + "\n```"},
		{name: "tag without space", raw: "```json" + validReport + "\n```"},
		{name: "uppercase tag", raw: "```JSON\n" + validReport + "\n```"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			report, err := ParseReport(tt.raw)
			if err != nil {
				t.Fatalf("ParseReport: %v", err)
			}
			if report.ATSScore != 62 {
				t.Fatalf("unexpected score %d", report.ATSScore)
			}
			if len(report.PriorityFixes) != 2 || report.PriorityFixes[0] != "Add metrics" {
				t.Fatalf("priority fixes order not preserved: %v", report.PriorityFixes)
			}
			if report.FormattingProblems == nil || len(report.FormattingProblems) != 0 {
				t.Fatalf("expected empty non-nil list, got %#v", report.FormattingProblems)
			}
		})
	}
}

func TestParseReportRejectsContractViolations(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "not json", raw: "I think the resume is great!", wantErr: "decode json"},
		{name: "empty", raw: "   ", wantErr: "empty response"},
		{name: "score too high", raw: strings.Replace(validReport, "62", "101", 1), wantErr: "out of range"},
		{name: "negative score", raw: strings.Replace(validReport, "62", "-1", 1), wantErr: "out of range"},
		{name: "fractional score", raw: strings.Replace(validReport, "62", "62.5", 1), wantErr: "decode report"},
		{name: "string score", raw: strings.Replace(validReport, "62", `"62"`, 1), wantErr: "decode report"},
		{name: "missing key", raw: strings.Replace(validReport, `"strengths": ["Clear job titles"],`, "", 1), wantErr: "missing keys: strengths"},
		{name: "null list", raw: strings.Replace(validReport, `"formatting_problems": []`, `"formatting_problems": null`, 1), wantErr: "must not be null"},
		{name: "unknown key", raw: strings.Replace(validReport, `"ats_score": 62,`, `"ats_score": 62, "summary": "x",`, 1), wantErr: "unknown field"},
		{name: "uppercase duplicate key", raw: strings.Replace(validReport, `"ats_score": 62,`, `"ats_score": 62, "PRIORITY_FIXES": ["injected"], "ATS_Score": 5,`, 1), wantErr: "unknown field"},
		{name: "case variant instead of key", raw: strings.Replace(validReport, `"strengths"`, `"Strengths"`, 1), wantErr: "unknown field"},
		{name: "non string item", raw: strings.Replace(validReport, `["Python", "Kubernetes"]`, `["Python", 3]`, 1), wantErr: "decode report"},
		{name: "trailing data", raw: validReport + ` {"x":1}`, wantErr: "decode json"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReport(tt.raw)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "```{\"a\":1}```", want: `{"a":1}`},
		{in: "```json {\"a\":1}```", want: `{"a":1}`},
		{in: `{"a":1}`, want: `{"a":1}`},
		{in: "```json {\n  \"a\": 1,\n  \"b\": [2]\n}\n```", want: "{\n  \"a\": 1,\n  \"b\": [2]\n}"},
		{in: "```json{\n\"a\":1\n}\n```", want: "{\n\"a\":1\n}"},
		{in: "```\n[1]\n```", want: "[1]"},
	}
	for _, tt := range tests {
		if got := StripCodeFence(tt.in); got != tt.want {
			t.Fatalf("StripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
