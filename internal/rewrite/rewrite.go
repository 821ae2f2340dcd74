package rewrite

import (
	"context"
	"encoding/json"
	"strings"

	"atsbeaters-backend/internal/analysis"
	"atsbeaters-backend/internal/llm"
	"atsbeaters-backend/internal/shared/telemetry"
)

// Stage turns resume text plus an analysis report into optimized markdown.
type Stage struct {
	gen llm.Generator
}

// NewStage builds a rewrite stage over gen.
func NewStage(gen llm.Generator) *Stage {
	return &Stage{gen: gen}
}

// Rewrite returns the rewritten resume as markdown. ok is false when the
// generator fails or returns nothing usable.
func (s *Stage) Rewrite(ctx context.Context, resumeText string, report *analysis.Report) (string, bool) {
	out, err := s.gen.Generate(ctx, llm.RewritePrompt(resumeText, Context(report)))
	if err != nil {
		telemetry.Warn("rewrite.failed", map[string]any{"err": err.Error()})
		return "", false
	}
	out = strings.TrimSpace(out)
	if out == "" {
		telemetry.Warn("rewrite.empty", nil)
		return "", false
	}
	return out, true
}

// Context renders the analysis guidance embedded in the rewrite instruction.
func Context(report *analysis.Report) string {
	if report == nil {
		return ""
	}
	return "Fix these issues: " + jsonList(report.CriticalIssues) +
		" and include these keywords: " + jsonList(report.MissingKeywords)
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}
