package analysis

import (
	"context"
	"time"

	"atsbeaters-backend/internal/llm"
	"atsbeaters-backend/internal/shared/telemetry"
)

// Stage produces an ATS report from resume text.
type Stage struct {
	gen llm.Generator
}

// NewStage builds an analysis stage over gen.
func NewStage(gen llm.Generator) *Stage {
	return &Stage{gen: gen}
}

// Analyze asks the generator for a report. Failures are returned as *Error.
func (s *Stage) Analyze(ctx context.Context, resumeText string) (Report, error) {
	start := time.Now()
	raw, err := s.gen.Generate(ctx, llm.AnalysisPrompt(resumeText))
	if err != nil {
		return Report{}, &Error{Kind: KindCollaborator, Cause: err}
	}

	report, err := ParseReport(raw)
	if err != nil {
		return Report{}, &Error{Kind: KindContractViolation, Cause: err}
	}

	telemetry.Info("analysis.completed", map[string]any{
		"ats_score":   report.ATSScore,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return report, nil
}
