package coverletter

import (
	"context"
	"strings"

	"atsbeaters-backend/internal/llm"
	"atsbeaters-backend/internal/shared/telemetry"
)

// FallbackText is returned when no letter could be generated.
const FallbackText = "Professional Cover Letter template: introduce yourself, connect two or three " +
	"quantified achievements to the role's requirements, and close with a clear call to action."

// HighlightsLimit is the number of resume runes used as candidate highlights.
const HighlightsLimit = 500

// Stage writes a cover letter tailored to a job description.
type Stage struct {
	gen llm.Generator
}

// NewStage builds a cover letter stage over gen.
func NewStage(gen llm.Generator) *Stage {
	return &Stage{gen: gen}
}

// Generate always returns a letter; it falls back to FallbackText on failure.
func (s *Stage) Generate(ctx context.Context, highlights, jobDescription string) string {
	out, err := s.gen.Generate(ctx, llm.CoverLetterPrompt(highlights, jobDescription))
	if err != nil {
		telemetry.Warn("coverletter.failed", map[string]any{"err": err.Error()})
		return FallbackText
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return FallbackText
	}
	return out
}

// Highlights returns the leading excerpt of the resume used as letter context.
func Highlights(resumeText string) string {
	runes := []rune(resumeText)
	if len(runes) <= HighlightsLimit {
		return resumeText
	}
	return string(runes[:HighlightsLimit])
}
