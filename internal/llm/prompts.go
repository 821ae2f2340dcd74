package llm

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/analysis_v1.txt
	analysisPromptV1 string
	//go:embed prompts/rewrite_v1.txt
	rewritePromptV1 string
	//go:embed prompts/cover_letter_v1.txt
	coverLetterPromptV1 string
)

// AnalysisPrompt returns the analysis instruction for the given resume text.
func AnalysisPrompt(resumeText string) string {
	return strings.NewReplacer(
		"{{RESUME_TEXT}}", resumeText,
	).Replace(analysisPromptV1)
}

// RewritePrompt returns the rewrite instruction. analysisContext may be empty.
func RewritePrompt(resumeText, analysisContext string) string {
	return strings.NewReplacer(
		"{{ANALYSIS_CONTEXT}}", analysisContext,
		"{{RESUME_TEXT}}", resumeText,
	).Replace(rewritePromptV1)
}

// CoverLetterPrompt returns the cover letter instruction.
func CoverLetterPrompt(highlights, jobDescription string) string {
	return strings.NewReplacer(
		"{{JOB_DESCRIPTION}}", jobDescription,
		"{{RESUME_HIGHLIGHTS}}", highlights,
	).Replace(coverLetterPromptV1)
}
