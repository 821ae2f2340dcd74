package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Report is the structured ATS compatibility report.
type Report struct {
	ATSScore           int      `json:"ats_score"`
	CriticalIssues     []string `json:"critical_issues"`
	FormattingProblems []string `json:"formatting_problems"`
	MissingKeywords    []string `json:"missing_keywords"`
	WeakAchievements   []string `json:"weak_achievements"`
	Strengths          []string `json:"strengths"`
	PriorityFixes      []string `json:"priority_fixes"`
}

var requiredKeys = []string{
	"ats_score",
	"critical_issues",
	"formatting_problems",
	"missing_keywords",
	"weak_achievements",
	"strengths",
	"priority_fixes",
}

// Validate checks the score range and that every list is present.
func (r Report) Validate() error {
	var errs []error
	if r.ATSScore < 0 || r.ATSScore > 100 {
		errs = append(errs, fmt.Errorf("ats_score %d out of range [0,100]", r.ATSScore))
	}
	lists := map[string][]string{
		"critical_issues":     r.CriticalIssues,
		"formatting_problems": r.FormattingProblems,
		"missing_keywords":    r.MissingKeywords,
		"weak_achievements":   r.WeakAchievements,
		"strengths":           r.Strengths,
		"priority_fixes":      r.PriorityFixes,
	}
	for _, key := range requiredKeys[1:] {
		if lists[key] == nil {
			errs = append(errs, fmt.Errorf("%s must be an array of strings", key))
		}
	}
	return errors.Join(errs...)
}

// ParseReport decodes a generator response into a Report. Code fences around the
// payload are tolerated; anything else that does not match the contract is rejected.
func ParseReport(raw string) (Report, error) {
	payload := StripCodeFence(raw)
	if payload == "" {
		return Report{}, errors.New("empty response")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return Report{}, fmt.Errorf("decode json: %w", err)
	}
	// encoding/json matches struct tags case-insensitively, so exact key names are checked here.
	for key := range fields {
		if !isContractKey(key) {
			return Report{}, fmt.Errorf("unknown field %q", key)
		}
	}
	var missing []string
	for _, key := range requiredKeys {
		v, ok := fields[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return Report{}, fmt.Errorf("%s must not be null", key)
		}
	}
	if len(missing) > 0 {
		return Report{}, fmt.Errorf("missing keys: %s", strings.Join(missing, ", "))
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	var report Report
	if err := dec.Decode(&report); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Report{}, errors.New("unexpected trailing data after report")
	}
	if err := report.Validate(); err != nil {
		return Report{}, err
	}
	return report, nil
}

func isContractKey(key string) bool {
	for _, k := range requiredKeys {
		if k == key {
			return true
		}
	}
	return false
}

// StripCodeFence removes a surrounding markdown code fence. An optional language
// tag after the opening fence (```json, ```JSON) is dropped whether or not a newline
// follows it.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimLeftFunc(strings.TrimPrefix(s, "```"), isASCIILetter)
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
