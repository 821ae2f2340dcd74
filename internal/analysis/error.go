package analysis

import (
	"encoding/json"

	"atsbeaters-backend/internal/shared/util"
)

// Kind classifies an analysis failure.
type Kind string

const (
	KindCollaborator      Kind = "COLLABORATOR_ERROR"
	KindContractViolation Kind = "CONTRACT_VIOLATION"
)

const errorMessage = "Failed to analyze resume"

// Error is the structured analysis failure. It marshals to {"error", "details"}.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return errorMessage
	}
	return errorMessage + ": " + util.SanitizeError(e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Details returns the sanitized cause.
func (e *Error) Details() string {
	return util.SanitizeError(e.Cause)
}

// MarshalJSON renders the error object.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error   string `json:"error"`
		Kind    Kind   `json:"kind"`
		Details string `json:"details"`
	}{
		Error:   errorMessage,
		Kind:    e.Kind,
		Details: e.Details(),
	})
}
