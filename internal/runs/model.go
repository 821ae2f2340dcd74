package runs

import "time"

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Run is the job state of one pipeline run. It carries no resume text or
// report content, and the recipient is kept only as a hash.
type Run struct {
	ID                string
	RequestID         string
	EmailHash         string
	Status            string
	DocumentKey       string
	DocumentLocation  string
	AttachmentMissing bool
	Delivered         bool
	HasCoverLetter    bool
	ErrorKind         string
	ErrorDetails      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}
