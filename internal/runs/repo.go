package runs

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Repo persists run summaries.
type Repo interface {
	Create(ctx context.Context, run Run) error
	Update(ctx context.Context, run Run) error
	Get(ctx context.Context, runID string) (Run, error)
}
