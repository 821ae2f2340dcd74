package runs

import (
	"context"
	"errors"
	"time"

	"atsbeaters-backend/internal/analysis"
	"atsbeaters-backend/internal/pipeline"
	"atsbeaters-backend/internal/shared/telemetry"
	"atsbeaters-backend/internal/shared/util"
)

// Recorder wraps a Runner and persists the run's progress and outcome.
// Persistence failures are logged and never change the run's result.
type Recorder struct {
	runner Runner
	repo   Repo
	now    func() time.Time
}

// NewRecorder returns a Runner that records into repo.
func NewRecorder(runner Runner, repo Repo) *Recorder {
	return &Recorder{runner: runner, repo: repo, now: time.Now}
}

// Run marks the run processing, executes it, then stores the outcome.
func (r *Recorder) Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	now := r.now().UTC()
	rec, err := r.repo.Get(ctx, req.RunID)
	if errors.Is(err, ErrNotFound) {
		rec = Run{
			ID:        req.RunID,
			RequestID: pipeline.TraceFromContext(ctx).RequestID,
			EmailHash: util.HashUserKey(req.Email),
			Status:    StatusProcessing,
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.logErr("create", req.RunID, r.repo.Create(ctx, rec))
	} else if err != nil {
		r.logErr("get", req.RunID, err)
		rec = Run{ID: req.RunID, CreatedAt: now}
	}
	rec.Status = StatusProcessing
	rec.UpdatedAt = now
	r.logErr("update", req.RunID, r.repo.Update(ctx, rec))

	res, runErr := r.runner.Run(ctx, req)

	done := r.now().UTC()
	rec.UpdatedAt = done
	rec.CompletedAt = &done
	if runErr != nil {
		rec.Status = StatusFailed
		rec.ErrorKind, rec.ErrorDetails = failureDetails(runErr)
	} else {
		rec.Status = StatusCompleted
		rec.AttachmentMissing = res.AttachmentMissing
		rec.Delivered = res.Delivered
		rec.HasCoverLetter = res.CoverLetter != ""
		if res.Document != nil {
			rec.DocumentKey = res.Document.Key
			rec.DocumentLocation = res.Document.Location
		}
	}
	// stored even when the request context is gone
	r.logErr("update", req.RunID, r.repo.Update(context.WithoutCancel(ctx), rec))

	return res, runErr
}

func (r *Recorder) logErr(op, runID string, err error) {
	if err == nil {
		return
	}
	telemetry.Warn("runs.repo.failed", map[string]any{
		"op":     op,
		"run_id": runID,
		"err":    err.Error(),
	})
}

func failureDetails(err error) (string, string) {
	var analysisErr *analysis.Error
	if errors.As(err, &analysisErr) {
		return string(analysisErr.Kind), analysisErr.Details()
	}
	if errors.Is(err, pipeline.ErrMissingEmail) {
		return "MISSING_EMAIL", err.Error()
	}
	return "INTERNAL", err.Error()
}
