package runs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"atsbeaters-backend/internal/analysis"
	"atsbeaters-backend/internal/extract"
	"atsbeaters-backend/internal/pipeline"
	"atsbeaters-backend/internal/queue"
	"atsbeaters-backend/internal/shared/server/middleware"
	"atsbeaters-backend/internal/shared/server/respond"
	"atsbeaters-backend/internal/shared/telemetry"
	"atsbeaters-backend/internal/shared/util"
)

const (
	maxUploadBytes    = 5 << 20
	maxResumeRunes    = 60000
	maxJobDescription = 20000
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Handler serves run creation and status.
type Handler struct {
	newRunner func() Runner
	queue     queue.Client
	repo      Repo
	now       func() time.Time
}

// NewHandler builds a handler. newRunner is called once per synchronous run;
// q may be nil, in which case async requests are rejected.
func NewHandler(newRunner func() Runner, q queue.Client, repo Repo) *Handler {
	if repo == nil {
		repo = NewMemoryRepo()
	}
	return &Handler{newRunner: newRunner, queue: q, repo: repo, now: time.Now}
}

// RegisterRoutes attaches run routes to the router group.
func (h *Handler) RegisterRoutes(rg gin.IRouter) {
	rg.POST("/runs", h.createRun)
	rg.POST("/runs/upload", h.uploadRun)
	rg.GET("/runs/:id", h.getRun)
}

type createRunRequest struct {
	Email          string `json:"email"`
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
	Async          bool   `json:"async"`
}

type runResponse struct {
	RunID             string           `json:"runId"`
	Report            *analysis.Report `json:"report,omitempty"`
	DocumentKey       string           `json:"documentKey,omitempty"`
	DocumentLocation  string           `json:"documentLocation,omitempty"`
	AttachmentMissing bool             `json:"attachmentMissing"`
	Delivered         bool             `json:"delivered"`
	CoverLetter       string           `json:"coverLetter,omitempty"`
	DurationMs        int64            `json:"durationMs"`
}

func (h *Handler) createRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	runID := uuid.NewString()
	c.Set(middleware.RunIDKey, runID)

	if req.Async {
		c.Set("runMode", "async")
		h.enqueue(c, runID, req)
		return
	}
	c.Set("runMode", "sync")
	h.runSync(c, runID, req)
}

func (h *Handler) uploadRun(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+(1<<20))
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	defer file.Close()
	if header.Size > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 5MB limit", nil)
		return
	}

	fileName, err := util.SanitizeFileName(header.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file name", nil)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to read file", nil)
		return
	}
	text, err := extract.ExtractTextFromBytes(c.Request.Context(), data, header.Header.Get("Content-Type"), fileName)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_file_type", "upload a .pdf, .docx or .txt resume", nil)
			return
		}
		respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", "could not extract text from file", nil)
		return
	}

	req := createRunRequest{
		Email:          c.PostForm("email"),
		ResumeText:     text,
		JobDescription: c.PostForm("jobDescription"),
	}
	if !h.validate(c, req) {
		return
	}

	runID := uuid.NewString()
	c.Set(middleware.RunIDKey, runID)
	c.Set("runMode", "upload")
	h.runSync(c, runID, req)
}

func (h *Handler) validate(c *gin.Context, req createRunRequest) bool {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "email is required", []map[string]string{
			{"field": "email", "issue": "required"},
		})
		return false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "email is invalid", []map[string]string{
			{"field": "email", "issue": "invalid"},
		})
		return false
	}
	if strings.TrimSpace(req.ResumeText) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resumeText is required", []map[string]string{
			{"field": "resumeText", "issue": "required"},
		})
		return false
	}
	if len([]rune(req.ResumeText)) > maxResumeRunes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resumeText is too long", []map[string]string{
			{"field": "resumeText", "issue": "too_long"},
		})
		return false
	}
	if len([]rune(req.JobDescription)) > maxJobDescription {
		respond.Error(c, http.StatusBadRequest, "validation_error", "jobDescription is too long", []map[string]string{
			{"field": "jobDescription", "issue": "too_long"},
		})
		return false
	}
	return true
}

func (h *Handler) runSync(c *gin.Context, runID string, req createRunRequest) {
	ctx := pipeline.WithTrace(c.Request.Context(), pipeline.Trace{RequestID: middleware.RequestIDFromContext(c), Source: "api"})
	res, err := NewRecorder(h.newRunner(), h.repo).Run(ctx, pipeline.Request{
		RunID:          runID,
		Email:          strings.TrimSpace(req.Email),
		ResumeText:     req.ResumeText,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		var analysisErr *analysis.Error
		switch {
		case errors.As(err, &analysisErr):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"runId": runID,
				"error": analysisErr,
			})
		case errors.Is(err, pipeline.ErrMissingEmail):
			respond.Error(c, http.StatusBadRequest, "validation_error", "email is required", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "run failed", nil)
		}
		return
	}

	resp := runResponse{
		RunID:             runID,
		Report:            &res.Report,
		AttachmentMissing: res.AttachmentMissing,
		Delivered:         res.Delivered,
		CoverLetter:       res.CoverLetter,
		DurationMs:        res.Duration.Milliseconds(),
	}
	if res.Document != nil {
		resp.DocumentKey = res.Document.Key
		resp.DocumentLocation = res.Document.Location
	}
	respond.OK(c, resp)
}

func (h *Handler) enqueue(c *gin.Context, runID string, req createRunRequest) {
	if h.queue == nil {
		respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "async runs are not configured", nil)
		return
	}

	requestID := middleware.RequestIDFromContext(c)
	now := h.now().UTC()
	rec := Run{
		ID:        runID,
		RequestID: requestID,
		EmailHash: util.HashUserKey(req.Email),
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.repo.Create(c.Request.Context(), rec); err != nil {
		telemetry.Warn("runs.repo.failed", map[string]any{"op": "create", "run_id": runID, "err": err.Error()})
	}

	msg := queue.Message{
		RunID:          runID,
		RequestID:      requestID,
		Email:          strings.TrimSpace(req.Email),
		ResumeText:     req.ResumeText,
		JobDescription: req.JobDescription,
		EnqueuedAt:     now.Format(time.RFC3339),
		Version:        queue.MessageVersion,
	}
	if err := h.queue.Send(c.Request.Context(), msg); err != nil {
		telemetry.Error("run.enqueue.failed", map[string]any{
			"run_id":     runID,
			"request_id": requestID,
			"err":        err.Error(),
		})
		rec.Status = StatusFailed
		rec.ErrorKind = "ENQUEUE_FAILED"
		rec.ErrorDetails = err.Error()
		rec.CompletedAt = &now
		if err := h.repo.Update(context.WithoutCancel(c.Request.Context()), rec); err != nil {
			telemetry.Warn("runs.repo.failed", map[string]any{"op": "update", "run_id": runID, "err": err.Error()})
		}
		if errors.Is(err, queue.ErrMessageTooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "resume is too large to queue", nil)
			return
		}
		respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "failed to enqueue run", nil)
		return
	}

	telemetry.Info("run.enqueued", map[string]any{
		"run_id":     runID,
		"request_id": requestID,
	})
	respond.Accepted(c, "/api/v1/runs/"+runID, gin.H{
		"runId":  runID,
		"status": StatusQueued,
	})
}

type runStatusResponse struct {
	RunID             string     `json:"runId"`
	Status            string     `json:"status"`
	DocumentKey       string     `json:"documentKey,omitempty"`
	AttachmentMissing bool       `json:"attachmentMissing"`
	Delivered         bool       `json:"delivered"`
	HasCoverLetter    bool       `json:"hasCoverLetter"`
	ErrorKind         string     `json:"errorKind,omitempty"`
	ErrorDetails      string     `json:"errorDetails,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

func (h *Handler) getRun(c *gin.Context) {
	runID := strings.TrimSpace(c.Param("id"))
	if runID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "run id is required", nil)
		return
	}
	c.Set(middleware.RunIDKey, runID)

	rec, err := h.repo.Get(c.Request.Context(), runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch run", nil)
		}
		return
	}

	respond.OK(c, runStatusResponse{
		RunID:             rec.ID,
		Status:            rec.Status,
		DocumentKey:       rec.DocumentKey,
		AttachmentMissing: rec.AttachmentMissing,
		Delivered:         rec.Delivered,
		HasCoverLetter:    rec.HasCoverLetter,
		ErrorKind:         rec.ErrorKind,
		ErrorDetails:      rec.ErrorDetails,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
		CompletedAt:       rec.CompletedAt,
	})
}
