package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"atsbeaters-backend/internal/analysis"
	"atsbeaters-backend/internal/coverletter"
	"atsbeaters-backend/internal/mail"
	"atsbeaters-backend/internal/notify"
	"atsbeaters-backend/internal/shared/metrics"
	"atsbeaters-backend/internal/shared/storage/object"
	"atsbeaters-backend/internal/shared/telemetry"
	"atsbeaters-backend/internal/shared/util"
	"atsbeaters-backend/resume/render"
)

// ErrAnalysisFailed halts a run before rewrite, render and notify.
var ErrAnalysisFailed = errors.New("pipeline aborted: analysis failed")

// ErrMissingEmail is returned when a request has no recipient.
var ErrMissingEmail = errors.New("email is required")

// Request is the input to one run.
type Request struct {
	RunID          string
	Email          string
	ResumeText     string
	JobDescription string
	// DocumentID names the rendered file. RunID is used when empty. Runes outside
	// [A-Za-z0-9._-] become '_', so ids differing only there share one file.
	DocumentID string
}

// Result summarizes a completed run.
type Result struct {
	RunID             string
	Report            analysis.Report
	Document          *render.Document
	AttachmentMissing bool
	RenderErr         error
	CoverLetter       string
	Delivered         bool
	DeliveryErr       error
	Duration          time.Duration
}

// Analyzer produces a report from resume text.
type Analyzer interface {
	Analyze(ctx context.Context, resumeText string) (analysis.Report, error)
}

// Rewriter produces optimized markdown.
type Rewriter interface {
	Rewrite(ctx context.Context, resumeText string, report *analysis.Report) (string, bool)
}

// Renderer stores a rendered document.
type Renderer interface {
	Render(ctx context.Context, markdown, identifier string) (render.Document, error)
}

// LetterWriter produces a cover letter; it never fails.
type LetterWriter interface {
	Generate(ctx context.Context, highlights, jobDescription string) string
}

// Orchestrator runs the stages of one pipeline run in order.
type Orchestrator struct {
	analyzer Analyzer
	rewriter Rewriter
	renderer Renderer
	letters  LetterWriter
	store    object.ObjectStore
	mailer   mail.Mailer
}

// Deps groups the collaborators of an Orchestrator.
type Deps struct {
	Analyzer Analyzer
	Rewriter Rewriter
	Renderer Renderer
	Letters  LetterWriter
	Store    object.ObjectStore
	Mailer   mail.Mailer
}

// New builds an orchestrator. Letters may be nil when cover letters are disabled.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		analyzer: deps.Analyzer,
		rewriter: deps.Rewriter,
		renderer: deps.Renderer,
		letters:  deps.Letters,
		store:    deps.Store,
		mailer:   deps.Mailer,
	}
}

// Run executes analyze, rewrite and render, the optional cover letter, then notify.
// The returned error is non-nil only when analysis fails; render and delivery
// problems are reported on Result.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res := Result{RunID: req.RunID}
	if strings.TrimSpace(req.Email) == "" {
		return res, ErrMissingEmail
	}

	fields := baseFields(ctx, req)
	telemetry.Info("pipeline.started", fields)
	metrics.IncRunStarted()

	report, err := o.analyzer.Analyze(ctx, req.ResumeText)
	if err != nil {
		telemetry.Error("pipeline.analysis.failed", withErr(fields, err))
		metrics.IncRunFailed()
		return res, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	res.Report = report

	var attachment *mail.Attachment
	markdown, ok := o.rewriter.Rewrite(ctx, req.ResumeText, &report)
	if !ok {
		res.AttachmentMissing = true
		metrics.IncRewriteFailed()
		telemetry.Warn("pipeline.rewrite.failed", fields)
	} else {
		doc, a, err := o.renderDocument(ctx, markdown, documentID(req))
		if err != nil {
			res.AttachmentMissing = true
			res.RenderErr = err
			metrics.IncRenderFailed()
			telemetry.Error("pipeline.render.failed", withErr(fields, err))
		} else {
			res.Document = &doc
			attachment = a
		}
	}
	if strings.TrimSpace(req.JobDescription) != "" && o.letters != nil {
		res.CoverLetter = o.letters.Generate(ctx, coverletter.Highlights(req.ResumeText), req.JobDescription)
		metrics.IncCoverLetter()
	}

	res.Delivered, res.DeliveryErr = o.notify(ctx, req.Email, report, attachment)
	if !res.Delivered {
		metrics.IncDeliveryFailed()
		telemetry.Warn("pipeline.delivery.failed", withErr(fields, res.DeliveryErr))
	}

	res.Duration = time.Since(start)
	metrics.IncRunCompleted()
	metrics.ObserveRunDurationMs(float64(res.Duration.Milliseconds()))

	done := copyFields(fields)
	done["ats_score"] = report.ATSScore
	done["delivered"] = res.Delivered
	done["attachment_missing"] = res.AttachmentMissing
	done["duration_ms"] = res.Duration.Milliseconds()
	telemetry.Info("pipeline.completed", done)
	return res, nil
}

// renderDocument stores the document and reads it back as an attachment so the
// email never references a file that was not written.
func (o *Orchestrator) renderDocument(ctx context.Context, markdown, id string) (render.Document, *mail.Attachment, error) {
	doc, err := o.renderer.Render(ctx, markdown, id)
	if err != nil {
		return render.Document{}, nil, err
	}

	rc, err := o.store.Open(ctx, doc.Key)
	if err != nil {
		return render.Document{}, nil, fmt.Errorf("%w: open %s: %v", render.ErrRenderFailure, doc.Key, err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return render.Document{}, nil, fmt.Errorf("%w: read %s: %v", render.ErrRenderFailure, doc.Key, err)
	}

	return doc, &mail.Attachment{
		FileName:    doc.Key,
		ContentType: render.ContentType,
		Content:     content,
	}, nil
}

func (o *Orchestrator) notify(ctx context.Context, to string, report analysis.Report, attachment *mail.Attachment) (bool, error) {
	payload, err := notify.Build(report, attachment != nil)
	if err != nil {
		return false, err
	}
	err = o.mailer.Send(ctx, mail.Message{
		To:         to,
		Subject:    payload.Subject,
		HTML:       payload.HTML,
		Text:       payload.Text,
		Attachment: attachment,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func documentID(req Request) string {
	if strings.TrimSpace(req.DocumentID) != "" {
		return req.DocumentID
	}
	return req.RunID
}

func baseFields(ctx context.Context, req Request) map[string]any {
	fields := map[string]any{
		"run_id":          req.RunID,
		"has_job_details": strings.TrimSpace(req.JobDescription) != "",
	}
	TraceFromContext(ctx).fields(fields)
	return fields
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func withErr(fields map[string]any, err error) map[string]any {
	out := copyFields(fields)
	if err != nil {
		out["err"] = util.SanitizeError(err)
	}
	return out
}
