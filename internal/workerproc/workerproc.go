package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"atsbeaters-backend/internal/pipeline"
	"atsbeaters-backend/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrInvalidMessage indicates a decoded message missing required fields.
type ErrInvalidMessage struct {
	Meta      MessageMeta
	RequestID string
	Field     string
}

func (e ErrInvalidMessage) Error() string { return "missing " + e.Field }

// ErrProcess indicates the pipeline failed after successful parsing.
type ErrProcess struct {
	RunID     string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process run"
	}
	return "process run: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Retryable reports whether redelivery could succeed. Analysis failures are final.
func (e ErrProcess) Retryable() bool {
	return !errors.Is(e.Err, pipeline.ErrAnalysisFailed) && !errors.Is(e.Err, pipeline.ErrMissingEmail)
}

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	switch {
	case strings.TrimSpace(msg.RunID) == "":
		return msg, meta, ErrInvalidMessage{Meta: meta, RequestID: msg.RequestID, Field: "run id"}
	case strings.TrimSpace(msg.Email) == "":
		return msg, meta, ErrInvalidMessage{Meta: meta, RequestID: msg.RequestID, Field: "email"}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses the payload, then runs the pipeline for it.
func HandleMessage(ctx context.Context, runner Runner, body string) (pipeline.Result, error) {
	if runner == nil {
		return pipeline.Result{}, errors.New("pipeline not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return pipeline.Result{}, err
		}
	}

	ctxWithRequest := pipeline.WithTrace(ctx, pipeline.Trace{RequestID: msg.RequestID, Source: "worker"})
	res, err := runner.Run(ctxWithRequest, pipeline.Request{
		RunID:          msg.RunID,
		Email:          msg.Email,
		ResumeText:     msg.ResumeText,
		JobDescription: msg.JobDescription,
	})
	if err != nil {
		return res, ErrProcess{RunID: msg.RunID, RequestID: msg.RequestID, Err: err}
	}
	return res, nil
}
