package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"atsbeaters-backend/internal/analysis"
	"atsbeaters-backend/internal/pipeline"
	"atsbeaters-backend/internal/queue"
	"atsbeaters-backend/internal/shared/server/middleware"
	"atsbeaters-backend/internal/shared/telemetry"
	"atsbeaters-backend/resume/render"
)

type fakeRunner struct {
	mu   sync.Mutex
	reqs []pipeline.Request
	res  pipeline.Result
	err  error
}

func (r *fakeRunner) Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	res := r.res
	res.RunID = req.RunID
	return res, r.err
}

type fakeQueue struct {
	mu       sync.Mutex
	messages []queue.Message
	err      error
}

func (q *fakeQueue) Send(ctx context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, msg)
	return nil
}

func setupRouter(t *testing.T, runner *fakeRunner, q queue.Client) *gin.Engine {
	t.Helper()
	r, _ := setupRouterWithRepo(t, runner, q)
	return r
}

func setupRouterWithRepo(t *testing.T, runner *fakeRunner, q queue.Client) (*gin.Engine, *MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Cleanup(telemetry.SetOutput(io.Discard))

	repo := NewMemoryRepo()
	h := NewHandler(func() Runner { return runner }, q, repo)
	h.now = func() time.Time { return time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC) }

	r := gin.New()
	r.Use(middleware.RequestID())
	h.RegisterRoutes(r.Group("/api/v1"))
	return r, repo
}

func postJSON(r *gin.Engine, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", "req-1")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateRunSync(t *testing.T) {
	runner := &fakeRunner{res: pipeline.Result{
		Report:      analysis.Report{ATSScore: 62, PriorityFixes: []string{"Add metrics"}},
		Document:    &render.Document{Key: "Optimized_Resume_x.docx", Location: "/tmp/Optimized_Resume_x.docx"},
		Delivered:   true,
		CoverLetter: "Dear Hiring Manager",
	}}
	r := setupRouter(t, runner, nil)

	resp := postJSON(r, map[string]any{
		"email":          "jane@example.com",
		"resumeText":     "Jane Doe",
		"jobDescription": "Go engineer",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		RunID       string `json:"runId"`
		DocumentKey string `json:"documentKey"`
		Delivered   bool   `json:"delivered"`
		CoverLetter string `json:"coverLetter"`
		Report      struct {
			ATSScore int `json:"ats_score"`
		} `json:"report"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.RunID == "" || body.Report.ATSScore != 62 || body.DocumentKey != "Optimized_Resume_x.docx" || !body.Delivered {
		t.Fatalf("unexpected response %+v", body)
	}
	if body.CoverLetter != "Dear Hiring Manager" {
		t.Fatalf("unexpected cover letter %q", body.CoverLetter)
	}
	if len(runner.reqs) != 1 || runner.reqs[0].JobDescription != "Go engineer" || runner.reqs[0].RunID != body.RunID {
		t.Fatalf("unexpected pipeline request %+v", runner.reqs)
	}
}

func TestCreateRunAnalysisFailureReturns422(t *testing.T) {
	runner := &fakeRunner{err: errors.Join(pipeline.ErrAnalysisFailed, &analysis.Error{
		Kind:  analysis.KindContractViolation,
		Cause: errors.New("missing key ats_score"),
	})}
	r := setupRouter(t, runner, nil)

	resp := postJSON(r, map[string]any{"email": "jane@example.com", "resumeText": "Jane"})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}

	var body struct {
		Error map[string]any `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error["error"] != "Failed to analyze resume" || body.Error["kind"] != "CONTRACT_VIOLATION" {
		t.Fatalf("unexpected error body %v", body.Error)
	}
}

func TestCreateRunValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing email", body: map[string]any{"resumeText": "Jane"}},
		{name: "invalid email", body: map[string]any{"email": "not-an-email", "resumeText": "Jane"}},
		{name: "missing resume", body: map[string]any{"email": "jane@example.com", "resumeText": "   "}},
		{name: "resume too long", body: map[string]any{"email": "jane@example.com", "resumeText": strings.Repeat("a", maxResumeRunes+1)}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			r := setupRouter(t, runner, nil)
			resp := postJSON(r, tt.body)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.Code)
			}
			if len(runner.reqs) != 0 {
				t.Fatalf("pipeline must not run on invalid input")
			}
		})
	}
}

func TestCreateRunAsyncEnqueues(t *testing.T) {
	q := &fakeQueue{}
	runner := &fakeRunner{}
	r := setupRouter(t, runner, q)

	resp := postJSON(r, map[string]any{"email": " jane@example.com ", "resumeText": "Jane", "async": true})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	if len(runner.reqs) != 0 {
		t.Fatalf("async run must not execute inline")
	}
	if len(q.messages) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(q.messages))
	}
	msg := q.messages[0]
	if msg.RunID == "" || msg.Email != "jane@example.com" || msg.RequestID != "req-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if loc := resp.Header().Get("Location"); loc != "/api/v1/runs/"+msg.RunID {
		t.Fatalf("unexpected Location %q", loc)
	}
	if msg.Version != queue.MessageVersion || msg.EnqueuedAt != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected message metadata %+v", msg)
	}
}

func TestCreateRunAsyncWithoutQueue(t *testing.T) {
	r := setupRouter(t, &fakeRunner{}, nil)
	resp := postJSON(r, map[string]any{"email": "jane@example.com", "resumeText": "Jane", "async": true})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestCreateRunAsyncTooLarge(t *testing.T) {
	r := setupRouter(t, &fakeRunner{}, &fakeQueue{err: queue.ErrMessageTooLarge})
	resp := postJSON(r, map[string]any{"email": "jane@example.com", "resumeText": "Jane", "async": true})
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.Code)
	}
}

func TestUploadRunExtractsText(t *testing.T) {
	runner := &fakeRunner{res: pipeline.Result{Report: analysis.Report{ATSScore: 80}, Delivered: true}}
	r := setupRouter(t, runner, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("email", "jane@example.com")
	_ = w.WriteField("jobDescription", "Backend role")
	part, err := w.CreateFormFile("file", "resume.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("Jane Doe\nGo engineer"))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(runner.reqs) != 1 || !strings.Contains(runner.reqs[0].ResumeText, "Go engineer") {
		t.Fatalf("unexpected pipeline request %+v", runner.reqs)
	}
	if runner.reqs[0].JobDescription != "Backend role" {
		t.Fatalf("unexpected job description %q", runner.reqs[0].JobDescription)
	}
}

func TestUploadRunRequiresFile(t *testing.T) {
	r := setupRouter(t, &fakeRunner{}, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("email", "jane@example.com")
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUploadRunRejectsUnsupportedType(t *testing.T) {
	runner := &fakeRunner{}
	r := setupRouter(t, runner, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("email", "jane@example.com")
	part, err := w.CreateFormFile("file", "photo.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", resp.Code)
	}
	if len(runner.reqs) != 0 {
		t.Fatalf("pipeline must not run for unsupported uploads")
	}
}

func TestUploadRunRejectsTraversalFileName(t *testing.T) {
	runner := &fakeRunner{}
	r := setupRouter(t, runner, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("email", "jane@example.com")
	part, err := w.CreateFormFile("file", "resume..txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("Jane Doe"))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if len(runner.reqs) != 0 {
		t.Fatalf("pipeline must not run for a rejected file name")
	}
}

func TestCreateRunEnqueueFailureLogsRepoError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	t.Cleanup(telemetry.SetOutput(&logs))

	h := NewHandler(func() Runner { return &fakeRunner{} }, &fakeQueue{err: errors.New("sqs down")}, brokenRepo{})
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))

	resp := postJSON(r, map[string]any{"email": "jane@example.com", "resumeText": "Jane", "async": true})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}

	var ops []string
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) != nil || entry["msg"] != "runs.repo.failed" {
			continue
		}
		ops = append(ops, entry["op"].(string))
	}
	if strings.Join(ops, ",") != "create,update" {
		t.Fatalf("expected create and update repo failures logged, got %v", ops)
	}
}

func getRun(r *gin.Engine, runID string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+runID, nil))
	return resp
}

func TestGetRunAfterSyncRun(t *testing.T) {
	runner := &fakeRunner{res: pipeline.Result{
		Report:    analysis.Report{ATSScore: 62},
		Document:  &render.Document{Key: "Optimized_Resume_x.docx"},
		Delivered: true,
	}}
	r := setupRouter(t, runner, nil)

	created := postJSON(r, map[string]any{"email": "jane@example.com", "resumeText": "Jane"})
	var body struct {
		RunID string `json:"runId"`
	}
	_ = json.NewDecoder(created.Body).Decode(&body)

	resp := getRun(r, body.RunID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var status struct {
		Status      string `json:"status"`
		ATSScore    *int   `json:"atsScore"`
		DocumentKey string `json:"documentKey"`
		Delivered   bool   `json:"delivered"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != StatusCompleted || status.ATSScore != nil {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.DocumentKey != "Optimized_Resume_x.docx" || !status.Delivered {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestGetRunQueued(t *testing.T) {
	q := &fakeQueue{}
	r, repo := setupRouterWithRepo(t, &fakeRunner{}, q)

	postJSON(r, map[string]any{"email": "jane@example.com", "resumeText": "Jane", "async": true})
	if len(q.messages) != 1 {
		t.Fatalf("expected queued message")
	}
	rec, err := repo.Get(context.Background(), q.messages[0].RunID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != StatusQueued || rec.EmailHash == "" || rec.EmailHash == "jane@example.com" {
		t.Fatalf("unexpected record %+v", rec)
	}

	resp := getRun(r, rec.ID)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"status":"queued"`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}
}

func TestGetRunNotFound(t *testing.T) {
	r := setupRouter(t, &fakeRunner{}, nil)
	if resp := getRun(r, "missing"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
