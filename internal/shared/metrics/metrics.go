package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	runsStartedTotal    atomic.Uint64
	runsCompletedTotal  atomic.Uint64
	runsFailedTotal     atomic.Uint64
	rewriteFailedTotal  atomic.Uint64
	renderFailedTotal   atomic.Uint64
	deliveryFailedTotal atomic.Uint64
	coverLettersTotal   atomic.Uint64

	jobsReceivedTotal             atomic.Uint64
	jobsCompletedTotal            atomic.Uint64
	jobsFailedTotal               atomic.Uint64
	jobsDeletedUnrecoverableTotal atomic.Uint64

	rateLimitedTotal atomic.Uint64

	runDuration = newHistogram([]float64{1000, 2500, 5000, 10000, 30000, 60000, 120000, 300000})
)

// IncRunStarted increments the started counter.
func IncRunStarted() {
	runsStartedTotal.Add(1)
}

// IncRunCompleted increments the completed counter.
func IncRunCompleted() {
	runsCompletedTotal.Add(1)
}

// IncRunFailed increments the counter of runs halted by analysis failure.
func IncRunFailed() {
	runsFailedTotal.Add(1)
}

// IncRewriteFailed counts runs whose rewrite produced no markdown.
func IncRewriteFailed() {
	rewriteFailedTotal.Add(1)
}

// IncRenderFailed counts documents that could not be built or stored.
func IncRenderFailed() {
	renderFailedTotal.Add(1)
}

// IncDeliveryFailed counts notification sends that the mail provider rejected.
func IncDeliveryFailed() {
	deliveryFailedTotal.Add(1)
}

// IncCoverLetter counts cover letters produced.
func IncCoverLetter() {
	coverLettersTotal.Add(1)
}

// IncJobsReceived counts queue messages picked up by the worker.
func IncJobsReceived() {
	jobsReceivedTotal.Add(1)
}

// IncJobsCompleted counts queue messages processed and deleted.
func IncJobsCompleted() {
	jobsCompletedTotal.Add(1)
}

// IncJobsFailed counts queue messages left for redelivery.
func IncJobsFailed() {
	jobsFailedTotal.Add(1)
}

// IncJobsDeletedUnrecoverable counts messages deleted without a successful run.
func IncJobsDeletedUnrecoverable() {
	jobsDeletedUnrecoverableTotal.Add(1)
}

// IncRateLimited counts API requests rejected with 429.
func IncRateLimited() {
	rateLimitedTotal.Add(1)
}

// ObserveRunDurationMs records a pipeline run duration in milliseconds.
func ObserveRunDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	runDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "pipeline_runs_started_total", "Total pipeline runs started", runsStartedTotal.Load())
	writeCounter(&buf, "pipeline_runs_completed_total", "Total pipeline runs completed", runsCompletedTotal.Load())
	writeCounter(&buf, "pipeline_runs_failed_total", "Total pipeline runs halted by analysis failure", runsFailedTotal.Load())
	writeCounter(&buf, "pipeline_rewrite_failed_total", "Total rewrites that produced no markdown", rewriteFailedTotal.Load())
	writeCounter(&buf, "pipeline_render_failed_total", "Total documents that failed to render or store", renderFailedTotal.Load())
	writeCounter(&buf, "pipeline_delivery_failed_total", "Total notifications the mail provider rejected", deliveryFailedTotal.Load())
	writeCounter(&buf, "pipeline_cover_letters_total", "Total cover letters produced", coverLettersTotal.Load())
	writeCounter(&buf, "worker_jobs_received_total", "Total queue messages received", jobsReceivedTotal.Load())
	writeCounter(&buf, "worker_jobs_completed_total", "Total queue messages completed", jobsCompletedTotal.Load())
	writeCounter(&buf, "worker_jobs_failed_total", "Total queue messages left for redelivery", jobsFailedTotal.Load())
	writeCounter(&buf, "worker_jobs_deleted_unrecoverable_total", "Total queue messages deleted as unrecoverable", jobsDeletedUnrecoverableTotal.Load())
	writeCounter(&buf, "http_rate_limited_total", "Total API requests rejected by the rate limiter", rateLimitedTotal.Load())
	writeHistogram(&buf, "pipeline_run_duration_ms", "Pipeline run duration in milliseconds", runDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound is not exceeded.
// Counts are made cumulative when rendered.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
