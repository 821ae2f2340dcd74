package pipeline

import (
	"context"
	"testing"
)

func TestWithTraceMergesFields(t *testing.T) {
	ctx := WithTrace(context.Background(), Trace{RequestID: "req-1"})
	ctx = WithTrace(ctx, Trace{Source: "worker"})

	got := TraceFromContext(ctx)
	if got.RequestID != "req-1" || got.Source != "worker" {
		t.Fatalf("unexpected trace %+v", got)
	}

	fields := baseFields(ctx, Request{RunID: "run-1"})
	if fields["request_id"] != "req-1" || fields["source"] != "worker" || fields["run_id"] != "run-1" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestTraceFromEmptyContext(t *testing.T) {
	if got := TraceFromContext(context.Background()); got != (Trace{}) {
		t.Fatalf("expected zero trace, got %+v", got)
	}
	fields := baseFields(context.Background(), Request{RunID: "r"})
	if _, ok := fields["request_id"]; ok {
		t.Fatalf("request_id should be omitted")
	}
}
