package pipeline

import "context"

// Trace identifies where a run came from in log lines.
type Trace struct {
	RequestID string
	// Source is the entrypoint that started the run: api, worker or cli.
	Source string
}

type traceKey struct{}

// WithTrace attaches t to ctx. Empty fields do not overwrite an existing trace.
func WithTrace(ctx context.Context, t Trace) context.Context {
	if ctx == nil {
		return ctx
	}
	prev := TraceFromContext(ctx)
	if t.RequestID == "" {
		t.RequestID = prev.RequestID
	}
	if t.Source == "" {
		t.Source = prev.Source
	}
	if t == prev {
		return ctx
	}
	return context.WithValue(ctx, traceKey{}, t)
}

// TraceFromContext returns the trace attached by WithTrace, or the zero Trace.
func TraceFromContext(ctx context.Context) Trace {
	if ctx == nil {
		return Trace{}
	}
	t, _ := ctx.Value(traceKey{}).(Trace)
	return t
}

func (t Trace) fields(into map[string]any) {
	if t.RequestID != "" {
		into["request_id"] = t.RequestID
	}
	if t.Source != "" {
		into["source"] = t.Source
	}
}
