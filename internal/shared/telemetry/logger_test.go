package telemetry

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWriteEmitsJSONLine(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Warn("pipeline.delivery.failed", map[string]any{"run_id": "run-1", "msg": "ignored"})

	line := strings.TrimSpace(buf.String())
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("unexpected level %v", payload["level"])
	}
	if payload["msg"] != "pipeline.delivery.failed" {
		t.Fatalf("fields must not override msg, got %v", payload["msg"])
	}
	if payload["run_id"] != "run-1" {
		t.Fatalf("unexpected run_id %v", payload["run_id"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("missing ts")
	}
}
