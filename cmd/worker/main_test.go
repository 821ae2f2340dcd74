package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"atsbeaters-backend/internal/pipeline"
	"atsbeaters-backend/internal/queue"
	"atsbeaters-backend/internal/shared/telemetry"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	_ = ctx
	_ = params
	_ = optFns
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	_ = ctx
	_ = optFns
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeRunner struct {
	err   error
	calls int
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	f.calls++
	return pipeline.Result{RunID: req.RunID, Delivered: f.err == nil}, f.err
}

func runMessage(t *testing.T, id string) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{
		RunID:      "run-" + id,
		RequestID:  "req-" + id,
		Email:      "jane@example.com",
		ResumeText: "Jane Doe",
		Version:    queue.MessageVersion,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String("m" + id),
		ReceiptHandle: aws.String("r" + id),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	client := &fakeSQS{}
	runner := &fakeRunner{}

	handleMessage(context.Background(), client, "queue", runner, runMessage(t, "1"))

	if runner.calls != 1 {
		t.Fatalf("expected one run, got %d", runner.calls)
	}
	if len(client.deleted) != 1 || client.deleted[0] != "r1" {
		t.Fatalf("expected delete of r1, got %v", client.deleted)
	}
}

func TestWorkerLeavesRetryableFailure(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	client := &fakeSQS{}
	runner := &fakeRunner{err: errors.New("boom")}

	handleMessage(context.Background(), client, "queue", runner, runMessage(t, "2"))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnAnalysisFailure(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	client := &fakeSQS{}
	runner := &fakeRunner{err: fmt.Errorf("%w: bad json", pipeline.ErrAnalysisFailed)}

	handleMessage(context.Background(), client, "queue", runner, runMessage(t, "3"))

	if len(client.deleted) != 1 {
		t.Fatalf("expected analysis failure to be deleted, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesUnrecoverableBodies(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: "{bad-json"},
		{name: "empty", body: "   "},
		{name: "missing email", body: `{"runId":"run-4","requestId":"req-4"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSQS{}
			runner := &fakeRunner{}
			msg := sqstypes.Message{
				MessageId:     aws.String("m4"),
				ReceiptHandle: aws.String("r4"),
				Body:          aws.String(tt.body),
			}

			handleMessage(context.Background(), client, "queue", runner, msg)

			if len(client.deleted) != 1 {
				t.Fatalf("expected delete, got %d", len(client.deleted))
			}
			if runner.calls != 0 {
				t.Fatalf("runner must not be called for unrecoverable body")
			}
		})
	}
}

func TestReceiveCount(t *testing.T) {
	msg := sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}
	if got := receiveCount(msg); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestWorkerLogsEnqueueAttributesForBadBody(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(telemetry.SetOutput(&buf))

	msg := sqstypes.Message{
		MessageId:     aws.String("m5"),
		ReceiptHandle: aws.String("r5"),
		Body:          aws.String("{truncated"),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			queue.AttrRunID:     {DataType: aws.String("String"), StringValue: aws.String("run-5")},
			queue.AttrRequestID: {DataType: aws.String("String"), StringValue: aws.String("req-5")},
		},
	}
	handleMessage(context.Background(), &fakeSQS{}, "queue", &fakeRunner{}, msg)

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) != nil || entry["msg"] != "worker.run.decode_failed" {
			continue
		}
		found = true
		if entry["run_id"] != "run-5" || entry["request_id"] != "req-5" {
			t.Fatalf("expected attribute ids in log, got %v", entry)
		}
	}
	if !found {
		t.Fatalf("missing decode_failed log: %s", buf.String())
	}
}
