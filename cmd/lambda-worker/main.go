package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"atsbeaters-backend/internal/bootstrap"
	"atsbeaters-backend/internal/shared/config"
	"atsbeaters-backend/internal/shared/metrics"
	"atsbeaters-backend/internal/shared/telemetry"
	"atsbeaters-backend/internal/workerproc"
)

var (
	initOnce  sync.Once
	initErr   error
	newRunner func() workerproc.Runner
)

func initApp() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	newRunner = app.NewRecordedRunner
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.worker.bootstrap_failed", map[string]any{"err": initErr.Error(), "records": len(event.Records)})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, event, newRunner), nil
}

// processBatch reports only retryable failures; bad payloads and final
// analysis failures are acknowledged so SQS drops them.
func processBatch(ctx context.Context, event events.SQSEvent, newRunner func() workerproc.Runner) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncJobsReceived()
		_, err := workerproc.HandleMessage(ctx, newRunner(), record.Body)
		if err == nil {
			metrics.IncJobsCompleted()
			continue
		}

		fields := map[string]any{
			"sqs_message_id": record.MessageId,
			"error":          err.Error(),
		}
		var procErr workerproc.ErrProcess
		if errors.As(err, &procErr) && procErr.Retryable() {
			fields["run_id"] = procErr.RunID
			fields["request_id"] = procErr.RequestID
			telemetry.Error("worker.run.failed", fields)
			metrics.IncJobsFailed()
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
			continue
		}
		telemetry.Error("worker.run.failed_final", fields)
		metrics.IncJobsDeletedUnrecoverable()
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
