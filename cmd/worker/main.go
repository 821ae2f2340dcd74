package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"atsbeaters-backend/internal/bootstrap"
	"atsbeaters-backend/internal/queue"
	"atsbeaters-backend/internal/shared/config"
	"atsbeaters-backend/internal/shared/metrics"
	"atsbeaters-backend/internal/shared/telemetry"
	"atsbeaters-backend/internal/workerproc"
)

const (
	defaultRegion             = "us-east-1"
	defaultVisibilitySeconds  = 1200
	defaultShutdownTimeoutSec = 30
	receiveBackoff            = 2 * time.Second
)

func main() {
	cfg := config.Load()

	if cfg.RunQueueURL == "" {
		log.Fatal("RUN_QUEUE_URL is required")
	}
	if cfg.LogFile != "" {
		sink, err := telemetry.OpenFileSink(cfg.LogFile)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer sink.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	visibilitySeconds := envInt("WORKER_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)
	shutdownTimeout := time.Duration(envInt("WORKER_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second
	concurrency := cfg.WorkerConcurrency

	region := cfg.AWSRegion
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	sem := make(chan struct{}, max(1, concurrency))
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"queue":              cfg.RunQueueURL,
		"concurrency":        concurrency,
		"visibility_seconds": visibilitySeconds,
	})

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(cfg.RunQueueURL),
			MaxNumberOfMessages:   10,
			WaitTimeSeconds:       20,
			VisibilityTimeout:     int32(visibilitySeconds),
			AttributeNames:        []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
			MessageAttributeNames: []string{queue.AttrRunID, queue.AttrRequestID, queue.AttrVersion},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"err": err.Error()})
			select {
			case <-ctx.Done():
			case <-time.After(receiveBackoff):
			}
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.IncJobsReceived()
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				// shutdown does not cancel a run already in progress
				handleMessage(context.WithoutCancel(ctx), sqsClient, cfg.RunQueueURL, app.NewRecordedRunner(), m)
			}(msg)
		}
	}

	telemetry.Info("worker.draining", map[string]any{"timeout_ms": shutdownTimeout.Milliseconds()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		telemetry.Warn("worker.drain_timeout", map[string]any{"in_flight": len(sem)})
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func handleMessage(ctx context.Context, client sqsAPI, queueURL string, runner workerproc.Runner, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		var (
			emptyErr   workerproc.ErrEmptyBody
			decodeErr  workerproc.ErrDecode
			invalidErr workerproc.ErrInvalidMessage
		)
		// The body is unusable; fall back to the attributes set at enqueue.
		runID, requestID := messageAttr(msg, queue.AttrRunID), messageAttr(msg, queue.AttrRequestID)
		fields := baseFields(msg, runID, requestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		event := "worker.run.decode_failed"
		switch {
		case errors.As(err, &emptyErr):
			event = "worker.run.empty_body"
		case errors.As(err, &decodeErr):
			fields["error"] = err.Error()
		case errors.As(err, &invalidErr):
			event = "worker.run.invalid"
			fields["field"] = invalidErr.Field
			if invalidErr.RequestID != "" {
				fields["request_id"] = invalidErr.RequestID
			}
		default:
			fields["error"] = err.Error()
		}
		telemetry.Error(event, fields)
		if deleteMessage(ctx, client, queueURL, msg, runID, requestID) {
			metrics.IncJobsDeletedUnrecoverable()
		}
		return
	}

	telemetry.Info("worker.run.received", baseFields(msg, decoded.RunID, decoded.RequestID))

	ctxWithParsed := workerproc.WithParsedMessage(ctx, decoded)
	res, err := workerproc.HandleMessage(ctxWithParsed, runner, body)
	if err != nil {
		fields := baseFields(msg, decoded.RunID, decoded.RequestID)
		fields["error"] = err.Error()

		var procErr workerproc.ErrProcess
		if errors.As(err, &procErr) && !procErr.Retryable() {
			telemetry.Error("worker.run.failed_final", fields)
			if deleteMessage(ctx, client, queueURL, msg, decoded.RunID, decoded.RequestID) {
				metrics.IncJobsDeletedUnrecoverable()
			}
			return
		}
		telemetry.Error("worker.run.failed", fields)
		metrics.IncJobsFailed()
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.RunID, decoded.RequestID) {
		fields := baseFields(msg, decoded.RunID, decoded.RequestID)
		fields["delivered"] = res.Delivered
		fields["attachment_missing"] = res.AttachmentMissing
		telemetry.Info("worker.run.completed", fields)
		metrics.IncJobsCompleted()
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, runID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, runID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.run.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, runID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.run.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, runID, requestID string) map[string]any {
	fields := map[string]any{
		"run_id":         runID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func messageAttr(msg sqstypes.Message, name string) string {
	attr, ok := msg.MessageAttributes[name]
	if !ok {
		return ""
	}
	return aws.ToString(attr.StringValue)
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
