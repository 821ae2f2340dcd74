package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const defaultRegion = "us-east-1"

// maxBodyBytes is the SQS message size limit.
const maxBodyBytes = 256 * 1024

// Attribute names set on every run message so consumers can correlate
// without decoding the body.
const (
	AttrRunID     = "runId"
	AttrRequestID = "requestId"
	AttrVersion   = "version"
)

type sender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSClient enqueues pipeline runs on an SQS queue.
type SQSClient struct {
	client   sender
	queueURL string
}

// NewSQSClient constructs an SQS-backed queue client.
func NewSQSClient(ctx context.Context, region, queueURL string) (*SQSClient, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, fmt.Errorf("RUN_QUEUE_URL is required")
	}
	if strings.TrimSpace(region) == "" {
		region = defaultRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQSClient{client: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

// Send enqueues msg. Payloads over the SQS limit fail with ErrMessageTooLarge
// before any network call.
func (s *SQSClient) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode run message: %w", err)
	}
	if len(payload) > maxBodyBytes {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(payload))
	}

	attrs := map[string]sqstypes.MessageAttributeValue{
		AttrRunID:   stringAttr(msg.RunID),
		AttrVersion: {DataType: aws.String("Number"), StringValue: aws.String(strconv.Itoa(msg.Version))},
	}
	if msg.RequestID != "" {
		attrs[AttrRequestID] = stringAttr(msg.RequestID)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(payload)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sqs send run=%s: %w", msg.RunID, err)
	}
	return nil
}

// QueueURL returns the target queue.
func (s *SQSClient) QueueURL() string {
	return s.queueURL
}

func stringAttr(v string) sqstypes.MessageAttributeValue {
	return sqstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}

var _ Client = (*SQSClient)(nil)
