package queue

import (
	"context"
	"errors"
)

// ErrMessageTooLarge is returned when a payload exceeds the queue's size limit.
var ErrMessageTooLarge = errors.New("queue message too large")

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
