package mail

import (
	"context"
	"errors"
	"strings"

	"atsbeaters-backend/internal/shared/telemetry"
)

// ErrMissingRecipient is returned when a message has no recipient.
var ErrMissingRecipient = errors.New("mail recipient is required")

// Attachment is a file carried with a message.
type Attachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

// Message is one transactional email.
type Message struct {
	To         string
	Subject    string
	HTML       string
	Text       string
	Attachment *Attachment
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Validate checks the fields every provider needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrMissingRecipient
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("mail subject is required")
	}
	return nil
}

// LogMailer records messages instead of delivering them.
type LogMailer struct{}

// Send logs the message envelope.
func (LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	fields := map[string]any{
		"to":      msg.To,
		"subject": msg.Subject,
	}
	if msg.Attachment != nil {
		fields["attachment"] = msg.Attachment.FileName
		fields["attachment_bytes"] = len(msg.Attachment.Content)
	}
	telemetry.Info("mail.log.sent", fields)
	return nil
}

var _ Mailer = LogMailer{}
