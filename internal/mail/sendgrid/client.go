package sendgrid

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	sg "github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"golang.org/x/oauth2"

	"atsbeaters-backend/internal/mail"
	"atsbeaters-backend/internal/shared/telemetry"
)

const (
	defaultHost    = "https://api.sendgrid.com"
	sendEndpoint   = "/v3/mail/send"
	defaultTimeout = 30 * time.Second
)

// Client sends mail through the SendGrid v3 API.
type Client struct {
	from    string
	replyTo string
	host    string
	rest    *rest.Client
}

// NewClient builds a client authenticating with apiKey as a bearer token.
// Every send is bounded by timeout; a non-positive timeout uses 30s.
func NewClient(apiKey, from, replyTo string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("SENDGRID_API_KEY is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, errors.New("FROM_EMAIL is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := &http.Client{Timeout: timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: apiKey,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = timeout
	return &Client{
		from:    from,
		replyTo: replyTo,
		host:    defaultHost,
		rest:    &rest.Client{HTTPClient: httpClient},
	}, nil
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Send delivers msg. A non-2xx response is returned as an error.
func (c *Client) Send(ctx context.Context, msg mail.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	req := sg.GetRequest("", sendEndpoint, c.host)
	// Authorization comes from the token transport.
	delete(req.Headers, "Authorization")
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(c.build(msg))

	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var parsed errorResponse
		if json.Unmarshal([]byte(resp.Body), &parsed) == nil && len(parsed.Errors) > 0 {
			return fmt.Errorf("sendgrid http status %d: %s", resp.StatusCode, parsed.Errors[0].Message)
		}
		return fmt.Errorf("sendgrid http status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}

	fields := map[string]any{"status": resp.StatusCode}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		fields["message_id"] = ids[0]
	}
	telemetry.Info("mail.sendgrid.sent", fields)
	return nil
}

func (c *Client) build(msg mail.Message) *sgmail.SGMailV3 {
	// text/plain must precede text/html.
	var contents []*sgmail.Content
	if msg.Text != "" {
		contents = append(contents, sgmail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		contents = append(contents, sgmail.NewContent("text/html", msg.HTML))
	}
	m := sgmail.NewV3MailInit(sgmail.NewEmail("", c.from), msg.Subject, sgmail.NewEmail("", msg.To), contents...)

	if strings.TrimSpace(c.replyTo) != "" {
		m.SetReplyTo(sgmail.NewEmail("", c.replyTo))
	}
	if a := msg.Attachment; a != nil {
		att := sgmail.NewAttachment().
			SetContent(base64.StdEncoding.EncodeToString(a.Content)).
			SetType(a.ContentType).
			SetFilename(a.FileName).
			SetDisposition("attachment")
		m.AddAttachment(att)
	}
	return m
}

var _ mail.Mailer = (*Client)(nil)
