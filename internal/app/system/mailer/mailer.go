// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Email is one outgoing message. HTMLBody is optional.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers email. Callers treat delivery as best effort.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// From is the sender identity.
type From struct {
	Address string
	Name    string
}

func (f From) String() string {
	return (&mail.Address{Name: f.Name, Address: f.Address}).String()
}

/* -------------------------------------------------------------------------- */
/* Log                                                                         */
/* -------------------------------------------------------------------------- */

// LogMailer writes the message to the log instead of sending it.
type LogMailer struct {
	log *zap.Logger
}

func NewLog(logger *zap.Logger) *LogMailer {
	return &LogMailer{log: logger}
}

func (m *LogMailer) Send(_ context.Context, e Email) error {
	m.log.Info("email (log only)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.String("body", e.TextBody))
	return nil
}

/* -------------------------------------------------------------------------- */
/* SES                                                                         */
/* -------------------------------------------------------------------------- */

// SESAPI is the subset of the SES v2 client the mailer calls.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESMailer struct {
	api  SESAPI
	from From
}

func NewSES(api SESAPI, from From) *SESMailer {
	return &SESMailer{api: api, from: from}
}

func (m *SESMailer) Send(ctx context.Context, e Email) error {
	body := &sestypes.Body{
		Text: &sestypes.Content{Data: aws.String(e.TextBody), Charset: aws.String("UTF-8")},
	}
	if e.HTMLBody != "" {
		body.Html = &sestypes.Content{Data: aws.String(e.HTMLBody), Charset: aws.String("UTF-8")}
	}

	_, err := m.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from.String()),
		Destination:      &sestypes.Destination{ToAddresses: []string{e.To}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(e.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* SendGrid                                                                    */
/* -------------------------------------------------------------------------- */

type SendGridMailer struct {
	client *sendgrid.Client
	from   From
}

func NewSendGrid(apiKey string, from From) *SendGridMailer {
	return NewSendGridWithClient(sendgrid.NewSendClient(apiKey), from)
}

// NewSendGridWithClient allows pointing the client at a test server.
func NewSendGridWithClient(c *sendgrid.Client, from From) *SendGridMailer {
	return &SendGridMailer{client: c, from: from}
}

func (m *SendGridMailer) Send(ctx context.Context, e Email) error {
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail(m.from.Name, m.from.Address),
		e.Subject,
		sgmail.NewEmail("", e.To),
		e.TextBody,
		e.HTMLBody,
	)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected SendGrid status code: %d, body: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
