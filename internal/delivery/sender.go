// Package delivery notifies operators about conversation outcomes. It
// subscribes to domain events and sends email via SMTP.
package delivery

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net"
	"time"

	"leadflow_backend/internal/config"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers operator notifications.
type Sender interface {
	SendFollowUpNotice(ctx context.Context, leadID, text string) error
	SendLeadSecuredNotice(ctx context.Context, leadID string, age int, country, interest string) error
}

// NoopSender is used when email is disabled.
type NoopSender struct{}

func (NoopSender) SendFollowUpNotice(ctx context.Context, leadID, text string) error { return nil }
func (NoopSender) SendLeadSecuredNotice(ctx context.Context, leadID string, age int, country, interest string) error {
	return nil
}

// SMTPSender delivers notifications over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       string
}

// NewSender returns an SMTP sender when email is enabled, NoopSender otherwise.
func NewSender(cfg *config.Config) Sender {
	if !cfg.EmailEnabled {
		return NoopSender{}
	}
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.EmailFrom,
		to:       cfg.EmailTo,
	}
}

func (s *SMTPSender) send(ctx context.Context, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(s.to); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendFollowUpNotice(ctx context.Context, leadID, text string) error {
	var body bytes.Buffer
	fmt.Fprintf(&body, "<p>A follow-up was queued for lead <strong>%s</strong>.</p>", html.EscapeString(leadID))
	fmt.Fprintf(&body, "<p>Message: %s</p>", html.EscapeString(text))
	return s.send(ctx, "Follow-up queued for lead "+leadID, body.String())
}

func (s *SMTPSender) SendLeadSecuredNotice(ctx context.Context, leadID string, age int, country, interest string) error {
	var body bytes.Buffer
	fmt.Fprintf(&body, "<p>Lead <strong>%s</strong> completed qualification.</p>", html.EscapeString(leadID))
	fmt.Fprintf(&body, "<ul><li>Age: %d</li><li>Country: %s</li><li>Interest: %s</li></ul>",
		age, html.EscapeString(country), html.EscapeString(interest))
	return s.send(ctx, "Lead secured: "+leadID, body.String())
}
