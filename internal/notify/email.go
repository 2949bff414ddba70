package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// DefaultFromName is the display name used when none is configured.
const DefaultFromName = "Appointment System"

// EmailSender delivers one patient email. SMTP, SendGrid and SES implement it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a rendered patient email. Category and AppointmentID are
// stamped by the dispatcher so transports can tag deliveries for tracking.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string

	Category      string
	AppointmentID string
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender delivers through the SendGrid v3 mail API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *logging.Logger
}

// NewSendGridSender creates a SendGrid sender, or nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = DefaultFromName
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger,
	}
}

// Send posts the message to SendGrid. Any status >= 400 is an error.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	response, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected email",
			"status", response.StatusCode,
			"body", response.Body,
			"appointment_id", msg.AppointmentID,
		)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}
	s.logger.Debug("email sent via sendgrid", "to", msg.To, "category", msg.Category, "status", response.StatusCode)
	return nil
}

func (s *SendGridSender) build(msg EmailMessage) *mail.SGMailV3 {
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	if msg.AppointmentID != "" {
		p.SetCustomArg("appointment_id", msg.AppointmentID)
	}

	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", msg.Body))
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	if msg.Category != "" {
		m.AddCategories(msg.Category)
	}
	return m
}

// StubEmailSender logs instead of sending; used in development.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates a stub sender.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger.Component("email_stub")}
}

// Send logs the email and reports success.
func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("email not sent (stub transport)",
		"to", msg.To,
		"subject", msg.Subject,
		"category", msg.Category,
		"appointment_id", msg.AppointmentID,
	)
	return nil
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
