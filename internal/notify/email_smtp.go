package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// SMTPConfig holds configuration for an SMTP relay such as Gmail.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// SMTPSender delivers mail over SMTP, upgrading with STARTTLS when offered.
type SMTPSender struct {
	cfg    SMTPConfig
	dialer func(ctx context.Context, network, addr string) (net.Conn, error)
	now    func() time.Time
	logger *logging.Logger
}

// NewSMTPSender creates an SMTP sender, or nil when host or credentials are missing.
func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.Username
	}
	if cfg.FromName == "" {
		cfg.FromName = DefaultFromName
	}
	var d net.Dialer
	return &SMTPSender{cfg: cfg, dialer: d.DialContext, now: time.Now, logger: logger}
}

// Send delivers msg. The context deadline bounds the whole SMTP exchange.
func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := s.dialer(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("notify: smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("notify: smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("notify: smtp starttls: %w", err)
		}
	}
	if ok, _ := c.Extension("AUTH"); !ok {
		return errors.New("notify: smtp server does not offer AUTH")
	}
	if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
		return fmt.Errorf("notify: smtp auth: %w", err)
	}

	if err := c.Mail(s.cfg.FromEmail); err != nil {
		return fmt.Errorf("notify: smtp mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("notify: smtp rcpt: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("notify: smtp data: %w", err)
	}
	body, err := s.buildMessage(msg)
	if err != nil {
		_ = w.Close()
		return err
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("notify: smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("notify: smtp data close: %w", err)
	}
	if err := c.Quit(); err != nil {
		s.logger.Warn("smtp quit failed", "error", err)
	}

	s.logger.Debug("email sent via smtp", "to", msg.To, "subject", msg.Subject)
	return nil
}

// buildMessage renders a multipart/alternative RFC 5322 message.
func (s *SMTPSender) buildMessage(msg EmailMessage) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	from := mail.Address{Name: s.cfg.FromName, Address: s.cfg.FromEmail}
	to := mail.Address{Name: msg.ToName, Address: msg.To}
	headers := []struct{ key, value string }{
		{"From", from.String()},
		{"To", to.String()},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", s.now().Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), s.cfg.Host)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()},
	}
	if msg.AppointmentID != "" {
		headers = append(headers, struct{ key, value string }{"X-Appointment-ID", msg.AppointmentID})
	}
	var head bytes.Buffer
	for _, h := range headers {
		fmt.Fprintf(&head, "%s: %s\r\n", h.key, h.value)
	}
	head.WriteString("\r\n")

	parts := []struct{ contentType, body string }{{"text/plain; charset=UTF-8", msg.Body}}
	if msg.HTML != "" {
		parts = append(parts, struct{ contentType, body string }{"text/html; charset=UTF-8", msg.HTML})
	}
	for _, p := range parts {
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, fmt.Errorf("notify: smtp build part: %w", err)
		}
		qp := quotedprintable.NewWriter(pw)
		if _, err := qp.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("notify: smtp encode part: %w", err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("notify: smtp encode part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("notify: smtp close multipart: %w", err)
	}
	return append(head.Bytes(), buf.Bytes()...), nil
}

var _ EmailSender = (*SMTPSender)(nil)
