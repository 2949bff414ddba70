package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/appointment-assistant/internal/config"
	"github.com/wolfman30/appointment-assistant/internal/notify"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// BuildEmailSender selects the mail transport named by EMAIL_PROVIDER. "auto"
// tries SMTP, then SendGrid, then SES. A nil sender with a nil error means
// email is disabled; the returned name is for logging.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.EmailProvider {
	case "", "auto":
		if s := smtpSender(cfg, logger); s != nil {
			return s, "smtp", nil
		}
		if s := sendGridSender(cfg, logger); s != nil {
			return s, "sendgrid", nil
		}
		if cfg.SESFromEmail != "" {
			s, err := sesSender(ctx, cfg, logger)
			if err != nil {
				return nil, "", err
			}
			return s, "ses", nil
		}
		return nil, "none", nil
	case "none":
		return nil, "none", nil
	case "stub":
		return notify.NewStubEmailSender(logger), "stub", nil
	case "smtp":
		if s := smtpSender(cfg, logger); s != nil {
			return s, "smtp", nil
		}
		return nil, "", fmt.Errorf("bootstrap: smtp selected but SMTP_HOST, SMTP_USERNAME or SMTP_PASSWORD is empty")
	case "sendgrid":
		if s := sendGridSender(cfg, logger); s != nil {
			return s, "sendgrid", nil
		}
		return nil, "", fmt.Errorf("bootstrap: sendgrid selected but SENDGRID_API_KEY is empty")
	case "ses":
		if cfg.SESFromEmail == "" {
			return nil, "", fmt.Errorf("bootstrap: ses selected but SES_FROM_EMAIL is empty")
		}
		s, err := sesSender(ctx, cfg, logger)
		if err != nil {
			return nil, "", err
		}
		return s, "ses", nil
	default:
		return nil, "", fmt.Errorf("bootstrap: unknown email provider %q", cfg.EmailProvider)
	}
}

// The constructors return typed nils; these helpers keep them out of the interface.

func smtpSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	s := notify.NewSMTPSender(notify.SMTPConfig{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		FromEmail: cfg.SenderEmail,
		FromName:  cfg.EmailFromName,
	}, logger)
	if s == nil {
		return nil
	}
	return s
}

func sendGridSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	s := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SenderEmail,
		FromName:  cfg.EmailFromName,
	}, logger)
	if s == nil {
		return nil
	}
	return s
}

func sesSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
		FromEmail: cfg.SESFromEmail,
		FromName:  cfg.EmailFromName,
	}, logger)
	if s == nil {
		return nil, fmt.Errorf("bootstrap: ses sender not configured")
	}
	return s, nil
}
