package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// SESAPI is the subset of the SES v2 client the sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers through the SES v2 SendEmail API.
type SESSender struct {
	client    SESAPI
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	FromEmail string
	FromName  string
}

// NewSESSender creates an SES sender, or nil without a client or sender address.
func NewSESSender(client SESAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil || cfg.FromEmail == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = DefaultFromName
	}
	return &SESSender{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send sends an email via AWS SES.
func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: SES client not configured")
	}

	utf8 := aws.String("UTF-8")
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: utf8},
				Body:    &types.Body{},
			},
		},
	}
	if msg.Body != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.Body), Charset: utf8}
	}
	if msg.HTML != "" {
		input.Content.Simple.Body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: utf8}
	}

	input.EmailTags = sesTags(msg)

	output, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("notify: SES send: %w", err)
	}

	s.logger.Debug("email sent via SES", "to", msg.To, "category", msg.Category, "message_id", aws.ToString(output.MessageId))
	return nil
}

// sesTags maps delivery metadata onto SES message tags for event publishing.
func sesTags(msg EmailMessage) []types.MessageTag {
	var tags []types.MessageTag
	if msg.Category != "" {
		tags = append(tags, types.MessageTag{Name: aws.String("category"), Value: aws.String(msg.Category)})
	}
	if msg.AppointmentID != "" {
		tags = append(tags, types.MessageTag{Name: aws.String("appointment_id"), Value: aws.String(msg.AppointmentID)})
	}
	return tags
}

var _ EmailSender = (*SESSender)(nil)
