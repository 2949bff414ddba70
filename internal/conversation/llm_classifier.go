package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

const intentSystemPrompt = `You extract scheduling intents from patient messages for a clinic.
Reply with a single JSON object and nothing else, using these fields:
{"intent": "book|cancel|reschedule|list_availability|list_doctors|other",
 "patient_name": "", "doctor": "", "start": "", "original_start": "", "new_start": "",
 "type": "consultation|follow-up|check-up|emergency", "email": "", "position": 0, "id": ""}
Times use the format 2006-01-02T15:04 in the clinic's local time. Leave unknown fields empty.
Doctor names are written as "Dr. Lastname". position is the 1-based number of the appointment to cancel.`

type llmIntent struct {
	Intent        string `json:"intent"`
	PatientName   string `json:"patient_name"`
	Doctor        string `json:"doctor"`
	Start         string `json:"start"`
	OriginalStart string `json:"original_start"`
	NewStart      string `json:"new_start"`
	Type          string `json:"type"`
	Email         string `json:"email"`
	Position      int    `json:"position"`
	ID            string `json:"id"`
}

// LLMClassifier asks a language model for structured intent JSON and falls
// back to keyword extraction when the call or the parse fails.
type LLMClassifier struct {
	client   LLMClient
	fallback *KeywordClassifier
	model    string
	loc      *time.Location
	now      func() time.Time
	logger   *logging.Logger
}

func NewLLMClassifier(client LLMClient, model string, loc *time.Location, logger *logging.Logger) *LLMClassifier {
	if loc == nil {
		loc = time.UTC
	}
	return &LLMClassifier{
		client:   client,
		fallback: NewKeywordClassifier(loc),
		model:    model,
		loc:      loc,
		now:      time.Now,
		logger:   logger.Component("llm_classifier"),
	}
}

// WithClock overrides the time reported to the model as "now".
func (c *LLMClassifier) WithClock(now func() time.Time) *LLMClassifier {
	if now != nil {
		c.now = now
	}
	return c
}

func (c *LLMClassifier) Classify(ctx context.Context, text string) (Intent, error) {
	if c.client == nil {
		return c.fallback.Classify(ctx, text)
	}
	resp, err := c.client.Complete(ctx, LLMRequest{
		Model: c.model,
		System: []string{
			intentSystemPrompt,
			fmt.Sprintf("The current local time is %s.", c.now().In(c.loc).Format("Monday 2006-01-02T15:04")),
		},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: text}},
		MaxTokens:   400,
		Temperature: 0,
	})
	if err != nil {
		c.logger.Warn("intent extraction failed, using keywords", "error", err)
		return c.fallback.Classify(ctx, text)
	}
	intent, err := c.decode(resp.Text, text)
	if err != nil {
		c.logger.Warn("unparseable intent response, using keywords", "error", err)
		return c.fallback.Classify(ctx, text)
	}
	return intent, nil
}

func (c *LLMClassifier) decode(raw, text string) (Intent, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		raw = raw[i : j+1]
	}
	var out llmIntent
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("conversation: decode intent: %w", err)
	}

	switch IntentKind(strings.ToLower(strings.TrimSpace(out.Intent))) {
	case IntentBook:
		book := BookIntent{
			PatientName: strings.TrimSpace(out.PatientName),
			Doctor:      strings.TrimSpace(out.Doctor),
			Start:       c.parseTime(out.Start),
			Email:       strings.TrimSpace(out.Email),
			Symptoms:    text,
		}
		if out.Type != "" {
			book.Type = appointments.NormalizeType(out.Type)
		}
		return book, nil
	case IntentCancel:
		intent := CancelIntent{Position: out.Position}
		if id, err := uuid.Parse(strings.TrimSpace(out.ID)); err == nil {
			intent.ID = id
		}
		return intent, nil
	case IntentReschedule:
		return RescheduleIntent{
			PatientName:   strings.TrimSpace(out.PatientName),
			OriginalStart: c.parseTime(out.OriginalStart),
			NewStart:      c.parseTime(out.NewStart),
		}, nil
	case IntentListAvailability:
		return ListAvailabilityIntent{Doctor: strings.TrimSpace(out.Doctor)}, nil
	case IntentListDoctors:
		return ListDoctorsIntent{}, nil
	case IntentOther:
		return OtherIntent{Text: text}, nil
	default:
		return nil, fmt.Errorf("conversation: unknown intent %q", out.Intent)
	}
}

func (c *LLMClassifier) parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, raw, c.loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
