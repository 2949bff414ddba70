package conversation

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
)

// Classifier turns free text into an Intent.
type Classifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

var (
	dateTimePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})(?:\s+at)?[ T](\d{1,2}:\d{2})(?:\s*([AaPp][Mm]))?`)
	doctorPattern   = regexp.MustCompile(`(?i)\b(?:dr\.?|doctor)\s+([a-z][a-z'-]+)`)
	namePattern     = regexp.MustCompile(`(?:[Mm]y name is|[Nn]ame is|[Nn]ame:|\bfor|\bI am|\bI'm|\bthis is)\s+([A-Z][a-z'-]+(?:\s+[A-Z][a-z'-]+)*)`)
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	cancelPattern   = regexp.MustCompile(`(?i)\bcancel(?:\s+(?:my|the))?(?:\s+appointment)?\s*(?:#|number\s+|no\.?\s*)?(\d+)\b`)
	uuidPattern     = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)
	typePattern     = regexp.MustCompile(`(?i)\b(follow[- ]?up|check[- ]?up|emergency|urgent|consultation)\b`)
)

// Names the name pattern can pick up that are not patients.
var nonNames = map[string]bool{"Dr": true, "Doctor": true, "Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true, "Friday": true, "Saturday": true, "Sunday": true}

// KeywordClassifier extracts intents with regular expressions. Dates must be
// written as 2026-01-06 11:00 or 2026-01-06 3:00 PM and are read in the
// configured timezone.
type KeywordClassifier struct {
	loc *time.Location
}

// NewKeywordClassifier creates a classifier reading times in loc (UTC when nil).
func NewKeywordClassifier(loc *time.Location) *KeywordClassifier {
	if loc == nil {
		loc = time.UTC
	}
	return &KeywordClassifier{loc: loc}
}

// Classify never fails.
func (c *KeywordClassifier) Classify(_ context.Context, text string) (Intent, error) {
	return c.classify(text), nil
}

func (c *KeywordClassifier) classify(text string) Intent {
	lower := strings.ToLower(text)
	times := c.parseTimes(text)
	doctor := extractDoctor(text)

	switch {
	case containsWord(lower, "cancel"):
		intent := CancelIntent{}
		if m := cancelPattern.FindStringSubmatch(text); m != nil {
			intent.Position, _ = strconv.Atoi(m[1])
		}
		if id, err := uuid.Parse(uuidPattern.FindString(text)); err == nil {
			intent.ID = id
		}
		return intent

	case containsWord(lower, "reschedule") || containsAnyWord(lower, "move", "change") && len(times) > 0:
		intent := RescheduleIntent{PatientName: extractName(text)}
		switch {
		case len(times) >= 2:
			intent.OriginalStart, intent.NewStart = times[0], times[1]
		case len(times) == 1:
			intent.NewStart = times[0]
		}
		return intent

	case len(times) == 0 && doctor == "" && strings.Contains(lower, "doctor") && containsAnyWord(lower, "list", "show", "available", "which", "who", "all"):
		return ListDoctorsIntent{}

	case len(times) == 0 && doctor != "" && containsAnyWord(lower, "available", "availability", "hours", "schedule", "when", "work", "works"):
		return ListAvailabilityIntent{Doctor: doctor}
	}

	book := BookIntent{
		PatientName: extractName(text),
		Doctor:      doctor,
		Email:       emailPattern.FindString(text),
	}
	if len(times) > 0 {
		book.Start = times[0]
	}
	if m := typePattern.FindString(text); m != "" {
		book.Type = appointments.NormalizeType(m)
	}
	wantsBooking := containsAnyWord(lower, "book", "appointment", "schedule", "see")
	if wantsBooking || !book.Start.IsZero() || book.Email != "" || book.PatientName != "" || doctor != "" {
		book.Symptoms = text
		return book
	}
	return OtherIntent{Text: text}
}

func (c *KeywordClassifier) parseTimes(text string) []time.Time {
	var out []time.Time
	for _, m := range dateTimePattern.FindAllStringSubmatch(text, -1) {
		layout, value := "2006-01-02 15:04", m[1]+" "+m[2]
		if m[3] != "" {
			layout, value = "2006-01-02 3:04 PM", m[1]+" "+m[2]+" "+strings.ToUpper(m[3])
		}
		t, err := time.ParseInLocation(layout, value, c.loc)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

func extractDoctor(text string) string {
	m := doctorPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name := strings.ToLower(m[1])
	name = strings.TrimSuffix(strings.TrimSuffix(name, "'s"), "'")
	if name == "" {
		return ""
	}
	return "Dr. " + strings.ToUpper(name[:1]) + name[1:]
}

func extractName(text string) string {
	for _, m := range namePattern.FindAllStringSubmatch(text, -1) {
		words := strings.Fields(m[1])
		if len(words) == 0 || nonNames[words[0]] {
			continue
		}
		return strings.Join(words, " ")
	}
	return ""
}

func containsWord(lower, word string) bool {
	for _, f := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if f == word || strings.HasPrefix(f, word) && len(f) <= len(word)+3 {
			return true
		}
	}
	return false
}

func containsAnyWord(lower string, words ...string) bool {
	for _, w := range words {
		if containsWord(lower, w) {
			return true
		}
	}
	return false
}
