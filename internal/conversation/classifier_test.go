package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func classify(t *testing.T, c Classifier, text string) Intent {
	t.Helper()
	intent, err := c.Classify(context.Background(), text)
	require.NoError(t, err)
	require.NotNil(t, intent)
	return intent
}

func TestKeywordClassifierBooking(t *testing.T) {
	loc := newYork(t)
	c := NewKeywordClassifier(loc)

	intent := classify(t, c, "Book an appointment with Dr. Johnson on 2026-01-06 11:00 for Alice Smith, email alice@example.com")
	book, ok := intent.(BookIntent)
	require.True(t, ok, "got %T", intent)
	assert.Equal(t, "Alice Smith", book.PatientName)
	assert.Equal(t, "Dr. Johnson", book.Doctor)
	assert.Equal(t, "alice@example.com", book.Email)
	assert.True(t, book.Start.Equal(time.Date(2026, 1, 6, 11, 0, 0, 0, loc)))
	assert.Empty(t, book.Missing())
}

func TestKeywordClassifierTwelveHourClock(t *testing.T) {
	loc := newYork(t)
	c := NewKeywordClassifier(loc)

	book, ok := classify(t, c, "my name is Bob Lee, I need a follow-up on 2026-01-08 3:30 pm with doctor brown").(BookIntent)
	require.True(t, ok)
	assert.Equal(t, "Bob Lee", book.PatientName)
	assert.Equal(t, "Dr. Brown", book.Doctor)
	assert.Equal(t, appointments.TypeFollowUp, book.Type)
	assert.True(t, book.Start.Equal(time.Date(2026, 1, 8, 15, 30, 0, 0, loc)))
}

func TestKeywordClassifierPartialBooking(t *testing.T) {
	c := NewKeywordClassifier(nil)

	book, ok := classify(t, c, "I want to book an appointment").(BookIntent)
	require.True(t, ok)
	assert.Equal(t, []string{"date and time", "name"}, book.Missing())

	book, ok = classify(t, c, "My name is Carol").(BookIntent)
	require.True(t, ok)
	assert.Equal(t, "Carol", book.PatientName)
	assert.Equal(t, []string{"date and time"}, book.Missing())
}

func TestKeywordClassifierCancel(t *testing.T) {
	c := NewKeywordClassifier(nil)
	id := uuid.MustParse("a3bb189e-8bf9-3888-9912-ace4e6543002")

	tests := []struct {
		text string
		want CancelIntent
	}{
		{"cancel 2", CancelIntent{Position: 2}},
		{"Please cancel appointment #3", CancelIntent{Position: 3}},
		{"cancel my appointment number 1", CancelIntent{Position: 1}},
		{"I need to cancel my appointment", CancelIntent{}},
		{"cancel " + id.String(), CancelIntent{ID: id}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(t, c, tt.text))
		})
	}
}

func TestKeywordClassifierReschedule(t *testing.T) {
	loc := newYork(t)
	c := NewKeywordClassifier(loc)

	in, ok := classify(t, c, "Please reschedule my appointment from 2026-01-06 11:00 to 2026-01-08 14:00").(RescheduleIntent)
	require.True(t, ok)
	assert.True(t, in.OriginalStart.Equal(time.Date(2026, 1, 6, 11, 0, 0, 0, loc)))
	assert.True(t, in.NewStart.Equal(time.Date(2026, 1, 8, 14, 0, 0, 0, loc)))

	in, ok = classify(t, c, "Can you move it to 2026-01-08 14:00?").(RescheduleIntent)
	require.True(t, ok)
	assert.True(t, in.OriginalStart.IsZero())
	assert.True(t, in.NewStart.Equal(time.Date(2026, 1, 8, 14, 0, 0, 0, loc)))
}

func TestKeywordClassifierQueries(t *testing.T) {
	c := NewKeywordClassifier(nil)

	assert.Equal(t, ListDoctorsIntent{}, classify(t, c, "Which doctors are available?"))
	assert.Equal(t, ListDoctorsIntent{}, classify(t, c, "show me the doctors"))
	assert.Equal(t, ListAvailabilityIntent{Doctor: "Dr. Johnson"}, classify(t, c, "When is Dr. Johnson available?"))
	assert.Equal(t, ListAvailabilityIntent{Doctor: "Dr. Williams"}, classify(t, c, "What hours does doctor williams work?"))
	assert.Equal(t, OtherIntent{Text: "hello there"}, classify(t, c, "hello there"))
}

func TestIntentKinds(t *testing.T) {
	assert.Equal(t, IntentBook, BookIntent{}.Kind())
	assert.Equal(t, IntentCancel, CancelIntent{}.Kind())
	assert.Equal(t, IntentReschedule, RescheduleIntent{}.Kind())
	assert.Equal(t, IntentListAvailability, ListAvailabilityIntent{}.Kind())
	assert.Equal(t, IntentListDoctors, ListDoctorsIntent{}.Kind())
	assert.Equal(t, IntentOther, OtherIntent{}.Kind())
}

func TestBookIntentMerge(t *testing.T) {
	start := time.Date(2026, 1, 6, 11, 0, 0, 0, time.UTC)
	merged := BookIntent{PatientName: "Alice", Symptoms: "chest pain"}.
		merge(BookIntent{Start: start, Doctor: "Dr. Johnson", Symptoms: "tuesday"})

	assert.Equal(t, "Alice", merged.PatientName)
	assert.Equal(t, "Dr. Johnson", merged.Doctor)
	assert.True(t, merged.Start.Equal(start))
	assert.Equal(t, "chest pain tuesday", merged.Symptoms)
}

func TestKeywordClassifierRescheduleWithoutTimes(t *testing.T) {
	c := NewKeywordClassifier(nil)
	assert.Equal(t, RescheduleIntent{}, classify(t, c, "I need to reschedule"))
	_, isBook := classify(t, c, "can I change my appointment").(BookIntent)
	assert.True(t, isBook)
}

func TestKeywordClassifierPossessiveDoctor(t *testing.T) {
	c := NewKeywordClassifier(newYork(t))

	avail, ok := classify(t, c, "What are Dr. Johnson's hours?").(ListAvailabilityIntent)
	require.True(t, ok)
	assert.Equal(t, "Dr. Johnson", avail.Doctor)

	book, ok := classify(t, c, "Book for Alice with Dr. Johnson's clinic on 2026-01-06 11:00").(BookIntent)
	require.True(t, ok)
	assert.Equal(t, "Dr. Johnson", book.Doctor)

	book, ok = classify(t, c, "Book for Alice with Dr. O'Neil on 2026-01-06 11:00").(BookIntent)
	require.True(t, ok)
	assert.Equal(t, "Dr. O'neil", book.Doctor)
}
