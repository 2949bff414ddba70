package conversation

import (
	"time"

	"github.com/google/uuid"
)

// IntentKind labels a classified chat message.
type IntentKind string

const (
	IntentBook             IntentKind = "book"
	IntentCancel           IntentKind = "cancel"
	IntentReschedule       IntentKind = "reschedule"
	IntentListAvailability IntentKind = "list_availability"
	IntentListDoctors      IntentKind = "list_doctors"
	IntentOther            IntentKind = "other"
)

// Intent is the closed set of requests the assistant understands. Only types
// in this package implement it.
type Intent interface {
	Kind() IntentKind
	isIntent()
}

// BookIntent asks for a new appointment. Zero fields were not supplied.
type BookIntent struct {
	PatientName string
	Doctor      string
	Start       time.Time
	Type        string
	Email       string
	// Symptoms is the raw text used to recommend a doctor when none is named.
	Symptoms string
}

// CancelIntent targets an appointment by one-based list position or by ID.
// Both zero means the patient did not say which one.
type CancelIntent struct {
	Position int
	ID       uuid.UUID
}

// RescheduleIntent moves the appointment at OriginalStart to NewStart.
type RescheduleIntent struct {
	PatientName   string
	OriginalStart time.Time
	NewStart      time.Time
}

// ListAvailabilityIntent asks when a doctor works.
type ListAvailabilityIntent struct {
	Doctor string
}

// ListDoctorsIntent asks for the roster.
type ListDoctorsIntent struct{}

// OtherIntent is anything unrecognised.
type OtherIntent struct {
	Text string
}

func (BookIntent) Kind() IntentKind             { return IntentBook }
func (CancelIntent) Kind() IntentKind           { return IntentCancel }
func (RescheduleIntent) Kind() IntentKind       { return IntentReschedule }
func (ListAvailabilityIntent) Kind() IntentKind { return IntentListAvailability }
func (ListDoctorsIntent) Kind() IntentKind      { return IntentListDoctors }
func (OtherIntent) Kind() IntentKind            { return IntentOther }

func (BookIntent) isIntent()             {}
func (CancelIntent) isIntent()           {}
func (RescheduleIntent) isIntent()       {}
func (ListAvailabilityIntent) isIntent() {}
func (ListDoctorsIntent) isIntent()      {}
func (OtherIntent) isIntent()            {}

// Missing lists the required booking fields that are still empty.
func (b BookIntent) Missing() []string {
	var missing []string
	if b.Start.IsZero() {
		missing = append(missing, "date and time")
	}
	if b.PatientName == "" {
		missing = append(missing, "name")
	}
	return missing
}

// merge fills empty fields of b from later.
func (b BookIntent) merge(later BookIntent) BookIntent {
	if later.PatientName != "" {
		b.PatientName = later.PatientName
	}
	if later.Doctor != "" {
		b.Doctor = later.Doctor
	}
	if !later.Start.IsZero() {
		b.Start = later.Start
	}
	if later.Type != "" {
		b.Type = later.Type
	}
	if later.Email != "" {
		b.Email = later.Email
	}
	if later.Symptoms != "" {
		if b.Symptoms != "" {
			b.Symptoms += " "
		}
		b.Symptoms += later.Symptoms
	}
	return b
}
