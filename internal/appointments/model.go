// Package appointments holds the appointment record, its error kinds, and the
// in-memory store that owns every booked appointment.
package appointments

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status tracks where an appointment is in its lifecycle.
type Status string

const (
	StatusConfirmed   Status = "confirmed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// ReminderWindow names a reminder threshold before the appointment start.
type ReminderWindow string

const (
	ReminderDayBefore  ReminderWindow = "24h"
	ReminderHourBefore ReminderWindow = "1h"
)

// Appointment types offered by the booking form.
const (
	TypeConsultation = "Consultation"
	TypeFollowUp     = "Follow-up"
	TypeCheckUp      = "Check-up"
	TypeEmergency    = "Emergency"
)

// Types lists the known appointment types in display order.
var Types = []string{TypeConsultation, TypeFollowUp, TypeCheckUp, TypeEmergency}

// Appointment is a booked visit. Specialty and Location are copied from the
// doctor at booking time and do not follow later roster changes.
type Appointment struct {
	ID           uuid.UUID `json:"id"`
	PatientName  string    `json:"patient_name"`
	PatientEmail string    `json:"patient_email,omitempty"`
	DoctorName   string    `json:"doctor_name"`
	Specialty    string    `json:"specialty"`
	Start        time.Time `json:"start"`
	Type         string    `json:"type"`
	Status       Status    `json:"status"`
	Location     string    `json:"location"`
	// ReminderSent is true once any reminder went out for the current start time.
	ReminderSent bool `json:"reminder_sent"`
	// RemindersSent records which windows have fired, keyed by window.
	RemindersSent    map[ReminderWindow]time.Time `json:"reminders_sent,omitempty"`
	ConfirmationSent bool                         `json:"confirmation_sent"`
	CreatedAt        time.Time                    `json:"created_at"`
	UpdatedAt        time.Time                    `json:"updated_at"`
}

// Active reports whether the appointment still holds its slot.
func (a Appointment) Active() bool {
	return a.Status != StatusCancelled
}

// HasEmail reports whether notifications can be addressed to the patient.
func (a Appointment) HasEmail() bool {
	return strings.TrimSpace(a.PatientEmail) != ""
}

// ReminderSentFor reports whether the given window already fired.
func (a Appointment) ReminderSentFor(window ReminderWindow) bool {
	_, ok := a.RemindersSent[window]
	return ok
}

// ResetReminders clears reminder state, used when the start time moves.
func (a *Appointment) ResetReminders() {
	a.ReminderSent = false
	a.RemindersSent = nil
}

func (a Appointment) clone() Appointment {
	if a.RemindersSent != nil {
		sent := make(map[ReminderWindow]time.Time, len(a.RemindersSent))
		for k, v := range a.RemindersSent {
			sent[k] = v
		}
		a.RemindersSent = sent
	}
	return a
}

// NormalizeType maps free-form input onto a known appointment type,
// defaulting to a consultation.
func NormalizeType(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "", " ", "", "_", "").Replace(key)
	switch key {
	case "followup", "follow":
		return TypeFollowUp
	case "checkup", "check":
		return TypeCheckUp
	case "emergency", "urgent":
		return TypeEmergency
	default:
		return TypeConsultation
	}
}
