// Package availability checks requested appointment times against a doctor's
// working calendar.
package availability

import (
	"time"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
	"github.com/wolfman30/appointment-assistant/internal/doctors"
)

// Validator is stateless apart from its clock; it never reads the appointment store.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a validator using the wall clock.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// WithClock overrides the clock, mainly for tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	if now != nil {
		v.now = now
	}
	return v
}

// Validate runs the full booking checks in order: past time, weekday, hours.
// The first failure wins and carries a message meant for the patient.
func (v *Validator) Validate(candidate time.Time, profile doctors.Profile) error {
	local := candidate.In(profile.Location())
	if local.Before(v.now().In(profile.Location())) {
		return appointments.Errorf(appointments.KindPastTime, "Cannot book appointments in the past.")
	}
	if !profile.WorksOn(local.Weekday()) {
		return appointments.Errorf(appointments.KindDayUnavailable,
			"Doctor is not available on %s. Available days: %s", local.Weekday(), profile.DaysList())
	}
	if !profile.WithinHours(local.Hour()) {
		return appointments.Errorf(appointments.KindOutsideHours,
			"Doctor is only available from %s", profile.HoursLabel())
	}
	return nil
}

// ValidateCalendar checks weekday and hours only, naming the doctor. Moving an
// existing appointment skips the past-time check.
func (v *Validator) ValidateCalendar(candidate time.Time, profile doctors.Profile) error {
	local := candidate.In(profile.Location())
	if !profile.WorksOn(local.Weekday()) {
		return appointments.Errorf(appointments.KindDayUnavailable,
			"%s is not available on %s. Available days: %s", profile.Name, local.Weekday(), profile.DaysList())
	}
	if !profile.WithinHours(local.Hour()) {
		return appointments.Errorf(appointments.KindOutsideHours,
			"%s is available from %s", profile.Name, profile.HoursLabel())
	}
	return nil
}
