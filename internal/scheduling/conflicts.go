package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
	"github.com/wolfman30/appointment-assistant/internal/doctors"
)

// Suggested slots must start within this local-hour window regardless of the
// doctor's own hours.
const (
	alternativeEarliestHour = 8
	alternativeLatestHour   = 18
)

// Detector answers double-booking questions against the store.
type Detector struct {
	store *appointments.Store
}

// NewDetector creates a detector over store.
func NewDetector(store *appointments.Store) *Detector {
	return &Detector{store: store}
}

// HasConflict reports whether another active appointment holds the doctor at
// instant. The appointment with ID exclude is ignored; pass uuid.Nil to check all.
func (d *Detector) HasConflict(doctor string, instant time.Time, exclude uuid.UUID) bool {
	_, found := d.store.Find(func(a appointments.Appointment) bool {
		return a.Active() &&
			a.ID != exclude &&
			strings.EqualFold(a.DoctorName, doctor) &&
			a.Start.Equal(instant)
	})
	return found
}

// FindAlternatives proposes the same time next day, two hours later and two
// hours earlier, dropping candidates outside 08:00-18:00 in the doctor's
// timezone. Candidates are not checked against the doctor's calendar or other
// bookings.
func FindAlternatives(profile doctors.Profile, original time.Time) []time.Time {
	loc := profile.Location()
	// Next day is computed on the doctor's wall clock so a DST change keeps the local time.
	candidates := []time.Time{
		original.In(loc).AddDate(0, 0, 1).In(original.Location()),
		original.Add(2 * time.Hour),
		original.Add(-2 * time.Hour),
	}
	out := make([]time.Time, 0, len(candidates))
	for _, c := range candidates {
		hour := c.In(loc).Hour()
		if hour >= alternativeEarliestHour && hour < alternativeLatestHour {
			out = append(out, c)
		}
	}
	return out
}
