// Package doctors provides the doctor roster: working calendars, lookup by name,
// and symptom-based recommendations.
package doctors

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Profile describes one doctor's specialty and weekly working calendar.
// Hours are whole hours in the doctor's timezone, half-open: [StartHour, EndHour).
type Profile struct {
	Name          string
	Specialty     string
	AvailableDays []time.Weekday
	StartHour     int
	EndHour       int
	Office        string
	Timezone      string
}

// Location resolves the profile's IANA timezone, falling back to UTC.
func (p Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WorksOn reports whether the doctor sees patients on the given weekday.
func (p Profile) WorksOn(day time.Weekday) bool {
	for _, d := range p.AvailableDays {
		if d == day {
			return true
		}
	}
	return false
}

// WithinHours reports whether hour falls inside the working window.
func (p Profile) WithinHours(hour int) bool {
	return hour >= p.StartHour && hour < p.EndHour
}

// DaysList renders the available days as "Tuesday, Thursday".
func (p Profile) DaysList() string {
	names := make([]string, 0, len(p.AvailableDays))
	for _, d := range p.AvailableDays {
		names = append(names, d.String())
	}
	return strings.Join(names, ", ")
}

// HoursLabel renders the working window as "10:00 to 16:00".
func (p Profile) HoursLabel() string {
	return fmt.Sprintf("%d:00 to %d:00", p.StartHour, p.EndHour)
}

type profileJSON struct {
	Name          string   `json:"name"`
	Specialty     string   `json:"specialty"`
	AvailableDays []string `json:"available_days"`
	StartHour     int      `json:"start_hour"`
	EndHour       int      `json:"end_hour"`
	Location      string   `json:"location"`
	Timezone      string   `json:"timezone,omitempty"`
}

// MarshalJSON encodes weekdays by name.
func (p Profile) MarshalJSON() ([]byte, error) {
	days := make([]string, 0, len(p.AvailableDays))
	for _, d := range p.AvailableDays {
		days = append(days, d.String())
	}
	return json.Marshal(profileJSON{
		Name:          p.Name,
		Specialty:     p.Specialty,
		AvailableDays: days,
		StartHour:     p.StartHour,
		EndHour:       p.EndHour,
		Location:      p.Office,
		Timezone:      p.Timezone,
	})
}

// UnmarshalJSON decodes weekday names case-insensitively ("monday", "Mon").
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw profileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	days := make([]time.Weekday, 0, len(raw.AvailableDays))
	for _, name := range raw.AvailableDays {
		d, err := ParseWeekday(name)
		if err != nil {
			return err
		}
		days = append(days, d)
	}
	*p = Profile{
		Name:          raw.Name,
		Specialty:     raw.Specialty,
		AvailableDays: days,
		StartHour:     raw.StartHour,
		EndHour:       raw.EndHour,
		Office:        raw.Location,
		Timezone:      raw.Timezone,
	}
	return nil
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(name string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if key == full || (len(key) == 3 && strings.HasPrefix(full, key)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("doctors: unknown weekday %q", name)
}

// Validate checks the profile is bookable.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if len(p.AvailableDays) == 0 {
		return fmt.Errorf("%w: %s has no available days", ErrInvalidProfile, p.Name)
	}
	if p.StartHour < 0 || p.EndHour > 24 || p.StartHour >= p.EndHour {
		return fmt.Errorf("%w: %s has invalid hours %d-%d", ErrInvalidProfile, p.Name, p.StartHour, p.EndHour)
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("%w: %s has unknown timezone %q", ErrInvalidProfile, p.Name, p.Timezone)
		}
	}
	return nil
}
