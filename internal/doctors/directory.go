package doctors

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDoctor is the general practitioner used when no doctor is named.
const DefaultDoctor = "Dr. Smith"

// Directory is an immutable, ordered roster of doctors.
type Directory struct {
	profiles []Profile
	index    map[string]int
	fallback int
}

// NewDirectory validates profiles and builds a directory. The first profile named
// DefaultDoctor becomes the fallback; otherwise the first profile is used.
func NewDirectory(profiles []Profile) (*Directory, error) {
	if len(profiles) == 0 {
		return nil, ErrEmptyRoster
	}
	d := &Directory{
		profiles: make([]Profile, 0, len(profiles)),
		index:    make(map[string]int, len(profiles)),
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		key := normalizeName(p.Name)
		if _, dup := d.index[key]; dup {
			return nil, fmt.Errorf("%w: duplicate doctor %q", ErrInvalidProfile, p.Name)
		}
		p.AvailableDays = append([]time.Weekday(nil), p.AvailableDays...)
		d.index[key] = len(d.profiles)
		d.profiles = append(d.profiles, p)
	}
	if i, ok := d.index[normalizeName(DefaultDoctor)]; ok {
		d.fallback = i
	}
	return d, nil
}

// BuiltIn returns the clinic's standard four-doctor roster.
func BuiltIn() *Directory {
	d, err := NewDirectory(BuiltInProfiles())
	if err != nil {
		panic(fmt.Sprintf("doctors: built-in roster invalid: %v", err))
	}
	return d
}

// BuiltInProfiles lists the standard roster.
func BuiltInProfiles() []Profile {
	const tz = "America/New_York"
	return []Profile{
		{
			Name:          "Dr. Smith",
			Specialty:     "General Practice",
			AvailableDays: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			StartHour:     9,
			EndHour:       17,
			Office:        "Main Building, Room 101",
			Timezone:      tz,
		},
		{
			Name:          "Dr. Johnson",
			Specialty:     "Cardiology",
			AvailableDays: []time.Weekday{time.Tuesday, time.Thursday},
			StartHour:     10,
			EndHour:       16,
			Office:        "Cardiac Wing, Room 205",
			Timezone:      tz,
		},
		{
			Name:          "Dr. Williams",
			Specialty:     "Dermatology",
			AvailableDays: []time.Weekday{time.Monday, time.Tuesday, time.Thursday, time.Friday},
			StartHour:     8,
			EndHour:       15,
			Office:        "Dermatology Center, Room 301",
			Timezone:      tz,
		},
		{
			Name:          "Dr. Brown",
			Specialty:     "Orthopedics",
			AvailableDays: []time.Weekday{time.Wednesday, time.Thursday, time.Friday},
			StartHour:     9,
			EndHour:       18,
			Office:        "Sports Medicine Wing, Room 150",
			Timezone:      tz,
		},
	}
}

// Lookup finds a doctor by name. Matching ignores case and an optional "Dr." prefix.
func (d *Directory) Lookup(name string) (Profile, error) {
	i, ok := d.index[normalizeName(name)]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrDoctorNotFound, name)
	}
	return d.profiles[i], nil
}

// LookupOrDefault returns the named doctor, or the default profile and false.
func (d *Directory) LookupOrDefault(name string) (Profile, bool) {
	p, err := d.Lookup(name)
	if err != nil {
		return d.Default(), false
	}
	return p, true
}

// Default returns the fallback profile.
func (d *Directory) Default() Profile {
	return d.profiles[d.fallback]
}

// List returns the roster in configured order.
func (d *Directory) List() []Profile {
	out := make([]Profile, len(d.profiles))
	copy(out, d.profiles)
	return out
}

// BySpecialty returns the first doctor practising specialty.
func (d *Directory) BySpecialty(specialty string) (Profile, bool) {
	for _, p := range d.profiles {
		if strings.EqualFold(p.Specialty, specialty) {
			return p, true
		}
	}
	return Profile{}, false
}

// Names returns doctor names in roster order.
func (d *Directory) Names() []string {
	names := make([]string, 0, len(d.profiles))
	for _, p := range d.profiles {
		names = append(names, p.Name)
	}
	return names
}

func normalizeName(name string) string {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	for _, prefix := range []string{"dr. ", "dr.", "dr ", "doctor "} {
		if strings.HasPrefix(key, prefix) {
			key = strings.TrimSpace(strings.TrimPrefix(key, prefix))
			break
		}
	}
	return key
}
