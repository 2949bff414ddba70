package appointments

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the single in-memory owner of appointment records. Records keep
// insertion order. Every read returns a copy, so callers never see a record
// while another goroutine is mutating it.
type Store struct {
	mu    sync.RWMutex
	items []*Appointment
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// WithClock overrides the timestamp source used for CreatedAt/UpdatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Append adds an appointment at the end of the store and returns the stored copy.
// A missing ID or status is filled in.
func (s *Store) Append(a Appointment) Appointment {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusConfirmed
	}
	now := s.now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	stored := a.clone()
	s.mu.Lock()
	s.items = append(s.items, &stored)
	s.mu.Unlock()
	return stored.clone()
}

// Len returns the number of stored appointments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// List returns all appointments in insertion order.
func (s *Store) List() []Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Appointment, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, a.clone())
	}
	return out
}

// Get returns the appointment with the given ID.
func (s *Store) Get(id uuid.UUID) (Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i].clone(), nil
	}
	return Appointment{}, Errorf(KindNotFound, "No appointment found with id %s.", id)
}

// Find returns the first appointment, in insertion order, matching pred.
func (s *Store) Find(pred func(Appointment) bool) (Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.items {
		if pred(*a) {
			return a.clone(), true
		}
	}
	return Appointment{}, false
}

// RemoveAt removes the appointment at a zero-based position.
func (s *Store) RemoveAt(position int) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position < 0 || position >= len(s.items) {
		return Appointment{}, Errorf(KindIndexOutOfRange, "No appointment at position %d; there are %d appointments.", position+1, len(s.items))
	}
	return s.removeLocked(position), nil
}

// Remove deletes the appointment with the given ID.
func (s *Store) Remove(id uuid.UUID) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return Appointment{}, Errorf(KindNotFound, "No appointment found with id %s.", id)
	}
	return s.removeLocked(i), nil
}

// Update applies fn to the stored appointment under the write lock. The ID is
// immutable; a non-nil error from fn leaves the record untouched.
func (s *Store) Update(id uuid.UUID, fn func(*Appointment) error) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return Appointment{}, Errorf(KindNotFound, "No appointment found with id %s.", id)
	}
	draft := s.items[i].clone()
	if err := fn(&draft); err != nil {
		return Appointment{}, err
	}
	draft.ID = id
	draft.UpdatedAt = s.now().UTC()
	s.items[i] = &draft
	return draft.clone(), nil
}

// MarkReminderSent records that the reminder for window went out. It only
// succeeds while the appointment still starts at expectedStart and the window
// has not fired yet, so a reschedule racing a reminder scan is never marked.
func (s *Store) MarkReminderSent(id uuid.UUID, window ReminderWindow, expectedStart time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	a := s.items[i]
	if !a.Start.Equal(expectedStart) || a.ReminderSentFor(window) {
		return false
	}
	now := s.now().UTC()
	if a.RemindersSent == nil {
		a.RemindersSent = make(map[ReminderWindow]time.Time)
	}
	a.RemindersSent[window] = now
	a.ReminderSent = true
	a.UpdatedAt = now
	return true
}

// Stats summarises the store for the dashboard.
type Stats struct {
	Total    int            `json:"total"`
	Today    int            `json:"today"`
	Upcoming int            `json:"upcoming"`
	ByDoctor map[string]int `json:"by_doctor"`
	ByStatus map[Status]int `json:"by_status"`
}

// Stats counts appointments; "today" is the calendar day of now in loc.
func (s *Store) Stats(now time.Time, loc *time.Location) Stats {
	if loc == nil {
		loc = time.UTC
	}
	localNow := now.In(loc)
	y, m, d := localNow.Date()

	stats := Stats{ByDoctor: map[string]int{}, ByStatus: map[Status]int{}}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.items {
		stats.Total++
		stats.ByDoctor[a.DoctorName]++
		stats.ByStatus[a.Status]++
		ay, am, ad := a.Start.In(loc).Date()
		if ay == y && am == m && ad == d {
			stats.Today++
		}
		if a.Start.After(now) {
			stats.Upcoming++
		}
	}
	return stats
}

func (s *Store) indexOf(id uuid.UUID) int {
	for i, a := range s.items {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(i int) Appointment {
	removed := s.items[i]
	copy(s.items[i:], s.items[i+1:])
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	return *removed
}
