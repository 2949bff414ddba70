package doctors

import "errors"

var (
	// ErrDoctorNotFound is returned when a name matches no doctor in the roster.
	ErrDoctorNotFound = errors.New("doctors: doctor not found")
	// ErrInvalidProfile is returned when a roster entry cannot be booked against.
	ErrInvalidProfile = errors.New("doctors: invalid profile")
	// ErrEmptyRoster is returned when a roster contains no doctors.
	ErrEmptyRoster = errors.New("doctors: roster is empty")
)
