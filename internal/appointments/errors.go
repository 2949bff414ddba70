package appointments

import (
	"errors"
	"fmt"
)

// Kind classifies scheduling failures so callers can branch without parsing text.
type Kind string

const (
	KindPastTime         Kind = "past_time"
	KindDayUnavailable   Kind = "day_unavailable"
	KindOutsideHours     Kind = "outside_hours"
	KindConflict         Kind = "conflict"
	KindNotFound         Kind = "not_found"
	KindIndexOutOfRange  Kind = "index_out_of_range"
	KindTransportFailure Kind = "transport_failure"
	KindInvalidRequest   Kind = "invalid_request"
)

// Error carries a structured kind next to the user-facing message.
// Error() returns the message unmodified so it can be shown in a chat transcript.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches sentinel errors by kind, so errors.Is(err, ErrConflict) holds for any conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrPastTime         = &Error{Kind: KindPastTime}
	ErrDayUnavailable   = &Error{Kind: KindDayUnavailable}
	ErrOutsideHours     = &Error{Kind: KindOutsideHours}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrIndexOutOfRange  = &Error{Kind: KindIndexOutOfRange}
	ErrTransportFailure = &Error{Kind: KindTransportFailure}
	ErrInvalidRequest   = &Error{Kind: KindInvalidRequest}
)

// Errorf builds a kinded error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" when err is not a scheduling error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
