// Package scheduling books, cancels and reschedules appointments while keeping
// every doctor's calendar free of double-bookings.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
	"github.com/wolfman30/appointment-assistant/internal/availability"
	"github.com/wolfman30/appointment-assistant/internal/doctors"
	"github.com/wolfman30/appointment-assistant/internal/observability/metrics"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// DisplayLayout renders instants in user-facing messages.
const DisplayLayout = "January 02, 2006 at 03:04 PM"

// Notifier receives committed state changes. Implementations must not block.
type Notifier interface {
	BookingConfirmed(appt appointments.Appointment)
	Cancelled(appt appointments.Appointment)
}

// BookRequest carries the fields needed to book an appointment.
type BookRequest struct {
	PatientName string    `json:"patient_name"`
	Doctor      string    `json:"doctor"`
	Start       time.Time `json:"start"`
	Type        string    `json:"type"`
	Email       string    `json:"email,omitempty"`
}

// BookResult is returned by Book. On a conflict only Alternatives and Message are set.
type BookResult struct {
	Appointment  appointments.Appointment `json:"appointment"`
	Message      string                   `json:"message"`
	Alternatives []time.Time              `json:"alternatives,omitempty"`
}

// RescheduleRequest identifies an appointment either by ID or by its current
// start time plus an optional patient name.
type RescheduleRequest struct {
	ID            uuid.UUID `json:"id,omitempty"`
	PatientName   string    `json:"patient_name,omitempty"`
	OriginalStart time.Time `json:"original_start,omitempty"`
	NewStart      time.Time `json:"new_start"`
}

// RescheduleResult carries the moved appointment and its confirmation text.
type RescheduleResult struct {
	Appointment appointments.Appointment `json:"appointment"`
	OldStart    time.Time                `json:"old_start"`
	Message     string                   `json:"message"`
}

// Engine coordinates the directory, validator, store and notifier. Compound
// check-then-commit sequences hold e.mu so concurrent callers cannot both win
// the same slot.
type Engine struct {
	mu        sync.Mutex
	store     *appointments.Store
	directory *doctors.Directory
	validator *availability.Validator
	detector  *Detector
	notifier  Notifier
	metrics   *metrics.SchedulingMetrics
	logger    *logging.Logger
	tracer    trace.Tracer
	loc       *time.Location
	now       func() time.Time
}

// NewEngine wires an engine over the given store and roster.
func NewEngine(store *appointments.Store, directory *doctors.Directory, validator *availability.Validator, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	if validator == nil {
		validator = availability.NewValidator()
	}
	return &Engine{
		store:     store,
		directory: directory,
		validator: validator,
		detector:  NewDetector(store),
		logger:    logger.Component("scheduling"),
		tracer:    otel.Tracer("appointments.internal.scheduling"),
		loc:       time.UTC,
		now:       time.Now,
	}
}

// WithNotifier attaches the notification side effects.
func (e *Engine) WithNotifier(n Notifier) *Engine {
	e.notifier = n
	return e
}

// WithMetrics attaches prometheus metrics.
func (e *Engine) WithMetrics(m *metrics.SchedulingMetrics) *Engine {
	e.metrics = m
	return e
}

// WithLocation sets the clinic timezone used for statistics.
func (e *Engine) WithLocation(loc *time.Location) *Engine {
	if loc != nil {
		e.loc = loc
	}
	return e
}

// WithClock overrides the clock used for statistics.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
	}
	return e
}

// NotificationsEnabled reports whether a notifier is attached.
func (e *Engine) NotificationsEnabled() bool {
	return e.notifier != nil
}

// Directory exposes the roster the engine books against.
func (e *Engine) Directory() *doctors.Directory {
	return e.directory
}

// Book validates and commits a new appointment. Validation and lookup errors
// are returned unmodified; a conflict returns a KindConflict error together
// with a result listing alternative slots, and nothing is committed.
func (e *Engine) Book(ctx context.Context, req BookRequest) (result BookResult, err error) {
	_, span := e.tracer.Start(ctx, "scheduling.book")
	defer span.End()
	span.SetAttributes(attribute.String("appointments.doctor", req.Doctor))
	defer e.observe("book", time.Now(), &err)

	name := strings.TrimSpace(req.PatientName)
	if name == "" {
		return BookResult{}, appointments.Errorf(appointments.KindInvalidRequest, "Please provide the patient's name.")
	}
	if req.Start.IsZero() {
		return BookResult{}, appointments.Errorf(appointments.KindInvalidRequest, "Please provide a date and time for the appointment.")
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if err := validateEmail(email); err != nil {
			return BookResult{}, err
		}
	}

	profile, err := e.directory.Lookup(req.Doctor)
	if err != nil {
		return BookResult{}, appointments.Errorf(appointments.KindNotFound,
			"I couldn't find a doctor named %s. Available doctors: %s.", req.Doctor, strings.Join(e.directory.Names(), ", "))
	}

	if err := e.validator.Validate(req.Start, profile); err != nil {
		return BookResult{}, err
	}

	e.mu.Lock()
	if e.detector.HasConflict(profile.Name, req.Start, uuid.Nil) {
		e.mu.Unlock()
		alts := FindAlternatives(profile, req.Start)
		conflict := conflictError(profile, req.Start, alts)
		span.RecordError(conflict)
		e.logger.Info("booking conflict", "doctor", profile.Name, "start", req.Start, "alternatives", len(alts))
		return BookResult{Message: conflict.Message, Alternatives: alts}, conflict
	}
	appt := e.store.Append(appointments.Appointment{
		PatientName:      name,
		PatientEmail:     email,
		DoctorName:       profile.Name,
		Specialty:        profile.Specialty,
		Start:            req.Start,
		Type:             appointments.NormalizeType(req.Type),
		Status:           appointments.StatusConfirmed,
		Location:         profile.Office,
		ConfirmationSent: email != "" && e.notifier != nil,
	})
	e.metrics.SetStored(e.store.Len())
	e.mu.Unlock()

	span.SetAttributes(attribute.String("appointments.id", appt.ID.String()))
	e.logger.Info("appointment booked", "appointment_id", appt.ID, "doctor", appt.DoctorName, "start", appt.Start)

	if appt.ConfirmationSent {
		e.notifier.BookingConfirmed(appt)
	}
	return BookResult{Appointment: appt, Message: bookedMessage(appt, profile.Location())}, nil
}

// Cancel removes the appointment at a zero-based position and reports success.
func (e *Engine) Cancel(ctx context.Context, position int) bool {
	_, err := e.CancelAt(ctx, position)
	return err == nil
}

// CancelByID removes the appointment with the given ID and reports success.
func (e *Engine) CancelByID(ctx context.Context, id uuid.UUID) bool {
	_, err := e.CancelAppointment(ctx, id)
	return err == nil
}

// CancelAt removes the appointment at a zero-based position. The returned copy
// has status cancelled.
func (e *Engine) CancelAt(ctx context.Context, position int) (appointments.Appointment, error) {
	return e.cancel(ctx, "cancel_position", func() (appointments.Appointment, error) {
		return e.store.RemoveAt(position)
	})
}

// CancelAppointment removes the appointment with the given ID. The returned copy
// has status cancelled.
func (e *Engine) CancelAppointment(ctx context.Context, id uuid.UUID) (appointments.Appointment, error) {
	return e.cancel(ctx, "cancel_id", func() (appointments.Appointment, error) {
		return e.store.Remove(id)
	})
}

func (e *Engine) cancel(ctx context.Context, op string, remove func() (appointments.Appointment, error)) (appt appointments.Appointment, err error) {
	_, span := e.tracer.Start(ctx, "scheduling."+op)
	defer span.End()
	defer e.observe(op, time.Now(), &err)

	e.mu.Lock()
	appt, err = remove()
	e.metrics.SetStored(e.store.Len())
	e.mu.Unlock()
	if err != nil {
		span.RecordError(err)
		e.logger.Warn("cancel failed", "operation", op, "error", err)
		return appointments.Appointment{}, err
	}

	appt.Status = appointments.StatusCancelled
	e.logger.Info("appointment cancelled", "appointment_id", appt.ID, "doctor", appt.DoctorName)
	if appt.HasEmail() && e.notifier != nil {
		e.notifier.Cancelled(appt)
	}
	return appt, nil
}

// Reschedule moves an existing appointment to NewStart. Only the weekday and
// hours are checked; the move may target any time on the doctor's calendar
// that no other appointment holds. Reminder state is reset.
func (e *Engine) Reschedule(ctx context.Context, req RescheduleRequest) (result RescheduleResult, err error) {
	_, span := e.tracer.Start(ctx, "scheduling.reschedule")
	defer span.End()
	defer e.observe("reschedule", time.Now(), &err)

	if req.NewStart.IsZero() {
		return RescheduleResult{}, appointments.Errorf(appointments.KindInvalidRequest, "Please provide the new date and time.")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	target, err := e.locate(req)
	if err != nil {
		span.RecordError(err)
		return RescheduleResult{}, err
	}

	profile, known := e.directory.LookupOrDefault(target.DoctorName)
	if !known {
		e.logger.Warn("unknown doctor on appointment, using default calendar",
			"appointment_id", target.ID, "doctor", target.DoctorName, "default", profile.Name)
	}
	if err := e.validator.ValidateCalendar(req.NewStart, profile); err != nil {
		return RescheduleResult{}, err
	}
	if e.detector.HasConflict(target.DoctorName, req.NewStart, target.ID) {
		return RescheduleResult{}, conflictError(profile, req.NewStart, FindAlternatives(profile, req.NewStart))
	}

	oldStart := target.Start
	moved, err := e.store.Update(target.ID, func(a *appointments.Appointment) error {
		a.Start = req.NewStart
		a.Status = appointments.StatusRescheduled
		a.ResetReminders()
		return nil
	})
	if err != nil {
		return RescheduleResult{}, fmt.Errorf("scheduling: reschedule: %w", err)
	}

	e.logger.Info("appointment rescheduled", "appointment_id", moved.ID, "from", oldStart, "to", moved.Start)
	return RescheduleResult{
		Appointment: moved,
		OldStart:    oldStart,
		Message:     rescheduledMessage(moved, oldStart, profile.Location(), moved.HasEmail() && e.notifier != nil),
	}, nil
}

// locate finds the reschedule target. Callers hold e.mu.
func (e *Engine) locate(req RescheduleRequest) (appointments.Appointment, error) {
	if req.ID != uuid.Nil {
		appt, err := e.store.Get(req.ID)
		if err != nil {
			return appointments.Appointment{}, err
		}
		return appt, nil
	}

	name := strings.TrimSpace(req.PatientName)
	appt, ok := e.store.Find(func(a appointments.Appointment) bool {
		if !a.Active() || !a.Start.Equal(req.OriginalStart) {
			return false
		}
		return name == "" || strings.EqualFold(a.PatientName, name)
	})
	if ok {
		return appt, nil
	}
	when := req.OriginalStart.In(e.loc).Format(DisplayLayout)
	if name == "" {
		return appointments.Appointment{}, appointments.Errorf(appointments.KindNotFound,
			"I couldn't find an appointment at %s.", when)
	}
	return appointments.Appointment{}, appointments.Errorf(appointments.KindNotFound,
		"I couldn't find an appointment for %s at %s.", name, when)
}

// SetEmail records a patient email supplied after booking. The booking
// confirmation goes out at that point if it never did.
func (e *Engine) SetEmail(ctx context.Context, id uuid.UUID, email string) (appt appointments.Appointment, err error) {
	_, span := e.tracer.Start(ctx, "scheduling.set_email")
	defer span.End()
	defer e.observe("set_email", time.Now(), &err)

	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return appointments.Appointment{}, err
	}

	var confirm bool
	e.mu.Lock()
	appt, err = e.store.Update(id, func(a *appointments.Appointment) error {
		a.PatientEmail = email
		if !a.ConfirmationSent && e.notifier != nil {
			a.ConfirmationSent = true
			confirm = true
		}
		return nil
	})
	e.mu.Unlock()
	if err != nil {
		return appointments.Appointment{}, err
	}
	if confirm {
		e.notifier.BookingConfirmed(appt)
	}
	return appt, nil
}

// List returns all appointments in booking order.
func (e *Engine) List() []appointments.Appointment {
	return e.store.List()
}

// Stats summarises the store in the clinic timezone.
func (e *Engine) Stats() appointments.Stats {
	return e.store.Stats(e.now(), e.loc)
}

func (e *Engine) observe(op string, start time.Time, err *error) {
	outcome := "ok"
	if err != nil && *err != nil {
		outcome = string(appointments.KindOf(*err))
		if outcome == "" {
			outcome = "error"
		}
	}
	e.metrics.ObserveOperation(op, outcome, time.Since(start).Seconds())
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return appointments.Errorf(appointments.KindInvalidRequest, "%q is not a valid email address.", email)
	}
	return nil
}

func conflictError(profile doctors.Profile, start time.Time, alts []time.Time) *appointments.Error {
	loc := profile.Location()
	var b strings.Builder
	fmt.Fprintf(&b, "Sorry, %s already has an appointment at %s.", profile.Name, start.In(loc).Format(DisplayLayout))
	if len(alts) == 0 {
		b.WriteString(" Please choose another time.")
		return &appointments.Error{Kind: appointments.KindConflict, Message: b.String()}
	}
	b.WriteString(" You could try one of these times instead:")
	for _, alt := range alts {
		fmt.Fprintf(&b, "\n- %s", alt.In(loc).Format("Monday, "+DisplayLayout))
	}
	return &appointments.Error{Kind: appointments.KindConflict, Message: b.String()}
}

func bookedMessage(a appointments.Appointment, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("Great! I've booked your appointment with the following details:\n\n")
	fmt.Fprintf(&b, "Patient: %s\n", a.PatientName)
	fmt.Fprintf(&b, "Doctor: %s (%s)\n", a.DoctorName, a.Specialty)
	fmt.Fprintf(&b, "Date & Time: %s\n", a.Start.In(loc).Format("Monday, "+DisplayLayout))
	fmt.Fprintf(&b, "Location: %s\n", a.Location)
	fmt.Fprintf(&b, "Type: %s\n", a.Type)
	b.WriteString("Status: Confirmed\n\n")
	switch {
	case a.ConfirmationSent:
		fmt.Fprintf(&b, "A confirmation email is on its way to %s.", a.PatientEmail)
	case !a.HasEmail():
		b.WriteString("Share an email address if you'd like a confirmation and reminders.")
	default:
		b.WriteString("Email notifications are currently unavailable, so no confirmation will be sent.")
	}
	return b.String()
}

func rescheduledMessage(a appointments.Appointment, oldStart time.Time, loc *time.Location, reminders bool) string {
	var b strings.Builder
	b.WriteString("Appointment rescheduled successfully!\n\nUpdated Details:\n")
	fmt.Fprintf(&b, "- Patient: %s\n", a.PatientName)
	fmt.Fprintf(&b, "- Doctor: %s\n", a.DoctorName)
	fmt.Fprintf(&b, "- Old Time: %s\n", oldStart.In(loc).Format(DisplayLayout))
	fmt.Fprintf(&b, "- New Time: %s\n", a.Start.In(loc).Format(DisplayLayout))
	fmt.Fprintf(&b, "- Location: %s\n", a.Location)
	fmt.Fprintf(&b, "- Type: %s", a.Type)
	if reminders {
		b.WriteString("\n\nYou will receive a new reminder for the updated time.")
	}
	return b.String()
}

// IsUserError reports whether err carries a message meant for the patient.
func IsUserError(err error) bool {
	var e *appointments.Error
	return errors.As(err, &e)
}
