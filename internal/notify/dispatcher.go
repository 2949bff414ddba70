// Package notify sends patient emails for bookings, cancellations and upcoming
// appointments.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
	"github.com/wolfman30/appointment-assistant/internal/observability/metrics"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

const defaultSendTimeout = 10 * time.Second

// DispatcherConfig tunes message formatting and delivery.
type DispatcherConfig struct {
	// Location renders appointment times in emails. Defaults to UTC.
	Location *time.Location
	Timeout  time.Duration
	Links    Links
}

// Dispatcher formats patient emails and hands them to an EmailSender. Sends
// never return errors: failures are logged and reported as false. A nil sender
// disables delivery entirely.
type Dispatcher struct {
	email   EmailSender
	cfg     DispatcherConfig
	metrics *metrics.SchedulingMetrics
	logger  *logging.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Pass a nil sender when no mail transport
// is configured.
func NewDispatcher(email EmailSender, cfg DispatcherConfig, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	return &Dispatcher{email: email, cfg: cfg, logger: logger.Component("notify")}
}

// WithMetrics attaches prometheus metrics.
func (d *Dispatcher) WithMetrics(m *metrics.SchedulingMetrics) *Dispatcher {
	d.metrics = m
	return d
}

// Enabled reports whether a transport is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.email != nil
}

// SendBookingConfirmation emails the booking details to the patient.
func (d *Dispatcher) SendBookingConfirmation(ctx context.Context, appt appointments.Appointment) bool {
	return d.send(ctx, "confirmation", appt, func() EmailMessage {
		return bookingConfirmationEmail(appt, d.cfg.Location)
	})
}

// SendCancellationConfirmation tells the patient the appointment was cancelled.
func (d *Dispatcher) SendCancellationConfirmation(ctx context.Context, appt appointments.Appointment) bool {
	return d.send(ctx, "cancellation", appt, func() EmailMessage {
		return cancellationEmail(appt, d.cfg.Location, d.cfg.Links)
	})
}

// SendReminder emails the reminder for one window.
func (d *Dispatcher) SendReminder(ctx context.Context, appt appointments.Appointment, window appointments.ReminderWindow) bool {
	return d.send(ctx, "reminder_"+string(window), appt, func() EmailMessage {
		return reminderEmail(appt, window, d.cfg.Location, d.cfg.Links)
	})
}

func (d *Dispatcher) send(ctx context.Context, kind string, appt appointments.Appointment, build func() EmailMessage) bool {
	if !d.Enabled() {
		return false
	}
	if !appt.HasEmail() {
		d.logger.Debug("skipping email, no patient address", "kind", kind, "appointment_id", appt.ID)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	msg := build()
	msg.Category = kind
	msg.AppointmentID = appt.ID.String()
	if err := d.email.Send(ctx, msg); err != nil {
		d.logger.Error("email delivery failed",
			"kind", kind,
			"appointment_id", appt.ID,
			"error_kind", appointments.KindTransportFailure,
			"error", err,
		)
		d.metrics.ObserveNotification(kind, false)
		return false
	}
	d.logger.Info("email sent", "kind", kind, "appointment_id", appt.ID)
	d.metrics.ObserveNotification(kind, true)
	return true
}

// BookingConfirmed sends the confirmation in the background.
func (d *Dispatcher) BookingConfirmed(appt appointments.Appointment) {
	d.async(func(ctx context.Context) { d.SendBookingConfirmation(ctx, appt) })
}

// Cancelled sends the cancellation notice in the background.
func (d *Dispatcher) Cancelled(appt appointments.Appointment) {
	d.async(func(ctx context.Context) { d.SendCancellationConfirmation(ctx, appt) })
}

func (d *Dispatcher) async(fn func(ctx context.Context)) {
	if !d.Enabled() {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn(context.Background())
	}()
}

// Wait blocks until background sends finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
