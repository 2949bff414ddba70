package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []EmailMessage
	err      error
	deadline bool
	block    chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, msg EmailMessage) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) messages() []EmailMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EmailMessage(nil), f.sent...)
}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func sampleAppointment(loc *time.Location) appointments.Appointment {
	return appointments.Appointment{
		ID:           uuid.New(),
		PatientName:  "Alice",
		PatientEmail: "alice@example.com",
		DoctorName:   "Dr. Johnson",
		Start:        time.Date(2026, 1, 6, 11, 0, 0, 0, loc),
		Type:         appointments.TypeConsultation,
		Status:       appointments.StatusConfirmed,
		Location:     "Cardiac Wing, Room 205",
	}
}

func TestDispatcherDisabledWithoutSender(t *testing.T) {
	d := NewDispatcher(nil, DispatcherConfig{}, nil)
	assert.False(t, d.Enabled())
	assert.False(t, d.SendBookingConfirmation(context.Background(), sampleAppointment(time.UTC)))
	d.BookingConfirmed(sampleAppointment(time.UTC))
	d.Wait()
}

func TestSendBookingConfirmation(t *testing.T) {
	loc := newYork(t)
	sender := &fakeSender{}
	d := NewDispatcher(sender, DispatcherConfig{Location: loc}, nil)

	appt := sampleAppointment(loc)
	ok := d.SendBookingConfirmation(context.Background(), appt)
	require.True(t, ok)
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice@example.com", msgs[0].To)
	assert.Equal(t, "Appointment Confirmation", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "January 06, 2026")
	assert.Contains(t, msgs[0].Body, "11:00 AM")
	assert.Contains(t, msgs[0].HTML, "Cardiac Wing, Room 205")
	assert.Equal(t, "confirmation", msgs[0].Category)
	assert.Equal(t, appt.ID.String(), msgs[0].AppointmentID)
	assert.True(t, sender.deadline, "send should run under a timeout")
}

func TestSendSkipsAppointmentsWithoutEmail(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, DispatcherConfig{}, nil)
	appt := sampleAppointment(time.UTC)
	appt.PatientEmail = ""

	assert.False(t, d.SendReminder(context.Background(), appt, appointments.ReminderHourBefore))
	assert.Empty(t, sender.messages())
}

func TestSendSwallowsTransportErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	d := NewDispatcher(sender, DispatcherConfig{}, nil)
	assert.False(t, d.SendCancellationConfirmation(context.Background(), sampleAppointment(time.UTC)))
}

func TestCancellationAndReminderLinks(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, DispatcherConfig{Links: Links{
		CancelURL:     "https://clinic.example.com/cancel",
		RescheduleURL: "https://clinic.example.com/reschedule",
	}}, nil)
	appt := sampleAppointment(time.UTC)

	require.True(t, d.SendCancellationConfirmation(context.Background(), appt))
	require.True(t, d.SendReminder(context.Background(), appt, appointments.ReminderHourBefore))
	require.True(t, d.SendReminder(context.Background(), appt, appointments.ReminderDayBefore))

	msgs := sender.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Appointment Cancellation Confirmation", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "https://clinic.example.com/reschedule")
	assert.Equal(t, "Appointment Reminder - 1 Hour Before", msgs[1].Subject)
	assert.Contains(t, msgs[1].HTML, `href="https://clinic.example.com/cancel"`)
	assert.Equal(t, "Appointment Reminder - 24 Hours Before", msgs[2].Subject)
	assert.Contains(t, msgs[2].Body, "tomorrow")
}

func TestHTMLEscapesPatientInput(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, DispatcherConfig{}, nil)
	appt := sampleAppointment(time.UTC)
	appt.PatientName = "<script>alert(1)</script>"

	require.True(t, d.SendBookingConfirmation(context.Background(), appt))
	html := sender.messages()[0].HTML
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestAsyncNotificationsAreTracked(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, DispatcherConfig{}, nil)
	appt := sampleAppointment(time.UTC)

	d.BookingConfirmed(appt)
	d.Cancelled(appt)
	d.Wait()

	msgs := sender.messages()
	require.Len(t, msgs, 2)
	subjects := []string{msgs[0].Subject, msgs[1].Subject}
	assert.ElementsMatch(t, []string{"Appointment Confirmation", "Appointment Cancellation Confirmation"}, subjects)
}
