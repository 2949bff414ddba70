// Package conversation turns chat messages into scheduling calls. A classifier
// maps text onto a closed Intent variant and the Orchestrator routes each
// intent through intake, doctor matching and scheduling.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
	"github.com/wolfman30/appointment-assistant/internal/doctors"
	"github.com/wolfman30/appointment-assistant/internal/observability/metrics"
	"github.com/wolfman30/appointment-assistant/internal/scheduling"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

const (
	defaultSessionTTL = 30 * time.Minute

	helpText = "I can help you with:\n" +
		"1. Booking appointments\n" +
		"2. Checking doctor availability\n" +
		"3. Showing available doctors\n" +
		"4. Rescheduling appointments\n" +
		"5. Canceling appointments\n\n" +
		"What would you like to do?"

	genericFailure = "Sorry, something went wrong while handling your request. Please try again."
)

// Scheduler is the part of the scheduling engine the chat path drives.
type Scheduler interface {
	Book(ctx context.Context, req scheduling.BookRequest) (scheduling.BookResult, error)
	CancelAt(ctx context.Context, position int) (appointments.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID) (appointments.Appointment, error)
	Reschedule(ctx context.Context, req scheduling.RescheduleRequest) (scheduling.RescheduleResult, error)
	List() []appointments.Appointment
	NotificationsEnabled() bool
}

// Reply is the assistant's answer to one message.
type Reply struct {
	SessionID    string                    `json:"session_id"`
	Text         string                    `json:"text"`
	Intent       IntentKind                `json:"intent"`
	Appointment  *appointments.Appointment `json:"appointment,omitempty"`
	Alternatives []time.Time               `json:"alternatives,omitempty"`
}

type session struct {
	pending *BookIntent
	touched time.Time
}

// Orchestrator answers chat messages. Sessions only remember a partially
// collected booking; appointments themselves live in the scheduler.
type Orchestrator struct {
	classifier  Classifier
	scheduler   Scheduler
	directory   *doctors.Directory
	transcripts *TranscriptStore
	metrics     *metrics.SchedulingMetrics
	logger      *logging.Logger
	loc         *time.Location
	now         func() time.Time
	ttl         time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func NewOrchestrator(classifier Classifier, scheduler Scheduler, directory *doctors.Directory, logger *logging.Logger) *Orchestrator {
	if classifier == nil {
		classifier = NewKeywordClassifier(nil)
	}
	return &Orchestrator{
		classifier: classifier,
		scheduler:  scheduler,
		directory:  directory,
		logger:     logger.Component("conversation"),
		loc:        time.UTC,
		now:        time.Now,
		ttl:        defaultSessionTTL,
		sessions:   make(map[string]*session),
	}
}

// WithTranscripts records every turn in store.
func (o *Orchestrator) WithTranscripts(store *TranscriptStore) *Orchestrator {
	o.transcripts = store
	return o
}

func (o *Orchestrator) WithMetrics(m *metrics.SchedulingMetrics) *Orchestrator {
	o.metrics = m
	return o
}

// WithLocation sets the zone used when listing appointments.
func (o *Orchestrator) WithLocation(loc *time.Location) *Orchestrator {
	if loc != nil {
		o.loc = loc
	}
	return o
}

func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	if now != nil {
		o.now = now
	}
	return o
}

// WithSessionTTL sets how long an unfinished booking is remembered.
func (o *Orchestrator) WithSessionTTL(ttl time.Duration) *Orchestrator {
	if ttl > 0 {
		o.ttl = ttl
	}
	return o
}

// Transcripts returns the configured transcript store, possibly nil.
func (o *Orchestrator) Transcripts() *TranscriptStore {
	return o.transcripts
}

// Handle classifies text and performs the requested action. It always
// produces a reply; failures become explanatory text.
func (o *Orchestrator) Handle(ctx context.Context, sessionID, text string) Reply {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	text = strings.TrimSpace(text)
	o.record(ctx, sessionID, ChatRoleUser, text, "")

	var reply Reply
	if text == "" {
		reply = Reply{Text: helpText, Intent: IntentOther}
	} else {
		intent, err := o.classifier.Classify(ctx, text)
		if err != nil || intent == nil {
			o.logger.Warn("classification failed", "session_id", sessionID, "error", err)
			intent = OtherIntent{Text: text}
		}
		reply = o.route(ctx, sessionID, intent)
	}
	reply.SessionID = sessionID

	o.metrics.ObserveChatIntent(string(reply.Intent))
	o.record(ctx, sessionID, ChatRoleAssistant, reply.Text, reply.Intent)
	return reply
}

func (o *Orchestrator) route(ctx context.Context, sessionID string, intent Intent) Reply {
	switch in := intent.(type) {
	case BookIntent:
		return o.book(ctx, sessionID, in)
	case CancelIntent:
		return o.cancel(ctx, in)
	case RescheduleIntent:
		return o.reschedule(ctx, in)
	case ListAvailabilityIntent:
		return o.availability(in)
	case ListDoctorsIntent:
		return Reply{Text: o.doctorList(), Intent: IntentListDoctors}
	default:
		return Reply{Text: helpText, Intent: IntentOther}
	}
}

// book is the intake role: it merges the new fields into any pending
// booking, asks for what is missing, then matches a doctor and books.
func (o *Orchestrator) book(ctx context.Context, sessionID string, in BookIntent) Reply {
	req := o.takePending(sessionID).merge(in)
	if missing := req.Missing(); len(missing) > 0 {
		o.keepPending(sessionID, req)
		return Reply{Text: intakePrompt(req, missing), Intent: IntentBook}
	}

	var prefix string
	if req.Doctor == "" {
		rec := o.directory.Recommend(req.Symptoms)
		req.Doctor = rec.Doctor.Name
		prefix = fmt.Sprintf("Based on your request (%s), I recommend %s (%s).\n\n", rec.Reason, rec.Doctor.Name, rec.Doctor.Specialty)
	}

	result, err := o.scheduler.Book(ctx, scheduling.BookRequest{
		PatientName: req.PatientName,
		Doctor:      req.Doctor,
		Start:       req.Start,
		Type:        req.Type,
		Email:       req.Email,
	})
	if err != nil {
		// Drop only the rejected field so the next message can replace it.
		switch appointments.KindOf(err) {
		case appointments.KindInvalidRequest:
			req.Email = ""
		case appointments.KindNotFound:
			req.Doctor = ""
		default:
			req.Start = time.Time{}
		}
		o.keepPending(sessionID, req)
		return Reply{Text: prefix + o.userText(err), Intent: IntentBook, Alternatives: result.Alternatives}
	}
	appt := result.Appointment
	return Reply{Text: prefix + result.Message, Intent: IntentBook, Appointment: &appt}
}

func intakePrompt(req BookIntent, missing []string) string {
	var b strings.Builder
	b.WriteString("I'll help you book an appointment. Please provide:\n")
	n := 1
	for _, field := range missing {
		switch field {
		case "date and time":
			fmt.Fprintf(&b, "%d. Your preferred date and time (for example 2026-01-06 11:00)\n", n)
		case "name":
			fmt.Fprintf(&b, "%d. Your name\n", n)
		}
		n++
	}
	if req.Doctor == "" {
		fmt.Fprintf(&b, "%d. Doctor preference (if any)\n", n)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (o *Orchestrator) cancel(ctx context.Context, in CancelIntent) Reply {
	var (
		appt appointments.Appointment
		err  error
	)
	switch {
	case in.ID != uuid.Nil:
		appt, err = o.scheduler.CancelAppointment(ctx, in.ID)
	case in.Position > 0:
		appt, err = o.scheduler.CancelAt(ctx, in.Position-1)
	default:
		return Reply{Text: o.appointmentList(), Intent: IntentCancel}
	}
	if err != nil {
		return Reply{Text: o.userText(err), Intent: IntentCancel}
	}

	text := fmt.Sprintf("Your appointment with %s on %s has been cancelled.",
		appt.DoctorName, appt.Start.In(o.loc).Format(scheduling.DisplayLayout))
	if appt.HasEmail() && o.scheduler.NotificationsEnabled() {
		text += fmt.Sprintf(" A cancellation confirmation will be sent to %s.", appt.PatientEmail)
	}
	return Reply{Text: text, Intent: IntentCancel, Appointment: &appt}
}

func (o *Orchestrator) appointmentList() string {
	list := o.scheduler.List()
	if len(list) == 0 {
		return "You don't have any appointments scheduled. Would you like to book one?"
	}
	var b strings.Builder
	b.WriteString("Here are the current appointments:\n\n")
	for i, a := range list {
		fmt.Fprintf(&b, "%d. %s with %s on %s (%s)\n", i+1, a.PatientName, a.DoctorName,
			a.Start.In(o.loc).Format(scheduling.DisplayLayout), a.Type)
	}
	b.WriteString("\nReply with \"cancel <number>\" to cancel one of them.")
	return b.String()
}

func (o *Orchestrator) reschedule(ctx context.Context, in RescheduleIntent) Reply {
	if in.NewStart.IsZero() {
		return Reply{
			Text:   "Please tell me the current and new times, for example: reschedule 2026-01-06 11:00 to 2026-01-08 14:00.",
			Intent: IntentReschedule,
		}
	}
	req := scheduling.RescheduleRequest{
		PatientName:   in.PatientName,
		OriginalStart: in.OriginalStart,
		NewStart:      in.NewStart,
	}
	if in.OriginalStart.IsZero() {
		// Without the current time we can only act when the target is unambiguous.
		var matches []appointments.Appointment
		for _, a := range o.scheduler.List() {
			if in.PatientName == "" || strings.EqualFold(a.PatientName, in.PatientName) {
				matches = append(matches, a)
			}
		}
		if len(matches) != 1 {
			return Reply{
				Text:   "Which appointment should I move? Please include its current date and time, for example: reschedule 2026-01-06 11:00 to 2026-01-08 14:00.",
				Intent: IntentReschedule,
			}
		}
		req.ID = matches[0].ID
	}

	result, err := o.scheduler.Reschedule(ctx, req)
	if err != nil {
		return Reply{Text: o.userText(err), Intent: IntentReschedule}
	}
	appt := result.Appointment
	return Reply{Text: result.Message, Intent: IntentReschedule, Appointment: &appt}
}

func (o *Orchestrator) availability(in ListAvailabilityIntent) Reply {
	profile, err := o.directory.Lookup(in.Doctor)
	if err != nil {
		return Reply{
			Text: fmt.Sprintf("I couldn't find a doctor named %s. Available doctors: %s.",
				in.Doctor, strings.Join(o.directory.Names(), ", ")),
			Intent: IntentListAvailability,
		}
	}
	return Reply{
		Text: fmt.Sprintf("%s (%s) is available on %s from %s at %s.",
			profile.Name, profile.Specialty, profile.DaysList(), profile.HoursLabel(), profile.Office),
		Intent: IntentListAvailability,
	}
}

func (o *Orchestrator) doctorList() string {
	var b strings.Builder
	b.WriteString("Available Doctors:\n")
	for _, p := range o.directory.List() {
		fmt.Fprintf(&b, "\n- %s\n  Specialty: %s\n  Schedule: %s (%s)\n  Location: %s\n",
			p.Name, p.Specialty, p.DaysList(), p.HoursLabel(), p.Office)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (o *Orchestrator) userText(err error) string {
	if scheduling.IsUserError(err) {
		return err.Error()
	}
	o.logger.Error("scheduling call failed", "error", err)
	return genericFailure
}

func (o *Orchestrator) takePending(sessionID string) BookIntent {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pruneLocked()
	s, ok := o.sessions[sessionID]
	if !ok || s.pending == nil {
		return BookIntent{}
	}
	pending := *s.pending
	delete(o.sessions, sessionID)
	return pending
}

func (o *Orchestrator) keepPending(sessionID string, b BookIntent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions[sessionID] = &session{pending: &b, touched: o.now()}
}

func (o *Orchestrator) pruneLocked() {
	cutoff := o.now().Add(-o.ttl)
	for id, s := range o.sessions {
		if s.touched.Before(cutoff) {
			delete(o.sessions, id)
		}
	}
}

func (o *Orchestrator) record(ctx context.Context, sessionID, role, body string, intent IntentKind) {
	if o.transcripts == nil {
		return
	}
	err := o.transcripts.Append(ctx, sessionID, TranscriptMessage{
		Role:      role,
		Body:      body,
		Intent:    intent,
		Timestamp: o.now().UTC(),
	})
	if err != nil {
		o.logger.Warn("transcript append failed", "session_id", sessionID, "error", err)
	}
}
