package notify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
	"github.com/wolfman30/appointment-assistant/internal/observability/metrics"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

const (
	defaultScanInterval = 5 * time.Minute
	defaultTolerance    = 5 * time.Minute
)

// ReminderSender delivers one reminder and reports success.
type ReminderSender interface {
	SendReminder(ctx context.Context, appt appointments.Appointment, window appointments.ReminderWindow) bool
}

type reminderWindow struct {
	window appointments.ReminderWindow
	lead   time.Duration
}

var reminderWindows = []reminderWindow{
	{window: appointments.ReminderDayBefore, lead: 24 * time.Hour},
	{window: appointments.ReminderHourBefore, lead: time.Hour},
}

// ReminderScanner periodically looks for appointments entering a reminder
// window and sends each window's reminder at most once. Scans never overlap:
// a RunOnce that arrives while a scan is in flight joins it.
type ReminderScanner struct {
	store     *appointments.Store
	sender    ReminderSender
	interval  time.Duration
	tolerance time.Duration
	now       func() time.Time
	group     singleflight.Group
	metrics   *metrics.SchedulingMetrics
	logger    *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReminderScanner creates a scanner over store.
func NewReminderScanner(store *appointments.Store, sender ReminderSender, logger *logging.Logger) *ReminderScanner {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReminderScanner{
		store:     store,
		sender:    sender,
		interval:  defaultScanInterval,
		tolerance: defaultTolerance,
		now:       time.Now,
		logger:    logger.Component("reminders"),
	}
}

// WithInterval sets how often the store is scanned.
func (s *ReminderScanner) WithInterval(d time.Duration) *ReminderScanner {
	if d > 0 {
		s.interval = d
	}
	return s
}

// WithTolerance sets how far either side of a window's lead time still counts as due.
func (s *ReminderScanner) WithTolerance(d time.Duration) *ReminderScanner {
	if d > 0 {
		s.tolerance = d
	}
	return s
}

// WithClock overrides the clock, mainly for tests.
func (s *ReminderScanner) WithClock(now func() time.Time) *ReminderScanner {
	if now != nil {
		s.now = now
	}
	return s
}

// WithMetrics attaches prometheus metrics.
func (s *ReminderScanner) WithMetrics(m *metrics.SchedulingMetrics) *ReminderScanner {
	s.metrics = m
	return s
}

// Start launches the scan loop in the background. Calling Start while the
// loop is running is a no-op.
func (s *ReminderScanner) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		select {
		case <-s.done:
			// The loop ended with its parent context; start a fresh one.
			s.cancel()
		default:
			return
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("starting reminder scanner", "interval", s.interval.String(), "tolerance", s.tolerance.String())
	go s.loop(ctx, s.done)
}

// Stop cancels the loop and waits for any in-flight scan to finish. The
// scanner can be started again afterwards.
func (s *ReminderScanner) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("reminder scanner stopped")
}

func (s *ReminderScanner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single scan and returns the number of reminders sent.
func (s *ReminderScanner) RunOnce(ctx context.Context) int {
	v, _, shared := s.group.Do("scan", func() (any, error) {
		return s.scan(ctx), nil
	})
	s.metrics.ObserveReminderScan(shared)
	return v.(int)
}

func (s *ReminderScanner) scan(ctx context.Context) int {
	now := s.now()
	sent := 0
	for _, appt := range s.store.List() {
		if ctx.Err() != nil {
			break
		}
		if !appt.Active() || !appt.HasEmail() {
			continue
		}
		until := appt.Start.Sub(now)
		for _, w := range reminderWindows {
			if appt.ReminderSentFor(w.window) || !s.due(until, w.lead) {
				continue
			}
			if !s.sender.SendReminder(ctx, appt, w.window) {
				continue
			}
			if !s.store.MarkReminderSent(appt.ID, w.window, appt.Start) {
				s.logger.Warn("reminder sent but appointment changed before it was recorded",
					"appointment_id", appt.ID, "window", w.window)
				continue
			}
			sent++
			s.logger.Info("reminder sent", "appointment_id", appt.ID, "window", w.window)
		}
	}
	return sent
}

func (s *ReminderScanner) due(until, lead time.Duration) bool {
	return until >= lead-s.tolerance && until <= lead+s.tolerance
}
