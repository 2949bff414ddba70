package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for booking, notification and chat flows.
type SchedulingMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationLatency  *prometheus.HistogramVec
	appointments      prometheus.Gauge
	notificationsSent *prometheus.CounterVec
	reminderScans     *prometheus.CounterVec
	chatIntents       *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointments",
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Scheduling operations by outcome (ok or error kind)",
		}, []string{"operation", "outcome"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "appointments",
			Subsystem: "scheduling",
			Name:      "operation_latency_seconds",
			Help:      "Latency of scheduling operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		appointments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "appointments",
			Subsystem: "scheduling",
			Name:      "stored",
			Help:      "Appointments currently held in the store",
		}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointments",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Notification emails by kind and status",
		}, []string{"kind", "status"}),
		reminderScans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointments",
			Subsystem: "notify",
			Name:      "reminder_scans_total",
			Help:      "Reminder scans by result",
		}, []string{"result"}),
		chatIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointments",
			Subsystem: "chat",
			Name:      "intents_total",
			Help:      "Classified chat messages by intent",
		}, []string{"intent"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.operationLatency, m.appointments, m.notificationsSent, m.reminderScans, m.chatIntents)
	return m
}

func (m *SchedulingMetrics) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationLatency.WithLabelValues(operation).Observe(seconds)
}

func (m *SchedulingMetrics) SetStored(n int) {
	if m == nil {
		return
	}
	m.appointments.Set(float64(n))
}

func (m *SchedulingMetrics) ObserveNotification(kind string, sent bool) {
	if m == nil {
		return
	}
	status := "failed"
	if sent {
		status = "sent"
	}
	m.notificationsSent.WithLabelValues(kind, status).Inc()
}

// ObserveReminderScan records a scan; shared marks a call that joined a scan already in flight.
func (m *SchedulingMetrics) ObserveReminderScan(shared bool) {
	if m == nil {
		return
	}
	result := "ran"
	if shared {
		result = "shared"
	}
	m.reminderScans.WithLabelValues(result).Inc()
}

func (m *SchedulingMetrics) ObserveChatIntent(intent string) {
	if m == nil {
		return
	}
	m.chatIntents.WithLabelValues(intent).Inc()
}
