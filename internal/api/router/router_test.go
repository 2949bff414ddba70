package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
	"github.com/wolfman30/appointment-assistant/internal/availability"
	"github.com/wolfman30/appointment-assistant/internal/conversation"
	"github.com/wolfman30/appointment-assistant/internal/doctors"
	httpmiddleware "github.com/wolfman30/appointment-assistant/internal/http/middleware"
	"github.com/wolfman30/appointment-assistant/internal/observability/metrics"
	"github.com/wolfman30/appointment-assistant/internal/scheduling"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := func() time.Time { return time.Date(2026, 1, 5, 8, 0, 0, 0, loc) }

	logger := logging.Default()
	reg := prometheus.NewRegistry()
	m := metrics.NewSchedulingMetrics(reg)
	directory := doctors.BuiltIn()
	engine := scheduling.NewEngine(appointments.NewStore().WithClock(now), directory, availability.NewValidator().WithClock(now), logger).
		WithMetrics(m).
		WithLocation(loc).
		WithClock(now)
	orch := conversation.NewOrchestrator(conversation.NewKeywordClassifier(loc), engine, directory, logger).
		WithMetrics(m).
		WithLocation(loc).
		WithClock(now)

	return &Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(orch, logger),
		DoctorsHandler:      doctors.NewHandler(directory, logger),
		SchedulingHandler:   scheduling.NewHandler(engine, logger),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := New(newTestConfig(t))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterHealthReportsDegraded(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Ready = func(context.Context) error { return errors.New("redis down") }
	router := New(cfg)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "redis down")
}

func TestRouterChatBooksThroughEngine(t *testing.T) {
	router := New(newTestConfig(t))

	body, _ := json.Marshal(map[string]string{
		"session_id": "router-1",
		"message":    "Book an appointment for Jane Doe with Dr. Smith on 2026-01-07 10:00",
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var reply conversation.Reply
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&reply))
	assert.Equal(t, "router-1", reply.SessionID)
	require.NotNil(t, reply.Appointment, reply.Text)
	assert.Equal(t, "Dr. Smith", reply.Appointment.DoctorName)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/appointments", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Jane Doe")
}

func TestRouterChatHistoryRoute(t *testing.T) {
	router := New(newTestConfig(t))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chat/abc/history", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"session_id":"abc"`)
}

func TestRouterDoctorsRoutes(t *testing.T) {
	router := New(newTestConfig(t))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/doctors", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Dr. Johnson")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/doctors/Dr.%20Nobody", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := New(newTestConfig(t))

	body, _ := json.Marshal(map[string]string{"session_id": "m", "message": "hello"})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body)))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "appointments_chat_intents_total")
}

func TestRouterChatRateLimited(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.ChatLimiter = httpmiddleware.NewRateLimiter(0.001, 1)
	router := New(cfg)

	send := func() int {
		body, _ := json.Marshal(map[string]string{"session_id": "rl", "message": "hello"})
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
		req.RemoteAddr = "203.0.113.9:4000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/doctors", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterOmitsUnconfiguredHandlers(t *testing.T) {
	router := New(&Config{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/appointments", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
