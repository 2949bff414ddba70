package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// Handler exposes appointment listing and the manual booking form over HTTP.
type Handler struct {
	engine *Engine
	logger *logging.Logger
}

// NewHandler creates a new appointments HTTP handler.
func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// Routes returns a chi router with appointment routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Book)
	r.Get("/stats", h.Stats)
	r.Delete("/position/{position}", h.CancelAt)
	r.Delete("/{id}", h.Cancel)
	r.Post("/{id}/reschedule", h.Reschedule)
	r.Put("/{id}/email", h.SetEmail)
	return r
}

// List returns every appointment in booking order.
// GET /appointments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"appointments": h.engine.List()})
}

// Stats returns dashboard counts.
// GET /appointments/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Stats())
}

// BookAppointmentRequest is the manual booking form. Either Start (RFC 3339) or
// Date ("2006-01-02") plus Time ("15:04") in the doctor's timezone is required.
type BookAppointmentRequest struct {
	PatientName string     `json:"patient_name"`
	Doctor      string     `json:"doctor"`
	Start       *time.Time `json:"start,omitempty"`
	Date        string     `json:"date,omitempty"`
	Time        string     `json:"time,omitempty"`
	Type        string     `json:"type,omitempty"`
	Email       string     `json:"email,omitempty"`
}

// Book books through the engine so the form obeys the same rules as chat.
// POST /appointments
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var start time.Time
	switch {
	case req.Start != nil:
		start = *req.Start
	case req.Date != "" && req.Time != "":
		profile, _ := h.engine.Directory().LookupOrDefault(req.Doctor)
		parsed, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.Time, profile.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD and time HH:MM")
			return
		}
		start = parsed
	}

	result, err := h.engine.Book(r.Context(), BookRequest{
		PatientName: req.PatientName,
		Doctor:      req.Doctor,
		Start:       start,
		Type:        req.Type,
		Email:       req.Email,
	})
	if err != nil {
		h.writeEngineError(w, err, result.Alternatives)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Cancel removes an appointment by ID.
// DELETE /appointments/{id}
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	appt, err := h.engine.CancelAppointment(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// CancelAt removes an appointment by its one-based position in the list.
// DELETE /appointments/position/{position}
func (h *Handler) CancelAt(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "position must be a number")
		return
	}
	appt, err := h.engine.CancelAt(r.Context(), position-1)
	if err != nil {
		h.writeEngineError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type rescheduleBody struct {
	NewStart time.Time `json:"new_start"`
}

// Reschedule moves an appointment.
// POST /appointments/{id}/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var body rescheduleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := h.engine.Reschedule(r.Context(), RescheduleRequest{ID: id, NewStart: body.NewStart})
	if err != nil {
		h.writeEngineError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type emailBody struct {
	Email string `json:"email"`
}

// SetEmail attaches a patient email to an existing appointment.
// PUT /appointments/{id}/email
func (h *Handler) SetEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var body emailBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	appt, err := h.engine.SetEmail(r.Context(), id, body.Email)
	if err != nil {
		h.writeEngineError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error, alternatives []time.Time) {
	var apptErr *appointments.Error
	if !errors.As(err, &apptErr) {
		h.logger.Error("appointment request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	status := statusForKind(apptErr.Kind)
	body := map[string]any{"error": apptErr.Message, "kind": apptErr.Kind}
	if len(alternatives) > 0 {
		body["alternatives"] = alternatives
	}
	writeJSON(w, status, body)
}

func statusForKind(kind appointments.Kind) int {
	switch kind {
	case appointments.KindConflict:
		return http.StatusConflict
	case appointments.KindNotFound, appointments.KindIndexOutOfRange:
		return http.StatusNotFound
	case appointments.KindInvalidRequest, appointments.KindPastTime, appointments.KindDayUnavailable, appointments.KindOutsideHours:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
