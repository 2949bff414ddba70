package conversation

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// Handler wires HTTP requests to the orchestrator.
type Handler struct {
	orchestrator *Orchestrator
	logger       *logging.Logger
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// NewHandler creates a chat handler.
func NewHandler(orchestrator *Orchestrator, logger *logging.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		logger:       logger.Component("chat_handler"),
	}
}

// Routes mounts under /chat.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Message)
	r.Get("/{sessionID}/history", h.History)
	return r
}

// Message handles POST /chat.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	reply := h.orchestrator.Handle(r.Context(), strings.TrimSpace(req.SessionID), req.Message)
	h.writeJSON(w, http.StatusOK, reply)
}

// History handles GET /chat/{sessionID}/history?limit=N.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	messages, err := h.orchestrator.Transcripts().List(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("failed to load chat history", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   messages,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
