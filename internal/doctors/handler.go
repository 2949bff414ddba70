package doctors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// Handler serves the roster read-only.
type Handler struct {
	directory *Directory
	logger    *logging.Logger
}

// NewHandler creates a roster HTTP handler.
func NewHandler(directory *Directory, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{directory: directory, logger: logger}
}

// Routes returns a chi router with roster routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{name}", h.Get)
	return r
}

// List returns every doctor.
// GET /doctors
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, map[string]any{"doctors": h.directory.List()})
}

// Get returns one doctor by name.
// GET /doctors/{name}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.directory.Lookup(chi.URLParam(r, "name"))
	if errors.Is(err, ErrDoctorNotFound) {
		h.write(w, http.StatusNotFound, map[string]string{"error": "doctor not found"})
		return
	}
	h.write(w, http.StatusOK, p)
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode roster response", "error", err)
	}
}
