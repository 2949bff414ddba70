package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/appointment-assistant/internal/conversation"
	"github.com/wolfman30/appointment-assistant/internal/doctors"
	httpmiddleware "github.com/wolfman30/appointment-assistant/internal/http/middleware"
	"github.com/wolfman30/appointment-assistant/internal/scheduling"
	"github.com/wolfman30/appointment-assistant/internal/webchat"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	WebChat             *webchat.Handler
	DoctorsHandler      *doctors.Handler
	SchedulingHandler   *scheduling.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// ChatLimiter throttles the chat endpoints per client IP. Nil disables it.
	ChatLimiter *httpmiddleware.RateLimiter

	// Ready is probed by /health when set, typically a Redis ping.
	Ready func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.Ready))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(chat chi.Router) {
		if cfg.ChatLimiter != nil {
			chat.Use(httpmiddleware.RateLimit(cfg.ChatLimiter))
		}
		if cfg.WebChat != nil {
			chat.Get("/chat/ws", cfg.WebChat.HandleWebSocket)
		}
		if cfg.ConversationHandler != nil {
			chat.Post("/chat", cfg.ConversationHandler.Message)
			chat.Get("/chat/{sessionID}/history", cfg.ConversationHandler.History)
		}
	})

	if cfg.DoctorsHandler != nil {
		r.Mount("/doctors", cfg.DoctorsHandler.Routes())
	}
	if cfg.SchedulingHandler != nil {
		r.Mount("/appointments", cfg.SchedulingHandler.Routes())
	}

	return r
}

func healthHandler(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body = map[string]string{"status": "degraded", "error": err.Error()}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
