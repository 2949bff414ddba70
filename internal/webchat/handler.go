// Package webchat serves the browser chat over a WebSocket. Each text frame
// is answered synchronously by the conversation orchestrator.
package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/appointment-assistant/internal/appointments"
	"github.com/wolfman30/appointment-assistant/internal/conversation"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

const historyReplayLimit = 50

// Responder answers one chat message.
type Responder interface {
	Handle(ctx context.Context, sessionID, text string) conversation.Reply
}

// HistoryReader reads stored chat turns.
type HistoryReader interface {
	List(ctx context.Context, sessionID string, limit int64) ([]conversation.TranscriptMessage, error)
}

// Handler manages web chat connections.
type Handler struct {
	responder Responder
	history   HistoryReader
	logger    *logging.Logger

	mu     sync.Mutex
	conns  map[*wsConn]struct{}
	closed bool
}

// wsConn serializes writes; the read loop and Shutdown share the socket.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.conn, msg)
}

// InboundMessage is what the browser sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the browser.
type OutboundMessage struct {
	Type         string                    `json:"type"` // "session", "history", "typing", "message", "pong", "error", "closing"
	Text         string                    `json:"text,omitempty"`
	Role         string                    `json:"role,omitempty"`
	Intent       string                    `json:"intent,omitempty"`
	SessionID    string                    `json:"session_id,omitempty"`
	Timestamp    string                    `json:"timestamp,omitempty"`
	Appointment  *appointments.Appointment `json:"appointment,omitempty"`
	Alternatives []time.Time               `json:"alternatives,omitempty"`
	Messages     []HistoryMessage          `json:"messages,omitempty"`
}

// HistoryMessage is a replayed transcript entry.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler. history may be nil.
func NewHandler(responder Responder, history HistoryReader, logger *logging.Logger) *Handler {
	return &Handler{
		responder: responder,
		history:   history,
		logger:    logger.Component("webchat"),
		conns:     make(map[*wsConn]struct{}),
	}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket serves GET /chat/ws?session=<id>.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	wsc := &wsConn{conn: conn}
	if !h.register(wsc) {
		_ = wsc.send(OutboundMessage{Type: "closing", Text: "server is shutting down"})
		return
	}
	defer h.unregister(wsc)

	_ = wsc.send(OutboundMessage{Type: "session", SessionID: sessionID})
	if history := h.loadHistory(ctx, sessionID); len(history) > 0 {
		_ = wsc.send(OutboundMessage{Type: "history", SessionID: sessionID, Messages: history})
	}

	h.logger.Info("connection opened", "session_id", sessionID)
	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("connection closed", "session_id", sessionID, "error", err)
			return
		}
		switch msg.Type {
		case "ping":
			_ = wsc.send(OutboundMessage{Type: "pong"})
		case "message":
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			h.processMessage(ctx, wsc, sessionID, msg.Text)
		default:
			_ = wsc.send(OutboundMessage{Type: "error", Text: "unsupported message type"})
		}
	}
}

func (h *Handler) processMessage(ctx context.Context, wsc *wsConn, sessionID, text string) {
	_ = wsc.send(OutboundMessage{Type: "typing"})
	reply := h.responder.Handle(ctx, sessionID, text)
	err := wsc.send(OutboundMessage{
		Type:         "message",
		Role:         conversation.ChatRoleAssistant,
		Text:         reply.Text,
		Intent:       string(reply.Intent),
		SessionID:    sessionID,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Appointment:  reply.Appointment,
		Alternatives: reply.Alternatives,
	})
	if err != nil {
		h.logger.Warn("failed to deliver reply", "session_id", sessionID, "error", err)
	}
}

func (h *Handler) loadHistory(ctx context.Context, sessionID string) []HistoryMessage {
	if h.history == nil {
		return nil
	}
	msgs, err := h.history.List(ctx, sessionID, historyReplayLimit)
	if err != nil {
		h.logger.Warn("failed to load history", "session_id", sessionID, "error", err)
		return nil
	}
	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryMessage{
			Role:      m.Role,
			Text:      m.Body,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	return out
}

func (h *Handler) register(wsc *wsConn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[wsc] = struct{}{}
	return true
}

func (h *Handler) unregister(wsc *wsConn) {
	h.mu.Lock()
	delete(h.conns, wsc)
	h.mu.Unlock()
}

// Shutdown tells every open connection the server is going away and closes it.
// http.Server.Shutdown does not track hijacked connections, so callers invoke
// this alongside it. Later connections are refused.
func (h *Handler) Shutdown() int {
	h.mu.Lock()
	h.closed = true
	conns := make([]*wsConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.send(OutboundMessage{Type: "closing", Text: "server is shutting down"})
		_ = c.conn.Close()
	}
	if len(conns) > 0 {
		h.logger.Info("closed web chat connections", "count", len(conns))
	}
	return len(conns)
}
