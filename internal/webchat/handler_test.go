package webchat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/appointment-assistant/internal/conversation"
)

type echoResponder struct {
	mu    sync.Mutex
	calls []string
}

func (e *echoResponder) Handle(_ context.Context, sessionID, text string) conversation.Reply {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, sessionID+":"+text)
	return conversation.Reply{SessionID: sessionID, Text: "echo: " + text, Intent: conversation.IntentOther}
}

type staticHistory struct {
	msgs []conversation.TranscriptMessage
	err  error
}

func (s staticHistory) List(context.Context, string, int64) ([]conversation.TranscriptMessage, error) {
	return s.msgs, s.err
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws" + query
	conn, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	return msg
}

func newServer(h *Handler) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/ws", h.HandleWebSocket)
	return httptest.NewServer(mux)
}

func TestWebSocketConversation(t *testing.T) {
	responder := &echoResponder{}
	h := NewHandler(responder, nil, nil)
	srv := newServer(h)
	defer srv.Close()

	conn := dial(t, srv, "?session=abc")
	session := receive(t, conn)
	assert.Equal(t, "session", session.Type)
	assert.Equal(t, "abc", session.SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	assert.Equal(t, "pong", receive(t, conn).Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "hello"}))
	assert.Equal(t, "typing", receive(t, conn).Type)
	reply := receive(t, conn)
	assert.Equal(t, "message", reply.Type)
	assert.Equal(t, "echo: hello", reply.Text)
	assert.Equal(t, "other", reply.Intent)
	assert.Equal(t, conversation.ChatRoleAssistant, reply.Role)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "shout", Text: "x"}))
	assert.Equal(t, "error", receive(t, conn).Type)

	responder.mu.Lock()
	assert.Equal(t, []string{"abc:hello"}, responder.calls)
	responder.mu.Unlock()
}

func TestWebSocketGeneratesSessionAndReplaysHistory(t *testing.T) {
	ts := time.Date(2026, 1, 5, 13, 0, 0, 0, time.UTC)
	history := staticHistory{msgs: []conversation.TranscriptMessage{
		{Role: conversation.ChatRoleUser, Body: "hi", Timestamp: ts},
		{Role: conversation.ChatRoleAssistant, Body: "hello", Timestamp: ts},
	}}
	srv := newServer(NewHandler(&echoResponder{}, history, nil))
	defer srv.Close()

	conn := dial(t, srv, "")
	session := receive(t, conn)
	assert.Len(t, session.SessionID, 32)

	replay := receive(t, conn)
	assert.Equal(t, "history", replay.Type)
	require.Len(t, replay.Messages, 2)
	assert.Equal(t, "hello", replay.Messages[1].Text)
	assert.Equal(t, "2026-01-05T13:00:00Z", replay.Messages[0].Timestamp)
}

func TestWebSocketHistoryFailureIsNotFatal(t *testing.T) {
	srv := newServer(NewHandler(&echoResponder{}, staticHistory{err: errors.New("redis down")}, nil))
	defer srv.Close()

	conn := dial(t, srv, "?session=s")
	assert.Equal(t, "session", receive(t, conn).Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "still here"}))
	assert.Equal(t, "typing", receive(t, conn).Type)
	assert.Equal(t, "echo: still here", receive(t, conn).Text)
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.Len(t, s1, 32)
	assert.NotEqual(t, s1, s2)
}

func TestShutdownClosesOpenConnections(t *testing.T) {
	h := NewHandler(&echoResponder{}, nil, nil)
	srv := newServer(h)
	defer srv.Close()

	first := dial(t, srv, "?session=a")
	second := dial(t, srv, "?session=a")
	require.Equal(t, "session", receive(t, first).Type)
	require.Equal(t, "session", receive(t, second).Type)

	assert.Equal(t, 2, h.Shutdown())
	for _, conn := range []*websocket.Conn{first, second} {
		assert.Equal(t, "closing", receive(t, conn).Type)
		var msg OutboundMessage
		assert.Error(t, websocket.JSON.Receive(conn, &msg))
	}

	late := dial(t, srv, "?session=b")
	assert.Equal(t, "closing", receive(t, late).Type)
	assert.Equal(t, 0, h.Shutdown())
}
