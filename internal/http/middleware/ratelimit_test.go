package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerIP(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "other clients keep their own bucket")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiterEvictsStaleClients(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	assert.Equal(t, 2, rl.Len())

	now = now.Add(staleAfter + time.Minute)
	rl.Allow("c")
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := RateLimit(rl)(okHandler(nil))

	send := func(remote, realIP string) int {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.RemoteAddr = remote
		if realIP != "" {
			req.Header.Set("X-Real-Ip", realIP)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.1:1234", ""))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.1:5678", ""), "port is ignored")
	assert.Equal(t, http.StatusOK, send("192.0.2.1:1234", "203.0.113.9"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.2:1", "203.0.113.9"))
}
