package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"success":true}`))
})

func TestCORS(t *testing.T) {
	t.Run("Preflight", func(t *testing.T) {
		called := false
		h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/complete-payment", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Body.String())
		assert.False(t, called)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "authorization, x-client-info, apikey, content-type", rr.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "POST, GET, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("Regular Response Carries Headers", func(t *testing.T) {
		rr := httptest.NewRecorder()
		CORS(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/complete-payment", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.JSONEq(t, `{"success":true}`, rr.Body.String())
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("Per Client Bucket", func(t *testing.T) {
		l := NewRateLimiter(1, 2)
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		l.now = func() time.Time { return now }

		assert.True(t, l.Allow("10.0.0.1"))
		assert.True(t, l.Allow("10.0.0.1"))
		assert.False(t, l.Allow("10.0.0.1"))
		assert.True(t, l.Allow("10.0.0.2"))

		now = now.Add(time.Second)
		assert.True(t, l.Allow("10.0.0.1"))
	})

	t.Run("Sweep Drops Idle Clients", func(t *testing.T) {
		l := NewRateLimiter(1, 1)
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		l.now = func() time.Time { return now }

		l.Allow("10.0.0.1")
		now = now.Add(10 * time.Minute)
		l.Allow("10.0.0.2")
		now = now.Add(25 * time.Minute)
		l.Sweep()

		assert.Equal(t, 1, l.Clients())
	})

	t.Run("Handler Returns 429", func(t *testing.T) {
		h := NewRateLimiter(0.001, 1).Handler(okHandler)

		first := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/complete-payment", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		h.ServeHTTP(first, req)
		assert.Equal(t, http.StatusOK, first.Code)

		second := httptest.NewRecorder()
		h.ServeHTTP(second, req)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.Contains(t, second.Body.String(), "Too many requests")
	})
}

func TestClientIP(t *testing.T) {
	l := NewRateLimiter(1, 1)
	require.NoError(t, l.TrustProxies("10.0.0.0/8", "192.0.2.1"))

	request := func(remote, xff string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/complete-payment", nil)
		req.RemoteAddr = remote
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		return req
	}

	t.Run("Untrusted Peer Ignores Header", func(t *testing.T) {
		assert.Equal(t, "198.51.100.9", l.clientIP(request("198.51.100.9:4000", "203.0.113.7")))
	})

	t.Run("Trusted Proxy Reports Client", func(t *testing.T) {
		assert.Equal(t, "203.0.113.7", l.clientIP(request("10.1.2.3:4000", "203.0.113.7")))
	})

	t.Run("Spoofed Entries Left Of The Client Are Ignored", func(t *testing.T) {
		assert.Equal(t, "203.0.113.7", l.clientIP(request("192.0.2.1:4000", "1.2.3.4, 203.0.113.7, 10.0.0.5")))
	})

	t.Run("All Hops Trusted", func(t *testing.T) {
		assert.Equal(t, "10.0.0.5", l.clientIP(request("10.1.2.3:4000", "10.0.0.5")))
	})

	t.Run("Invalid Proxy", func(t *testing.T) {
		assert.Error(t, NewRateLimiter(1, 1).TrustProxies("not-an-ip"))
	})
}

func TestRateLimitIgnoresForgedHeader(t *testing.T) {
	h := NewRateLimiter(0.001, 1).Handler(okHandler)

	for i, xff := range []string{"203.0.113.1", "203.0.113.2"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/complete-payment", nil)
		req.RemoteAddr = "198.51.100.9:4000"
		req.Header.Set("X-Forwarded-For", xff)
		h.ServeHTTP(rr, req)
		if i == 0 {
			assert.Equal(t, http.StatusOK, rr.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		}
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := NewStructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/verify-transaction", nil))

	assert.Contains(t, buf.String(), `"msg":"server error"`)
	assert.Contains(t, buf.String(), `"status":502`)
	assert.Contains(t, buf.String(), `"path":"/verify-transaction"`)
}
