package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/plantkeeper/internal/ratelimit"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	w.Write([]byte("short and stout"))
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	assert.Len(t, seen, 20) // xid string length
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
}

func TestRequestID_KeepsClientID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc-123", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, seen, 20)
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", RequestIDFromContext(req.Context()))
}

func TestLogger_RecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestID(Logger(logger)(http.HandlerFunc(okHandler)))
	req := httptest.NewRequest(http.MethodPost, "/api/plants", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request completed", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "POST", line["method"])
	assert.Equal(t, "/api/plants", line["path"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, float64(len("short and stout")), line["bytes"])
}

func TestLogger_DefaultStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("{}"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	discard := slog.New(slog.DiscardHandler)
	limiter := ratelimit.New(2, time.Minute, ratelimit.NewMemoryStore(), discard, ratelimit.WithClock(clock))

	h := RateLimit(limiter, discard)(http.HandlerFunc(okHandler))
	hit := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/plants/fetch", nil)
		req.RemoteAddr = remoteAddr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	rr := hit("10.0.0.1:5000")
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))

	// a different port is the same client
	rr = hit("10.0.0.1:6000")
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	now = now.Add(10 * time.Second)
	rr = hit("10.0.0.1:5000")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "50", rr.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, "50", rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "Rate limit exceeded. Please try again later.")

	// other clients are unaffected
	assert.Equal(t, http.StatusTeapot, hit("10.0.0.2:5000").Code)

	now = now.Add(51 * time.Second)
	assert.Equal(t, http.StatusTeapot, hit("10.0.0.1:5000").Code)
}
