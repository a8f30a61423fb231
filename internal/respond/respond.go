// Package respond renders the uniform JSON envelopes of the API.
//
// SUCCESS:
//
//	{"status_code": 200, "timestamp": "2024-05-01 12:00:00", "data": [...], "count": 3}
//
// count is present only when data is a list; message only when non-empty.
//
// ERROR:
//
//	{"error": "Plant with ID 9 not found", "status_code": 404, "timestamp": "..."}
//
// For validation failures "error" is an object of field → message instead of a string.
//
// This is the only package that knows how domain errors map to HTTP status
// codes. Everything below it returns apperror values.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/sakif/plantkeeper/internal/apperror"
	"github.com/sakif/plantkeeper/internal/ratelimit"
)

// TimestampLayout is YYYY-MM-DD HH:MM:SS in UTC.
const TimestampLayout = "2006-01-02 15:04:05"

const internalMessage = "An internal error occurred"

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

type Envelope struct {
	StatusCode int    `json:"status_code"`
	Timestamp  string `json:"timestamp"`
	Data       any    `json:"data"`
	Message    string `json:"message,omitempty"`
	Count      *int   `json:"count,omitempty"`
}

type ErrorEnvelope struct {
	Error      any    `json:"error"`
	StatusCode int    `json:"status_code"`
	Timestamp  string `json:"timestamp"`
}

// JSON writes v with the given status.
//
// Headers and status go out before the body: once Encode writes, header
// changes are silently ignored.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; all we can do is log.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// Success wraps data in the success envelope.
func Success(w http.ResponseWriter, status int, data any, message string) {
	env := Envelope{
		StatusCode: status,
		Timestamp:  now().Format(TimestampLayout),
		Data:       data,
		Message:    message,
	}
	if n, ok := listLen(data); ok {
		env.Count = &n
	}
	JSON(w, status, env)
}

// OK is Success with 200 and no message.
func OK(w http.ResponseWriter, data any) {
	Success(w, http.StatusOK, data, "")
}

// Status maps err to its HTTP status code.
func Status(err error) int {
	var exceeded *ratelimit.ExceededError
	switch {
	case errors.As(err, &exceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error writes the error envelope for err.
//
// Only AppError messages reach the client. Anything else becomes a generic
// 500: raw error strings may carry SQL, file paths or provider URLs with the
// API key in them.
func Error(w http.ResponseWriter, err error) {
	status := Status(err)
	var body any = internalMessage

	var exceeded *ratelimit.ExceededError
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &exceeded):
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(exceeded.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(exceeded.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.Itoa(exceeded.ResetSeconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(exceeded.ResetSeconds(), 1)))
		body = "Rate limit exceeded. Please try again later."
	case errors.As(err, &appErr):
		body = appErr.Message
		if fields, ok := apperror.FieldErrors(err); ok {
			body = fields
		}
	}

	JSON(w, status, ErrorEnvelope{
		Error:      body,
		StatusCode: status,
		Timestamp:  now().Format(TimestampLayout),
	})
}

// listLen reports the length of data when it encodes as a JSON array.
func listLen(data any) (int, bool) {
	if data == nil {
		return 0, false
	}
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		if v.Kind() == reflect.Slice && v.IsNil() {
			return 0, false
		}
		return v.Len(), true
	}
	return 0, false
}
