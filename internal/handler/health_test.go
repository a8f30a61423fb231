package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/plantkeeper/internal/handler"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := handler.NewHealthHandler(pingFunc(func(context.Context) error { return nil }), testLogger())
		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	})

	t.Run("store down", func(t *testing.T) {
		h := handler.NewHealthHandler(pingFunc(func(context.Context) error { return errors.New("closed") }), testLogger())
		rr := httptest.NewRecorder()
		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), `"database":"unreachable"`)
	})
}
