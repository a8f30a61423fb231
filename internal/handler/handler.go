// Package handler turns HTTP requests into service calls and service results
// into JSON envelopes.
//
//	Request → Handler (parse + validate params) → Service/Client → respond.*
//
// Handlers never build envelopes by hand and never map errors to status codes
// themselves: that is respond.Error's job, so every endpoint fails the same way.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/plantkeeper/internal/apperror"
	"github.com/sakif/plantkeeper/internal/respond"
)

const (
	// MinID and MaxID bound every {id} path parameter.
	MinID = 1
	MaxID = 1_000_000

	msgInvalidID = "Invalid ID value"
)

// fail writes err and logs it when it is our fault (5xx).
// Client errors (4xx) are expected traffic and only reach the request log.
func fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := respond.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
	respond.Error(w, err)
}

// pathID reads the {id} path parameter and checks it is in MinID..MaxID.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < MinID || id > MaxID {
		return 0, apperror.BadRequest(msgInvalidID)
	}
	return id, nil
}

var errNotInt = errors.New("not an integer")

// queryInt reads an integer query parameter, returning def when it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errNotInt
	}
	return n, nil
}
