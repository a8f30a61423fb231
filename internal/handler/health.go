package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/plantkeeper/internal/respond"
)

// Pinger is satisfied by every repository.PlantRepository.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store  Pinger
	logger *slog.Logger
}

func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HandleHealth reports 200 when the store answers a ping within two
// seconds, 503 otherwise.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		respond.Success(w, http.StatusServiceUnavailable, HealthStatus{Status: "degraded", Database: "unreachable"}, "")
		return
	}
	respond.OK(w, HealthStatus{Status: "ok", Database: "ok"})
}
