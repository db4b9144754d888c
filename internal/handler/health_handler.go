package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"quizhub/internal/container"
)

// healthCheckTimeout bounds each dependency probe
const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency that can report its health
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
	db        Pinger
}

// NewHealthHandler creates a new health handler. db may be nil.
func NewHealthHandler(container *container.Container, db Pinger) *HealthHandler {
	return &HealthHandler{
		container: container,
		db:        db,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Version     string            `json:"version"`
	Service     string            `json:"service"`
	Checks      map[string]string `json:"checks"`
	Subscribers int               `json:"subscribers"`
}

// Check handles GET /health. A failing database makes the service
// unhealthy; a failing Redis only degrades it.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	logger.Debug("Health check requested")

	response := HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Version:     "1.0.0",
		Service:     "quizhub",
		Checks:      map[string]string{},
		Subscribers: h.container.Hub.SubscriberCount(),
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			logger.WithError(err).Warn("Database health check failed")
			response.Checks["database"] = "down"
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			response.Checks["database"] = "up"
		}
	}

	switch {
	case !h.container.HasRedis():
		response.Checks["redis"] = "disabled"
	case h.container.Services.Cache.HealthCheck(ctx) != nil:
		response.Checks["redis"] = "down"
		if response.Status == "healthy" {
			response.Status = "degraded"
		}
	default:
		response.Checks["redis"] = "up"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.WithError(err).Error("Failed to encode health check response")
		return
	}

	logger.Debug("Health check completed successfully")
}
