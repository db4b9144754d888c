package handler

import (
	"net/http"

	"quizhub/internal/container"
	"quizhub/internal/domain"
	"quizhub/internal/service"
	"quizhub/pkg/logger"
)

// ActivityHandler exposes the activity tracker over HTTP
type ActivityHandler struct {
	activity *service.ActivityService
	logger   *logger.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(c *container.Container) *ActivityHandler {
	return &ActivityHandler{
		activity: c.Services.Activity,
		logger:   c.GetLogger().Named("activity_handler"),
	}
}

// Track handles POST /track_user_activity. The id defaults to the caller's
// username; reset zeroes its counter.
func (h *ActivityHandler) Track(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	f, err := parseForm(w, r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	req := domain.ActivityRequest{ID: f.String("id"), Reset: f.Bool("reset")}
	if req.ID == "" {
		req.ID = identity.Username
	}

	if req.Reset {
		h.activity.Reset(req.ID)
	} else {
		h.activity.Ping(req.ID)
	}

	respondJSON(w, http.StatusOK, req)
}

// ActiveUsers handles GET /active_users
func (h *ActivityHandler) ActiveUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.activity.Snapshot())
}
