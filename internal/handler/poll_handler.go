package handler

import (
	"net/http"
	"time"

	"quizhub/internal/container"
	"quizhub/internal/domain"
	"quizhub/internal/service"
	"quizhub/pkg/logger"
)

// PollHandler handles the daily poll endpoints
type PollHandler struct {
	polls  *service.PollService
	now    func() time.Time
	logger *logger.Logger
}

// NewPollHandler creates a new poll handler
func NewPollHandler(c *container.Container) *PollHandler {
	return &PollHandler{
		polls:  c.Services.Poll,
		now:    time.Now,
		logger: c.GetLogger().Named("poll_handler"),
	}
}

// DailyPoll handles GET /daily_poll, creating today's poll on first access
func (h *PollHandler) DailyPoll(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	poll, err := h.polls.GetOrCreateTodayPoll(r.Context(), now)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, domain.PollView{
		Poll:             poll,
		SecondsRemaining: h.polls.SecondsUntilReset(now),
	})
}

// SubmitPoll handles POST /submit_poll
func (h *PollHandler) SubmitPoll(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	f, err := parseForm(w, r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	req := domain.VoteRequest{PollID: f.String("poll_id"), Answer: f.String("answer")}
	poll, err := h.polls.SubmitVote(r.Context(), req.PollID, identity.Username, req.Answer)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, poll)
}
