package handler

import (
	"net/http"

	"quizhub/internal/container"
	"quizhub/internal/domain"
	"quizhub/internal/middleware"
	"quizhub/internal/service"
	apperrors "quizhub/pkg/errors"
	"quizhub/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// QuizHandler handles quiz authoring, likes and comments
type QuizHandler struct {
	quizzes *service.QuizService
	logger  *logger.Logger
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(c *container.Container) *QuizHandler {
	return &QuizHandler{
		quizzes: c.Services.Quiz,
		logger:  c.GetLogger().Named("quiz_handler"),
	}
}

// Dashboard handles GET /dashboard
func (h *QuizHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.Dashboard(r.Context())
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, quizzes)
}

// Upload handles POST /upload_quiz
func (h *QuizHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	f, err := parseForm(w, r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	quiz, err := h.quizzes.Upload(r.Context(), identity.Username, domain.UploadQuizRequest{
		Title:     f.String("title"),
		Questions: f.Strings("questions"),
		Choices:   f.Strings("choices"),
		Answers:   f.Strings("answers"),
	})
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, quiz)
}

// Comment handles POST /comment_quiz/{id}
func (h *QuizHandler) Comment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	f, err := parseForm(w, r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	comment, err := h.quizzes.Comment(r.Context(), chi.URLParam(r, "id"), identity.Username, f.String("comment"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, comment)
}

// Interact handles POST /interact, toggling the caller's like on quiz_id
func (h *QuizHandler) Interact(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	f, err := parseForm(w, r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	result, err := h.quizzes.ToggleLike(r.Context(), f.String("quiz_id"), identity.Username)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Likes handles GET /likes/{id}
func (h *QuizHandler) Likes(w http.ResponseWriter, r *http.Request) {
	view, err := h.quizzes.Likes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// requireIdentity returns the caller set by middleware.Auth or writes a 401
func requireIdentity(w http.ResponseWriter, r *http.Request, log *logger.Logger) (*domain.Identity, bool) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respondError(w, r, apperrors.NewAuthenticationError("Authentication required"), log)
		return nil, false
	}
	return identity, true
}
