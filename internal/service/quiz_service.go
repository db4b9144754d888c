package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quizhub/internal/domain"
	"quizhub/internal/repository"
	apperrors "quizhub/pkg/errors"
	"quizhub/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dashboardLimit   = 50
	maxCommentLength = 1000
	minChoices       = 2
)

// QuizService authors quizzes and applies likes and comments,
// publishing each change to viewers.
type QuizService struct {
	quizzes   repository.QuizRepository
	cache     *CacheService
	publisher Publisher
	logger    *logger.Logger
}

// NewQuizService creates a new quiz service
func NewQuizService(quizzes repository.QuizRepository, cache *CacheService, publisher Publisher, log *logger.Logger) *QuizService {
	return &QuizService{
		quizzes:   quizzes,
		cache:     cache,
		publisher: publisher,
		logger:    log.Named("quiz"),
	}
}

// Upload validates the parallel question/choices/answers arrays and stores the quiz
func (s *QuizService) Upload(ctx context.Context, author string, req domain.UploadQuizRequest) (*domain.Quiz, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.NewFieldError("title", "title is required")
	}
	if len(req.Questions) == 0 {
		return nil, apperrors.NewFieldError("questions", "at least one question is required")
	}
	if len(req.Questions) != len(req.Choices) || len(req.Questions) != len(req.Answers) {
		return nil, apperrors.NewValidationError("Questions, choices and answers must have the same length", map[string]interface{}{
			"questions": len(req.Questions),
			"choices":   len(req.Choices),
			"answers":   len(req.Answers),
		})
	}

	questions := make([]domain.Question, 0, len(req.Questions))
	for i, text := range req.Questions {
		field := fmt.Sprintf("questions[%d]", i)

		text = strings.TrimSpace(text)
		if text == "" {
			return nil, apperrors.NewFieldError(field, "question text is required")
		}

		choices := splitChoices(req.Choices[i])
		if len(choices) < minChoices {
			return nil, apperrors.NewFieldError(fmt.Sprintf("choices[%d]", i), "at least two choices are required")
		}

		answer := strings.TrimSpace(req.Answers[i])
		if !contains(choices, answer) {
			return nil, apperrors.NewFieldError(fmt.Sprintf("answers[%d]", i), "answer must be one of the choices")
		}

		questions = append(questions, domain.Question{Text: text, Choices: choices, Answer: answer})
	}

	quiz := &domain.Quiz{
		Title:     title,
		Author:    author,
		Questions: questions,
		LikedBy:   []string{},
	}
	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, apperrors.NewInternalError("Failed to save quiz", err)
	}

	s.logger.Info("Quiz uploaded", zap.String("quiz_id", quiz.ID), zap.String("author", author))
	return quiz, nil
}

// ToggleLike likes the quiz for username, or unlikes it if already liked
func (s *QuizService) ToggleLike(ctx context.Context, quizID, username string) (*domain.LikeResult, error) {
	if err := validateID("quiz_id", quizID); err != nil {
		return nil, err
	}

	result, err := s.quizzes.ToggleLike(ctx, quizID, username)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to toggle like", err)
	}
	if result == nil {
		return nil, apperrors.NewNotFoundError("Quiz not found")
	}

	s.cache.InvalidateLikes(ctx, quizID)
	s.publish(domain.EventLikeQuiz, domain.LikeEvent{
		QuizID:   quizID,
		Username: username,
		Delta:    result.Delta(),
		Likes:    result.Likes,
	})
	return result, nil
}

// Comment appends a comment to the quiz
func (s *QuizService) Comment(ctx context.Context, quizID, username, text string) (*domain.Comment, error) {
	if err := validateID("quiz_id", quizID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewFieldError("comment", "comment is required")
	}
	if len(text) > maxCommentLength {
		return nil, apperrors.NewFieldError("comment", fmt.Sprintf("comment must be at most %d characters", maxCommentLength))
	}

	comment := &domain.Comment{QuizID: quizID, Username: username, Text: text}
	if err := s.quizzes.AddComment(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("Quiz not found")
		}
		return nil, apperrors.NewInternalError("Failed to add comment", err)
	}

	s.publish(domain.EventNewComment, comment)
	return comment, nil
}

// Likes returns the like count and like-user set of a quiz
func (s *QuizService) Likes(ctx context.Context, quizID string) (*domain.LikesView, error) {
	if err := validateID("quiz_id", quizID); err != nil {
		return nil, err
	}

	view, err := s.cache.GetLikesWithCache(ctx, quizID, func(ctx context.Context, id string) (*domain.LikesView, error) {
		quiz, err := s.quizzes.GetByID(ctx, id)
		if err != nil || quiz == nil {
			return nil, err
		}
		return &domain.LikesView{QuizID: quiz.ID, Likes: quiz.Likes, LikesUsers: quiz.LikedBy}, nil
	})
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load likes", err)
	}
	if view == nil {
		return nil, apperrors.NewNotFoundError("Quiz not found")
	}
	return view, nil
}

// Dashboard returns the newest quizzes with their comments
func (s *QuizService) Dashboard(ctx context.Context) ([]*domain.Quiz, error) {
	quizzes, err := s.quizzes.List(ctx, dashboardLimit)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load quizzes", err)
	}
	if quizzes == nil {
		quizzes = []*domain.Quiz{}
	}
	return quizzes, nil
}

func (s *QuizService) publish(event string, data interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(event, data)
	}
}

func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewFieldError(field, field+" is malformed")
	}
	return nil
}

// splitChoices splits a comma separated list, dropping blanks and duplicates
func splitChoices(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" && !contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
