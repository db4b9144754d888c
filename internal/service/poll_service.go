package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"quizhub/internal/domain"
	"quizhub/internal/repository"
	apperrors "quizhub/pkg/errors"
	"quizhub/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const pollDateLayout = "2006-01-02"

// defaultQuiz is inserted once when the first poll is needed and no quiz exists
var defaultQuiz = domain.Quiz{
	Title:  "Getting Started",
	Author: "quizhub",
	Questions: []domain.Question{
		{Text: "Which planet is known as the Red Planet?", Choices: []string{"Mars", "Venus", "Jupiter", "Mercury"}, Answer: "Mars"},
		{Text: "What is the largest ocean on Earth?", Choices: []string{"Pacific", "Atlantic", "Indian", "Arctic"}, Answer: "Pacific"},
		{Text: "How many continents are there?", Choices: []string{"5", "6", "7", "8"}, Answer: "7"},
	},
}

// PollResultsEvent is broadcast after every accepted vote
type PollResultsEvent struct {
	PollID  string         `json:"poll_id"`
	Results map[string]int `json:"results"`
}

// PollService owns the daily poll: lazy creation per calendar day in the
// reference timezone, vote recording and the reset countdown.
type PollService struct {
	polls     repository.PollRepository
	quizzes   repository.QuizRepository
	cache     *CacheService
	publisher Publisher
	location  *time.Location
	logger    *logger.Logger

	// pick returns a uniform int in [0, n)
	pick func(n int) int

	seedMu sync.Mutex
	seeded bool

	interval  time.Duration
	lifecycle sync.Mutex
	running   bool
	ticker    *time.Ticker
	stop      chan struct{}
	wg        sync.WaitGroup
}

// NewPollService creates a poll service anchored to location
func NewPollService(polls repository.PollRepository, quizzes repository.QuizRepository, cache *CacheService, publisher Publisher, location *time.Location, log *logger.Logger) *PollService {
	if location == nil {
		location = time.UTC
	}
	return &PollService{
		polls:     polls,
		quizzes:   quizzes,
		cache:     cache,
		publisher: publisher,
		location:  location,
		logger:    log.Named("poll"),
		pick:      rand.IntN,
		interval:  time.Second,
	}
}

// PollDate returns the calendar date of now in the reference timezone
func (s *PollService) PollDate(now time.Time) string {
	return now.In(s.location).Format(pollDateLayout)
}

// SecondsUntilReset returns whole seconds, rounded up, until the next local midnight
func (s *PollService) SecondsUntilReset(now time.Time) int64 {
	local := now.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, s.location)
	remaining := next.Sub(now)
	return int64((remaining + time.Second - 1) / time.Second)
}

// GetOrCreateTodayPoll returns the poll for the current date, creating it on
// first access. Concurrent creators converge on the row that won the insert.
func (s *PollService) GetOrCreateTodayPoll(ctx context.Context, now time.Time) (*domain.DailyPoll, error) {
	date := s.PollDate(now)

	if id := s.cache.GetPollIDForDate(ctx, date); id != "" {
		poll, err := s.polls.GetByID(ctx, id)
		if err != nil {
			return nil, apperrors.NewInternalError("Failed to load poll", err)
		}
		if poll != nil {
			return poll, nil
		}
	}

	poll, err := s.polls.GetByDate(ctx, date)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load poll", err)
	}
	if poll != nil {
		s.cache.SetPollIDForDate(ctx, date, poll.ID)
		return poll, nil
	}

	poll, err = s.buildPoll(ctx, date)
	if err != nil {
		return nil, err
	}

	err = s.polls.Create(ctx, poll)
	if errors.Is(err, repository.ErrDuplicate) {
		poll, err = s.polls.GetByDate(ctx, date)
		if err == nil && poll == nil {
			err = errors.New("poll vanished after duplicate insert")
		}
	}
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to create poll", err)
	}

	s.cache.SetPollIDForDate(ctx, date, poll.ID)
	s.logger.Info("Daily poll ready", zap.String("date", date), zap.String("poll_id", poll.ID))
	return poll, nil
}

// buildPoll picks a random question of a random quiz
func (s *PollService) buildPoll(ctx context.Context, date string) (*domain.DailyPoll, error) {
	ids, err := s.quizIDs(ctx)
	if err != nil {
		return nil, err
	}

	quiz, err := s.quizzes.GetByID(ctx, ids[s.pick(len(ids))])
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load quiz", err)
	}
	if quiz == nil || len(quiz.Questions) == 0 {
		return nil, apperrors.NewInternalError("Selected quiz has no questions", nil)
	}

	question := quiz.Questions[s.pick(len(quiz.Questions))]

	choices := make([]string, 0, len(question.Choices))
	results := make(map[string]int, len(question.Choices))
	for _, choice := range question.Choices {
		choice = strings.TrimSpace(choice)
		if choice == "" {
			continue
		}
		if _, dup := results[choice]; dup {
			continue
		}
		choices = append(choices, choice)
		results[choice] = 0
	}

	return &domain.DailyPoll{
		ID:       uuid.NewString(),
		PollDate: date,
		QuizID:   quiz.ID,
		Question: question.Text,
		Choices:  choices,
		Results:  results,
	}, nil
}

// quizIDs lists quiz ids, inserting the default quiz the first time the store is empty
func (s *PollService) quizIDs(ctx context.Context) ([]string, error) {
	ids, err := s.quizzes.ListIDs(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to list quizzes", err)
	}
	if len(ids) > 0 {
		return ids, nil
	}

	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	if !s.seeded {
		ids, err = s.quizzes.ListIDs(ctx)
		if err != nil {
			return nil, apperrors.NewInternalError("Failed to list quizzes", err)
		}
		if len(ids) == 0 {
			quiz := defaultQuiz
			quiz.Questions = append([]domain.Question(nil), defaultQuiz.Questions...)
			if err := s.quizzes.Create(ctx, &quiz); err != nil {
				return nil, apperrors.NewInternalError("Failed to seed default quiz", err)
			}
			s.logger.Info("Seeded default quiz", zap.String("quiz_id", quiz.ID))
		}
		s.seeded = true
	}

	ids, err = s.quizzes.ListIDs(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to list quizzes", err)
	}
	if len(ids) == 0 {
		return nil, apperrors.NewInternalError("No quizzes available", nil)
	}
	return ids, nil
}

// SubmitVote records username's answer on a poll. A second vote by the same
// user is rejected and leaves the tally unchanged.
func (s *PollService) SubmitVote(ctx context.Context, pollID, username, answer string) (*domain.DailyPoll, error) {
	answer = strings.TrimSpace(answer)
	if err := validateID("poll_id", pollID); err != nil {
		return nil, err
	}
	if answer == "" {
		return nil, apperrors.NewFieldError("answer", "answer is required")
	}

	if s.cache.HasVoted(ctx, pollID, username) {
		return nil, apperrors.NewDuplicateError("Already voted")
	}

	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load poll", err)
	}
	if poll == nil {
		return nil, apperrors.NewNotFoundError("Poll not found")
	}
	if _, ok := poll.Results[answer]; !ok {
		return nil, apperrors.NewFieldError("answer", "answer is not one of the poll choices")
	}

	updated, err := s.polls.RecordVote(ctx, &domain.Vote{PollID: pollID, Username: username, Answer: answer})
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		s.cache.MarkVoted(ctx, pollID, username)
		return nil, apperrors.NewDuplicateError("Already voted")
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NewNotFoundError("Poll not found")
	case err != nil:
		return nil, apperrors.NewInternalError("Failed to record vote", err)
	}

	s.cache.MarkVoted(ctx, pollID, username)
	if s.publisher != nil {
		s.publisher.Publish(domain.EventPollResults, PollResultsEvent{PollID: updated.ID, Results: updated.Results})
	}
	return updated, nil
}

// Start launches the countdown broadcast loop
func (s *PollService) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.running {
		return nil
	}

	s.ticker = time.NewTicker(s.interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.countdownRoutine(s.ticker, s.stop)

	s.running = true
	s.logger.Info("Poll countdown started", zap.String("timezone", s.location.String()))
	return nil
}

// Stop halts the countdown loop and waits for it
func (s *PollService) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.running {
		return nil
	}

	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.running = false
	s.logger.Info("Poll countdown stopped")
	return nil
}

func (s *PollService) countdownRoutine(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case now := <-ticker.C:
			if s.publisher != nil {
				s.publisher.Publish(domain.EventUpdateTimer, domain.TimerEvent{SecondsRemaining: s.SecondsUntilReset(now)})
			}
		case <-stop:
			return
		}
	}
}
