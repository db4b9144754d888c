package repository

import (
	"context"
	"errors"

	"quizhub/internal/domain"
	"quizhub/pkg/database"
)

var (
	// ErrDuplicate is returned when a unique key already exists
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotFound is returned by writes that reference a missing parent row
	ErrNotFound = errors.New("record not found")
)

// UserRepository defines the interface for user data operations.
// Lookups return (nil, nil) when no user matches.
type UserRepository interface {
	// Create inserts a user; ErrDuplicate when username or email is taken
	Create(ctx context.Context, user *domain.User) error

	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// SetSessionToken overwrites the stored token; an empty token clears it
	SetSessionToken(ctx context.Context, username, token string) error
}

// QuizRepository defines quiz, like and comment operations
type QuizRepository interface {
	Create(ctx context.Context, quiz *domain.Quiz) error

	// GetByID returns (nil, nil) for an unknown quiz
	GetByID(ctx context.Context, id string) (*domain.Quiz, error)

	// List returns the newest quizzes with their comments
	List(ctx context.Context, limit int) ([]*domain.Quiz, error)

	ListIDs(ctx context.Context) ([]string, error)

	// ToggleLike flips the (quiz, user) like record and moves the quiz
	// counter and like-user set with it in one transaction.
	// Returns (nil, nil) for an unknown quiz.
	ToggleLike(ctx context.Context, quizID, username string) (*domain.LikeResult, error)

	// AddComment appends a comment; ErrNotFound for an unknown quiz
	AddComment(ctx context.Context, comment *domain.Comment) error

	ListComments(ctx context.Context, quizID string) ([]domain.Comment, error)
}

// PollRepository defines daily poll and vote operations
type PollRepository interface {
	GetByDate(ctx context.Context, date string) (*domain.DailyPoll, error)
	GetByID(ctx context.Context, id string) (*domain.DailyPoll, error)

	// Create inserts a poll keyed by date; ErrDuplicate when that date already has one
	Create(ctx context.Context, poll *domain.DailyPoll) error

	// RecordVote inserts the vote record and increments the tally atomically.
	// ErrDuplicate when the user already voted, ErrNotFound when the poll
	// or the answer does not exist.
	RecordVote(ctx context.Context, vote *domain.Vote) (*domain.DailyPoll, error)

	HasVoted(ctx context.Context, pollID, username string) (bool, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	User UserRepository
	Quiz QuizRepository
	Poll PollRepository
}

// NewRepositories creates the PostgreSQL-backed repositories
func NewRepositories(db *database.PostgresDB) *Repositories {
	return &Repositories{
		User: NewUserRepository(db),
		Quiz: NewQuizRepository(db),
		Poll: NewPollRepository(db),
	}
}
