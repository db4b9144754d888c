package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quizhub/internal/domain"
	"quizhub/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pollRepository stores daily polls and their votes in PostgreSQL
type pollRepository struct {
	db *database.PostgresDB
}

// NewPollRepository creates a new poll repository
func NewPollRepository(db *database.PostgresDB) PollRepository {
	return &pollRepository{db: db}
}

const pollColumns = `id, poll_date::text, quiz_id, question, choices, results, created_at`

// GetByDate retrieves the poll for a YYYY-MM-DD date
func (r *pollRepository) GetByDate(ctx context.Context, date string) (*domain.DailyPoll, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	poll, err := scanPoll(r.db.Pool.QueryRow(ctx, `SELECT `+pollColumns+` FROM daily_polls WHERE poll_date = $1::date`, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get poll by date: %w", err)
	}
	return poll, nil
}

// GetByID retrieves a poll by id
func (r *pollRepository) GetByID(ctx context.Context, id string) (*domain.DailyPoll, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	poll, err := scanPoll(r.db.Pool.QueryRow(ctx, `SELECT `+pollColumns+` FROM daily_polls WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}
	return poll, nil
}

// Create inserts the poll for its date. The UNIQUE(poll_date) constraint
// makes concurrent first access collapse to one row.
func (r *pollRepository) Create(ctx context.Context, poll *domain.DailyPoll) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if poll.ID == "" {
		poll.ID = uuid.NewString()
	}
	if poll.CreatedAt.IsZero() {
		poll.CreatedAt = time.Now().UTC()
	}

	results, err := json.Marshal(poll.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	query := `
		INSERT INTO daily_polls (id, poll_date, quiz_id, question, choices, results, created_at)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7)
	`

	_, err = r.db.Pool.Exec(ctx, query, poll.ID, poll.PollDate, poll.QuizID, poll.Question, poll.Choices, results, poll.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create poll: %w", err)
	}

	return nil
}

// RecordVote inserts the vote record then increments the chosen tally in the
// same transaction. The (poll_id, username) primary key is the double-vote guard.
func (r *pollRepository) RecordVote(ctx context.Context, vote *domain.Vote) (*domain.DailyPoll, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO poll_votes (poll_id, username, answer, created_at) VALUES ($1, $2, $3, $4)`,
		vote.PollID, vote.Username, vote.Answer, vote.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, ErrDuplicate
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to insert vote: %w", err)
	}

	update := `
		UPDATE daily_polls
		SET results = jsonb_set(results, ARRAY[$2::text], to_jsonb(COALESCE((results->>$2::text)::int, 0) + 1))
		WHERE id = $1 AND results ? $2::text
		RETURNING ` + pollColumns

	poll, err := scanPoll(tx.QueryRow(ctx, update, vote.PollID, vote.Answer))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment tally: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit vote: %w", err)
	}

	return poll, nil
}

// HasVoted checks whether a user already voted on a poll
func (r *pollRepository) HasVoted(ctx context.Context, pollID, username string) (bool, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM poll_votes WHERE poll_id = $1 AND username = $2)`,
		pollID, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return exists, nil
}

func scanPoll(row pgx.Row) (*domain.DailyPoll, error) {
	var (
		poll    domain.DailyPoll
		results []byte
	)
	if err := row.Scan(&poll.ID, &poll.PollDate, &poll.QuizID, &poll.Question, &poll.Choices, &results, &poll.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(results, &poll.Results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return &poll, nil
}
