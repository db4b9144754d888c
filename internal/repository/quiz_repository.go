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

// foreignKeyViolation is the SQLSTATE for foreign_key_violation
const foreignKeyViolation = "23503"

// quizRepository stores quizzes, their like records and comments in PostgreSQL
type quizRepository struct {
	db *database.PostgresDB
}

// NewQuizRepository creates a new quiz repository
func NewQuizRepository(db *database.PostgresDB) QuizRepository {
	return &quizRepository{db: db}
}

// Create inserts a quiz
func (r *quizRepository) Create(ctx context.Context, quiz *domain.Quiz) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now().UTC()
	}
	if quiz.LikedBy == nil {
		quiz.LikedBy = []string{}
	}

	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}

	query := `
		INSERT INTO quizzes (id, title, author, questions, likes, liked_by, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6)
	`

	if _, err := r.db.Pool.Exec(ctx, query, quiz.ID, quiz.Title, quiz.Author, questions, quiz.LikedBy, quiz.CreatedAt); err != nil {
		return fmt.Errorf("failed to create quiz: %w", err)
	}

	return nil
}

// GetByID retrieves a quiz and its comments
func (r *quizRepository) GetByID(ctx context.Context, id string) (*domain.Quiz, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, title, author, questions, likes, liked_by, created_at
		FROM quizzes
		WHERE id = $1
	`

	quiz, err := scanQuiz(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	comments, err := r.listComments(ctx, id)
	if err != nil {
		return nil, err
	}
	quiz.Comments = comments

	return quiz, nil
}

// List retrieves the newest quizzes with their comments attached
func (r *quizRepository) List(ctx context.Context, limit int) ([]*domain.Quiz, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, title, author, questions, likes, liked_by, created_at
		FROM quizzes
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []*domain.Quiz
	byID := make(map[string]*domain.Quiz)
	ids := make([]string, 0, limit)
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
		byID[quiz.ID] = quiz
		ids = append(ids, quiz.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quizzes: %w", err)
	}

	if len(ids) == 0 {
		return quizzes, nil
	}

	commentRows, err := r.db.Pool.Query(ctx, `
		SELECT id, quiz_id, username, text, created_at
		FROM quiz_comments
		WHERE quiz_id = ANY($1)
		ORDER BY created_at ASC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer commentRows.Close()

	for commentRows.Next() {
		var c domain.Comment
		if err := commentRows.Scan(&c.ID, &c.QuizID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		if quiz, ok := byID[c.QuizID]; ok {
			quiz.Comments = append(quiz.Comments, c)
		}
	}

	return quizzes, commentRows.Err()
}

// ListIDs returns every quiz id
func (r *quizRepository) ListIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, `SELECT id FROM quizzes`)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect quiz ids: %w", err)
	}
	return ids, nil
}

// ToggleLike removes the like record if present, otherwise creates it.
// The quiz row is locked so concurrent toggles on one quiz serialize.
func (r *quizRepository) ToggleLike(ctx context.Context, quizID, username string) (*domain.LikeResult, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM quizzes WHERE id = $1 FOR UPDATE`, quizID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock quiz: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM quiz_likes WHERE quiz_id = $1 AND username = $2`, quizID, username)
	if err != nil {
		return nil, fmt.Errorf("failed to remove like: %w", err)
	}

	result := &domain.LikeResult{QuizID: quizID}
	var update string
	if tag.RowsAffected() == 1 {
		result.Action = domain.LikeActionUnliked
		update = `
			UPDATE quizzes
			SET likes = likes - 1, liked_by = array_remove(liked_by, $2)
			WHERE id = $1
			RETURNING likes, liked_by
		`
	} else {
		result.Action = domain.LikeActionLiked
		if _, err := tx.Exec(ctx,
			`INSERT INTO quiz_likes (quiz_id, username, created_at) VALUES ($1, $2, $3)`,
			quizID, username, time.Now().UTC(),
		); err != nil {
			return nil, fmt.Errorf("failed to insert like: %w", err)
		}
		update = `
			UPDATE quizzes
			SET likes = likes + 1, liked_by = array_append(liked_by, $2)
			WHERE id = $1
			RETURNING likes, liked_by
		`
	}

	if err := tx.QueryRow(ctx, update, quizID, username).Scan(&result.Likes, &result.LikesUsers); err != nil {
		return nil, fmt.Errorf("failed to update like counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit like toggle: %w", err)
	}

	if result.LikesUsers == nil {
		result.LikesUsers = []string{}
	}
	return result, nil
}

// AddComment inserts a comment for an existing quiz
func (r *quizRepository) AddComment(ctx context.Context, comment *domain.Comment) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO quiz_comments (id, quiz_id, username, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query, comment.ID, comment.QuizID, comment.Username, comment.Text, comment.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrNotFound
		}
		return fmt.Errorf("failed to add comment: %w", err)
	}

	return nil
}

// ListComments returns a quiz's comments, oldest first
func (r *quizRepository) ListComments(ctx context.Context, quizID string) ([]domain.Comment, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	return r.listComments(ctx, quizID)
}

func (r *quizRepository) listComments(ctx context.Context, quizID string) ([]domain.Comment, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, quiz_id, username, text, created_at
		FROM quiz_comments
		WHERE quiz_id = $1
		ORDER BY created_at ASC
	`, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.QuizID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	return comments, rows.Err()
}

func scanQuiz(row pgx.Row) (*domain.Quiz, error) {
	var (
		quiz      domain.Quiz
		questions []byte
	)
	if err := row.Scan(&quiz.ID, &quiz.Title, &quiz.Author, &questions, &quiz.Likes, &quiz.LikedBy, &quiz.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	if quiz.LikedBy == nil {
		quiz.LikedBy = []string{}
	}
	return &quiz, nil
}
