package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizhub/internal/domain"
	"quizhub/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// userRepository stores accounts and their current session token in PostgreSQL
type userRepository struct {
	db *database.PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.PostgresDB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, password_hash, COALESCE(session_token, ''), created_at`

// Create inserts a new user
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email", email)
}

// GetByUsername retrieves a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username", username)
}

// GetBySessionToken retrieves the user currently holding token
func (r *userRepository) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	return r.getOne(ctx, "session_token", token)
}

// SetSessionToken overwrites the user's token. An empty token is stored as NULL.
func (r *userRepository) SetSessionToken(ctx context.Context, username, token string) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var value interface{}
	if token != "" {
		value = token
	}

	tag, err := r.db.Pool.Exec(ctx, `UPDATE users SET session_token = $2 WHERE username = $1`, username, value)
	if err != nil {
		return fmt.Errorf("failed to set session token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// getOne loads a user by a single indexed column. column is never user input.
func (r *userRepository) getOne(ctx context.Context, column, value string) (*domain.User, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	user := &domain.User{}
	err := r.db.Pool.QueryRow(ctx, query, value).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.SessionToken,
		&user.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}

	return user, nil
}
