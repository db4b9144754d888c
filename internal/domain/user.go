package domain

import "time"

// User represents a registered account
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	SessionToken string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the authenticated principal attached to a request
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// RegisterRequest represents a registration form
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a login form
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
