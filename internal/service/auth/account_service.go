package auth

import (
	"context"
	"errors"
	"strings"

	"quizhub/internal/domain"
	"quizhub/internal/repository"
	apperrors "quizhub/pkg/errors"
	"quizhub/pkg/logger"

	"go.uber.org/zap"
)

// AccountService handles registration, login and logout
type AccountService struct {
	users  repository.UserRepository
	tokens *TokenStore
	hasher Hasher
	logger *logger.Logger
}

// NewAccountService creates a new account service
func NewAccountService(users repository.UserRepository, tokens *TokenStore, hasher Hasher, log *logger.Logger) *AccountService {
	return &AccountService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		logger: log.Named("account"),
	}
}

// Register creates a new account
func (s *AccountService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	details := map[string]interface{}{}
	if username == "" {
		details["username"] = "username is required"
	}
	if email == "" {
		details["email"] = "email is required"
	} else if !strings.Contains(email, "@") {
		details["email"] = "email is not valid"
	}
	if req.Password == "" {
		details["password"] = "password is required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("Invalid registration", details)
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to check username", err)
	}
	if existing != nil {
		return nil, apperrors.NewDuplicateError("Username already taken")
	}

	existing, err = s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to check email", err)
	}
	if existing != nil {
		return nil, apperrors.NewDuplicateError("Email already registered")
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to hash password", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewDuplicateError("Username or email already registered")
		}
		return nil, apperrors.NewInternalError("Failed to create user", err)
	}

	s.logger.Info("User registered", zap.String("username", username))
	return user, nil
}

// Login checks credentials and issues a session token bound to address.
// Every credential mismatch yields the same authentication error.
func (s *AccountService) Login(ctx context.Context, req domain.LoginRequest, address string) (*domain.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, "", apperrors.NewAuthenticationError("Invalid email or password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", apperrors.NewInternalError("Failed to load user", err)
	}
	if user == nil || !s.hasher.Verify(user.PasswordHash, req.Password) {
		return nil, "", apperrors.NewAuthenticationError("Invalid email or password")
	}

	token, err := s.tokens.Issue(ctx, user.Username, address)
	if err != nil {
		return nil, "", apperrors.NewInternalError("Failed to start session", err)
	}
	user.SessionToken = token

	s.logger.Debug("User logged in", zap.String("username", user.Username))
	return user, token, nil
}

// Logout revokes the user's session token
func (s *AccountService) Logout(ctx context.Context, username string) error {
	if err := s.tokens.Revoke(ctx, username); err != nil {
		return apperrors.NewInternalError("Failed to end session", err)
	}
	return nil
}
