package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"quizhub/internal/domain"
	"quizhub/internal/repository"
	"quizhub/pkg/logger"
)

// TokenStore issues and verifies session tokens. A token is the HMAC of
// username and client address, so it only verifies from the address it was
// issued to. Each user holds at most one token; issuing overwrites it.
type TokenStore struct {
	users  repository.UserRepository
	secret []byte
	logger *logger.Logger
}

// NewTokenStore creates a token store. An empty secret is replaced by a
// random one, invalidating all tokens when the process restarts.
func NewTokenStore(users repository.UserRepository, secret string, log *logger.Logger) *TokenStore {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("auth: failed to generate token secret: %v", err))
		}
		log.Warn("TOKEN_SECRET not set, using a random per-process secret")
	}

	return &TokenStore{
		users:  users,
		secret: key,
		logger: log.Named("token_store"),
	}
}

// digest computes the token for username at address
func (s *TokenStore) digest(username, address string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(username))
	mac.Write([]byte{'|'})
	mac.Write([]byte(address))
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue computes and stores a fresh token for username
func (s *TokenStore) Issue(ctx context.Context, username, address string) (string, error) {
	token := s.digest(username, address)
	if err := s.users.SetSessionToken(ctx, username, token); err != nil {
		return "", fmt.Errorf("failed to store session token: %w", err)
	}
	return token, nil
}

// Verify returns the identity owning token when it is the user's current
// token and was issued to address. Store failures read as no identity.
func (s *TokenStore) Verify(ctx context.Context, token, address string) (*domain.Identity, bool) {
	if token == "" {
		return nil, false
	}

	user, err := s.users.GetBySessionToken(ctx, token)
	if err != nil {
		s.logger.WithError(err).Warn("Session lookup failed")
		return nil, false
	}
	if user == nil {
		return nil, false
	}

	expected := s.digest(user.Username, address)
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return nil, false
	}

	return &domain.Identity{UserID: user.ID, Username: user.Username}, true
}

// Revoke clears the user's stored token
func (s *TokenStore) Revoke(ctx context.Context, username string) error {
	if err := s.users.SetSessionToken(ctx, username, ""); err != nil {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	return nil
}
