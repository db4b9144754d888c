package middleware

import (
	"context"
	"net/http"

	"quizhub/internal/domain"
	"quizhub/pkg/errors"
	"quizhub/pkg/logger"

	"github.com/google/uuid"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// IdentityContextKey is the key for the authenticated identity in context
	IdentityContextKey ContextKey = "identity"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// SessionCookieName carries the session token
const SessionCookieName = "auth_token"

// TokenVerifier resolves a session token presented from address
type TokenVerifier interface {
	Verify(ctx context.Context, token, address string) (*domain.Identity, bool)
}

// Auth rejects requests without a valid session cookie with a 401 JSON body
func Auth(verifier TokenVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Authentication required"), log)
				return
			}

			identity, ok := verifier.Verify(r.Context(), cookie.Value, ClientAddress(r))
			if !ok {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid or expired session"), log)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the identity stored by Auth
func IdentityFrom(ctx context.Context) (*domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(*domain.Identity)
	return identity, ok && identity != nil
}

// RequestID adds a unique request ID to each request and response
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, log *logger.Logger) {
	log.WithField("path", r.URL.Path).WithError(appErr).Debug("Request rejected")
	errors.WriteJSON(w, appErr, GetRequestID(r.Context()))
}
