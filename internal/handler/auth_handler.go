package handler

import (
	"net/http"

	"quizhub/internal/container"
	"quizhub/internal/domain"
	"quizhub/internal/middleware"
	"quizhub/internal/service/auth"
	"quizhub/pkg/logger"
)

// dashboardPath is where a successful login lands
const dashboardPath = "/dashboard"

// AuthHandler handles registration and session endpoints
type AuthHandler struct {
	accounts     *auth.AccountService
	cookieSecure bool
	logger       *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(c *container.Container) *AuthHandler {
	return &AuthHandler{
		accounts:     c.Accounts,
		cookieSecure: c.GetConfig().CookieSecure,
		logger:       c.GetLogger().Named("auth_handler"),
	}
}

// LoginResponse is the JSON body of a successful login
type LoginResponse struct {
	Username string `json:"username"`
	Redirect string `json:"redirect"`
}

// Register handles POST /register_user
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(w, r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	user, err := h.accounts.Register(r.Context(), domain.RegisterRequest{
		Username: f.String("username"),
		Email:    f.String("email"),
		Password: f.String("password"),
	})
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// Login handles POST /login. Browser form posts are redirected to the
// dashboard; API clients get the redirect target in the body.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(w, r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	user, token, err := h.accounts.Login(r.Context(), domain.LoginRequest{
		Email:    f.String("email"),
		Password: f.String("password"),
	}, middleware.ClientAddress(r))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	http.SetCookie(w, h.sessionCookie(token, 0))

	if isBrowserForm(r) {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	respondJSON(w, http.StatusOK, LoginResponse{Username: user.Username, Redirect: dashboardPath})
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.accounts.Logout(r.Context(), identity.Username); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	http.SetCookie(w, h.sessionCookie("", -1))
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// sessionCookie builds the auth cookie. maxAge < 0 deletes it.
func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
