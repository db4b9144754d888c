package handler

import (
	"net/http"
	"time"

	"quizhub/internal/container"
	"quizhub/internal/middleware"
	"quizhub/internal/realtime"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// requestTimeout bounds every non-websocket request
const requestTimeout = 30 * time.Second

// NewRouter configures and returns the HTTP router. db may be nil.
func NewRouter(c *container.Container, db Pinger) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()

	r := chi.NewRouter()

	// Rate limiting runs first so blocked addresses cost nothing else
	r.Use(middleware.RateLimit(c.Limiter, log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(log.Named("http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins), log))

	healthHandler := NewHealthHandler(c, db)
	authHandler := NewAuthHandler(c)
	quizHandler := NewQuizHandler(c)
	pollHandler := NewPollHandler(c)
	activityHandler := NewActivityHandler(c)
	wsHandler := realtime.NewHandler(c.Hub, c.Services.Activity, cfg.AllowedOrigins, log)

	r.Get("/health", healthHandler.Check)

	// Long-lived; must stay outside the request timeout
	r.Method(http.MethodGet, "/ws", wsHandler)

	r.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(requestTimeout))
		r.Use(chiMiddleware.Compress(5))

		r.Post("/register_user", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Get("/dashboard", quizHandler.Dashboard)
		r.Get("/likes/{id}", quizHandler.Likes)
		r.Get("/daily_poll", pollHandler.DailyPoll)
		r.Get("/active_users", activityHandler.ActiveUsers)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(c.Tokens, log))

			r.Post("/logout", authHandler.Logout)
			r.Post("/upload_quiz", quizHandler.Upload)
			r.Post("/comment_quiz/{id}", quizHandler.Comment)
			r.Post("/interact", quizHandler.Interact)
			r.Post("/submit_poll", pollHandler.SubmitPoll)
			r.Post("/track_user_activity", activityHandler.Track)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
