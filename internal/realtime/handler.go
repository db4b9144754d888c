package realtime

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"quizhub/pkg/logger"
)

// Inbound message throttle per connection
const (
	inboundRate  = rate.Limit(5)
	inboundBurst = 10
)

// Handler upgrades GET /ws?id=<identifier> to a viewer connection
type Handler struct {
	hub      *Hub
	tracker  ActivityTracker
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewHandler creates a websocket handler. Browser origins are checked
// against allowedOrigins; "*" allows any.
func NewHandler(hub *Hub, tracker ActivityTracker, allowedOrigins []string, log *logger.Logger) *Handler {
	allowed, allowAll := normalizeOrigins(allowedOrigins)

	return &Handler{
		hub:     hub,
		tracker: tracker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAll {
					return true
				}
				normalized, ok := normalizeOrigin(origin)
				if !ok {
					return false
				}
				_, exists := allowed[normalized]
				return exists
			},
		},
		logger: log.Named("ws"),
	}
}

// ServeHTTP handles the upgrade and hands the connection to its pumps
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		id = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}

	sub := h.hub.Subscribe()
	if sub == nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}

	client := newClient(id, conn, sub, h.hub, h.tracker, inboundRate, inboundBurst, h.logger)
	h.tracker.Connect(id)

	go client.writePump()
	go client.readPump()
}

func normalizeOrigins(origins []string) (map[string]struct{}, bool) {
	allowed := make(map[string]struct{}, len(origins))
	allowAll := false
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "*" {
			allowAll = true
			continue
		}
		if normalized, ok := normalizeOrigin(trimmed); ok {
			allowed[normalized] = struct{}{}
		}
	}
	return allowed, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
