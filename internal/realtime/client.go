package realtime

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"quizhub/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

// Inbound message names
const (
	MessageTrackActivity = "track_activity"
	MessageResetTime     = "reset_time"
)

// ActivityTracker receives connection lifecycle and activity signals
type ActivityTracker interface {
	Connect(id string)
	Disconnect(id string)
	Ping(id string)
	Reset(id string)
}

// inbound is a client-to-server message
type inbound struct {
	Event string `json:"event"`
	Data  struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Client is one viewer connection. writePump is the only writer on conn.
type Client struct {
	id      string
	conn    *websocket.Conn
	sub     *Subscriber
	hub     *Hub
	tracker ActivityTracker
	limiter *rate.Limiter
	logger  *logger.Logger
}

func newClient(id string, conn *websocket.Conn, sub *Subscriber, hub *Hub, tracker ActivityTracker, limit rate.Limit, burst int, log *logger.Logger) *Client {
	conn.SetReadLimit(maxMessageSize)

	return &Client{
		id:      id,
		conn:    conn,
		sub:     sub,
		hub:     hub,
		tracker: tracker,
		limiter: rate.NewLimiter(limit, burst),
		logger:  log.WithField("client_id", id),
	}
}

// readPump handles inbound messages until the connection fails, then
// unsubscribes and reports the disconnect.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.sub)
		c.tracker.Disconnect(c.id)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.Allow() {
			c.logger.Debug("Inbound message rate exceeded, discarding")
			continue
		}

		c.handle(raw)
	}
}

func (c *Client) handle(raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Debug("Invalid inbound message", zap.Error(err))
		return
	}

	id := msg.Data.ID
	if id == "" {
		id = c.id
	}

	switch msg.Event {
	case MessageTrackActivity:
		c.tracker.Ping(id)
	case MessageResetTime:
		c.tracker.Reset(id)
	default:
		c.logger.Debug("Unknown inbound event", zap.String("event", msg.Event))
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.logger.Debug("Client disconnected")
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("Inbound message too large")
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		c.logger.Debug("Connection closed")
	default:
		c.logger.Debug("WebSocket read error", zap.Error(err))
	}
}

// writePump forwards queued events and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.sub.C():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
