// Package realtime fans named JSON events out to connected viewers.
package realtime

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"quizhub/pkg/logger"

	"go.uber.org/zap"
)

// DefaultQueueSize is the per-subscriber buffer when none is configured
const DefaultQueueSize = 64

// publishBuffer bounds events waiting for the dispatch loop
const publishBuffer = 256

// Envelope is the wire form of every pushed event
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Subscriber receives encoded envelopes in publish order.
// Its channel is closed when it unsubscribes or the hub shuts down.
type Subscriber struct {
	send    chan []byte
	dropped atomic.Int64
}

// C returns the receive side of the subscriber queue
func (s *Subscriber) C() <-chan []byte {
	return s.send
}

// Dropped returns how many events were discarded because the queue was full
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Hub serializes fan-out through a single dispatch loop. Publishers only
// wait for that loop, never for a subscriber.
type Hub struct {
	queueSize   int
	subscribers map[*Subscriber]struct{}
	count       atomic.Int64

	publish    chan []byte
	register   chan *Subscriber
	unregister chan *Subscriber

	closed atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	logger *logger.Logger
}

// NewHub creates a hub. Call Run in its own goroutine.
func NewHub(queueSize int, log *logger.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		queueSize:   queueSize,
		subscribers: make(map[*Subscriber]struct{}),
		publish:     make(chan []byte, publishBuffer),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		logger:      log.Named("hub"),
	}
}

// Publish encodes data under event and queues it for every subscriber.
// It is a no-op once the hub is shut down.
func (h *Hub) Publish(event string, data interface{}) {
	if h.closed.Load() {
		return
	}

	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("event", event), zap.Error(err))
		return
	}

	select {
	case h.publish <- payload:
	case <-h.ctx.Done():
	}
}

// Subscribe registers a new subscriber. Returns nil after shutdown.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{send: make(chan []byte, h.queueSize)}

	select {
	case h.register <- sub:
		return sub
	case <-h.ctx.Done():
		return nil
	}
}

// Unsubscribe removes sub and closes its channel
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	select {
	case h.unregister <- sub:
	case <-h.ctx.Done():
	}
}

// SubscriberCount returns the number of connected subscribers
func (h *Hub) SubscriberCount() int {
	return int(h.count.Load())
}

// Run is the dispatch loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			for sub := range h.subscribers {
				delete(h.subscribers, sub)
				close(sub.send)
			}
			h.count.Store(0)
			return

		case sub := <-h.register:
			h.subscribers[sub] = struct{}{}
			h.count.Store(int64(len(h.subscribers)))
			h.logger.Debug("Subscriber registered", zap.Int("subscribers", len(h.subscribers)))

		case sub := <-h.unregister:
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.send)
				h.count.Store(int64(len(h.subscribers)))
				h.logger.Debug("Subscriber unregistered", zap.Int("subscribers", len(h.subscribers)))
			}

		case payload := <-h.publish:
			for sub := range h.subscribers {
				h.deliver(sub, payload)
			}
		}
	}
}

// deliver enqueues payload, evicting the oldest queued event when full.
// Only the dispatch loop sends on sub.send.
func (h *Hub) deliver(sub *Subscriber, payload []byte) {
	select {
	case sub.send <- payload:
		return
	default:
	}

	select {
	case <-sub.send:
		sub.dropped.Add(1)
	default:
	}

	select {
	case sub.send <- payload:
	default:
		sub.dropped.Add(1)
	}
}

// Shutdown stops the dispatch loop and closes every subscriber channel
func (h *Hub) Shutdown(timeout time.Duration) error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	h.logger.Info("Shutting down hub")
	h.cancel()

	select {
	case <-h.done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}
