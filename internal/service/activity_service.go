package service

import (
	"context"
	"sync"
	"time"

	"quizhub/internal/domain"
	"quizhub/pkg/logger"

	"go.uber.org/zap"
)

// ActivityService tracks how many seconds each viewer has been active.
// A ticker increments every known identifier once per interval and
// broadcasts the full snapshot.
type ActivityService struct {
	mu    sync.Mutex
	times domain.ActiveTimes

	publisher Publisher
	cache     *CacheService
	logger    *logger.Logger

	interval  time.Duration
	lifecycle sync.Mutex
	running   bool
	ticker    *time.Ticker
	stop      chan struct{}
	wg        sync.WaitGroup
}

// NewActivityService creates a new activity tracker
func NewActivityService(publisher Publisher, cache *CacheService, log *logger.Logger) *ActivityService {
	return &ActivityService{
		times:     domain.ActiveTimes{},
		publisher: publisher,
		cache:     cache,
		logger:    log.Named("activity"),
		interval:  time.Second,
	}
}

// Ping registers id with zero seconds if it is new
func (s *ActivityService) Ping(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	s.upsertLocked(id)
	s.mu.Unlock()
}

// Reset zeroes the counter of id and broadcasts the snapshot
func (s *ActivityService) Reset(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	s.times[id] = 0
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.broadcast(snapshot)
}

// Connect registers id and broadcasts the snapshot
func (s *ActivityService) Connect(id string) {
	s.mu.Lock()
	if id != "" {
		s.upsertLocked(id)
	}
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.broadcast(snapshot)
}

// Disconnect leaves counters untouched and broadcasts the snapshot
func (s *ActivityService) Disconnect(id string) {
	s.logger.Debug("Viewer disconnected", zap.String("id", id))
	s.broadcast(s.Snapshot())
}

// Snapshot returns a copy of all counters
func (s *ActivityService) Snapshot() domain.ActiveTimes {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.copyLocked()
}

// Tick increments every counter by one and broadcasts the result
func (s *ActivityService) Tick() {
	s.mu.Lock()
	for id := range s.times {
		s.times[id]++
	}
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.broadcast(snapshot)
}

// Start restores the persisted snapshot and launches the ticker
func (s *ActivityService) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.running {
		return nil
	}

	if err := s.restore(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to restore activity snapshot, starting empty")
	}

	s.ticker = time.NewTicker(s.interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.tickRoutine(s.ticker, s.stop)

	s.running = true
	s.logger.Info("Activity tracker started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the ticker, waits for it and persists the final snapshot
func (s *ActivityService) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.running {
		return nil
	}

	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.running = false

	if err := s.cache.SaveActiveTimes(ctx, s.Snapshot()); err != nil {
		s.logger.WithError(err).Error("Failed to persist activity snapshot during shutdown")
		return err
	}

	s.logger.Info("Activity tracker stopped")
	return nil
}

func (s *ActivityService) tickRoutine(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-stop:
			return
		}
	}
}

func (s *ActivityService) restore(ctx context.Context) error {
	saved, err := s.cache.LoadActiveTimes(ctx)
	if err != nil {
		return err
	}
	if len(saved) == 0 {
		return nil
	}

	s.mu.Lock()
	for id, ticks := range saved {
		if _, ok := s.times[id]; !ok {
			s.times[id] = ticks
		}
	}
	s.mu.Unlock()

	s.logger.Info("Restored activity snapshot", zap.Int("identifiers", len(saved)))
	return nil
}

// broadcast publishes outside the lock
func (s *ActivityService) broadcast(snapshot domain.ActiveTimes) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(domain.EventUpdateTimes, snapshot)
}

func (s *ActivityService) upsertLocked(id string) {
	if _, ok := s.times[id]; !ok {
		s.times[id] = 0
	}
}

func (s *ActivityService) copyLocked() domain.ActiveTimes {
	out := make(domain.ActiveTimes, len(s.times))
	for id, ticks := range s.times {
		out[id] = ticks
	}
	return out
}
