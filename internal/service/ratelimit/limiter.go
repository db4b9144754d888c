// Package ratelimit implements a process-local sliding window limiter with
// a temporary block list, keyed by client address.
package ratelimit

import (
	"sync"
	"time"
)

// Defaults
const (
	DefaultWindow      = 10 * time.Second
	DefaultMaxRequests = 50
	DefaultBlock       = 30 * time.Second

	// sweepEvery is the number of admissions between idle-entry sweeps
	sweepEvery = 1024
)

// Config configures a Limiter
type Config struct {
	Window      time.Duration
	MaxRequests int
	Block       time.Duration
}

// Limiter admits at most MaxRequests per address in any trailing Window.
// Exceeding it blocks the address for Block, lifted lazily on the next request.
type Limiter struct {
	cfg Config

	mu         sync.Mutex
	requests   map[string][]time.Time
	blocked    map[string]time.Time
	admissions int
}

// New creates a Limiter. Zero config values take the defaults.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.Block <= 0 {
		cfg.Block = DefaultBlock
	}

	return &Limiter{
		cfg:      cfg,
		requests: make(map[string][]time.Time),
		blocked:  make(map[string]time.Time),
	}
}

// Admit records a request from address at now and reports whether it may proceed
func (l *Limiter) Admit(address string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.admissions++
	if l.admissions%sweepEvery == 0 {
		l.sweepLocked(now)
	}

	if since, ok := l.blocked[address]; ok {
		if now.Sub(since) < l.cfg.Block {
			return false
		}
		delete(l.blocked, address)
		delete(l.requests, address)
	}

	times := prune(l.requests[address], now.Add(-l.cfg.Window))
	times = append(times, now)

	if len(times) > l.cfg.MaxRequests {
		l.blocked[address] = now
		delete(l.requests, address)
		return false
	}

	l.requests[address] = times
	return true
}

// Blocked reports whether address is currently blocked at now
func (l *Limiter) Blocked(address string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	since, ok := l.blocked[address]
	return ok && now.Sub(since) < l.cfg.Block
}

// Sweep drops windows with no recent requests and expired blocks
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)
}

// Len returns the number of tracked addresses
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.requests) + len(l.blocked)
}

func (l *Limiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	for addr, times := range l.requests {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(l.requests, addr)
		}
	}
	for addr, since := range l.blocked {
		if now.Sub(since) >= l.cfg.Block {
			delete(l.blocked, addr)
		}
	}
}

// prune drops leading timestamps at or before cutoff. times is ascending.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}
