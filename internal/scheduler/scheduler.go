// Package scheduler runs periodic housekeeping over the session store.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// SessionStore is the part of storage the sweeper needs.
type SessionStore interface {
	DeleteStaleSessions(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper periodically deletes sessions that have been idle longer than ttl.
type Sweeper struct {
	store SessionStore
	ttl   time.Duration
	log   *slog.Logger
	tick  time.Duration
	now   func() time.Time
	swept func(n int64)
}

// New creates a Sweeper with a 1-hour tick.
func New(store SessionStore, ttl time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{
		store: store,
		ttl:   ttl,
		log:   log,
		tick:  1 * time.Hour,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetTickInterval overrides the default 1-hour sweep interval.
func (s *Sweeper) SetTickInterval(d time.Duration) {
	s.tick = d
}

// OnSweep registers a callback invoked with the number of sessions removed
// by each successful sweep.
func (s *Sweeper) OnSweep(fn func(n int64)) {
	s.swept = fn
}

// Run sweeps once, then on every tick, blocking until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	n, err := s.store.DeleteStaleSessions(ctx, cutoff)
	if err != nil {
		s.log.Error("delete stale sessions", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("swept stale sessions", "count", n, "cutoff", cutoff)
	}
	if s.swept != nil {
		s.swept(n)
	}
}
