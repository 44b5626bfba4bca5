package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/intake/internal/logging"
)

// DefaultIdleTimeout is how long a session may stay inactive before eviction.
const DefaultIdleTimeout = 30 * time.Minute

// Sweeper evicts idle sessions on a fixed interval, independent of request handling.
type Sweeper struct {
	manager   *Manager
	interval  time.Duration
	threshold time.Duration
	logger    *slog.Logger
	onSweep   func(evicted int)
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepLogger sets the sweeper logger.
func WithSweepLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = logger }
}

// WithSweepHook registers a callback reporting the evictions of every tick.
func WithSweepHook(fn func(evicted int)) SweeperOption {
	return func(s *Sweeper) { s.onSweep = fn }
}

// NewSweeper creates a sweeper. Non-positive durations fall back to the defaults
// (a tick every minute, a 30 minute idle threshold).
func NewSweeper(m *Manager, interval, threshold time.Duration, opts ...SweeperOption) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if threshold <= 0 {
		threshold = DefaultIdleTimeout
	}
	s := &Sweeper{
		manager:   m,
		interval:  interval,
		threshold: threshold,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs a single eviction pass.
func (s *Sweeper) Sweep(ctx context.Context) int {
	n, err := s.manager.EvictIdle(ctx, s.threshold)
	if err != nil {
		s.logger.Warn("Idle sweep incomplete", "evicted", n, "err", err)
	} else if n > 0 {
		s.logger.Info("Evicted idle sessions", "evicted", n)
	}
	if s.onSweep != nil {
		s.onSweep(n)
	}
	return n
}
