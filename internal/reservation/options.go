package reservation

import (
	"context"
	"log/slog"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/metrics"
)

const (
	DefaultHoldWindow     = 10 * time.Minute
	DefaultTimeout        = 5 * time.Second
	DefaultMaxAttempts    = 5
	DefaultInitialBackOff = 10 * time.Millisecond
	DefaultMaxBackOff     = 250 * time.Millisecond
)

type Option func(*Engine)

// WithLocker sets the per-showtime exclusivity scope. The default is an
// in-process keyed mutex.
func WithLocker(locker Locker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithHoldWindow sets how long an unconfirmed hold stays exclusive.
func WithHoldWindow(window time.Duration) Option {
	return func(e *Engine) {
		e.holdWindow = window
	}
}

// WithTimeout bounds each operation, lock wait included.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.timeout = timeout
	}
}

// WithMaxAttempts bounds the commit attempts per operation. Zero is ignored.
func WithMaxAttempts(attempts uint) Option {
	return func(e *Engine) {
		if attempts > 0 {
			e.maxAttempts = attempts
		}
	}
}

func WithBackOff(initial, max time.Duration) Option {
	return func(e *Engine) {
		e.initialBackOff = initial
		e.maxBackOff = max
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCommitHook registers fn to run after every successful seat map write.
func WithCommitHook(fn func(ctx context.Context, showtimeID string)) Option {
	return func(e *Engine) {
		e.onCommit = fn
	}
}
