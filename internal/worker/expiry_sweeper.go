package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/saurabh97858/myshow-sub000/internal/booking"
)

// Sweeper runs one expiry pass.
type Sweeper interface {
	SweepExpired(ctx context.Context) (booking.SweepResult, error)
}

// ExpirySweeper periodically returns lapsed seat holds to the free pool.
type ExpirySweeper struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewExpirySweeper(s Sweeper, interval time.Duration, logger *slog.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		sweeper:  s,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start blocks until ctx is done or Stop is called.
func (w *ExpirySweeper) Start(ctx context.Context) {
	w.logger.Info("expiry sweeper started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry sweeper stopped", "reason", "context done")
			return
		case <-w.stopCh:
			w.logger.Info("expiry sweeper stopped", "reason", "stop requested")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop signals Start to return and waits for it. It must be called at most
// once, after Start.
func (w *ExpirySweeper) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *ExpirySweeper) sweep(ctx context.Context) {
	result, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		w.logger.Error("expiry sweep failed", "error", err)
	}

	if result.ExpiredBookings > 0 || result.OrphanedSeats > 0 {
		w.logger.Info("expiry sweep finished",
			"expired_bookings", result.ExpiredBookings,
			"released_seats", result.ReleasedSeats,
			"orphaned_seats", result.OrphanedSeats,
		)
	} else {
		w.logger.Debug("expiry sweep found nothing to release")
	}
}
