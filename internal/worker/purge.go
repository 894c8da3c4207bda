package worker

import (
	"context"
	"log/slog"
	"time"
)

// Purger removes every disposable test account.
type Purger interface {
	PurgeTestAccounts(ctx context.Context) (int, error)
}

// TestAccountPurger periodically purges test accounts.
type TestAccountPurger struct {
	purger   Purger
	interval time.Duration
	logger   *slog.Logger
}

// NewTestAccountPurger creates a purger that runs every interval.
func NewTestAccountPurger(purger Purger, interval time.Duration, logger *slog.Logger) *TestAccountPurger {
	return &TestAccountPurger{purger: purger, interval: interval, logger: logger}
}

// Run blocks until ctx is canceled, purging once per interval. A failed run
// is logged and retried on the next tick.
func (p *TestAccountPurger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("test account purger started", slog.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("test account purger stopped")
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *TestAccountPurger) runOnce(ctx context.Context) {
	purged, err := p.purger.PurgeTestAccounts(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("test account purge error", slog.String("error", err.Error()))
		return
	}
	if purged > 0 {
		p.logger.Info("test accounts purged", slog.Int("purged", purged))
	}
}
