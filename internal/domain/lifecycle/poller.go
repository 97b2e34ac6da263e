package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poller drives a tracker on a fixed interval.
type Poller struct {
	tracker  *Tracker
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller creates a poller; interval must be positive.
func NewPoller(tracker *Tracker, interval time.Duration) *Poller {
	return &Poller{
		tracker:  tracker,
		interval: interval,
		logger:   tracker.logger,
	}
}

// Run polls immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.tracker.CheckForApplicationUpdates(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("Application update check failed", zap.Error(err))
	}
}
