package scheduler

import (
	"context"
	"time"

	"greenlight_backend/platform/logger"
)

const (
	defaultPollInterval  = 30 * time.Second
	defaultSweepInterval = 5 * time.Minute
	defaultStaleAfter    = 45 * time.Minute
)

// PeriodicEnqueuer drives the reconciliation loop: it enqueues a status poll
// every pollInterval and a staleness sweep every sweepInterval.
type PeriodicEnqueuer struct {
	client        *Client
	log           *logger.Logger
	pollInterval  time.Duration
	sweepInterval time.Duration
	staleAfter    time.Duration
}

func NewPeriodicEnqueuer(client *Client, log *logger.Logger, pollInterval, staleAfter time.Duration) *PeriodicEnqueuer {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &PeriodicEnqueuer{
		client:        client,
		log:           log,
		pollInterval:  pollInterval,
		sweepInterval: defaultSweepInterval,
		staleAfter:    staleAfter,
	}
}

func (e *PeriodicEnqueuer) Run(ctx context.Context) {
	if e == nil || e.client == nil {
		return
	}

	pollTicker := time.NewTicker(e.pollInterval)
	defer pollTicker.Stop()
	sweepTicker := time.NewTicker(e.sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			if err := e.client.EnqueuePoll(ctx); err != nil {
				e.log.Warn("failed to enqueue evaluation poll", "error", err)
			}
		case <-sweepTicker.C:
			if err := e.client.EnqueueSweep(ctx, e.staleAfter); err != nil {
				e.log.Warn("failed to enqueue stale evaluation sweep", "error", err)
			}
		}
	}
}
