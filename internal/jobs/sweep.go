// Package jobs runs periodic background work for the server.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Sweeper is the part of service.ChallengeService the sweep job needs.
type Sweeper interface {
	SweepAll(ctx context.Context) (int, error)
}

// ChallengeSweep replaces expired challenges on a fixed interval so users
// who never open the app still see fresh challenges when they return.
type ChallengeSweep struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

func NewChallengeSweep(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *ChallengeSweep {
	return &ChallengeSweep{sweeper: sweeper, interval: interval, logger: logger}
}

// Run sweeps once immediately and then on every tick until ctx is
// cancelled. A failed sweep is logged and retried on the next tick.
func (j *ChallengeSweep) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("challenge sweep started", slog.Duration("interval", j.interval))
	for {
		j.runOnce(ctx)
		select {
		case <-ctx.Done():
			j.logger.Info("challenge sweep stopped")
			return
		case <-ticker.C:
		}
	}
}

func (j *ChallengeSweep) runOnce(ctx context.Context) {
	swept, err := j.sweeper.SweepAll(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			j.logger.Error("challenge sweep failed", slog.String("error", err.Error()))
		}
		return
	}
	if swept > 0 {
		j.logger.Info("expired challenges replaced", slog.Int("users", swept))
	}
}
