package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) SweepAll(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return 1, s.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChallengeSweep_RunsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{}
	job := NewChallengeSweep(sweeper, 5*time.Millisecond, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestChallengeSweep_KeepsGoingAfterFailure(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("database is locked")}
	job := NewChallengeSweep(sweeper, 5*time.Millisecond, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go job.Run(ctx)

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, time.Millisecond)
}

func TestChallengeSweep_SweepsImmediately(t *testing.T) {
	sweeper := &countingSweeper{}
	job := NewChallengeSweep(sweeper, time.Hour, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go job.Run(ctx)

	assert.Eventually(t, func() bool { return sweeper.calls.Load() == 1 }, time.Second, time.Millisecond)
}
