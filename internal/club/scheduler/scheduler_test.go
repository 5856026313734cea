package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	calls atomic.Int64
}

func (s *countingSweeper) HardDeleteExpired(context.Context) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

func TestStartRetentionSweepRunsImmediately(t *testing.T) {
	sweeper := &countingSweeper{}

	cancel, done := StartRetentionSweep(sweeper, time.Hour)
	if cancel == nil || done == nil {
		t.Fatal("expected running sweep")
	}

	deadline := time.After(2 * time.Second)
	for sweeper.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected an immediate sweep")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected loop to stop after cancel")
	}
}

func TestStartRetentionSweepTicks(t *testing.T) {
	sweeper := &countingSweeper{}

	cancel, done := StartRetentionSweep(sweeper, 20*time.Millisecond)
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.After(2 * time.Second)
	for sweeper.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("expected repeated sweeps")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStartRetentionSweepNilSweeper(t *testing.T) {
	cancel, done := StartRetentionSweep(nil, time.Hour)
	if cancel != nil || done != nil {
		t.Fatal("expected no loop for nil sweeper")
	}
}
