// Package scheduler runs the periodic retention sweep.
package scheduler

import (
	"context"
	"log"
	"time"
)

// DefaultSweepInterval is how often the retention sweep runs when no interval
// is configured.
const DefaultSweepInterval = 24 * time.Hour

// Sweeper removes expired soft-deleted members.
type Sweeper interface {
	HardDeleteExpired(ctx context.Context) (int, error)
}

// StartRetentionSweep runs the sweep immediately and then on every tick until
// the returned cancel func is called. The done channel closes when the loop
// exits. A nil sweeper starts nothing.
func StartRetentionSweep(sweeper Sweeper, interval time.Duration) (context.CancelFunc, chan struct{}) {
	if sweeper == nil {
		return nil, nil
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		runRetentionSweep(ctx, sweeper, interval)
	}()

	return cancel, done
}

func runRetentionSweep(ctx context.Context, sweeper Sweeper, interval time.Duration) {
	sweep(ctx, sweeper)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, sweeper)
		}
	}
}

func sweep(ctx context.Context, sweeper Sweeper) {
	removed, err := sweeper.HardDeleteExpired(ctx)
	if err != nil {
		log.Printf("retention sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("retention sweep removed=%d", removed)
	}
}
