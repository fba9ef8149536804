package core

import (
	"context"
	"time"
)

// Timer is the only place where pagination waits. Sync and async fetches use
// the same timer, so they wait at the same points.
type Timer interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

var _ Timer = wallTimer{}

type wallTimer struct{}

func (wallTimer) Now() time.Time {
	return time.Now()
}

func (wallTimer) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WallTimer returns the timer backed by the system clock.
func WallTimer() Timer {
	return wallTimer{}
}
