package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck flags a goroutine leak: it fails once the process
// holds more than max goroutines.
func GoroutineCountCheck(max int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > max {
			return errors.Errorf("%d goroutines, limit %d", n, max)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when the most recent stop-the-world GC pause
// exceeded max. Only the latest pause counts, so one historical hiccup
// does not pin the check unhealthy forever.
func GCMaxPauseCheck(max time.Duration) CheckFunc {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		if len(stats.Pause) > 0 && stats.Pause[0] > max {
			return errors.Errorf("last GC pause %s, limit %s", stats.Pause[0], max)
		}
		return nil
	}
}
