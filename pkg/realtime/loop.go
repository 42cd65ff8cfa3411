package realtime

import (
	"context"
	"sync"
	"time"
)

// FireFunc runs one tick. The loop does not re-arm its timer until FireFunc
// returns, so a slow tick delays the next one instead of overlapping it.
type FireFunc func(ctx context.Context)

// Loop is a fixed-interval timer that can be started at most once until stopped.
type Loop struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches the loop. If the loop is already running it is not started
// again and Start returns false.
func (l *Loop) Start(interval time.Duration, fire FireFunc) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go func() {
		defer close(done)
		timer := time.NewTimer(interval)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				fire(ctx)
				timer.Reset(interval)
			}
		}
	}()
	return true
}

// Running reports whether the loop has been started and not stopped.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Stop halts the loop and waits for an in-flight tick to return.
// It must not be called from inside a FireFunc.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Ticks converts a wall-clock duration into a whole number of ticks at the
// given interval. Durations shorter than one tick round down to zero.
func Ticks(d, interval time.Duration) int {
	if interval <= 0 {
		return 0
	}
	return int(d / interval)
}
