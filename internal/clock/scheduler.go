package clock

import (
	"sync"
	"time"
)

// TickFunc is invoked on every tick. Returning false stops the periodic job
// from within, without the caller having to cancel it.
type TickFunc func() bool

// CancelFunc stops a periodic job. When it returns, the job's TickFunc is
// guaranteed not to be running and will never be called again. It is safe to
// call more than once, but must not be called from within the job's own TickFunc.
type CancelFunc func()

// Scheduler runs periodic jobs. The tracking core does not care whether time is
// real (TickerScheduler) or virtual (ManualScheduler).
type Scheduler interface {
	Every(interval time.Duration, fn TickFunc) CancelFunc
}

// TickerScheduler runs each job on its own goroutine driven by a time.Ticker.
type TickerScheduler struct{}

func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

func (s *TickerScheduler) Every(interval time.Duration, fn TickFunc) CancelFunc {
	// panic on the caller goroutine, not in the ticker one
	if interval <= 0 {
		panic("clock: non-positive interval for TickerScheduler.Every")
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// stop might have been requested while waiting on the ticker
				select {
				case <-stop:
					return
				default:
				}
				if !fn() {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
		})
		<-done
	}
}
