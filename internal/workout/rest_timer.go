package workout

import (
	"fmt"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/apperr"
	"github.com/2beens/fittrack/internal/clock"
)

// RestStatus is the state of the rest countdown.
type RestStatus struct {
	SetID            string `json:"setId,omitempty"`
	RemainingSeconds int    `json:"remainingSeconds"`
	TotalSeconds     int    `json:"totalSeconds"`
	Running          bool   `json:"running"`
}

// RestTimer counts down between completed sets, once per second, independent
// of the workout duration. Starting a new countdown replaces the running one.
type RestTimer struct {
	scheduler clock.Scheduler
	onChange  func(RestStatus)

	mu         sync.Mutex
	status     RestStatus
	generation uint64
	cancel     clock.CancelFunc
}

// NewRestTimer creates a timer; onChange, if set, is called with every new
// status while the timer lock is held and must not call back into the timer.
func NewRestTimer(scheduler clock.Scheduler, onChange func(RestStatus)) *RestTimer {
	return &RestTimer{
		scheduler: scheduler,
		onChange:  onChange,
	}
}

func (r *RestTimer) Start(setID string, seconds int) RestStatus {
	r.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	r.status = RestStatus{
		SetID:            setID,
		RemainingSeconds: seconds,
		TotalSeconds:     seconds,
		Running:          seconds > 0,
	}
	if r.status.Running {
		gen := r.generation
		r.cancel = r.scheduler.Every(time.Second, func() bool {
			return r.tick(gen)
		})
	}
	r.notifyLocked()
	return r.status
}

func (r *RestTimer) tick(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation || !r.status.Running {
		return false
	}

	r.status.RemainingSeconds--
	if r.status.RemainingSeconds <= 0 {
		r.status.RemainingSeconds = 0
		r.status.Running = false
		r.cancel = nil
	}
	r.notifyLocked()
	return r.status.Running
}

// Skip ends the running countdown immediately.
func (r *RestTimer) Skip() (RestStatus, error) {
	r.mu.Lock()
	running := r.status.Running
	r.mu.Unlock()
	if !running {
		return RestStatus{}, fmt.Errorf("skip rest: no rest timer running: %w", apperr.ErrInvalidState)
	}

	r.Stop()
	return r.Status(), nil
}

// Adjust adds delta seconds (negative to shorten) to the running countdown.
func (r *RestTimer) Adjust(delta int) (RestStatus, error) {
	r.mu.Lock()
	if !r.status.Running {
		r.mu.Unlock()
		return RestStatus{}, fmt.Errorf("adjust rest: no rest timer running: %w", apperr.ErrInvalidState)
	}

	r.status.RemainingSeconds = max(r.status.RemainingSeconds+delta, 0)
	r.status.TotalSeconds = max(r.status.TotalSeconds+delta, r.status.RemainingSeconds)
	finished := r.status.RemainingSeconds == 0
	r.notifyLocked()
	r.mu.Unlock()

	if finished {
		r.Stop()
	}
	return r.Status(), nil
}

// Stop cancels the countdown. When it returns the timer no longer ticks.
func (r *RestTimer) Stop() {
	r.mu.Lock()
	r.generation++
	cancel := r.cancel
	r.cancel = nil
	wasRunning := r.status.Running
	r.status.RemainingSeconds = 0
	r.status.Running = false
	if wasRunning {
		r.notifyLocked()
	}
	r.mu.Unlock()

	// cancel waits for an in-flight tick, which needs mu
	if cancel != nil {
		cancel()
	}
}

func (r *RestTimer) Status() RestStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *RestTimer) notifyLocked() {
	if r.onChange != nil {
		r.onChange(r.status)
	}
}
