package clock

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a virtual clock: jobs only fire when Advance is called.
// Used by tests and by the route replay tool.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	jobs   map[int]*manualJob
}

type manualJob struct {
	id       int
	interval time.Duration
	next     time.Time
	fn       TickFunc
}

func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{
		now:  start,
		jobs: make(map[int]*manualJob),
	}
}

// Now returns the virtual time, usable as an injected now func.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Jobs returns the number of active periodic jobs.
func (s *ManualScheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Every panics on a non-positive interval, as time.NewTicker does.
func (s *ManualScheduler) Every(interval time.Duration, fn TickFunc) CancelFunc {
	if interval <= 0 {
		panic("clock: non-positive interval for ManualScheduler.Every")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.jobs[id] = &manualJob{
		id:       id,
		interval: interval,
		next:     s.now.Add(interval),
		fn:       fn,
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.jobs, id)
	}
}

// Advance moves the virtual time forward, firing every due job in time order.
// Job functions run on the caller goroutine, without the scheduler lock held.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		job, ok := s.nextDue(target)
		if !ok {
			break
		}
		if !job.fn() {
			s.mu.Lock()
			delete(s.jobs, job.id)
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
}

// AdvanceTicks is a shortcut for n advances of one interval.
func (s *ManualScheduler) AdvanceTicks(n int, interval time.Duration) {
	for i := 0; i < n; i++ {
		s.Advance(interval)
	}
}

func (s *ManualScheduler) nextDue(target time.Time) (*manualJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]*manualJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		if !j.next.After(target) {
			due = append(due, j)
		}
	}
	if len(due) == 0 {
		return nil, false
	}

	sort.Slice(due, func(i, k int) bool {
		if due[i].next.Equal(due[k].next) {
			return due[i].id < due[k].id
		}
		return due[i].next.Before(due[k].next)
	})

	job := due[0]
	s.now = job.next
	job.next = job.next.Add(job.interval)
	return job, true
}
