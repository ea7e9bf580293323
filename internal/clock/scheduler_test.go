package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTickerScheduler_CancelStopsJob(t *testing.T) {
	s := NewTickerScheduler()

	var calls atomic.Int32
	cancel := s.Every(5*time.Millisecond, func() bool {
		calls.Add(1)
		return true
	})

	require.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	afterCancel := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, afterCancel, calls.Load(), "no ticks after cancel returned")

	// second cancel is a no-op
	cancel()
}

func TestTickerScheduler_JobStopsItself(t *testing.T) {
	s := NewTickerScheduler()

	var calls atomic.Int32
	cancel := s.Every(time.Millisecond, func() bool {
		return calls.Add(1) < 3
	})

	require.Eventually(t, func() bool {
		return calls.Load() == 3
	}, time.Second, time.Millisecond)

	// cancel after the job already exited must not block
	cancel()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestManualScheduler_Advance(t *testing.T) {
	start := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	s := NewManualScheduler(start)

	var ticks int
	cancel := s.Every(time.Second, func() bool {
		ticks++
		return true
	})
	assert.Equal(t, 1, s.Jobs())

	s.Advance(500 * time.Millisecond)
	assert.Equal(t, 0, ticks)

	s.Advance(500 * time.Millisecond)
	assert.Equal(t, 1, ticks)

	s.Advance(10 * time.Second)
	assert.Equal(t, 11, ticks)
	assert.Equal(t, start.Add(11*time.Second), s.Now())

	cancel()
	assert.Equal(t, 0, s.Jobs())
	s.Advance(10 * time.Second)
	assert.Equal(t, 11, ticks)
}

func TestManualScheduler_NowDuringTick(t *testing.T) {
	start := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	s := NewManualScheduler(start)

	var seen []time.Time
	s.Every(time.Second, func() bool {
		seen = append(seen, s.Now())
		return true
	})

	s.AdvanceTicks(3, time.Second)
	assert.Equal(t, []time.Time{
		start.Add(time.Second),
		start.Add(2 * time.Second),
		start.Add(3 * time.Second),
	}, seen)
}

func TestManualScheduler_JobStopsItself(t *testing.T) {
	s := NewManualScheduler(time.Now())

	remaining := 3
	s.Every(time.Second, func() bool {
		remaining--
		return remaining > 0
	})

	s.Advance(10 * time.Second)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, 0, s.Jobs())
}

func TestManualScheduler_IndependentJobs(t *testing.T) {
	s := NewManualScheduler(time.Now())

	var fast, slow int
	s.Every(time.Second, func() bool { fast++; return true })
	cancelSlow := s.Every(3*time.Second, func() bool { slow++; return true })

	s.Advance(9 * time.Second)
	assert.Equal(t, 9, fast)
	assert.Equal(t, 3, slow)

	cancelSlow()
	s.Advance(3 * time.Second)
	assert.Equal(t, 12, fast)
	assert.Equal(t, 3, slow)
}

func TestScheduler_NonPositiveIntervalPanics(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		manual := NewManualScheduler(time.Now())
		assert.Panics(t, func() {
			manual.Every(interval, func() bool { return true })
		})
		assert.Equal(t, 0, manual.Jobs())

		ticker := NewTickerScheduler()
		assert.Panics(t, func() {
			ticker.Every(interval, func() bool { return true })
		})
	}
}
