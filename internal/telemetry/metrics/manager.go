package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests           *prometheus.CounterVec
	CounterHandleRequestPanic prometheus.Counter
	CounterRateLimited        prometheus.Counter
	CounterSessions           *prometheus.CounterVec // label: event (started, stopped, start_failed)
	CounterTicks              prometheus.Counter
	CounterLocationFixes      *prometheus.CounterVec // label: result (accepted, invalid, filtered, ignored)
	CounterLocationErrors     prometheus.Counter
	CounterWorkouts           *prometheus.CounterVec // label: event (started, finished)
	CounterSetsCompleted      prometheus.Counter
	CounterHistoryAppendFails prometheus.Counter

	// gauges
	GaugeRequests      prometheus.Gauge
	GaugeLifeSignal    prometheus.Gauge
	GaugeActiveSession prometheus.Gauge
	GaugeActiveWorkout prometheus.Gauge
	GaugeRestRemaining prometheus.Gauge

	// histograms
	HistSessionDuration      prometheus.Histogram
	HistSessionDistance      prometheus.Histogram
	HistWorkoutDuration      prometheus.Histogram
	HistogramRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("fittrack", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("fittrack", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterRateLimited := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rate_limited_requests",
		Help:      "The total number of rate limited requests",
	})
	counterSessions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "activity_sessions",
		Help:      "Activity session lifecycle events",
	}, []string{"event"})
	counterTicks := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "activity_ticks",
		Help:      "The total number of processed session timer ticks",
	})
	counterLocationFixes := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "location_fixes",
		Help:      "Location fixes received, by result",
	}, []string{"result"})
	counterLocationErrors := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "location_errors",
		Help:      "Location provider errors reported while tracking",
	})
	counterWorkouts := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "workouts",
		Help:      "Workout lifecycle events",
	}, []string{"event"})
	counterSetsCompleted := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sets_completed",
		Help:      "The total number of completed workout sets",
	})
	counterHistoryAppendFails := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "history_append_failures",
		Help:      "Finished sessions/workouts that could not be written to history",
	})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Shows whether the service is alive",
	})
	gaugeActiveSession := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_session",
		Help:      "1 while an activity session is tracking or paused",
	})
	gaugeActiveWorkout := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_workout",
		Help:      "1 while a workout is active",
	})
	gaugeRestRemaining := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rest_remaining_seconds",
		Help:      "Seconds left on the running rest timer",
	})

	histSessionDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "activity_session_duration_seconds",
		Help:      "Elapsed (tracked) time of stopped activity sessions",
		Buckets:   []float64{60, 300, 600, 1200, 1800, 3600, 5400, 7200, 10800, 14400},
	})
	histSessionDistance := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "activity_session_distance_meters",
		Help:      "Distance covered in stopped activity sessions",
		Buckets:   []float64{0, 500, 1000, 2500, 5000, 10000, 21097, 42195, 100000},
	})
	histWorkoutDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "workout_duration_seconds",
		Help:      "Duration of finished workouts",
		Buckets:   []float64{300, 900, 1800, 2700, 3600, 5400, 7200},
	})
	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status_code"})

	return &Manager{
		CounterRequests:           counterRequests,
		CounterHandleRequestPanic: counterHandleRequestPanic,
		CounterRateLimited:        counterRateLimited,
		CounterSessions:           counterSessions,
		CounterTicks:              counterTicks,
		CounterLocationFixes:      counterLocationFixes,
		CounterLocationErrors:     counterLocationErrors,
		CounterWorkouts:           counterWorkouts,
		CounterSetsCompleted:      counterSetsCompleted,
		CounterHistoryAppendFails: counterHistoryAppendFails,
		GaugeRequests:             gaugeRequests,
		GaugeLifeSignal:           gaugeLifeSignal,
		GaugeActiveSession:        gaugeActiveSession,
		GaugeActiveWorkout:        gaugeActiveWorkout,
		GaugeRestRemaining:        gaugeRestRemaining,
		HistSessionDuration:       histSessionDuration,
		HistSessionDistance:       histSessionDistance,
		HistWorkoutDuration:       histWorkoutDuration,
		HistogramRequestDuration:  histogramRequestDuration,
	}
}
