package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/apperr"
	"github.com/2beens/fittrack/internal/clock"
	"github.com/2beens/fittrack/internal/geo"
	"github.com/2beens/fittrack/internal/history"
	"github.com/2beens/fittrack/internal/location"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=activity_test

type historyStore interface {
	Append(ctx context.Context, entry history.Entry) error
	List(ctx context.Context, kind history.Kind, limit int) ([]history.Entry, error)
}

const DefaultTickInterval = time.Second

type TrackerParams struct {
	Provider location.Provider
	// Scheduler drives the elapsed-time tick. When nil, the caller drives time
	// through Tracker.Tick.
	Scheduler    clock.Scheduler
	History      historyStore
	Metrics      *metrics.Manager
	NowFunc      func() time.Time
	JumpFilter   geo.JumpFilter
	WatchOptions location.WatchOptions
	TickInterval time.Duration
}

// Tracker owns at most one live activity session and its resources: the
// periodic tick and the location subscription.
type Tracker struct {
	provider     location.Provider
	scheduler    clock.Scheduler
	history      historyStore
	metrics      *metrics.Manager
	nowFunc      func() time.Time
	jumpFilter   geo.JumpFilter
	watchOptions location.WatchOptions
	tickInterval time.Duration

	// opMu serializes lifecycle operations, mu guards the session state;
	// resources are always released with mu unlocked
	opMu sync.Mutex
	mu   sync.Mutex

	session *Session
	// last stopped session, kept for the frozen metrics snapshot
	last *Session
	// bumped on every lifecycle transition; callbacks from older generations are ignored
	generation uint64
	cancelTick clock.CancelFunc
	sub        location.Subscription
	watching   bool

	listenersMu sync.Mutex
	listeners   map[int]chan Metrics
	nextID      int
}

func NewTracker(params TrackerParams) *Tracker {
	nowFunc := params.NowFunc
	if nowFunc == nil {
		nowFunc = time.Now
	}
	tickInterval := params.TickInterval
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	watchOptions := params.WatchOptions
	if watchOptions == (location.WatchOptions{}) {
		watchOptions = location.DefaultWatchOptions()
	}
	metricsManager := params.Metrics
	if metricsManager == nil {
		// unexported registry, nothing scrapes it
		metricsManager = metrics.NewManager("fittrack", "activity", prometheus.NewRegistry())
	}

	return &Tracker{
		provider:     params.Provider,
		scheduler:    params.Scheduler,
		history:      params.History,
		metrics:      metricsManager,
		nowFunc:      nowFunc,
		jumpFilter:   params.JumpFilter,
		watchOptions: watchOptions,
		tickInterval: tickInterval,
		listeners:    make(map[int]chan Metrics),
	}
}

// Start begins a new session. If the location source is unavailable the
// tracker stays idle and no session is created.
func (t *Tracker) Start(ctx context.Context, activityType Type) (_ Metrics, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "activity.tracker.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("type", string(activityType)))

	if _, err := ParseType(string(activityType)); err != nil {
		return Metrics{}, err
	}

	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.mu.Lock()
	if t.session != nil {
		state := t.session.State
		t.mu.Unlock()
		return Metrics{}, fmt.Errorf("start while %s: %w", state, apperr.ErrInvalidState)
	}
	t.generation++
	gen := t.generation
	t.mu.Unlock()

	sub, err := t.provider.Watch(t.watchOptions, t.onLocation(gen), t.onLocationError(gen))
	if err != nil {
		t.metrics.CounterSessions.WithLabelValues("start_failed").Inc()
		log.Warnf("activity start, watch location: %s", err)
		return Metrics{}, locationUnavailable(err)
	}

	session := NewSession(uuid.NewString(), activityType, t.nowFunc())

	t.mu.Lock()
	t.session = session
	t.sub = sub
	t.watching = true
	t.startTickLocked(gen)
	m := session.Metrics()
	t.emitLocked(m)
	t.mu.Unlock()

	t.metrics.CounterSessions.WithLabelValues("started").Inc()
	t.metrics.GaugeActiveSession.Set(1)
	log.Debugf("activity session %s started: %s", session.ID, activityType)

	return m, nil
}

// Pause stops the tick and releases the location subscription. When it
// returns, neither elapsed time nor distance can change.
func (t *Tracker) Pause() (Metrics, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.mu.Lock()
	if t.session == nil || t.session.State != Tracking {
		state := t.stateLocked()
		t.mu.Unlock()
		return Metrics{}, fmt.Errorf("pause while %s: %w", state, apperr.ErrInvalidState)
	}
	t.session.State = Paused
	t.generation++
	release := t.takeResourcesLocked()
	m := t.session.Metrics()
	t.emitLocked(m)
	sessionID := t.session.ID
	t.mu.Unlock()

	if err := release(); err != nil {
		log.Warnf("activity session %s pause, release resources: %s", sessionID, err)
	}

	log.Debugf("activity session %s paused at %ds", sessionID, m.ElapsedSeconds)
	return m, nil
}

// Resume re-acquires the location subscription and restarts the tick from the
// current elapsed time. On location failure the session stays paused.
func (t *Tracker) Resume() (Metrics, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.mu.Lock()
	if t.session == nil || t.session.State != Paused {
		state := t.stateLocked()
		t.mu.Unlock()
		return Metrics{}, fmt.Errorf("resume while %s: %w", state, apperr.ErrInvalidState)
	}
	t.generation++
	gen := t.generation
	t.mu.Unlock()

	sub, err := t.provider.Watch(t.watchOptions, t.onLocation(gen), t.onLocationError(gen))
	if err != nil {
		log.Warnf("activity resume, watch location: %s", err)
		return Metrics{}, locationUnavailable(err)
	}

	t.mu.Lock()
	t.session.State = Tracking
	t.sub = sub
	t.watching = true
	t.startTickLocked(gen)
	m := t.session.Metrics()
	t.emitLocked(m)
	t.mu.Unlock()

	log.Debugf("activity session %s resumed at %ds", m.SessionID, m.ElapsedSeconds)
	return m, nil
}

// Stop finalizes the session and hands it to the history store. The session
// is always stopped; a history error is returned together with it.
func (t *Tracker) Stop(ctx context.Context) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "activity.tracker.stop")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.mu.Lock()
	if t.session == nil || !t.session.State.Active() {
		state := t.stateLocked()
		t.mu.Unlock()
		return nil, fmt.Errorf("stop while %s: %w", state, apperr.ErrInvalidState)
	}
	session := t.session
	t.generation++
	session.finish(t.nowFunc())
	release := t.takeResourcesLocked()
	t.session = nil
	t.last = session
	t.emitLocked(session.Metrics())
	t.mu.Unlock()

	if err := release(); err != nil {
		log.Warnf("activity session %s stop, release resources: %s", session.ID, err)
	}

	span.SetAttributes(attribute.String("session", session.ID))
	t.metrics.CounterSessions.WithLabelValues("stopped").Inc()
	t.metrics.GaugeActiveSession.Set(0)
	t.metrics.HistSessionDuration.Observe(float64(session.ElapsedSeconds))
	t.metrics.HistSessionDistance.Observe(session.DistanceMeters)
	log.Debugf(
		"activity session %s stopped: %ds, %.1fm, %d kcal",
		session.ID, session.ElapsedSeconds, session.DistanceMeters, session.CaloriesBurned,
	)

	if err := t.persist(ctx, session); err != nil {
		t.metrics.CounterHistoryAppendFails.Inc()
		log.Errorf("activity session %s: %s", session.ID, err)
		return session, err
	}

	return session, nil
}

func (t *Tracker) persist(ctx context.Context, session *Session) error {
	if t.history == nil {
		return nil
	}
	entry, err := session.HistoryEntry()
	if err != nil {
		return fmt.Errorf("create history entry: %w", err)
	}
	if err := t.history.Append(ctx, entry); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// Close releases the tick and the location subscription from any state,
// without persisting the live session.
func (t *Tracker) Close() error {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	t.mu.Lock()
	t.generation++
	release := t.takeResourcesLocked()
	discarded := t.session
	t.session = nil
	t.mu.Unlock()

	err := release()
	if discarded != nil {
		t.metrics.GaugeActiveSession.Set(0)
		log.Debugf("activity session %s discarded on close at %ds", discarded.ID, discarded.ElapsedSeconds)
	}

	t.listenersMu.Lock()
	for id, ch := range t.listeners {
		close(ch)
		delete(t.listeners, id)
	}
	t.listenersMu.Unlock()

	return err
}

// Tick advances the live session by one tick. Used when no scheduler is
// configured and time is driven from outside.
func (t *Tracker) Tick() (Metrics, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil || t.session.State != Tracking {
		return Metrics{}, fmt.Errorf("tick while %s: %w", t.stateLocked(), apperr.ErrInvalidState)
	}
	t.tickLocked()
	return t.session.Metrics(), nil
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

// Snapshot returns the live metrics, or the frozen metrics of the last stopped
// session when idle.
func (t *Tracker) Snapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.session != nil:
		return t.session.Metrics()
	case t.last != nil:
		return t.last.Metrics()
	default:
		return idleMetrics()
	}
}

// History lists stopped sessions, newest first.
func (t *Tracker) History(ctx context.Context, limit int) (_ []Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "activity.tracker.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if t.history == nil {
		return []Session{}, nil
	}

	entries, err := t.history.List(ctx, history.KindActivity, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	sessions := make([]Session, 0, len(entries))
	for _, e := range entries {
		var s Session
		if err := e.Decode(&s); err != nil {
			log.Errorf("activity history: %s", err)
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Subscribe returns a channel receiving a metrics snapshot after every change.
// Slow receivers miss snapshots rather than block the tracker.
func (t *Tracker) Subscribe(buffer int) (<-chan Metrics, func()) {
	ch := make(chan Metrics, max(buffer, 1))

	t.listenersMu.Lock()
	t.nextID++
	id := t.nextID
	t.listeners[id] = ch
	t.listenersMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.listenersMu.Lock()
			defer t.listenersMu.Unlock()
			if _, ok := t.listeners[id]; ok {
				delete(t.listeners, id)
				close(ch)
			}
		})
	}
}

func (t *Tracker) emitLocked(m Metrics) {
	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()

	for _, ch := range t.listeners {
		select {
		case ch <- m:
		default:
		}
	}
}

func (t *Tracker) stateLocked() State {
	if t.session == nil {
		return Idle
	}
	return t.session.State
}

func (t *Tracker) startTickLocked(gen uint64) {
	if t.scheduler == nil {
		return
	}
	t.cancelTick = t.scheduler.Every(t.tickInterval, func() bool {
		t.mu.Lock()
		defer t.mu.Unlock()

		if gen != t.generation || t.session == nil || t.session.State != Tracking {
			return false
		}
		t.tickLocked()
		return true
	})
}

func (t *Tracker) tickLocked() {
	if t.session.Tick() {
		t.metrics.CounterTicks.Inc()
		t.emitLocked(t.session.Metrics())
	}
}

// takeResourcesLocked detaches the tick and the location subscription from
// the tracker. The returned func releases them and must run with mu unlocked,
// since both wait for in-flight callbacks which take mu.
func (t *Tracker) takeResourcesLocked() func() error {
	cancelTick := t.cancelTick
	t.cancelTick = nil
	sub, watching := t.sub, t.watching
	t.sub, t.watching = 0, false

	return func() error {
		if cancelTick != nil {
			cancelTick()
		}
		if !watching {
			return nil
		}
		var err error
		if unwatchErr := t.provider.Unwatch(sub); unwatchErr != nil {
			err = multierr.Append(err, fmt.Errorf("unwatch location: %w", unwatchErr))
		}
		return err
	}
}

func (t *Tracker) onLocation(gen uint64) location.UpdateFunc {
	return func(fix location.Fix) {
		t.mu.Lock()
		defer t.mu.Unlock()

		if gen != t.generation || t.session == nil || t.session.State != Tracking {
			t.metrics.CounterLocationFixes.WithLabelValues("ignored").Inc()
			return
		}

		if !fix.Point.Valid() {
			t.metrics.CounterLocationFixes.WithLabelValues("invalid").Inc()
			log.Warnf("activity session %s: invalid fix %+v", t.session.ID, fix.Point)
			return
		}

		if !t.jumpFilter.Accept(t.session.Route, fix.Point) {
			t.metrics.CounterLocationFixes.WithLabelValues("filtered").Inc()
			log.Debugf("activity session %s: fix %+v dropped by jump filter", t.session.ID, fix.Point)
			return
		}

		if _, ok := t.session.AddLocation(fix); ok {
			t.metrics.CounterLocationFixes.WithLabelValues("accepted").Inc()
			t.emitLocked(t.session.Metrics())
		}
	}
}

func (t *Tracker) onLocationError(gen uint64) location.ErrorFunc {
	return func(err error) {
		t.mu.Lock()
		defer t.mu.Unlock()

		if gen != t.generation || t.session == nil {
			return
		}

		t.metrics.CounterLocationErrors.Inc()
		t.session.LastGPSError = err.Error()
		log.Warnf("activity session %s: location error: %s", t.session.ID, err)
		t.emitLocked(t.session.Metrics())
	}
}

func locationUnavailable(err error) error {
	if errors.Is(err, apperr.ErrLocationUnavailable) {
		return fmt.Errorf("watch location: %w", err)
	}
	return fmt.Errorf("watch location: %w: %w", apperr.ErrLocationUnavailable, err)
}
