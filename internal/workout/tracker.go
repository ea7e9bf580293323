package workout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/apperr"
	"github.com/2beens/fittrack/internal/catalog"
	"github.com/2beens/fittrack/internal/clock"
	"github.com/2beens/fittrack/internal/history"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=workout_test

type historyStore interface {
	Append(ctx context.Context, entry history.Entry) error
	List(ctx context.Context, kind history.Kind, limit int) ([]history.Entry, error)
}

type programLibrary interface {
	Get(name string) (ProgramTemplate, error)
	Save(tpl ProgramTemplate) error
	List() []ProgramTemplate
}

type TrackerParams struct {
	Catalog   exerciseCatalog
	Programs  programLibrary
	History   historyStore
	Scheduler clock.Scheduler
	Metrics   *metrics.Manager
	NowFunc   func() time.Time
}

// Tracker owns the single active workout and its rest timer.
type Tracker struct {
	catalog  exerciseCatalog
	programs programLibrary
	history  historyStore
	metrics  *metrics.Manager
	nowFunc  func() time.Time
	rest     *RestTimer

	mu      sync.Mutex
	workout *Workout
}

func NewTracker(params TrackerParams) *Tracker {
	nowFunc := params.NowFunc
	if nowFunc == nil {
		nowFunc = time.Now
	}

	metricsManager := params.Metrics
	if metricsManager == nil {
		metricsManager = metrics.NewManager("fittrack", "workout", prometheus.NewRegistry())
	}
	scheduler := params.Scheduler
	if scheduler == nil {
		scheduler = clock.NewTickerScheduler()
	}

	t := &Tracker{
		catalog:  params.Catalog,
		programs: params.Programs,
		history:  params.History,
		metrics:  metricsManager,
		nowFunc:  nowFunc,
	}
	t.rest = NewRestTimer(scheduler, func(s RestStatus) {
		t.metrics.GaugeRestRemaining.Set(float64(s.RemainingSeconds))
	})
	return t
}

func (t *Tracker) activeLocked(op string) (*Workout, error) {
	if t.workout == nil {
		return nil, fmt.Errorf("%s: no active workout: %w", op, apperr.ErrInvalidState)
	}
	return t.workout, nil
}

func (t *Tracker) begin(w *Workout) (View, error) {
	if t.workout != nil {
		return View{}, fmt.Errorf("workout %s already active: %w", t.workout.ID, apperr.ErrInvalidState)
	}
	t.workout = w
	t.metrics.CounterWorkouts.WithLabelValues("started").Inc()
	t.metrics.GaugeActiveWorkout.Set(1)
	log.Debugf("workout %s [%s] started", w.ID, w.Name)
	return w.View(t.nowFunc()), nil
}

func (t *Tracker) Start(ctx context.Context, name string) (View, error) {
	_, span := tracing.GlobalTracer.Start(ctx, "workout.tracker.start")
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.begin(New(name, t.nowFunc()))
}

// StartProgram starts a new workout from the named program template.
func (t *Tracker) StartProgram(ctx context.Context, programName string) (_ View, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "workout.tracker.startprogram")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("program", programName))

	tpl, err := t.programs.Get(programName)
	if err != nil {
		return View{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.workout != nil {
		return View{}, fmt.Errorf("workout %s already active: %w", t.workout.ID, apperr.ErrInvalidState)
	}
	w, err := LoadProgram(tpl, t.nowFunc())
	if err != nil {
		return View{}, fmt.Errorf("load program %s: %w", programName, err)
	}
	return t.begin(w)
}

func (t *Tracker) AddExercise(exerciseID string, restBetweenSets int) (Exercise, error) {
	def, err := t.catalog.Lookup(exerciseID)
	if err != nil {
		return Exercise{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.activeLocked("add exercise")
	if err != nil {
		return Exercise{}, err
	}
	return w.AddExercise(def, restBetweenSets)
}

// AddCustomExercise adds an exercise that is not part of the catalog.
func (t *Tracker) AddCustomExercise(def catalog.Exercise, restBetweenSets int) (Exercise, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.activeLocked("add exercise")
	if err != nil {
		return Exercise{}, err
	}
	return w.AddExercise(def, restBetweenSets)
}

func (t *Tracker) AddSet(exerciseID string) (Set, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.activeLocked("add set")
	if err != nil {
		return Set{}, err
	}
	return w.AddSet(exerciseID)
}

func (t *Tracker) RemoveSet(exerciseID, setID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.activeLocked("remove set")
	if err != nil {
		return err
	}
	return w.RemoveSet(exerciseID, setID)
}

func (t *Tracker) UpdateSet(exerciseID, setID string, update SetUpdate) (Set, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.activeLocked("update set")
	if err != nil {
		return Set{}, err
	}
	return w.UpdateSet(exerciseID, setID, update)
}

// CompleteSet marks the set completed and starts the rest countdown.
func (t *Tracker) CompleteSet(exerciseID, setID string) (Set, RestStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, err := t.activeLocked("complete set")
	if err != nil {
		return Set{}, RestStatus{}, err
	}
	s, restSeconds, err := w.CompleteSet(exerciseID, setID)
	if err != nil {
		return Set{}, RestStatus{}, err
	}

	t.metrics.CounterSetsCompleted.Inc()
	status := t.rest.Start(s.ID, restSeconds)
	log.Tracef("workout %s: set %s completed, rest %ds", w.ID, s.ID, restSeconds)
	return s, status, nil
}

func (t *Tracker) SkipRest() (RestStatus, error) {
	return t.rest.Skip()
}

func (t *Tracker) AdjustRest(deltaSeconds int) (RestStatus, error) {
	return t.rest.Adjust(deltaSeconds)
}

func (t *Tracker) RestStatus() RestStatus {
	return t.rest.Status()
}

// Finish computes the totals, stops the rest timer and hands the workout to
// history. The workout is finished even when the history append fails.
func (t *Tracker) Finish(ctx context.Context) (_ View, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.tracker.finish")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	t.mu.Lock()
	w, err := t.activeLocked("finish")
	if err != nil {
		t.mu.Unlock()
		return View{}, err
	}
	summary, err := w.Finish(t.nowFunc())
	if err != nil {
		t.mu.Unlock()
		return View{}, err
	}
	t.workout = nil
	t.mu.Unlock()

	t.rest.Stop()

	span.SetAttributes(attribute.String("workout", w.ID))
	t.metrics.CounterWorkouts.WithLabelValues("finished").Inc()
	t.metrics.GaugeActiveWorkout.Set(0)
	t.metrics.HistWorkoutDuration.Observe(float64(summary.TotalDurationSeconds))
	log.Debugf(
		"workout %s finished: %d/%d sets in %ds",
		w.ID, summary.CompletedSets, summary.TotalSets, summary.TotalDurationSeconds,
	)

	view := w.View(t.nowFunc())
	if err := t.persist(ctx, w, view); err != nil {
		t.metrics.CounterHistoryAppendFails.Inc()
		log.Errorf("workout %s: %s", w.ID, err)
		return view, err
	}
	return view, nil
}

func (t *Tracker) persist(ctx context.Context, w *Workout, view View) error {
	if t.history == nil {
		return nil
	}
	entry, err := history.NewEntry(w.ID, history.KindWorkout, w.Name, *w.EndTime, view)
	if err != nil {
		return fmt.Errorf("create history entry: %w", err)
	}
	if err := t.history.Append(ctx, entry); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// Current returns the active workout.
func (t *Tracker) Current() (View, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.workout == nil {
		return View{}, fmt.Errorf("no active workout: %w", apperr.ErrNotFound)
	}
	return t.workout.View(t.nowFunc()), nil
}

// SaveAsProgram stores the structure of the active workout as a named template.
func (t *Tracker) SaveAsProgram(name string) (ProgramTemplate, error) {
	t.mu.Lock()
	w, err := t.activeLocked("save program")
	if err != nil {
		t.mu.Unlock()
		return ProgramTemplate{}, err
	}
	tpl, err := SaveAsProgram(w, name)
	t.mu.Unlock()
	if err != nil {
		return ProgramTemplate{}, err
	}

	if err := t.programs.Save(tpl); err != nil {
		return ProgramTemplate{}, fmt.Errorf("save program %s: %w", tpl.Name, err)
	}
	log.Debugf("program [%s] saved with %d exercises", tpl.Name, len(tpl.Exercises))
	return tpl, nil
}

func (t *Tracker) Programs() []ProgramTemplate {
	return t.programs.List()
}

// History lists finished workouts, newest first.
func (t *Tracker) History(ctx context.Context, limit int) (_ []View, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.tracker.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if t.history == nil {
		return []View{}, nil
	}

	entries, err := t.history.List(ctx, history.KindWorkout, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	views := make([]View, 0, len(entries))
	for _, e := range entries {
		var v View
		if err := e.Decode(&v); err != nil {
			log.Errorf("workout history: %s", err)
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

// Close stops the rest timer. The active workout, if any, is discarded.
func (t *Tracker) Close() {
	t.rest.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.workout != nil {
		log.Debugf("workout %s discarded on close", t.workout.ID)
		t.workout = nil
		t.metrics.GaugeActiveWorkout.Set(0)
	}
}
