package workout

import (
	"fmt"
	"slices"
	"time"

	"github.com/2beens/fittrack/internal/apperr"
	"github.com/2beens/fittrack/internal/catalog"

	"github.com/google/uuid"
)

const (
	DefaultReps            = 10
	DefaultWeight          = 0.0
	DefaultRestTimeSeconds = 60
)

var newID = uuid.NewString

type State string

const (
	Active   State = "active"
	Finished State = "finished"
)

type Set struct {
	ID              string  `json:"id"`
	Reps            int     `json:"reps"`
	Weight          float64 `json:"weight"`
	IsCompleted     bool    `json:"isCompleted"`
	IsWarmup        bool    `json:"isWarmup"`
	IsFailure       bool    `json:"isFailure"`
	IsDropSet       bool    `json:"isDropSet"`
	RestTimeSeconds int     `json:"restTimeSeconds"`
	Notes           string  `json:"notes,omitempty"`
}

type Exercise struct {
	ID              string           `json:"id"`
	Definition      catalog.Exercise `json:"exercise"`
	RestBetweenSets int              `json:"restBetweenSets"`
	SetIDs          []string         `json:"setIds"`
}

// Workout keeps exercises and sets in flat collections addressed by id; the
// order slices carry the display order.
type Workout struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	State                State                `json:"state"`
	StartTime            time.Time            `json:"startTime"`
	EndTime              *time.Time           `json:"endTime,omitempty"`
	ExerciseIDs          []string             `json:"exerciseIds"`
	Exercises            map[string]*Exercise `json:"exercises"`
	Sets                 map[string]*Set      `json:"sets"`
	TotalSets            int                  `json:"totalSets"`
	CompletedSets        int                  `json:"completedSets"`
	TotalDurationSeconds int                  `json:"totalDurationSeconds"`
}

func New(name string, startTime time.Time) *Workout {
	if name == "" {
		name = "Workout " + startTime.Format("2006-01-02")
	}
	return &Workout{
		ID:          newID(),
		Name:        name,
		State:       Active,
		StartTime:   startTime,
		ExerciseIDs: []string{},
		Exercises:   make(map[string]*Exercise),
		Sets:        make(map[string]*Set),
	}
}

func (w *Workout) checkActive(op string) error {
	if w.State != Active {
		return fmt.Errorf("%s on %s workout: %w", op, w.State, apperr.ErrInvalidState)
	}
	return nil
}

func (w *Workout) exercise(exerciseID string) (*Exercise, error) {
	ex, ok := w.Exercises[exerciseID]
	if !ok {
		return nil, fmt.Errorf("exercise %s: %w", exerciseID, apperr.ErrNotFound)
	}
	return ex, nil
}

func (w *Workout) set(ex *Exercise, setID string) (*Set, error) {
	if !slices.Contains(ex.SetIDs, setID) {
		return nil, fmt.Errorf("set %s in exercise %s: %w", setID, ex.ID, apperr.ErrNotFound)
	}
	return w.Sets[setID], nil
}

// AddExercise appends the exercise with one default set. restBetweenSets 0
// means the default rest time.
func (w *Workout) AddExercise(def catalog.Exercise, restBetweenSets int) (Exercise, error) {
	if err := w.checkActive("add exercise"); err != nil {
		return Exercise{}, err
	}
	if restBetweenSets < 0 {
		return Exercise{}, fmt.Errorf("negative rest time %d: %w", restBetweenSets, apperr.ErrInvariantViolation)
	}
	if restBetweenSets == 0 {
		restBetweenSets = DefaultRestTimeSeconds
	}

	first := &Set{
		ID:              newID(),
		Reps:            DefaultReps,
		Weight:          DefaultWeight,
		RestTimeSeconds: restBetweenSets,
	}
	ex := &Exercise{
		ID:              newID(),
		Definition:      def,
		RestBetweenSets: restBetweenSets,
		SetIDs:          []string{first.ID},
	}

	w.Sets[first.ID] = first
	w.Exercises[ex.ID] = ex
	w.ExerciseIDs = append(w.ExerciseIDs, ex.ID)

	return ex.clone(), nil
}

// AddSet appends a set copying reps and weight from the last set of the exercise.
func (w *Workout) AddSet(exerciseID string) (Set, error) {
	if err := w.checkActive("add set"); err != nil {
		return Set{}, err
	}
	ex, err := w.exercise(exerciseID)
	if err != nil {
		return Set{}, err
	}

	s := &Set{
		ID:              newID(),
		Reps:            DefaultReps,
		Weight:          DefaultWeight,
		RestTimeSeconds: ex.RestBetweenSets,
	}
	if n := len(ex.SetIDs); n > 0 {
		last := w.Sets[ex.SetIDs[n-1]]
		s.Reps = last.Reps
		s.Weight = last.Weight
	}

	w.Sets[s.ID] = s
	ex.SetIDs = append(ex.SetIDs, s.ID)
	return *s, nil
}

// RemoveSet removes a set. An exercise always keeps at least one set.
func (w *Workout) RemoveSet(exerciseID, setID string) error {
	if err := w.checkActive("remove set"); err != nil {
		return err
	}
	ex, err := w.exercise(exerciseID)
	if err != nil {
		return err
	}
	if _, err := w.set(ex, setID); err != nil {
		return err
	}
	if len(ex.SetIDs) <= 1 {
		return fmt.Errorf("remove last set of exercise %s: %w", ex.ID, apperr.ErrInvariantViolation)
	}

	ex.SetIDs = slices.DeleteFunc(ex.SetIDs, func(id string) bool {
		return id == setID
	})
	delete(w.Sets, setID)
	return nil
}

// SetUpdate holds the fields to merge into a set; nil fields are left alone.
type SetUpdate struct {
	Reps            *int     `json:"reps,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	IsCompleted     *bool    `json:"isCompleted,omitempty"`
	IsWarmup        *bool    `json:"isWarmup,omitempty"`
	IsFailure       *bool    `json:"isFailure,omitempty"`
	IsDropSet       *bool    `json:"isDropSet,omitempty"`
	RestTimeSeconds *int     `json:"restTimeSeconds,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

func (u SetUpdate) validate() error {
	if u.Reps != nil && *u.Reps < 0 {
		return fmt.Errorf("negative reps %d: %w", *u.Reps, apperr.ErrInvariantViolation)
	}
	if u.Weight != nil && *u.Weight < 0 {
		return fmt.Errorf("negative weight %.2f: %w", *u.Weight, apperr.ErrInvariantViolation)
	}
	if u.RestTimeSeconds != nil && *u.RestTimeSeconds < 0 {
		return fmt.Errorf("negative rest time %d: %w", *u.RestTimeSeconds, apperr.ErrInvariantViolation)
	}
	return nil
}

// UpdateSet merges the update into the set. Negative values are rejected and
// leave the set unchanged.
func (w *Workout) UpdateSet(exerciseID, setID string, update SetUpdate) (Set, error) {
	if err := w.checkActive("update set"); err != nil {
		return Set{}, err
	}
	ex, err := w.exercise(exerciseID)
	if err != nil {
		return Set{}, err
	}
	s, err := w.set(ex, setID)
	if err != nil {
		return Set{}, err
	}
	if err := update.validate(); err != nil {
		return Set{}, err
	}

	if update.Reps != nil {
		s.Reps = *update.Reps
	}
	if update.Weight != nil {
		s.Weight = *update.Weight
	}
	if update.IsCompleted != nil {
		s.IsCompleted = *update.IsCompleted
	}
	if update.IsWarmup != nil {
		s.IsWarmup = *update.IsWarmup
	}
	if update.IsFailure != nil {
		s.IsFailure = *update.IsFailure
	}
	if update.IsDropSet != nil {
		s.IsDropSet = *update.IsDropSet
	}
	if update.RestTimeSeconds != nil {
		s.RestTimeSeconds = *update.RestTimeSeconds
	}
	if update.Notes != nil {
		s.Notes = *update.Notes
	}

	return *s, nil
}

// CompleteSet marks the set completed and returns the set's rest time to count
// down. Sets get a concrete rest time when created, so 0 means no rest.
func (w *Workout) CompleteSet(exerciseID, setID string) (Set, int, error) {
	if err := w.checkActive("complete set"); err != nil {
		return Set{}, 0, err
	}
	ex, err := w.exercise(exerciseID)
	if err != nil {
		return Set{}, 0, err
	}
	s, err := w.set(ex, setID)
	if err != nil {
		return Set{}, 0, err
	}

	s.IsCompleted = true
	return *s, s.RestTimeSeconds, nil
}

// Finish computes the totals and freezes the workout.
func (w *Workout) Finish(endTime time.Time) (Summary, error) {
	if err := w.checkActive("finish"); err != nil {
		return Summary{}, err
	}

	w.TotalSets = 0
	w.CompletedSets = 0
	for _, exID := range w.ExerciseIDs {
		for _, setID := range w.Exercises[exID].SetIDs {
			w.TotalSets++
			if w.Sets[setID].IsCompleted {
				w.CompletedSets++
			}
		}
	}
	w.TotalDurationSeconds = w.ElapsedSeconds(endTime)
	w.EndTime = &endTime
	w.State = Finished

	return w.Summary(), nil
}

// ElapsedSeconds since start, frozen at the end time once finished.
func (w *Workout) ElapsedSeconds(now time.Time) int {
	if w.EndTime != nil {
		now = *w.EndTime
	}
	elapsed := int(now.Sub(w.StartTime) / time.Second)
	return max(elapsed, 0)
}

type Summary struct {
	WorkoutID            string `json:"workoutId"`
	Name                 string `json:"name"`
	TotalSets            int    `json:"totalSets"`
	CompletedSets        int    `json:"completedSets"`
	TotalDurationSeconds int    `json:"totalDurationSeconds"`
}

func (w *Workout) Summary() Summary {
	return Summary{
		WorkoutID:            w.ID,
		Name:                 w.Name,
		TotalSets:            w.TotalSets,
		CompletedSets:        w.CompletedSets,
		TotalDurationSeconds: w.TotalDurationSeconds,
	}
}

func (ex *Exercise) clone() Exercise {
	c := *ex
	c.SetIDs = slices.Clone(ex.SetIDs)
	c.Definition.MuscleGroups = slices.Clone(ex.Definition.MuscleGroups)
	return c
}

// Clone returns a deep copy sharing nothing with w.
func (w *Workout) Clone() *Workout {
	c := *w
	if w.EndTime != nil {
		end := *w.EndTime
		c.EndTime = &end
	}
	c.ExerciseIDs = slices.Clone(w.ExerciseIDs)
	c.Exercises = make(map[string]*Exercise, len(w.Exercises))
	for id, ex := range w.Exercises {
		exClone := ex.clone()
		c.Exercises[id] = &exClone
	}
	c.Sets = make(map[string]*Set, len(w.Sets))
	for id, s := range w.Sets {
		sClone := *s
		c.Sets[id] = &sClone
	}
	return &c
}
