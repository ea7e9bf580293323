package workout

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/apperr"
	"github.com/2beens/fittrack/internal/catalog"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

//go:embed programs.toml
var defaultProgramsToml string

// ProgramTemplate is a named, reusable sequence of exercises and sets.
type ProgramTemplate struct {
	Name        string            `toml:"name" json:"name"`
	Description string            `toml:"description" json:"description,omitempty"`
	Exercises   []ProgramExercise `toml:"exercise" json:"exercises"`
}

type ProgramExercise struct {
	ExerciseID      string           `toml:"exercise_id" json:"exerciseId"`
	Exercise        catalog.Exercise `toml:"-" json:"exercise"`
	RestBetweenSets int              `toml:"rest_between_sets" json:"restBetweenSets"`
	Sets            []ProgramSet     `toml:"set" json:"sets"`
}

// ProgramSet is a set of a template; a RestTimeSeconds of 0 takes the rest
// time of its exercise when the program is loaded.
type ProgramSet struct {
	Reps            int     `toml:"reps" json:"reps"`
	Weight          float64 `toml:"weight" json:"weight"`
	IsCompleted     bool    `toml:"completed" json:"isCompleted"`
	IsWarmup        bool    `toml:"warmup" json:"isWarmup"`
	IsFailure       bool    `toml:"failure" json:"isFailure"`
	IsDropSet       bool    `toml:"drop_set" json:"isDropSet"`
	RestTimeSeconds int     `toml:"rest_time_seconds" json:"restTimeSeconds"`
	Notes           string  `toml:"notes" json:"notes,omitempty"`
}

func (p ProgramTemplate) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("program without name: %w", apperr.ErrInvariantViolation)
	}
	for _, ex := range p.Exercises {
		if ex.RestBetweenSets < 0 {
			return fmt.Errorf("program %s, exercise %s: negative rest: %w", p.Name, ex.ExerciseID, apperr.ErrInvariantViolation)
		}
		for _, s := range ex.Sets {
			if s.Reps < 0 || s.Weight < 0 || s.RestTimeSeconds < 0 {
				return fmt.Errorf("program %s, exercise %s: negative set values: %w", p.Name, ex.ExerciseID, apperr.ErrInvariantViolation)
			}
		}
	}
	return nil
}

// LoadProgram deep-copies the template into a fresh active workout with new
// ids and every set marked not completed.
func LoadProgram(tpl ProgramTemplate, startTime time.Time) (*Workout, error) {
	if err := tpl.validate(); err != nil {
		return nil, err
	}

	w := New(tpl.Name, startTime)
	for _, pex := range tpl.Exercises {
		rest := pex.RestBetweenSets
		if rest == 0 {
			rest = DefaultRestTimeSeconds
		}

		def := pex.Exercise
		def.MuscleGroups = slices.Clone(def.MuscleGroups)
		ex := &Exercise{
			ID:              newID(),
			Definition:      def,
			RestBetweenSets: rest,
		}

		sets := pex.Sets
		if len(sets) == 0 {
			sets = []ProgramSet{{Reps: DefaultReps, Weight: DefaultWeight}}
		}
		for _, ps := range sets {
			s := &Set{
				ID:              newID(),
				Reps:            ps.Reps,
				Weight:          ps.Weight,
				IsCompleted:     false,
				IsWarmup:        ps.IsWarmup,
				IsFailure:       ps.IsFailure,
				IsDropSet:       ps.IsDropSet,
				RestTimeSeconds: ps.RestTimeSeconds,
				Notes:           ps.Notes,
			}
			if s.RestTimeSeconds == 0 {
				s.RestTimeSeconds = rest
			}
			w.Sets[s.ID] = s
			ex.SetIDs = append(ex.SetIDs, s.ID)
		}

		w.Exercises[ex.ID] = ex
		w.ExerciseIDs = append(w.ExerciseIDs, ex.ID)
	}

	return w, nil
}

// SaveAsProgram captures the structure of a workout as a reusable template.
func SaveAsProgram(w *Workout, name string) (ProgramTemplate, error) {
	if name == "" {
		name = w.Name
	}

	tpl := ProgramTemplate{
		Name:      name,
		Exercises: make([]ProgramExercise, 0, len(w.ExerciseIDs)),
	}
	for _, exID := range w.ExerciseIDs {
		ex := w.Exercises[exID]
		def := ex.Definition
		def.MuscleGroups = slices.Clone(def.MuscleGroups)
		pex := ProgramExercise{
			ExerciseID:      def.ID,
			Exercise:        def,
			RestBetweenSets: ex.RestBetweenSets,
			Sets:            make([]ProgramSet, 0, len(ex.SetIDs)),
		}
		for _, setID := range ex.SetIDs {
			s := w.Sets[setID]
			pex.Sets = append(pex.Sets, ProgramSet{
				Reps:            s.Reps,
				Weight:          s.Weight,
				IsCompleted:     s.IsCompleted,
				IsWarmup:        s.IsWarmup,
				IsFailure:       s.IsFailure,
				IsDropSet:       s.IsDropSet,
				RestTimeSeconds: s.RestTimeSeconds,
				Notes:           s.Notes,
			})
		}
		tpl.Exercises = append(tpl.Exercises, pex)
	}

	return tpl, tpl.validate()
}

type exerciseCatalog interface {
	Lookup(id string) (catalog.Exercise, error)
}

// ProgramLibrary holds the named program templates.
type ProgramLibrary struct {
	mu       sync.RWMutex
	programs map[string]ProgramTemplate
}

type programsFile struct {
	Program []ProgramTemplate `toml:"program"`
}

func NewProgramLibrary() *ProgramLibrary {
	return &ProgramLibrary{
		programs: make(map[string]ProgramTemplate),
	}
}

// DefaultProgramLibrary returns the embedded programs resolved against cat.
func DefaultProgramLibrary(cat exerciseCatalog) (*ProgramLibrary, error) {
	return ReadPrograms(strings.NewReader(defaultProgramsToml), cat)
}

// LoadPrograms reads templates from path, or the embedded defaults when path is empty.
func LoadPrograms(path string, cat exerciseCatalog) (*ProgramLibrary, error) {
	if path == "" {
		return DefaultProgramLibrary(cat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open programs file: %w", err)
	}
	defer f.Close()

	lib, err := ReadPrograms(f, cat)
	if err != nil {
		return nil, err
	}
	log.Debugf("program library loaded from %s: %d programs", path, len(lib.List()))
	return lib, nil
}

// ReadPrograms decodes templates and resolves their exercise ids in the catalog.
func ReadPrograms(r io.Reader, cat exerciseCatalog) (*ProgramLibrary, error) {
	var file programsFile
	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode programs: %w", err)
	}

	lib := NewProgramLibrary()
	for _, tpl := range file.Program {
		for i, pex := range tpl.Exercises {
			def, err := cat.Lookup(pex.ExerciseID)
			if err != nil {
				return nil, fmt.Errorf("program %s: %w", tpl.Name, err)
			}
			tpl.Exercises[i].Exercise = def
		}
		if err := lib.Save(tpl); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func (l *ProgramLibrary) Get(name string) (ProgramTemplate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tpl, ok := l.programs[strings.ToLower(name)]
	if !ok {
		return ProgramTemplate{}, fmt.Errorf("program %s: %w", name, apperr.ErrNotFound)
	}
	return tpl, nil
}

// Save adds or replaces a template; names are case-insensitive.
func (l *ProgramLibrary) Save(tpl ProgramTemplate) error {
	if err := tpl.validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.programs[strings.ToLower(tpl.Name)] = tpl
	return nil
}

func (l *ProgramLibrary) List() []ProgramTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	list := make([]ProgramTemplate, 0, len(l.programs))
	for _, tpl := range l.programs {
		list = append(list, tpl)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}
