package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/2beens/fittrack/internal/apperr"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

//go:embed exercises.toml
var defaultExercisesToml string

// Exercise is static reference data for a single exercise.
type Exercise struct {
	ID           string   `toml:"id" json:"id"`
	Name         string   `toml:"name" json:"name"`
	Category     string   `toml:"category" json:"category"`
	MuscleGroups []string `toml:"muscle_groups" json:"muscleGroups"`
	Equipment    string   `toml:"equipment" json:"equipment"`
}

func (e Exercise) HasMuscleGroup(group string) bool {
	return slices.ContainsFunc(e.MuscleGroups, func(g string) bool {
		return strings.EqualFold(g, group)
	})
}

type catalogFile struct {
	Exercise []Exercise `toml:"exercise"`
}

// Catalog is a read-only exercise lookup, safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	exercises []Exercise
	byID      map[string]Exercise
}

// Default returns the catalog built from the embedded exercise list.
func Default() *Catalog {
	c, err := Read(strings.NewReader(defaultExercisesToml))
	if err != nil {
		// embedded file is part of the build
		panic(fmt.Sprintf("embedded exercise catalog: %s", err))
	}
	return c
}

// Load reads a catalog from path, or returns the default one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		return nil, err
	}
	log.Debugf("exercise catalog loaded from %s: %d exercises", path, c.Len())
	return c, nil
}

func Read(r io.Reader) (*Catalog, error) {
	var file catalogFile
	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		exercises: make([]Exercise, 0, len(file.Exercise)),
		byID:      make(map[string]Exercise, len(file.Exercise)),
	}
	for _, ex := range file.Exercise {
		if ex.ID == "" {
			return nil, fmt.Errorf("exercise %q has no id", ex.Name)
		}
		if _, ok := c.byID[ex.ID]; ok {
			return nil, fmt.Errorf("duplicate exercise id: %s", ex.ID)
		}
		c.byID[ex.ID] = ex
		c.exercises = append(c.exercises, ex)
	}

	return c, nil
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.exercises)
}

func (c *Catalog) Lookup(id string) (Exercise, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ex, ok := c.byID[id]
	if !ok {
		return Exercise{}, fmt.Errorf("exercise %s: %w", id, apperr.ErrNotFound)
	}
	return ex, nil
}

func (c *Catalog) List() []Exercise {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.exercises)
}

// Filter returns exercises matching both category and muscle group; empty
// arguments match everything.
func (c *Catalog) Filter(category, muscleGroup string) []Exercise {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]Exercise, 0)
	for _, ex := range c.exercises {
		if category != "" && !strings.EqualFold(ex.Category, category) {
			continue
		}
		if muscleGroup != "" && !ex.HasMuscleGroup(muscleGroup) {
			continue
		}
		res = append(res, ex)
	}
	return res
}
