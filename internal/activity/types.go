package activity

import (
	"fmt"
	"math"
	"strings"

	"github.com/2beens/fittrack/internal/apperr"
)

type Type string

const (
	Running  Type = "running"
	Walking  Type = "walking"
	Cycling  Type = "cycling"
	Swimming Type = "swimming"
)

// caloriesPerMinute is a flat per-activity burn rate, no body weight or intensity.
var caloriesPerMinute = map[Type]float64{
	Running:  12,
	Walking:  5,
	Cycling:  8,
	Swimming: 10,
}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := caloriesPerMinute[t]; !ok {
		return "", fmt.Errorf("unknown activity type %q: %w", s, apperr.ErrInvariantViolation)
	}
	return t, nil
}

func (t Type) CaloriesPerMinute() float64 {
	return caloriesPerMinute[t]
}

// Calories burned after elapsedSeconds of tracked time.
func (t Type) Calories(elapsedSeconds int) int {
	return int(math.Round(float64(elapsedSeconds) / 60 * t.CaloriesPerMinute()))
}

type State string

const (
	Idle     State = "idle"
	Tracking State = "tracking"
	Paused   State = "paused"
	Stopped  State = "stopped"
)

// Active means the session holds the tick and/or location resources.
func (s State) Active() bool {
	return s == Tracking || s == Paused
}
