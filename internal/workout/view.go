package workout

import (
	"time"

	"github.com/2beens/fittrack/internal/catalog"
)

// View is the nested, ordered rendering of a workout sent to the UI shell and
// written to history.
type View struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	State                State          `json:"state"`
	StartTime            time.Time      `json:"startTime"`
	EndTime              *time.Time     `json:"endTime,omitempty"`
	ElapsedSeconds       int            `json:"elapsedSeconds"`
	Exercises            []ExerciseView `json:"exercises"`
	TotalSets            int            `json:"totalSets"`
	CompletedSets        int            `json:"completedSets"`
	TotalDurationSeconds int            `json:"totalDurationSeconds"`
}

type ExerciseView struct {
	ID              string           `json:"id"`
	Exercise        catalog.Exercise `json:"exercise"`
	RestBetweenSets int              `json:"restBetweenSets"`
	Sets            []Set            `json:"sets"`
}

func (w *Workout) View(now time.Time) View {
	v := View{
		ID:                   w.ID,
		Name:                 w.Name,
		State:                w.State,
		StartTime:            w.StartTime,
		EndTime:              w.EndTime,
		ElapsedSeconds:       w.ElapsedSeconds(now),
		Exercises:            make([]ExerciseView, 0, len(w.ExerciseIDs)),
		TotalSets:            w.TotalSets,
		CompletedSets:        w.CompletedSets,
		TotalDurationSeconds: w.TotalDurationSeconds,
	}

	for _, exID := range w.ExerciseIDs {
		ex := w.Exercises[exID]
		exView := ExerciseView{
			ID:              ex.ID,
			Exercise:        ex.Definition,
			RestBetweenSets: ex.RestBetweenSets,
			Sets:            make([]Set, 0, len(ex.SetIDs)),
		}
		for _, setID := range ex.SetIDs {
			exView.Sets = append(exView.Sets, *w.Sets[setID])
		}
		v.Exercises = append(v.Exercises, exView)
	}

	return v
}
