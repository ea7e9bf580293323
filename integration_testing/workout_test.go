//go:build integration_test || all_tests

package integration_testing

import (
	"context"
	"io"
	"net/http"

	"github.com/2beens/fittrack/internal/history"
	"github.com/2beens/fittrack/internal/workout"
)

func (s *IntegrationTestSuite) TestWorkoutProgramFlow() {
	ctx := context.Background()
	historyBefore := s.countHistoryRows(string(history.KindWorkout))

	s.doJSON(ctx, "GET", "/workout", "", http.StatusNotFound, nil)

	var v workout.View
	s.doJSON(ctx, "POST", "/workout/program/Push%20Day", "", http.StatusCreated, &v)
	s.Equal("Push Day", v.Name)
	s.Equal(workout.Active, v.State)
	s.Require().Len(v.Exercises, 3)
	s.Equal(6, v.TotalSets)

	s.doJSON(ctx, "POST", "/workout/start", `{"name":"Another"}`, http.StatusConflict, nil)

	bench := v.Exercises[0]
	workSet := bench.Sets[1]

	var updated workout.Set
	s.doJSON(ctx, "PUT", "/workout/exercise/"+bench.ID+"/set/"+workSet.ID, `{"reps":6,"weight":62.5}`, http.StatusOK, &updated)
	s.Equal(6, updated.Reps)
	s.Equal(62.5, updated.Weight)

	s.doJSON(ctx, "PUT", "/workout/exercise/"+bench.ID+"/set/"+workSet.ID, `{"reps":-1}`, http.StatusUnprocessableEntity, nil)

	var completed workout.CompleteSetResponse
	s.doJSON(ctx, "POST", "/workout/exercise/"+bench.ID+"/set/"+workSet.ID+"/complete", "", http.StatusOK, &completed)
	s.True(completed.Set.IsCompleted)
	s.True(completed.Rest.Running)
	s.Equal(bench.RestBetweenSets, completed.Rest.TotalSeconds)

	var rest workout.RestStatus
	s.doJSON(ctx, "POST", "/workout/rest/skip", "", http.StatusOK, &rest)
	s.False(rest.Running)
	s.doJSON(ctx, "POST", "/workout/rest/skip", "", http.StatusConflict, nil)

	var ex workout.Exercise
	s.doJSON(ctx, "POST", "/workout/exercise", `{"exerciseId":"plank"}`, http.StatusCreated, &ex)
	s.Require().Len(ex.SetIDs, 1)
	s.doJSON(ctx, "POST", "/workout/exercise", `{"exerciseId":"no-such-exercise"}`, http.StatusNotFound, nil)

	var added workout.Set
	s.doJSON(ctx, "POST", "/workout/exercise/"+ex.ID+"/set", "", http.StatusCreated, &added)

	resp, err := s.do(ctx, "DELETE", "/workout/exercise/"+ex.ID+"/set/"+added.ID, "")
	s.Require().NoError(err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("removed:"+added.ID, string(body))

	// an exercise keeps at least one set
	s.doJSON(ctx, "DELETE", "/workout/exercise/"+ex.ID+"/set/"+ex.SetIDs[0], "", http.StatusUnprocessableEntity, nil)

	var finished workout.FinishResponse
	s.doJSON(ctx, "POST", "/workout/finish", "", http.StatusOK, &finished)
	s.Empty(finished.HistoryError)
	s.Equal(workout.Finished, finished.Workout.State)
	s.Equal(7, finished.Workout.TotalSets)
	s.Equal(1, finished.Workout.CompletedSets)

	s.doJSON(ctx, "POST", "/workout/finish", "", http.StatusConflict, nil)
	s.Equal(historyBefore+1, s.countHistoryRows(string(history.KindWorkout)))

	var views []workout.View
	s.doJSON(ctx, "GET", "/workout/history?limit=1", "", http.StatusOK, &views)
	s.Require().Len(views, 1)
	s.Equal(finished.Workout.ID, views[0].ID)
	s.Equal(7, views[0].TotalSets)
}

func (s *IntegrationTestSuite) TestWorkoutSaveProgram() {
	ctx := context.Background()

	s.doJSON(ctx, "POST", "/workout/start", `{"name":"Morning Mobility"}`, http.StatusCreated, nil)
	s.doJSON(ctx, "POST", "/workout/exercise", `{"exerciseId":"squat","restBetweenSets":90}`, http.StatusCreated, nil)
	s.doJSON(ctx, "POST", "/workout/program", `{"name":"Mobility"}`, http.StatusCreated, nil)
	s.doJSON(ctx, "POST", "/workout/finish", "", http.StatusOK, nil)

	var programs []workout.ProgramTemplate
	s.doJSON(ctx, "GET", "/programs", "", http.StatusOK, &programs)
	names := make([]string, 0, len(programs))
	for _, p := range programs {
		names = append(names, p.Name)
	}
	s.Contains(names, "Mobility")

	var v workout.View
	s.doJSON(ctx, "POST", "/workout/program/mobility", "", http.StatusCreated, &v)
	s.Require().Len(v.Exercises, 1)
	s.Equal(90, v.Exercises[0].RestBetweenSets)
	s.doJSON(ctx, "POST", "/workout/finish", "", http.StatusOK, nil)
}
