package workout

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/2beens/fittrack/internal/apperr"
	"github.com/2beens/fittrack/internal/catalog"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const defaultHistoryLimit = 20

type StartRequest struct {
	Name string `json:"name"`
}

type AddExerciseRequest struct {
	ExerciseID      string            `json:"exerciseId"`
	RestBetweenSets int               `json:"restBetweenSets"`
	Custom          *catalog.Exercise `json:"custom,omitempty"`
}

type CompleteSetResponse struct {
	Set  Set        `json:"set"`
	Rest RestStatus `json:"rest"`
}

type AdjustRestRequest struct {
	DeltaSeconds int `json:"deltaSeconds"`
}

type SaveProgramRequest struct {
	Name string `json:"name"`
}

type FinishResponse struct {
	Workout      View   `json:"workout"`
	HistoryError string `json:"historyError,omitempty"`
}

type Handler struct {
	tracker *Tracker
	catalog *catalog.Catalog
}

func NewHandler(tracker *Tracker, cat *catalog.Catalog) *Handler {
	return &Handler{
		tracker: tracker,
		catalog: cat,
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	if apperr.StatusCode(err) >= http.StatusInternalServerError {
		log.Errorf("workout %s: %s", op, err)
	} else {
		log.Debugf("workout %s: %s", op, err)
	}
	http.Error(w, err.Error(), apperr.StatusCode(err))
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Errorf("workout, unmarshal json params: %s", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func pathVars(r *http.Request) (exerciseID, setID string) {
	vars := mux.Vars(r)
	return vars["exid"], vars["sid"]
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.start")
	defer span.End()

	var req StartRequest
	if !decode(w, r, &req) {
		return
	}

	v, err := handler.tracker.Start(ctx, req.Name)
	if err != nil {
		writeError(w, "start", err)
		return
	}
	pkg.WriteJSON(w, v, http.StatusCreated)
}

func (handler *Handler) HandleStartProgram(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.startprogram")
	defer span.End()

	name := mux.Vars(r)["name"]
	if name == "" {
		http.Error(w, "error, program name empty", http.StatusBadRequest)
		return
	}

	v, err := handler.tracker.StartProgram(ctx, name)
	if err != nil {
		writeError(w, "start program", err)
		return
	}
	pkg.WriteJSON(w, v, http.StatusCreated)
}

func (handler *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	var req AddExerciseRequest
	if !decode(w, r, &req) {
		return
	}

	var (
		ex  Exercise
		err error
	)
	switch {
	case req.Custom != nil:
		if req.Custom.Name == "" {
			http.Error(w, "error, custom exercise name empty", http.StatusBadRequest)
			return
		}
		ex, err = handler.tracker.AddCustomExercise(*req.Custom, req.RestBetweenSets)
	case req.ExerciseID != "":
		ex, err = handler.tracker.AddExercise(req.ExerciseID, req.RestBetweenSets)
	default:
		http.Error(w, "error, exercise id empty", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, "add exercise", err)
		return
	}
	pkg.WriteJSON(w, ex, http.StatusCreated)
}

func (handler *Handler) HandleAddSet(w http.ResponseWriter, r *http.Request) {
	exerciseID, _ := pathVars(r)
	s, err := handler.tracker.AddSet(exerciseID)
	if err != nil {
		writeError(w, "add set", err)
		return
	}
	pkg.WriteJSON(w, s, http.StatusCreated)
}

func (handler *Handler) HandleUpdateSet(w http.ResponseWriter, r *http.Request) {
	exerciseID, setID := pathVars(r)

	var update SetUpdate
	if !decode(w, r, &update) {
		return
	}

	s, err := handler.tracker.UpdateSet(exerciseID, setID, update)
	if err != nil {
		writeError(w, "update set", err)
		return
	}
	pkg.WriteJSON(w, s, http.StatusOK)
}

func (handler *Handler) HandleRemoveSet(w http.ResponseWriter, r *http.Request) {
	exerciseID, setID := pathVars(r)
	if err := handler.tracker.RemoveSet(exerciseID, setID); err != nil {
		writeError(w, "remove set", err)
		return
	}
	pkg.WriteResponse(w, pkg.ContentType.Text, fmt.Sprintf("removed:%s", setID), http.StatusOK)
}

func (handler *Handler) HandleCompleteSet(w http.ResponseWriter, r *http.Request) {
	exerciseID, setID := pathVars(r)
	s, rest, err := handler.tracker.CompleteSet(exerciseID, setID)
	if err != nil {
		writeError(w, "complete set", err)
		return
	}
	pkg.WriteJSON(w, CompleteSetResponse{Set: s, Rest: rest}, http.StatusOK)
}

func (handler *Handler) HandleRest(w http.ResponseWriter, r *http.Request) {
	pkg.WriteJSON(w, handler.tracker.RestStatus(), http.StatusOK)
}

func (handler *Handler) HandleSkipRest(w http.ResponseWriter, r *http.Request) {
	rest, err := handler.tracker.SkipRest()
	if err != nil {
		writeError(w, "skip rest", err)
		return
	}
	pkg.WriteJSON(w, rest, http.StatusOK)
}

func (handler *Handler) HandleAdjustRest(w http.ResponseWriter, r *http.Request) {
	var req AdjustRestRequest
	if !decode(w, r, &req) {
		return
	}
	rest, err := handler.tracker.AdjustRest(req.DeltaSeconds)
	if err != nil {
		writeError(w, "adjust rest", err)
		return
	}
	pkg.WriteJSON(w, rest, http.StatusOK)
}

func (handler *Handler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.finish")
	defer span.End()

	v, err := handler.tracker.Finish(ctx)
	if err != nil && v.ID == "" {
		writeError(w, "finish", err)
		return
	}

	resp := FinishResponse{Workout: v}
	if err != nil {
		resp.HistoryError = err.Error()
	}
	pkg.WriteJSON(w, resp, http.StatusOK)
}

func (handler *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	v, err := handler.tracker.Current()
	if err != nil {
		writeError(w, "current", err)
		return
	}
	pkg.WriteJSON(w, v, http.StatusOK)
}

func (handler *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.history")
	defer span.End()

	limit := defaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			http.Error(w, "error, invalid limit", http.StatusBadRequest)
			return
		}
	}

	views, err := handler.tracker.History(ctx, limit)
	if err != nil {
		writeError(w, "history", err)
		return
	}
	pkg.WriteJSON(w, views, http.StatusOK)
}

func (handler *Handler) HandleSaveProgram(w http.ResponseWriter, r *http.Request) {
	var req SaveProgramRequest
	if !decode(w, r, &req) {
		return
	}
	tpl, err := handler.tracker.SaveAsProgram(req.Name)
	if err != nil {
		writeError(w, "save program", err)
		return
	}
	pkg.WriteJSON(w, tpl, http.StatusCreated)
}

func (handler *Handler) HandlePrograms(w http.ResponseWriter, r *http.Request) {
	pkg.WriteJSON(w, handler.tracker.Programs(), http.StatusOK)
}

// HandleExercises lists the catalog, optionally filtered by ?category= and ?muscleGroup=.
func (handler *Handler) HandleExercises(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pkg.WriteJSON(w, handler.catalog.Filter(query.Get("category"), query.Get("muscleGroup")), http.StatusOK)
}
