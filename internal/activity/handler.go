package activity

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/fittrack/internal/apperr"
	"github.com/2beens/fittrack/internal/geo"
	"github.com/2beens/fittrack/internal/location"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"

	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 20
	streamBuffer        = 16
)

type StartRequest struct {
	Type string `json:"type"`
}

type LocationRequest struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

type LocationResponse struct {
	Delivered int `json:"delivered"`
}

type StopResponse struct {
	Session      *Session `json:"session"`
	HistoryError string   `json:"historyError,omitempty"`
}

type Handler struct {
	tracker *Tracker
	// fixes posted by the UI shell go through the push provider
	pushProvider *location.PushProvider
	// keep-alive interval of the metrics stream
	streamKeepAlive time.Duration
}

func NewHandler(tracker *Tracker, pushProvider *location.PushProvider) *Handler {
	return &Handler{
		tracker:         tracker,
		pushProvider:    pushProvider,
		streamKeepAlive: 15 * time.Second,
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	code := apperr.StatusCode(err)
	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		log.Errorf("activity %s: %s", op, err)
	} else {
		log.Debugf("activity %s: %s", op, err)
	}
	http.Error(w, err.Error(), code)
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.start")
	defer span.End()

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("activity start, unmarshal json params: %s", err)
		http.Error(w, "invalid start request", http.StatusBadRequest)
		return
	}

	activityType, err := ParseType(req.Type)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := handler.tracker.Start(ctx, activityType)
	if err != nil {
		writeError(w, "start", err)
		return
	}
	pkg.WriteJSON(w, m, http.StatusCreated)
}

func (handler *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.pause")
	defer span.End()

	m, err := handler.tracker.Pause()
	if err != nil {
		writeError(w, "pause", err)
		return
	}
	pkg.WriteJSON(w, m, http.StatusOK)
}

func (handler *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.resume")
	defer span.End()

	m, err := handler.tracker.Resume()
	if err != nil {
		writeError(w, "resume", err)
		return
	}
	pkg.WriteJSON(w, m, http.StatusOK)
}

func (handler *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.stop")
	defer span.End()

	session, err := handler.tracker.Stop(ctx)
	if session == nil {
		writeError(w, "stop", err)
		return
	}

	resp := StopResponse{Session: session}
	if err != nil {
		// stopped, only the hand-off to history failed
		resp.HistoryError = err.Error()
	}
	pkg.WriteJSON(w, resp, http.StatusOK)
}

// HandleLocation takes a device location reading posted by the UI shell.
func (handler *Handler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.location")
	defer span.End()

	var req LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("activity location, unmarshal json params: %s", err)
		http.Error(w, "invalid location", http.StatusBadRequest)
		return
	}

	point := geo.NewGeoPoint(req.Lat, req.Lng)
	if !point.Valid() {
		http.Error(w, fmt.Sprintf("invalid coordinates: %f,%f", req.Lat, req.Lng), http.StatusBadRequest)
		return
	}

	delivered := handler.pushProvider.Push(location.Fix{
		Point:    point,
		Accuracy: req.Accuracy,
	})
	pkg.WriteJSON(w, LocationResponse{Delivered: delivered}, http.StatusAccepted)
}

func (handler *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	pkg.WriteJSON(w, handler.tracker.Snapshot(), http.StatusOK)
}

// HandleStream pushes a metrics snapshot as a server-sent event after every change.
func (handler *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// the stream outlives the server write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Tracef("activity stream, clear write deadline: %s", err)
	}

	updates, unsubscribe := handler.tracker.Subscribe(streamBuffer)
	defer unsubscribe()

	w.Header().Set("Content-Type", pkg.ContentType.EventStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, handler.tracker.Snapshot()); err != nil {
		log.Debugf("activity stream: %s", err)
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(handler.streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case m, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, m); err != nil {
				log.Debugf("activity stream: %s", err)
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, m Metrics) error {
	mJson, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: metrics\ndata: %s\n\n", mJson); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func (handler *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.history")
	defer span.End()

	limit, err := limitParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessions, err := handler.tracker.History(ctx, limit)
	if err != nil {
		writeError(w, "history", err)
		return
	}
	pkg.WriteJSON(w, sessions, http.StatusOK)
}

func limitParam(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return defaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit: %s", limitStr)
	}
	return limit, nil
}
