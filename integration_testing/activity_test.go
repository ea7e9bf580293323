//go:build integration_test || all_tests

package integration_testing

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/fittrack/internal/activity"
	"github.com/2beens/fittrack/internal/history"
)

func (s *IntegrationTestSuite) do(ctx context.Context, method, path, body string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, strings.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.httpClient.Do(req)
}

func (s *IntegrationTestSuite) doJSON(ctx context.Context, method, path, body string, expectedStatus int, target any) {
	resp, err := s.do(ctx, method, path, body)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Require().Equal(expectedStatus, resp.StatusCode, "%s %s", method, path)
	if target != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(target))
	}
}

func (s *IntegrationTestSuite) pushLocation(ctx context.Context, lat, lng float64) int {
	var resp activity.LocationResponse
	s.doJSON(ctx, "POST", "/activity/location",
		fmt.Sprintf(`{"lat":%f,"lng":%f,"accuracy":5}`, lat, lng),
		http.StatusAccepted, &resp,
	)
	return resp.Delivered
}

func (s *IntegrationTestSuite) TestActivityLifecycle() {
	ctx := context.Background()
	historyBefore := s.countHistoryRows(string(history.KindActivity))

	var m activity.Metrics
	s.doJSON(ctx, "POST", "/activity/start", `{"type":"running"}`, http.StatusCreated, &m)
	s.Equal(activity.Tracking, m.State)
	s.Equal(activity.Running, m.ActivityType)
	sessionID := m.SessionID
	s.NotEmpty(sessionID)

	s.doJSON(ctx, "POST", "/activity/start", `{"type":"walking"}`, http.StatusConflict, nil)

	s.Equal(1, s.pushLocation(ctx, 45.2671, 19.8335))
	s.Equal(1, s.pushLocation(ctx, 45.2680, 19.8335))

	s.doJSON(ctx, "POST", "/activity/pause", "", http.StatusOK, &m)
	s.Equal(activity.Paused, m.State)
	s.Equal(2, m.PointCount)

	// nobody watches the location source while paused
	s.Equal(0, s.pushLocation(ctx, 45.2690, 19.8335))

	s.doJSON(ctx, "POST", "/activity/resume", "", http.StatusOK, &m)
	s.Equal(activity.Tracking, m.State)
	s.Equal(1, s.pushLocation(ctx, 45.2689, 19.8335))

	var stopResp activity.StopResponse
	s.doJSON(ctx, "POST", "/activity/stop", "", http.StatusOK, &stopResp)
	s.Require().NotNil(stopResp.Session)
	s.Empty(stopResp.HistoryError)
	s.Equal(sessionID, stopResp.Session.ID)
	s.Equal(activity.Stopped, stopResp.Session.State)
	s.Len(stopResp.Session.Route, 3)
	s.InDelta(200, stopResp.Session.DistanceMeters, 2)

	s.Equal(historyBefore+1, s.countHistoryRows(string(history.KindActivity)))

	var sessions []activity.Session
	s.doJSON(ctx, "GET", "/activity/history?limit=1", "", http.StatusOK, &sessions)
	s.Require().Len(sessions, 1)
	s.Equal(sessionID, sessions[0].ID)
	s.InDelta(stopResp.Session.DistanceMeters, sessions[0].DistanceMeters, 0.001)

	// metrics stay frozen on the stopped session
	s.doJSON(ctx, "GET", "/activity/metrics", "", http.StatusOK, &m)
	s.Equal(activity.Stopped, m.State)
	s.Equal(sessionID, m.SessionID)
}

func (s *IntegrationTestSuite) TestActivityValidation() {
	ctx := context.Background()

	s.doJSON(ctx, "POST", "/activity/start", `{"type":"skiing"}`, http.StatusBadRequest, nil)
	s.doJSON(ctx, "POST", "/activity/pause", "", http.StatusConflict, nil)
	s.doJSON(ctx, "POST", "/activity/location", `{"lat":95,"lng":0}`, http.StatusBadRequest, nil)
	s.doJSON(ctx, "GET", "/activity/history?limit=abc", "", http.StatusBadRequest, nil)
}

func (s *IntegrationTestSuite) TestActivityStream() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := s.do(ctx, "GET", "/activity/stream", "")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Contains(resp.Header.Get("Content-Type"), "text/event-stream")

	events := make(chan activity.Metrics, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			var m activity.Metrics
			if json.Unmarshal([]byte(data), &m) == nil {
				events <- m
			}
		}
	}()

	nextEvent := func() activity.Metrics {
		select {
		case m, ok := <-events:
			s.Require().True(ok, "stream closed")
			return m
		case <-ctx.Done():
			s.FailNow("no stream event received")
			return activity.Metrics{}
		}
	}

	first := nextEvent()
	s.NotEqual(activity.Tracking, first.State)

	s.doJSON(ctx, "POST", "/activity/start", `{"type":"cycling"}`, http.StatusCreated, nil)
	for {
		m := nextEvent()
		if m.State == activity.Tracking {
			s.Equal(activity.Cycling, m.ActivityType)
			break
		}
	}

	s.doJSON(ctx, "POST", "/activity/stop", "", http.StatusOK, nil)
	for {
		if m := nextEvent(); m.State == activity.Stopped {
			break
		}
	}
}
