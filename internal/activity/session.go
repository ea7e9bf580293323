package activity

import (
	"fmt"
	"time"

	"github.com/2beens/fittrack/internal/geo"
	"github.com/2beens/fittrack/internal/history"
	"github.com/2beens/fittrack/internal/location"
	"github.com/2beens/fittrack/internal/pace"
)

// Session is a single outdoor activity. Its methods are pure state
// transitions, synchronization is the Tracker's job.
type Session struct {
	ID               string     `json:"id"`
	Type             Type       `json:"activityType"`
	State            State      `json:"state"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          *time.Time `json:"endTime,omitempty"`
	ElapsedSeconds   int        `json:"elapsedSeconds"`
	Route            geo.Route  `json:"route"`
	DistanceMeters   float64    `json:"distanceMeters"`
	CaloriesBurned   int        `json:"caloriesBurned"`
	CurrentSpeedKmh  float64    `json:"currentSpeedKmh"`
	PaceSecondsPerKm float64    `json:"paceSecondsPerKm"`
	Pace             string     `json:"pace"`
	GPSAccuracy      float64    `json:"gpsAccuracy"`
	LastGPSError     string     `json:"lastGpsError,omitempty"`
}

func NewSession(id string, activityType Type, startTime time.Time) *Session {
	return &Session{
		ID:        id,
		Type:      activityType,
		State:     Tracking,
		StartTime: startTime,
		Route:     geo.Route{},
		Pace:      pace.Format(0, 0),
	}
}

// Tick advances the session by one second. It does nothing unless tracking.
func (s *Session) Tick() bool {
	if s.State != Tracking {
		return false
	}

	s.ElapsedSeconds++
	s.CaloriesBurned = s.Type.Calories(s.ElapsedSeconds)
	s.updatePace()
	return true
}

// AddLocation appends the fix to the route and returns the distance delta.
// Fixes are ignored unless tracking.
func (s *Session) AddLocation(fix location.Fix) (float64, bool) {
	if s.State != Tracking {
		return 0, false
	}

	var delta float64
	s.Route, delta = geo.AddPoint(s.Route, fix.Point)
	s.DistanceMeters += delta
	s.GPSAccuracy = fix.Accuracy
	s.CurrentSpeedKmh = pace.CurrentSpeed(s.Route, s.ElapsedSeconds)
	s.updatePace()
	return delta, true
}

func (s *Session) updatePace() {
	s.Pace = pace.Format(s.ElapsedSeconds, s.DistanceMeters)
	s.PaceSecondsPerKm = pace.SecondsPerKm(s.ElapsedSeconds, s.DistanceMeters)
}

func (s *Session) finish(endTime time.Time) {
	s.State = Stopped
	s.EndTime = &endTime
}

func (s *Session) Metrics() Metrics {
	return Metrics{
		SessionID:        s.ID,
		ActivityType:     s.Type,
		State:            s.State,
		ElapsedSeconds:   s.ElapsedSeconds,
		DistanceMeters:   s.DistanceMeters,
		Pace:             s.Pace,
		PaceSecondsPerKm: s.PaceSecondsPerKm,
		CurrentSpeedKmh:  s.CurrentSpeedKmh,
		AverageSpeedKmh:  pace.AverageSpeed(s.ElapsedSeconds, s.DistanceMeters),
		CaloriesBurned:   s.CaloriesBurned,
		GPSAccuracy:      s.GPSAccuracy,
		PointCount:       len(s.Route),
		LastGPSError:     s.LastGPSError,
	}
}

// HistoryEntry serializes a stopped session for the history log.
func (s *Session) HistoryEntry() (history.Entry, error) {
	if s.EndTime == nil {
		return history.Entry{}, fmt.Errorf("session %s not stopped", s.ID)
	}
	name := fmt.Sprintf("%s %s", s.Type, s.StartTime.Format("2006-01-02 15:04"))
	return history.NewEntry(s.ID, history.KindActivity, name, *s.EndTime, s)
}

// Metrics is the live snapshot pushed to the UI shell on every tick and update.
type Metrics struct {
	SessionID        string  `json:"sessionId,omitempty"`
	ActivityType     Type    `json:"activityType,omitempty"`
	State            State   `json:"state"`
	ElapsedSeconds   int     `json:"elapsedSeconds"`
	DistanceMeters   float64 `json:"distanceMeters"`
	Pace             string  `json:"pace"`
	PaceSecondsPerKm float64 `json:"paceSecondsPerKm"`
	CurrentSpeedKmh  float64 `json:"currentSpeedKmh"`
	AverageSpeedKmh  float64 `json:"averageSpeedKmh"`
	CaloriesBurned   int     `json:"caloriesBurned"`
	GPSAccuracy      float64 `json:"gpsAccuracy"`
	PointCount       int     `json:"pointCount"`
	LastGPSError     string  `json:"lastGpsError,omitempty"`
}

func idleMetrics() Metrics {
	return Metrics{
		State: Idle,
		Pace:  pace.Format(0, 0),
	}
}
