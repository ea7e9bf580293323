package pace

import (
	"fmt"
	"math"

	"github.com/2beens/fittrack/internal/geo"
)

const (
	// SpeedWindowPoints is the number of most recent route points used for the current speed.
	SpeedWindowPoints = 5
	// SpeedWindowSeconds caps the time window used for the current speed.
	SpeedWindowSeconds = 30
)

// SecondsPerKm returns the average pace, 0 when no distance was covered.
func SecondsPerKm(elapsedSeconds int, distanceMeters float64) float64 {
	if distanceMeters <= 0 || elapsedSeconds <= 0 {
		return 0
	}
	return float64(elapsedSeconds) / (distanceMeters / 1000)
}

// Format returns the average pace as "M:SS" per kilometer.
// Zero distance yields "0:00".
func Format(elapsedSeconds int, distanceMeters float64) string {
	secPerKm := SecondsPerKm(elapsedSeconds, distanceMeters)
	if secPerKm <= 0 {
		return "0:00"
	}

	total := int(math.Floor(secPerKm))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// CurrentSpeed approximates the instantaneous speed in km/h from the most recent
// (up to 5) route points over a time window of at most 30 seconds, or the whole
// elapsed time if shorter. It is not a velocity filter.
func CurrentSpeed(route geo.Route, elapsedSeconds int) float64 {
	if len(route) < 2 || elapsedSeconds <= 0 {
		return 0
	}

	recentDistance := route.Last(SpeedWindowPoints).Distance()
	window := min(elapsedSeconds, SpeedWindowSeconds)

	return (recentDistance / 1000) / (float64(window) / 3600)
}

// AverageSpeed in km/h over the whole session.
func AverageSpeed(elapsedSeconds int, distanceMeters float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return (distanceMeters / 1000) / (float64(elapsedSeconds) / 3600)
}
