package pace

import (
	"testing"

	"github.com/2beens/fittrack/internal/geo"

	"github.com/stretchr/testify/assert"
)

func TestFormat_ZeroDistance(t *testing.T) {
	for _, elapsed := range []int{0, 1, 59, 60, 3600, 86400} {
		assert.Equal(t, "0:00", Format(elapsed, 0), "elapsed: %d", elapsed)
	}
}

func TestFormat(t *testing.T) {
	testCases := []struct {
		name     string
		elapsed  int
		distance float64
		expected string
	}{
		{name: "five minute km", elapsed: 300, distance: 1000, expected: "5:00"},
		{name: "half km in 2:45", elapsed: 165, distance: 500, expected: "5:30"},
		{name: "seconds padded", elapsed: 305, distance: 1000, expected: "5:05"},
		{name: "slow walk", elapsed: 3600, distance: 5000, expected: "12:00"},
		{name: "fractional seconds floored", elapsed: 100, distance: 300, expected: "5:33"},
		{name: "no time yet", elapsed: 0, distance: 100, expected: "0:00"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Format(tc.elapsed, tc.distance))
		})
	}
}

func TestSecondsPerKm(t *testing.T) {
	assert.Equal(t, 0.0, SecondsPerKm(100, 0))
	assert.Equal(t, 300.0, SecondsPerKm(300, 1000))
	assert.Equal(t, 330.0, SecondsPerKm(165, 500))
}

func TestCurrentSpeed(t *testing.T) {
	assert.Equal(t, 0.0, CurrentSpeed(nil, 10))
	assert.Equal(t, 0.0, CurrentSpeed(geo.Route{{Lat: 0, Lng: 0}}, 10))
	assert.Equal(t, 0.0, CurrentSpeed(geo.Route{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.001}}, 0))

	// 0.001 deg of longitude on the equator ~ 111.195 m
	route := geo.Route{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.001}}
	// 111.195 m in 10 s -> ~ 40.03 km/h
	assert.InDelta(t, 40.03, CurrentSpeed(route, 10), 0.01)
}

func TestCurrentSpeed_WindowCappedAt30Seconds(t *testing.T) {
	route := geo.Route{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.001}}
	// after 30 s the window stops growing
	assert.InDelta(t, CurrentSpeed(route, 30), CurrentSpeed(route, 300), 1e-9)
	assert.InDelta(t, 13.34, CurrentSpeed(route, 300), 0.01)
}

func TestCurrentSpeed_OnlyLastFivePoints(t *testing.T) {
	route := geo.Route{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}} // a huge first leg
	for i := 1; i <= 5; i++ {
		route = append(route, geo.GeoPoint{Lat: 0, Lng: 1 + float64(i)*0.0001})
	}

	// last 5 points span 4 legs of ~ 11.12 m
	recent := route.Last(5).Distance()
	assert.InDelta(t, 44.48, recent, 0.01)
	assert.InDelta(t, (recent/1000)/(30.0/3600), CurrentSpeed(route, 60), 1e-9)
}

func TestAverageSpeed(t *testing.T) {
	assert.Equal(t, 0.0, AverageSpeed(0, 1000))
	assert.InDelta(t, 12.0, AverageSpeed(300, 1000), 1e-9)
}
