package geo

import (
	"github.com/golang/geo/s2"
)

// Route is the chronological sequence of recorded points of a session.
// It only grows while a session is tracking.
type Route []GeoPoint

// AddPoint appends the point unconditionally and returns the new route together
// with the distance from the previous last point (0 for the first point).
func AddPoint(route Route, point GeoPoint) (Route, float64) {
	delta := 0.0
	if len(route) > 0 {
		delta = Distance(route[len(route)-1], point)
	}
	return append(route, point), delta
}

// Distance is the sum of consecutive haversine distances, 0 for routes with less than 2 points.
func (r Route) Distance() float64 {
	total := 0.0
	for i := 1; i < len(r); i++ {
		total += Distance(r[i-1], r[i])
	}
	return total
}

// Last returns up to n most recent points.
func (r Route) Last(n int) Route {
	if n <= 0 {
		return Route{}
	}
	if len(r) <= n {
		return r
	}
	return r[len(r)-n:]
}

// Bounds is the lat/lng bounding box of a route.
type Bounds struct {
	SouthWest GeoPoint `json:"southWest"`
	NorthEast GeoPoint `json:"northEast"`
}

// Bounds returns the bounding box of the route, false for an empty route.
func (r Route) Bounds() (Bounds, bool) {
	if len(r) == 0 {
		return Bounds{}, false
	}

	bounder := s2.NewRectBounder()
	for _, p := range r {
		bounder.AddPoint(s2.PointFromLatLng(p.latLng()))
	}
	rect := bounder.RectBound()

	return Bounds{
		SouthWest: GeoPoint{Lat: rect.Lo().Lat.Degrees(), Lng: rect.Lo().Lng.Degrees()},
		NorthEast: GeoPoint{Lat: rect.Hi().Lat.Degrees(), Lng: rect.Hi().Lng.Degrees()},
	}, true
}
