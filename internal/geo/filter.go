package geo

// JumpFilter rejects a point whose distance from the previous route point
// exceeds MaxJumpMeters. A zero value filter accepts everything, so the
// distance totals stay exactly the sum over all reported points.
type JumpFilter struct {
	MaxJumpMeters float64
}

func (f JumpFilter) Enabled() bool {
	return f.MaxJumpMeters > 0
}

// Accept reports whether the point may be appended to the route.
func (f JumpFilter) Accept(route Route, point GeoPoint) bool {
	if !f.Enabled() || len(route) == 0 {
		return true
	}
	return Distance(route[len(route)-1], point) <= f.MaxJumpMeters
}
