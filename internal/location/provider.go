package location

import (
	"time"

	"github.com/2beens/fittrack/internal/geo"
)

// Fix is a single location reading delivered by a provider.
type Fix struct {
	Point     geo.GeoPoint `json:"point"`
	Accuracy  float64      `json:"accuracy"` // meters
	Timestamp time.Time    `json:"timestamp"`
}

// WatchOptions mirror the continuous-updates mode of a device location API:
// high accuracy, and never serve a cached (stale) fix.
type WatchOptions struct {
	HighAccuracy bool
	MaximumAge   time.Duration
	Timeout      time.Duration
}

func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		HighAccuracy: true,
		MaximumAge:   0,
		Timeout:      5 * time.Second,
	}
}

type (
	UpdateFunc func(fix Fix)
	ErrorFunc  func(err error)
)

// Subscription identifies an active watch.
type Subscription int64

// Provider is the location capability consumed by the activity tracker.
// Watch fails with apperr.ErrLocationUnavailable when the capability is missing
// or permission is denied. After Unwatch returns, the subscription callbacks
// are never invoked again. Callbacks must not call Unwatch themselves.
type Provider interface {
	Watch(opts WatchOptions, onUpdate UpdateFunc, onError ErrorFunc) (Subscription, error)
	Unwatch(sub Subscription) error
}
