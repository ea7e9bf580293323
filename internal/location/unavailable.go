package location

import (
	"fmt"

	"github.com/2beens/fittrack/internal/apperr"
)

// UnavailableProvider models a platform without a location capability.
type UnavailableProvider struct {
	Reason string
}

func (u UnavailableProvider) Watch(WatchOptions, UpdateFunc, ErrorFunc) (Subscription, error) {
	reason := u.Reason
	if reason == "" {
		reason = "no location capability"
	}
	return 0, fmt.Errorf("%s: %w", reason, apperr.ErrLocationUnavailable)
}

func (u UnavailableProvider) Unwatch(sub Subscription) error {
	return fmt.Errorf("subscription %d: %w", sub, apperr.ErrNotFound)
}
