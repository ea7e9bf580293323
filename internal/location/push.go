package location

import (
	"fmt"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/apperr"
)

// PushProvider delivers fixes that are pushed into it from the outside, e.g.
// the UI shell posting device geolocation readings over HTTP.
type PushProvider struct {
	// delivery holds the read lock while callbacks run, so Unwatch (write lock)
	// waits for in-flight deliveries before returning
	delivery sync.RWMutex
	granted  bool
	nextSub  Subscription
	subs     map[Subscription]subscriber
	nowFunc  func() time.Time
}

type subscriber struct {
	onUpdate UpdateFunc
	onError  ErrorFunc
}

func NewPushProvider() *PushProvider {
	return &PushProvider{
		granted: true,
		subs:    make(map[Subscription]subscriber),
		nowFunc: time.Now,
	}
}

// SetPermission simulates the user granting or denying location access.
// Revoking permission does not drop existing subscriptions, but they get an error.
func (p *PushProvider) SetPermission(granted bool) {
	p.delivery.Lock()
	p.granted = granted
	subs := p.snapshot()
	p.delivery.Unlock()

	if granted {
		return
	}

	p.delivery.RLock()
	defer p.delivery.RUnlock()
	for id, s := range subs {
		if _, ok := p.subs[id]; ok && s.onError != nil {
			s.onError(fmt.Errorf("permission revoked: %w", apperr.ErrLocationUnavailable))
		}
	}
}

func (p *PushProvider) Watch(_ WatchOptions, onUpdate UpdateFunc, onError ErrorFunc) (Subscription, error) {
	p.delivery.Lock()
	defer p.delivery.Unlock()

	if !p.granted {
		return 0, fmt.Errorf("permission denied: %w", apperr.ErrLocationUnavailable)
	}
	if onUpdate == nil {
		return 0, fmt.Errorf("nil update callback: %w", apperr.ErrLocationUnavailable)
	}

	p.nextSub++
	p.subs[p.nextSub] = subscriber{onUpdate: onUpdate, onError: onError}
	return p.nextSub, nil
}

func (p *PushProvider) Unwatch(sub Subscription) error {
	p.delivery.Lock()
	defer p.delivery.Unlock()

	if _, ok := p.subs[sub]; !ok {
		return fmt.Errorf("subscription %d: %w", sub, apperr.ErrNotFound)
	}
	delete(p.subs, sub)
	return nil
}

// Push delivers the fix to every active subscription and returns the number of
// subscribers that received it. A zero timestamp is replaced with the current time.
func (p *PushProvider) Push(fix Fix) int {
	p.delivery.RLock()
	defer p.delivery.RUnlock()

	if !p.granted {
		return 0
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = p.nowFunc()
	}

	for _, s := range p.subs {
		s.onUpdate(fix)
	}
	return len(p.subs)
}

// Fail reports a provider error (signal lost, timeout) to every subscriber.
func (p *PushProvider) Fail(err error) {
	p.delivery.RLock()
	defer p.delivery.RUnlock()

	for _, s := range p.subs {
		if s.onError != nil {
			s.onError(err)
		}
	}
}

func (p *PushProvider) Subscribers() int {
	p.delivery.RLock()
	defer p.delivery.RUnlock()
	return len(p.subs)
}

func (p *PushProvider) snapshot() map[Subscription]subscriber {
	subs := make(map[Subscription]subscriber, len(p.subs))
	for id, s := range p.subs {
		subs[id] = s
	}
	return subs
}
