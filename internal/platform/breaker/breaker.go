// Package breaker provides a generic wrapper around sony/gobreaker so any
// outbound call (not just the event store) can fail fast once a downstream
// dependency is degraded. Grounded on the teacher's sony/gobreaker
// dependency, present in its go.mod but unexercised by any file the
// retrieval pack kept.
package breaker

import (
	"time"

	"github.com/sony/gobreaker"
)

// Breaker wraps a gobreaker.CircuitBreaker with a generic Do so call sites
// don't juggle the `any` return type gobreaker.Execute uses.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New returns a Breaker configured with settings.
func New(settings gobreaker.Settings) *Breaker {
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// DefaultSettings trips after 5 consecutive failures and waits 10s before
// allowing a single probe request through.
func DefaultSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// Do runs fn through the breaker, propagating its error (including
// gobreaker.ErrOpenState / gobreaker.ErrTooManyRequests when tripped).
func Do(b *Breaker, fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// State reports the breaker's current state (closed/open/half-open).
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
