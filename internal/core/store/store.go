// Package store holds the client-side state for the session and the lead
// collection. Stores are safe for concurrent use; every operation settles by
// publishing a domain.Event.
package store

import (
	"time"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
)

// Validator checks an input before it is sent.
type Validator interface {
	Validate(i any) error
}

type options struct {
	events ports.EventPublisher
	now    func() time.Time
}

// Option configures a store.
type Option func(*options)

// WithPublisher sets the sink for result events.
func WithPublisher(p ports.EventPublisher) Option {
	return func(o *options) {
		if p != nil {
			o.events = p
		}
	}
}

// WithClock replaces time.Now, used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{events: ports.NopPublisher, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// inflight counts running operations per kind. Callers hold the owning store's lock.
type inflight map[domain.Op]int

func (f inflight) start(op domain.Op) { f[op]++ }

func (f inflight) done(op domain.Op) {
	if f[op] > 0 {
		f[op]--
	}
}

func (f inflight) any() bool {
	for _, n := range f {
		if n > 0 {
			return true
		}
	}
	return false
}

func fieldError(field, msg string) error {
	return &domain.ValidationError{Fields: map[string]string{field: msg}}
}
