package ports

import "github.com/leadflow/leadctl/internal/core/domain"

// EventPublisher receives store result events. Publish must not block the store.
type EventPublisher interface {
	Publish(event domain.Event)
}

// EventPublisherFunc adapts a function to EventPublisher.
type EventPublisherFunc func(domain.Event)

func (f EventPublisherFunc) Publish(event domain.Event) { f(event) }

// NopPublisher drops every event.
var NopPublisher EventPublisher = EventPublisherFunc(func(domain.Event) {})
