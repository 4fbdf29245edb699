// Package notify fans store result events out to observers without letting a
// slow observer hold up the store that published them.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/leadflow/leadctl/internal/core/domain"
)

const channelBuffer = 256

// Subscriber reacts to store events.
type Subscriber interface {
	Notify(event domain.Event)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(domain.Event)

func (f SubscriberFunc) Notify(e domain.Event) { f(e) }

// Dispatcher gives each subscriber its own worker and buffered channel, so
// every subscriber sees events in publish order.
type Dispatcher struct {
	subs    []Subscriber
	workers []chan domain.Event
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher for subs. Call Start before publishing.
func NewDispatcher(log zerolog.Logger, subs ...Subscriber) *Dispatcher {
	d := &Dispatcher{
		subs:    subs,
		workers: make([]chan domain.Event, len(subs)),
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Event, channelBuffer)
	}
	return d
}

// Start launches one goroutine per subscriber. Workers stop when ctx is
// cancelled or after Close has drained their channel.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Publish hands event to every subscriber. It never blocks: when a
// subscriber's buffer is full the event is dropped for that subscriber.
func (d *Dispatcher) Publish(event domain.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	for i, ch := range d.workers {
		select {
		case ch <- event:
		default:
			d.log.Warn().Int("subscriber", i).Str("op", string(event.Op)).Msg("subscriber buffer full, event dropped")
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Event) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(id, event)
		}
	}
}

func (d *Dispatcher) deliver(id int, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Int("subscriber", id).Msg("subscriber panicked")
		}
	}()
	d.subs[id].Notify(event)
}
