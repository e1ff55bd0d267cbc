package transport

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/tabroom/internal/bus"
	"github.com/oklog/ulid/v2"
)

// Local is a transport endpoint for tabs living in one process. All
// endpoints created on the same bus and room see each other's events.
type Local struct {
	bus       *bus.Bus
	namespace string
	id        string

	mu         sync.Mutex
	subscribed bool
	closed     bool
	stop       chan struct{}
	wg         sync.WaitGroup
}

// NewLocal creates an endpoint on the given bus for room.
func NewLocal(b *bus.Bus, room string) *Local {
	return &Local{
		bus:       b,
		namespace: "transport." + room + ".",
		id:        ulid.Make().String(),
		stop:      make(chan struct{}),
	}
}

// ID returns the endpoint's origin identifier.
func (l *Local) ID() string {
	return l.id
}

// Publish fans evt out to the other endpoints of the room.
func (l *Local) Publish(_ context.Context, evt Event) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := evt.Validate(); err != nil {
		return err
	}
	evt = stamp(evt, l.id)
	l.bus.Publish(bus.Event{
		Kind:      l.namespace + string(evt.Kind),
		Source:    l.id,
		Timestamp: time.Now(),
		Payload:   evt,
	})
	return nil
}

// Subscribe starts receiving events published by other endpoints.
func (l *Local) Subscribe(_ context.Context, bufSize int) (<-chan Event, func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, nil, ErrClosed
	}
	if l.subscribed {
		return nil, nil, ErrAlreadySubscribed
	}
	l.subscribed = true

	raw, unsub := l.bus.Subscribe(l.namespace, bufSize)
	out := make(chan Event, bufSize)
	done := make(chan struct{})

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(out)
		defer unsub()
		for {
			select {
			case be := <-raw:
				if be.Source == l.id {
					continue
				}
				evt, ok := be.Payload.(Event)
				if !ok {
					continue
				}
				select {
				case out <- evt:
				case <-done:
					return
				case <-l.stop:
					return
				}
			case <-done:
				return
			case <-l.stop:
				return
			}
		}
	}()

	var once sync.Once
	return out, func() { once.Do(func() { close(done) }) }, nil
}

// Close stops delivery and rejects further publishes.
func (l *Local) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.stop)
	l.mu.Unlock()
	l.wg.Wait()
	return nil
}
