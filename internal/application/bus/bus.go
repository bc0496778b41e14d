// Package bus is the bounded, ordered, multi-producer/single-consumer queue
// between event producers and the aggregator.
package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/dreschagin/health-checker/internal/domain/event"
)

// DefaultCapacity is the number of buffered events.
const DefaultCapacity = 32

var (
	// ErrClosed is returned by Receive at end of stream, and by Producer once
	// every producer has been released.
	ErrClosed = errors.New("event bus closed")

	// ErrReleased is returned by Send on a producer handle that was released.
	ErrReleased = errors.New("producer released")
)

// Bus delivers events in enqueue-completion order. Send blocks while the
// buffer is full.
type Bus struct {
	events chan event.Event

	mu        sync.Mutex
	producers int
	closed    bool

	drained     chan struct{}
	drainedOnce sync.Once
}

// New creates a bus holding up to capacity events.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Bus{
		events:  make(chan event.Event, capacity),
		drained: make(chan struct{}),
	}
}

// Producer registers a new producer handle. The stream ends once every handle
// obtained here has been released.
func (b *Bus) Producer() (*Producer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	b.producers++

	return &Producer{bus: b}, nil
}

// Receive blocks until an event is available. It returns ErrClosed once all
// producers are released and the buffer is empty, or ctx.Err() on cancellation.
func (b *Bus) Receive(ctx context.Context) (event.Event, error) {
	select {
	case ev, ok := <-b.events:
		if !ok {
			return nil, ErrClosed
		}
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// MarkDrained is called by the consumer after it observed end of stream.
func (b *Bus) MarkDrained() {
	b.drainedOnce.Do(func() { close(b.drained) })
}

// Drained is closed when the consumer has finished with the stream.
func (b *Bus) Drained() <-chan struct{} {
	return b.drained
}

// Len reports buffered events.
func (b *Bus) Len() int {
	return len(b.events)
}

// Cap reports the buffer capacity.
func (b *Bus) Cap() int {
	return cap(b.events)
}

func (b *Bus) release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.producers--
	if b.producers == 0 && !b.closed {
		b.closed = true
		close(b.events)
	}
}

// Producer is a sending handle. It is safe for concurrent use; Release must
// be called exactly once when the owner stops producing.
type Producer struct {
	bus *Bus

	// sends hold the read lock so Release cannot close the channel under them
	mu       sync.RWMutex
	released bool
}

// Send enqueues ev, blocking while the bus is full. A cancelled ctx aborts
// the wait without enqueuing.
func (p *Producer) Send(ctx context.Context, ev event.Event) error {
	if ev == nil {
		return errors.New("event cannot be nil")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.released {
		return ErrReleased
	}

	select {
	case p.bus.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release gives up the handle. Calling it more than once is a no-op.
func (p *Producer) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return
	}
	p.released = true
	p.bus.release()
}

// Drained is a convenience for waiting on the consumer from a producer.
func (p *Producer) Drained() <-chan struct{} {
	return p.bus.Drained()
}
