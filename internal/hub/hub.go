package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/casualjim/tickertape/events"
	"github.com/casualjim/tickertape/pkg/slogx"
	"github.com/casualjim/tickertape/pkg/uuidx"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
)

const (
	// DefaultCapacity is the number of recent events the hub retains.
	DefaultCapacity = 100

	defaultObserverBuffer = 64
)

var (
	// Capacity sets how many recent events are retained.
	Capacity = opts.ForName[Hub, int]("capacity")
	// ObserverBuffer sets how many undelivered events an observer may queue before
	// it is considered gone.
	ObserverBuffer = opts.ForName[Hub, int]("observerBuffer")
)

// WithClock replaces the time source used to stamp events.
func WithClock(now func() time.Time) opts.Option[Hub] {
	return opts.Type[Hub](func(h *Hub) error {
		h.now = now
		return nil
	})
}

// Hub fans log events out to every live observer and keeps a bounded history.
// A single mutex guards the observer set and the history for the duration of
// each operation.
type Hub struct {
	capacity       int
	observerBuffer int
	now            func() time.Time

	mu        sync.Mutex
	observers map[string]*Observer
	buffer    *ring[events.LogEvent]
	logger    *slog.Logger
}

// New creates a Hub. It panics when an option can't be applied.
func New(options ...opts.Option[Hub]) *Hub {
	h := &Hub{
		capacity:       DefaultCapacity,
		observerBuffer: defaultObserverBuffer,
		now:            time.Now,
	}
	if err := opts.Apply(h, options); err != nil {
		panic(err)
	}
	if h.observerBuffer < 1 {
		h.observerBuffer = 1
	}
	h.observers = make(map[string]*Observer)
	h.buffer = newRing[events.LogEvent](h.capacity)
	h.logger = slog.Default().With(slogx.LoggerName("tickertape.hub"))
	return h
}

// Publish records the event and pushes it to every live observer. Observers that
// can't take the event are disconnected once the pass completes.
func (h *Hub) Publish(ctx context.Context, event events.LogEvent) {
	event = event.Stamped(h.now())

	h.mu.Lock()
	defer h.mu.Unlock()

	h.buffer.Push(event)
	h.broadcast(ctx, event)
}

// Reset empties the history and sends a reset signal to every live observer.
func (h *Hub) Reset(ctx context.Context) {
	signal := events.Reset{Timestamp: strfmt.DateTime(h.now().UTC())}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.buffer.Clear()
	h.broadcast(ctx, signal)
}

// Subscribe registers a new observer. Its stream starts empty and receives every
// event published after this call until the observer is closed or ctx is done.
func (h *Hub) Subscribe(ctx context.Context) *Observer {
	obs := &Observer{
		id:   uuidx.Prefixed("obs"),
		hub:  h,
		ch:   make(chan events.Event, h.observerBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.observers[obs.id] = obs
	obs.stop = context.AfterFunc(ctx, obs.Close)
	h.mu.Unlock()

	h.logger.DebugContext(ctx, "observer subscribed", slog.String("observer", obs.id))
	return obs
}

// Recent returns the retained events, oldest first.
func (h *Hub) Recent() []events.LogEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buffer.Snapshot()
}

// Len returns the number of retained events.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buffer.Len()
}

// Observers returns the number of live observers.
func (h *Hub) Observers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

// broadcast must be called with h.mu held.
func (h *Hub) broadcast(ctx context.Context, event events.Event) {
	var dead []*Observer
	for _, obs := range h.observers {
		if !obs.push(event) {
			dead = append(dead, obs)
		}
	}

	for _, obs := range dead {
		h.remove(obs)
		h.logger.DebugContext(ctx, "dropped observer that stopped consuming", slog.String("observer", obs.id))
	}
}

func (h *Hub) disconnect(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if obs, ok := h.observers[id]; ok {
		h.remove(obs)
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(obs *Observer) {
	delete(h.observers, obs.id)
	obs.closeOnce.Do(func() {
		if obs.stop != nil {
			obs.stop()
		}
		close(obs.ch)
		close(obs.done)
	})
}

// Observer is a live subscription to a Hub.
type Observer struct {
	id        string
	hub       *Hub
	ch        chan events.Event
	done      chan struct{}
	stop      func() bool
	closeOnce sync.Once
}

// ID returns the observer's unique identifier.
func (o *Observer) ID() string {
	return o.id
}

// Events returns the stream of LogEvent and Reset values. The channel is closed
// when the observer disconnects.
func (o *Observer) Events() <-chan events.Event {
	return o.ch
}

// Done is closed when the observer disconnects.
func (o *Observer) Done() <-chan struct{} {
	return o.done
}

// Close disconnects the observer. Calling it more than once is a no-op.
func (o *Observer) Close() {
	o.hub.disconnect(o.id)
}

func (o *Observer) push(event events.Event) bool {
	select {
	case o.ch <- event:
		return true
	default:
		return false
	}
}
