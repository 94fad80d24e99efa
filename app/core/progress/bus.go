package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names a progress notification
type EventType string

const (
	EventStoryRated EventType = "story:rated"
	EventStoryRead  EventType = "story:read"
	EventLoginDay   EventType = "login:day"
	EventCleared    EventType = "achievements:cleared"
)

// Event is a change notification. TaleID and Stars are set where they apply.
type Event struct {
	Type   EventType
	TaleID string
	Stars  int
	At     time.Time
}

const defaultSubscriberBuffer = 64

// Bus delivers progress notifications to subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event, and an event nobody
// listens to is dropped.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscription
	bufferSize  int
	closed      bool
}

// Subscription is a live registration on a Bus. Events arrive on C until
// Unsubscribe is called or the bus is closed, after which C is closed.
type Subscription struct {
	C     <-chan Event
	ch    chan Event
	id    string
	types map[EventType]struct{}
	bus   *Bus
	once  sync.Once
}

// NewBus creates a bus with the default per-subscriber buffer
func NewBus() *Bus {
	return NewBusWithBuffer(defaultSubscriberBuffer)
}

// NewBusWithBuffer creates a bus whose subscribers buffer size events each
func NewBusWithBuffer(size int) *Bus {
	if size <= 0 {
		size = defaultSubscriberBuffer
	}
	return &Bus{
		subscribers: make(map[string]*Subscription),
		bufferSize:  size,
	}
}

// Subscribe registers for the given event types; no types means every type.
func (b *Bus) Subscribe(types ...EventType) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	sub := &Subscription{
		C:   ch,
		ch:  ch,
		id:  uuid.New().String(),
		bus: b,
	}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	if b.closed {
		sub.once.Do(func() { close(ch) })
		return sub
	}

	b.subscribers[sub.id] = sub
	return sub
}

// Publish delivers e to every matching subscriber and returns how many received it.
func (b *Bus) Publish(e Event) int {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}

	delivered := 0
	for _, sub := range b.subscribers {
		if !sub.wants(e.Type) {
			continue
		}
		select {
		case sub.ch <- e:
			delivered++
		default:
			// slow subscriber, drop
		}
	}
	return delivered
}

// SubscriberCount returns the number of live subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close ends every subscription. Publishing on a closed bus is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		sub.once.Do(func() { close(sub.ch) })
		delete(b.subscribers, id)
	}
}

// ID returns the subscription identifier
func (s *Subscription) ID() string {
	return s.id
}

// Unsubscribe removes the subscription and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	delete(s.bus.subscribers, s.id)
	s.once.Do(func() { close(s.ch) })
}

func (s *Subscription) wants(t EventType) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[t]
	return ok
}
