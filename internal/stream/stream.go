// Package stream implements the fire-and-forget progress event emitter
// described in spec.md §6: a best-effort broadcast with no back-pressure
// guarantees — slow or absent consumers drop events rather than stall the
// pipeline.
package stream

import "sync"

// Status is the lifecycle state of one progress step.
type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event is one fire-and-forget progress notification.
type Event struct {
	TaskID  string
	Phase   string
	Step    string
	Status  Status
	Payload any
	Error   string
}

// Emitter fans an Event out to any number of subscribers. Each subscriber
// gets its own bounded channel; a full channel means the subscriber is slow
// and the event for that subscriber is simply dropped.
type Emitter struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	bufferSize  int
}

// NewEmitter creates an Emitter whose per-subscriber channel buffer holds
// bufferSize events before it starts dropping.
func NewEmitter(bufferSize int) *Emitter {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Emitter{
		subscribers: make(map[int]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function.
func (e *Emitter) Subscribe() (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	ch := make(chan Event, e.bufferSize)
	e.subscribers[id] = ch

	unsubscribe := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subscribers[id]; ok {
			delete(e.subscribers, id)
			close(c)
		}
	}
	return ch, unsubscribe
}

// Emit broadcasts an event to every current subscriber. It never blocks:
// a subscriber whose buffer is full simply misses this event.
func (e *Emitter) Emit(evt Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ch := range e.subscribers {
		select {
		case ch <- evt:
		default:
			// consumer dropped on overflow, per spec.
		}
	}
}
