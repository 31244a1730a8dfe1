package events

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Publisher is anything that can dispatch an event
type Publisher interface {
	Publish(event Event) error
}

// Buffer holds events raised while an operation is in flight. Flush dispatches them once the
// operation has fully succeeded; Discard drops them when it was compensated.
type Buffer struct {
	publisher Publisher
	mu        sync.Mutex
	pending   []Event
}

// NewBuffer creates a buffer in front of publisher
func NewBuffer(publisher Publisher) *Buffer {
	return &Buffer{
		publisher: publisher,
		pending:   make([]Event, 0, 4),
	}
}

// Add queues an event without dispatching it
func (b *Buffer) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, event)
}

// Len returns the number of queued events
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush dispatches every queued event. Publish failures are logged and never returned,
// notifications must not fail the operation that produced them.
func (b *Buffer) Flush() {
	b.mu.Lock()
	pending := b.pending
	b.pending = make([]Event, 0, 4)
	b.mu.Unlock()

	if b.publisher == nil {
		return
	}

	for _, event := range pending {
		if err := b.publisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}
}

// Discard drops every queued event
func (b *Buffer) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) > 0 {
		log.WithField("discardedEventCount", len(b.pending)).Debug("Discarding buffered events")
	}
	b.pending = b.pending[:0]
}
