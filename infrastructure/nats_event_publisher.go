package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"prizeledger/domain/interfaces"
	"prizeledger/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventEnvelope wraps every event put on the bus
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler reacts to a published or delivered event
type EventHandler func(context.Context, events.Event) error

// NATSEventPublisher publishes events to NATS and to in-process handlers.
// Local handlers run on their own goroutines so Publish never waits for them.
// With a nil bus only the local handlers run.
type NATSEventPublisher struct {
	bus           MessagePublisher
	subjectMapper *EventSubjectMapper
	mu            sync.RWMutex
	localHandlers map[events.EventType][]EventHandler
	inflight      sync.WaitGroup
}

var (
	_ interfaces.EventPublisher  = (*NATSEventPublisher)(nil)
	_ interfaces.EventSubscriber = (*NATSEventPublisher)(nil)
)

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(bus MessagePublisher, subjectMapper *EventSubjectMapper) *NATSEventPublisher {
	return &NATSEventPublisher{
		bus:           bus,
		subjectMapper: subjectMapper,
		localHandlers: make(map[events.EventType][]EventHandler),
	}
}

// Publish publishes an event to NATS using the appropriate subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx := context.Background()
	eventType := event.Type()

	p.mu.RLock()
	handlers := p.localHandlers[eventType]
	p.mu.RUnlock()

	for _, handler := range handlers {
		p.dispatchLocal(handler, event)
	}

	if p.bus == nil {
		return nil
	}

	subject := p.subjectMapper.MapEventToSubject(event)
	envelopeData, envelope, err := encodeEnvelope(event)
	if err != nil {
		return err
	}

	if err := p.bus.Publish(ctx, subject, envelopeData); err != nil {
		if strings.Contains(err.Error(), "no response from stream") {
			log.WithField("subject", subject).Warn("No stream bound to subject, event dropped")
			return nil
		}
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": eventType,
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")
	return nil
}

func (p *NATSEventPublisher) dispatchLocal(handler EventHandler, event events.Event) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		eventType := event.Type()
		log.WithField("eventType", eventType).Debug("Invoking local handler for event")
		if err := handler(context.Background(), event); err != nil {
			log.WithFields(log.Fields{
				"eventType": eventType,
				"error":     err,
			}).Error("Local event handler failed")
		}
	}()
}

// Drain waits for in-flight local handlers until ctx is done
func (p *NATSEventPublisher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("local event handlers still running: %w", ctx.Err())
	}
}

// RegisterLocalHandler registers a handler invoked in-process for every published event of eventType
func (p *NATSEventPublisher) RegisterLocalHandler(eventType events.EventType, handler EventHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.localHandlers[eventType] = append(p.localHandlers[eventType], handler)
	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(p.localHandlers[eventType]),
	}).Info("Registered local event handler")
}

// Subscribe registers handler as a local handler, so the publisher can stand in for a
// subscriber when no message bus is configured
func (p *NATSEventPublisher) Subscribe(eventType events.EventType, handler func(context.Context, events.Event) error) error {
	p.RegisterLocalHandler(eventType, handler)
	return nil
}

// EnsureLedgerEventStream ensures the ledger_events stream covers every published subject
func (p *NATSEventPublisher) EnsureLedgerEventStream(client *NATSClient) error {
	return client.ensureStream(LedgerEventStream, p.subjectMapper.GetAllSubjects())
}

func encodeEnvelope(event events.Event) ([]byte, *EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: "prizeledger",
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return data, envelope, nil
}
