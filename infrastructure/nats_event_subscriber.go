package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"prizeledger/domain/interfaces"
	"prizeledger/events"

	log "github.com/sirupsen/logrus"
)

// NATSEventSubscriber subscribes to NATS subjects and deserializes events for application handlers
type NATSEventSubscriber struct {
	bus           MessageSubscriber
	subjectMapper *EventSubjectMapper
	mu            sync.RWMutex
	handlers      map[string]EventHandler
}

var _ interfaces.EventSubscriber = (*NATSEventSubscriber)(nil)

// NewNATSEventSubscriber creates a new NATS event subscriber
func NewNATSEventSubscriber(bus MessageSubscriber, subjectMapper *EventSubjectMapper) *NATSEventSubscriber {
	return &NATSEventSubscriber{
		bus:           bus,
		subjectMapper: subjectMapper,
		handlers:      make(map[string]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (s *NATSEventSubscriber) Subscribe(eventType events.EventType, handler func(context.Context, events.Event) error) error {
	subject := s.subjectMapper.MapEventTypeToSubject(eventType)

	s.mu.Lock()
	s.handlers[subject] = handler
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"eventType": eventType,
		"subject":   subject,
	}).Info("Registering event handler for subject")

	return s.bus.Subscribe(subject, func(data []byte) error {
		return s.handleMessage(subject, data)
	})
}

// handleMessage deserializes a NATS message and routes it to the handler of its subject
func (s *NATSEventSubscriber) handleMessage(subject string, data []byte) error {
	var envelope EventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.WithFields(log.Fields{
			"subject": subject,
			"error":   err,
		}).Error("Failed to unmarshal event envelope")
		return fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	eventType := events.EventType(envelope.EventType)
	event, err := deserializeEvent(eventType, envelope.Payload)
	if err != nil {
		log.WithFields(log.Fields{
			"subject":     subject,
			"eventType":   eventType,
			"eventId":     envelope.EventID,
			"payloadSize": len(envelope.Payload),
			"error":       err,
		}).Error("Failed to deserialize event payload")
		return fmt.Errorf("failed to deserialize event payload: %w", err)
	}

	s.mu.RLock()
	handler, exists := s.handlers[subject]
	s.mu.RUnlock()
	if !exists {
		log.WithFields(log.Fields{
			"subject":   subject,
			"eventType": eventType,
		}).Warn("No handler registered for subject")
		return fmt.Errorf("no handler registered for subject %s", subject)
	}

	if err := handler(context.Background(), event); err != nil {
		log.WithFields(log.Fields{
			"subject":   subject,
			"eventType": eventType,
			"eventId":   envelope.EventID,
			"eventData": fmt.Sprintf("%+v", event),
			"error":     err,
		}).Error("Event handler failed")
		return err
	}

	log.WithFields(log.Fields{
		"subject":   subject,
		"eventType": eventType,
		"eventId":   envelope.EventID,
	}).Debug("Successfully processed NATS event")
	return nil
}

// deserializeEvent decodes payload into the value type registered for eventType
func deserializeEvent(eventType events.EventType, payload []byte) (events.Event, error) {
	switch eventType {
	case events.EventTypeBalanceChanged:
		return decodeEvent[events.BalanceChangedEvent](payload)
	case events.EventTypeWithdrawalRequested:
		return decodeEvent[events.WithdrawalRequestedEvent](payload)
	case events.EventTypeWithdrawalReviewed:
		return decodeEvent[events.WithdrawalReviewedEvent](payload)
	case events.EventTypeTicketsAllocated:
		return decodeEvent[events.TicketsAllocatedEvent](payload)
	case events.EventTypeRaffleSoldOut:
		return decodeEvent[events.RaffleSoldOutEvent](payload)
	case events.EventTypeRaffleDrawn:
		return decodeEvent[events.RaffleDrawnEvent](payload)
	case events.EventTypeRaffleCancelled:
		return decodeEvent[events.RaffleCancelledEvent](payload)
	case events.EventTypeOperatorAlert:
		return decodeEvent[events.OperatorAlertEvent](payload)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

func decodeEvent[T events.Event](payload []byte) (events.Event, error) {
	var event T
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return event, nil
}
