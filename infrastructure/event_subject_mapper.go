package infrastructure

import (
	"fmt"

	"prizeledger/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return m.MapEventTypeToSubject(event.Type())
}

// MapEventTypeToSubject converts an event type to its NATS subject
func (m *EventSubjectMapper) MapEventTypeToSubject(eventType events.EventType) string {
	switch eventType {
	case events.EventTypeBalanceChanged:
		return "wallets.balance_changed"
	case events.EventTypeWithdrawalRequested:
		return "withdrawals.requested"
	case events.EventTypeWithdrawalReviewed:
		return "withdrawals.reviewed"
	case events.EventTypeTicketsAllocated:
		return "raffles.tickets_allocated"
	case events.EventTypeRaffleSoldOut:
		return "raffles.sold_out"
	case events.EventTypeRaffleDrawn:
		return "raffles.drawn"
	case events.EventTypeRaffleCancelled:
		return "raffles.cancelled"
	case events.EventTypeOperatorAlert:
		return "operators.alert"
	default:
		return fmt.Sprintf("unknown.%s", eventType)
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "wallets.balance_changed":
		return events.EventTypeBalanceChanged
	case "withdrawals.requested":
		return events.EventTypeWithdrawalRequested
	case "withdrawals.reviewed":
		return events.EventTypeWithdrawalReviewed
	case "raffles.tickets_allocated":
		return events.EventTypeTicketsAllocated
	case "raffles.sold_out":
		return events.EventTypeRaffleSoldOut
	case "raffles.drawn":
		return events.EventTypeRaffleDrawn
	case "raffles.cancelled":
		return events.EventTypeRaffleCancelled
	case "operators.alert":
		return events.EventTypeOperatorAlert
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"wallets.balance_changed",
		"withdrawals.requested",
		"withdrawals.reviewed",
		"raffles.tickets_allocated",
		"raffles.sold_out",
		"raffles.drawn",
		"raffles.cancelled",
		"operators.alert",
	}
}
