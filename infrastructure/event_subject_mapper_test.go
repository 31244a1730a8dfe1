package infrastructure

import (
	"testing"

	"prizeledger/events"

	"github.com/stretchr/testify/assert"
)

func TestEventSubjectMapper_RoundTrip(t *testing.T) {
	t.Parallel()
	mapper := NewEventSubjectMapper()

	eventTypes := []events.EventType{
		events.EventTypeBalanceChanged,
		events.EventTypeWithdrawalRequested,
		events.EventTypeWithdrawalReviewed,
		events.EventTypeTicketsAllocated,
		events.EventTypeRaffleSoldOut,
		events.EventTypeRaffleDrawn,
		events.EventTypeRaffleCancelled,
		events.EventTypeOperatorAlert,
	}

	subjects := mapper.GetAllSubjects()
	assert.Len(t, subjects, len(eventTypes))

	for _, eventType := range eventTypes {
		subject := mapper.MapEventTypeToSubject(eventType)
		assert.Contains(t, subjects, subject)
		assert.Equal(t, eventType, mapper.MapSubjectToEventType(subject))
	}
}

func TestEventSubjectMapper_Unknown(t *testing.T) {
	t.Parallel()
	mapper := NewEventSubjectMapper()

	assert.Equal(t, "unknown.mystery", mapper.MapEventTypeToSubject("mystery"))
	assert.Equal(t, events.EventType("some.subject"), mapper.MapSubjectToEventType("some.subject"))
	assert.Equal(t, "raffles.sold_out", mapper.MapEventToSubject(events.RaffleSoldOutEvent{RaffleID: 1}))
}
