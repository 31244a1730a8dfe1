package infrastructure

import (
	"context"
	"encoding/json"
	"testing"

	"prizeledger/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorAlerter_Raise(t *testing.T) {
	t.Parallel()

	bus := newMemoryBus()
	alerter := NewOperatorAlerter(NewNATSEventPublisher(bus, NewEventSubjectMapper()))

	alerter.Raise(context.Background(), events.OperatorAlertEvent{
		Kind:     "ledger_write_failed",
		Severity: events.AlertSeverityWarning,
		Message:  "ledger entry missing",
		Details:  map[string]any{"walletID": 4},
	})

	require.Len(t, bus.published, 1)
	assert.Equal(t, "operators.alert", bus.published[0].subject)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(bus.published[0].data, &envelope))
	assert.Equal(t, "operator_alert", envelope.EventType)
}

func TestOperatorAlerter_PublishFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	bus := newMemoryBus()
	bus.publishErr = assert.AnError
	alerter := NewOperatorAlerter(NewNATSEventPublisher(bus, NewEventSubjectMapper()))

	assert.NotPanics(t, func() {
		alerter.Raise(context.Background(), events.OperatorAlertEvent{Kind: "draw_compensation_failed"})
	})
	assert.NotPanics(t, func() {
		NewOperatorAlerter(nil).Raise(context.Background(), events.OperatorAlertEvent{Kind: "x"})
	})
}
