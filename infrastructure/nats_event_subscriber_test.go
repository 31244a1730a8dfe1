package infrastructure

import (
	"context"
	"errors"
	"testing"

	"prizeledger/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNATSEventSubscriber_DeliversDecodedEvents(t *testing.T) {
	t.Parallel()

	bus := newMemoryBus()
	mapper := NewEventSubjectMapper()
	publisher := NewNATSEventPublisher(bus, mapper)
	subscriber := NewNATSEventSubscriber(bus, mapper)

	var received events.Event
	require.NoError(t, subscriber.Subscribe(events.EventTypeRaffleDrawn, func(ctx context.Context, e events.Event) error {
		received = e
		return nil
	}))

	sent := events.RaffleDrawnEvent{
		RaffleID:     9,
		WinningCode:  4,
		WinnerUserID: 90,
		PrizeAmount:  decimal.RequireFromString("12.5"),
		TimestampSum: "8500000000000",
		TotalEntries: 5,
	}
	require.NoError(t, publisher.Publish(sent))
	require.Len(t, bus.published, 1)

	require.NoError(t, bus.deliver(bus.published[0].subject, bus.published[0].data))

	drawn, ok := received.(events.RaffleDrawnEvent)
	require.True(t, ok)
	assert.Equal(t, int64(4), drawn.WinningCode)
	assert.True(t, drawn.PrizeAmount.Equal(sent.PrizeAmount))
}

func TestNATSEventSubscriber_Failures(t *testing.T) {
	t.Parallel()

	bus := newMemoryBus()
	mapper := NewEventSubjectMapper()
	subscriber := NewNATSEventSubscriber(bus, mapper)

	handlerErr := errors.New("draw failed")
	require.NoError(t, subscriber.Subscribe(events.EventTypeRaffleSoldOut, func(ctx context.Context, e events.Event) error {
		return handlerErr
	}))

	t.Run("malformed envelope", func(t *testing.T) {
		assert.Error(t, bus.deliver("raffles.sold_out", []byte("not json")))
	})

	t.Run("unknown event type", func(t *testing.T) {
		data := []byte(`{"event_id":"1","event_type":"mystery","payload":{}}`)
		assert.Error(t, bus.deliver("raffles.sold_out", data))
	})

	t.Run("handler error is returned for redelivery", func(t *testing.T) {
		data, _, err := encodeEnvelope(events.RaffleSoldOutEvent{RaffleID: 2})
		require.NoError(t, err)
		assert.ErrorIs(t, bus.deliver("raffles.sold_out", data), handlerErr)
	})
}

func TestConsumerName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "prizeledger-raffles_sold_out", consumerName("raffles.sold_out"))
	assert.Equal(t, "prizeledger-raffles_wildcard", consumerName("raffles.*"))
}
