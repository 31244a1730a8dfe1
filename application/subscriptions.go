package application

import (
	"context"
	"errors"
	"fmt"

	"prizeledger/domain"
	"prizeledger/domain/interfaces"
	"prizeledger/events"

	log "github.com/sirupsen/logrus"
)

// RegisterApplicationSubscriptions registers the application-level event subscriptions
func RegisterApplicationSubscriptions(subscriber interfaces.EventSubscriber, drawEngine interfaces.DrawEngine) error {
	handler := NewSoldOutDrawHandler(drawEngine)
	if err := subscriber.Subscribe(events.EventTypeRaffleSoldOut, handler.Handle); err != nil {
		return fmt.Errorf("failed to subscribe to sold out raffles: %w", err)
	}
	return nil
}

// SoldOutDrawHandler draws a raffle as soon as its last ticket is allocated
type SoldOutDrawHandler struct {
	drawEngine interfaces.DrawEngine
}

// NewSoldOutDrawHandler creates a new sold-out handler
func NewSoldOutDrawHandler(drawEngine interfaces.DrawEngine) *SoldOutDrawHandler {
	return &SoldOutDrawHandler{drawEngine: drawEngine}
}

// Handle draws the raffle named by a RaffleSoldOutEvent. Returning an error asks for redelivery,
// so only transient failures are returned.
func (h *SoldOutDrawHandler) Handle(ctx context.Context, event events.Event) error {
	var raffleID int64
	switch e := event.(type) {
	case events.RaffleSoldOutEvent:
		raffleID = e.RaffleID
	case *events.RaffleSoldOutEvent:
		raffleID = e.RaffleID
	default:
		return fmt.Errorf("unexpected event type %T", event)
	}

	outcome, err := h.drawEngine.Draw(ctx, raffleID, interfaces.DrawOptions{})
	if errors.Is(err, domain.ErrRaffleNotDrawable) || errors.Is(err, domain.ErrRaffleNotFound) {
		log.WithFields(log.Fields{
			"raffleID": raffleID,
			"reason":   err,
		}).Warn("Sold out raffle could not be drawn")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to draw sold out raffle %d: %w", raffleID, err)
	}

	log.WithFields(log.Fields{
		"raffleID":     raffleID,
		"winningCode":  outcome.WinningCode,
		"alreadyDrawn": outcome.AlreadyDrawn,
	}).Info("Drew sold out raffle")
	return nil
}
