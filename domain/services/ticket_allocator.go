package services

import (
	"context"
	"fmt"
	"time"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/events"

	log "github.com/sirupsen/logrus"
)

// ticketAllocator hands out participation codes. Capacity is enforced by a single conditional
// update in the store, so losing a race for the last tickets reserves nothing.
type ticketAllocator struct {
	raffleRepo     interfaces.RaffleRepository
	eventPublisher interfaces.EventPublisher
	metrics        interfaces.MetricsRecorder
}

// NewTicketAllocator creates a new ticket allocator
func NewTicketAllocator(
	raffleRepo interfaces.RaffleRepository,
	eventPublisher interfaces.EventPublisher,
	metrics interfaces.MetricsRecorder,
) interfaces.TicketAllocator {
	return &ticketAllocator{
		raffleRepo:     raffleRepo,
		eventPublisher: eventPublisher,
		metrics:        metricsOrNoop(metrics),
	}
}

// AllocateTickets reserves quantity sequential codes for userID, all or nothing
func (a *ticketAllocator) AllocateTickets(ctx context.Context, raffleID, userID, quantity int64, orderID string) (*interfaces.AllocationResult, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var orderRef *string
	if orderID != "" {
		orderRef = &orderID
	}

	outcome, err := a.raffleRepo.Allocate(ctx, raffleID, userID, quantity, orderRef)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate tickets: %w", err)
	}
	if outcome == nil || len(outcome.Entries) == 0 {
		return nil, a.classifyRefusal(ctx, raffleID, quantity)
	}

	a.metrics.RecordTicketsAllocated(quantity)

	codes := entities.ParticipationCodes(outcome.Entries)
	result := &interfaces.AllocationResult{
		RaffleID:    raffleID,
		UserID:      userID,
		Codes:       codes,
		Entries:     outcome.Entries,
		SoldTickets: outcome.SoldTickets,
		SoldOut:     outcome.FilledRaffle(),
	}

	buf := events.NewBuffer(a.eventPublisher)
	buf.Add(events.TicketsAllocatedEvent{
		RaffleID:    raffleID,
		UserID:      userID,
		Codes:       codes,
		SoldTickets: outcome.SoldTickets,
	})
	if result.SoldOut {
		// Only the allocation that took the last ticket sees the transition
		buf.Add(events.RaffleSoldOutEvent{
			RaffleID:     raffleID,
			TotalTickets: outcome.TotalTickets,
		})
	}
	buf.Flush()

	log.WithFields(log.Fields{
		"raffleID":    raffleID,
		"userID":      userID,
		"quantity":    quantity,
		"firstCode":   codes[0],
		"lastCode":    codes[len(codes)-1],
		"soldTickets": outcome.SoldTickets,
		"soldOut":     result.SoldOut,
	}).Info("Tickets allocated")

	return result, nil
}

// classifyRefusal explains why the conditional allocation matched no row
func (a *ticketAllocator) classifyRefusal(ctx context.Context, raffleID, quantity int64) error {
	raffle, err := a.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return domain.ErrRaffleNotFound
	}

	log.WithFields(log.Fields{
		"raffleID":  raffleID,
		"quantity":  quantity,
		"status":    raffle.Status,
		"remaining": raffle.RemainingTickets(),
	}).Debug("Ticket allocation refused")

	switch {
	case raffle.Status == entities.RaffleStatusSoldOut:
		return fmt.Errorf("%w: %d requested, %d remaining", domain.ErrSoldOut, quantity, raffle.RemainingTickets())
	case !raffle.SalesOpen(time.Now()):
		return domain.ErrRaffleNotActive
	default:
		return fmt.Errorf("%w: %d requested, %d remaining", domain.ErrSoldOut, quantity, raffle.RemainingTickets())
	}
}
