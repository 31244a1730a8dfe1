package services

import (
	"context"
	"fmt"
	"time"

	"prizeledger/domain"
	"prizeledger/domain/interfaces"
	"prizeledger/domain/saga"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// purchaseService charges the buyer and then allocates tickets, refunding the charge when the
// allocation is refused
type purchaseService struct {
	raffleRepo  interfaces.RaffleRepository
	walletRepo  interfaces.WalletRepository
	coordinator interfaces.TransferCoordinator
	allocator   interfaces.TicketAllocator
	alerter     interfaces.OperatorAlerter
	metrics     interfaces.MetricsRecorder
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(
	raffleRepo interfaces.RaffleRepository,
	walletRepo interfaces.WalletRepository,
	coordinator interfaces.TransferCoordinator,
	allocator interfaces.TicketAllocator,
	alerter interfaces.OperatorAlerter,
	metrics interfaces.MetricsRecorder,
) interfaces.PurchaseService {
	return &purchaseService{
		raffleRepo:  raffleRepo,
		walletRepo:  walletRepo,
		coordinator: coordinator,
		allocator:   allocator,
		alerter:     alerter,
		metrics:     metricsOrNoop(metrics),
	}
}

// PurchaseTickets pays for quantity tickets from the raffle's wallet kind and allocates them
func (s *purchaseService) PurchaseTickets(ctx context.Context, userID, raffleID, quantity int64, orderID string) (*interfaces.PurchaseResult, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if orderID == "" {
		orderID = uuid.NewString()
	}

	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, domain.ErrRaffleNotFound
	}

	// Reject hopeless purchases before charging anyone
	if err := raffle.CheckAllocation(quantity, time.Now()); err != nil {
		return nil, err
	}

	wallet, err := s.walletRepo.GetByOwner(ctx, userID, raffle.WalletKind, raffle.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, domain.ErrWalletNotFound
	}

	cost := raffle.TicketCost(quantity)
	result := &interfaces.PurchaseResult{OrderID: orderID}

	purchase := saga.New("purchase").
		AddStep(saga.Step{
			Name: "debit_wallet",
			Execute: func(ctx context.Context) error {
				payment, err := s.coordinator.DebitForPurchase(ctx, wallet.ID, cost, orderID)
				if err != nil {
					return err
				}
				result.Payment = payment
				return nil
			},
			Compensate: func(ctx context.Context) error {
				_, err := s.coordinator.Refund(ctx, wallet.ID, cost, orderID)
				return err
			},
		}).
		AddStep(saga.Step{
			Name: "allocate_tickets",
			Execute: func(ctx context.Context) error {
				allocation, err := s.allocator.AllocateTickets(ctx, raffleID, userID, quantity, orderID)
				if err != nil {
					return err
				}
				result.Allocation = allocation
				return nil
			},
		}).
		WithState(func() map[string]any {
			return map[string]any{
				"userID":   userID,
				"raffleID": raffleID,
				"walletID": wallet.ID,
				"quantity": quantity,
				"cost":     cost.String(),
				"orderID":  orderID,
			}
		})

	if err := purchase.Run(ctx); err != nil {
		s.reportFailure(ctx, purchase, err)
		log.WithFields(log.Fields{
			"userID":         userID,
			"raffleID":       raffleID,
			"quantity":       quantity,
			"orderID":        orderID,
			"completedSteps": purchase.Completed(),
			"error":          err,
		}).Info("Ticket purchase failed")
		return nil, err
	}

	s.metrics.RecordWalletOperation("purchase", outcomeSuccess)

	log.WithFields(log.Fields{
		"userID":   userID,
		"raffleID": raffleID,
		"quantity": quantity,
		"cost":     cost.String(),
		"orderID":  orderID,
		"codes":    result.Allocation.Codes,
	}).Info("Tickets purchased")

	return result, nil
}

func (s *purchaseService) reportFailure(ctx context.Context, purchase *saga.Saga, err error) {
	switch {
	case saga.IsCompensationFailure(err):
		s.metrics.RecordWalletOperation("purchase", outcomeCompensationFailed)
		s.metrics.RecordCompensation("purchase", outcomeFailed)
		raiseCompensationAlert(ctx, s.alerter, "purchase_compensation_failed", err)
	case len(purchase.Completed()) > 0:
		s.metrics.RecordWalletOperation("purchase", outcomeCompensated)
		s.metrics.RecordCompensation("purchase", outcomeCompensated)
	case domain.IsUserFacing(err):
		s.metrics.RecordWalletOperation("purchase", outcomeRejected)
	default:
		s.metrics.RecordWalletOperation("purchase", outcomeFailed)
	}
}
