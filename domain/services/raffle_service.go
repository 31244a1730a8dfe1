package services

import (
	"context"
	"fmt"
	"strings"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/events"

	log "github.com/sirupsen/logrus"
)

// raffleService manages the raffle lifecycle around allocation and drawing
type raffleService struct {
	raffleRepo     interfaces.RaffleRepository
	entryRepo      interfaces.RaffleEntryRepository
	walletRepo     interfaces.WalletRepository
	coordinator    interfaces.TransferCoordinator
	eventPublisher interfaces.EventPublisher
	alerter        interfaces.OperatorAlerter
}

// NewRaffleService creates a new raffle service
func NewRaffleService(
	raffleRepo interfaces.RaffleRepository,
	entryRepo interfaces.RaffleEntryRepository,
	walletRepo interfaces.WalletRepository,
	coordinator interfaces.TransferCoordinator,
	eventPublisher interfaces.EventPublisher,
	alerter interfaces.OperatorAlerter,
) interfaces.RaffleService {
	return &raffleService{
		raffleRepo:     raffleRepo,
		entryRepo:      entryRepo,
		walletRepo:     walletRepo,
		coordinator:    coordinator,
		eventPublisher: eventPublisher,
		alerter:        alerter,
	}
}

// CreateRaffle stores a new raffle in PENDING
func (s *raffleService) CreateRaffle(ctx context.Context, params interfaces.CreateRaffleParams) (*entities.Raffle, error) {
	raffle := &entities.Raffle{
		Title:            strings.TrimSpace(params.Title),
		TicketPrice:      params.TicketPrice,
		WalletKind:       params.WalletKind,
		Currency:         strings.ToUpper(params.Currency),
		TotalTickets:     params.TotalTickets,
		Status:           entities.RaffleStatusPending,
		PrizeAmount:      params.PrizeAmount,
		PrizeWalletKind:  params.PrizeWalletKind,
		PrizeCurrency:    strings.ToUpper(params.PrizeCurrency),
		PrizeDescription: params.PrizeDescription,
		DrawTime:         params.DrawTime,
	}

	// Prizes are paid into the same kind of wallet tickets are bought from unless told otherwise
	if raffle.PrizeWalletKind == "" {
		raffle.PrizeWalletKind = raffle.WalletKind
	}
	if raffle.PrizeCurrency == "" {
		raffle.PrizeCurrency = raffle.Currency
	}

	if err := raffle.Validate(); err != nil {
		return nil, err
	}

	if err := s.raffleRepo.Create(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to create raffle: %w", err)
	}

	log.WithFields(log.Fields{
		"raffleID":     raffle.ID,
		"title":        raffle.Title,
		"ticketPrice":  raffle.TicketPrice.String(),
		"totalTickets": raffle.TotalTickets,
	}).Info("Raffle created")

	return raffle, nil
}

// ActivateRaffle opens a pending raffle for entries
func (s *raffleService) ActivateRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	ok, err := s.raffleRepo.TransitionStatus(ctx, raffleID,
		[]entities.RaffleStatus{entities.RaffleStatusPending}, entities.RaffleStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to activate raffle: %w", err)
	}

	raffle, err := s.GetRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: raffle is %s", domain.ErrInvalidTransition, raffle.Status)
	}

	log.WithField("raffleID", raffleID).Info("Raffle activated")
	return raffle, nil
}

// CancelRaffle closes an undrawn raffle and refunds every participant. Refund failures do not
// undo the cancellation; they are collected and escalated to an operator.
func (s *raffleService) CancelRaffle(ctx context.Context, raffleID int64, reason string) (*interfaces.CancelResult, error) {
	raffle, err := s.GetRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if !raffle.Status.CanTransitionTo(entities.RaffleStatusCancelled) {
		return nil, fmt.Errorf("%w: raffle is %s", domain.ErrInvalidTransition, raffle.Status)
	}

	ok, err := s.raffleRepo.TransitionStatus(ctx, raffleID,
		[]entities.RaffleStatus{entities.RaffleStatusActive, entities.RaffleStatusSoldOut}, entities.RaffleStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel raffle: %w", err)
	}
	if !ok {
		// Lost to a concurrent draw or cancellation
		return nil, fmt.Errorf("%w: raffle changed state", domain.ErrInvalidTransition)
	}
	raffle.Status = entities.RaffleStatusCancelled

	participants, err := s.entryRepo.GetParticipants(ctx, raffleID)
	if err != nil {
		// The raffle is already cancelled, so the refunds must be issued by hand
		s.alertRefunds(ctx, raffle, nil, err)
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	result := &interfaces.CancelResult{Raffle: raffle}
	for _, participant := range participants {
		if err := s.refund(ctx, raffle, participant); err != nil {
			log.WithFields(log.Fields{
				"raffleID": raffleID,
				"userID":   participant.UserID,
				"tickets":  participant.TicketCount,
				"error":    err,
			}).Error("Failed to refund raffle participant")
			result.FailedUsers = append(result.FailedUsers, participant.UserID)
			continue
		}
		result.RefundedUsers = append(result.RefundedUsers, participant.UserID)
	}

	if len(result.FailedUsers) > 0 {
		s.alertRefunds(ctx, raffle, result.FailedUsers, nil)
	}

	buf := events.NewBuffer(s.eventPublisher)
	buf.Add(events.RaffleCancelledEvent{
		RaffleID:      raffleID,
		Reason:        reason,
		RefundedUsers: len(result.RefundedUsers),
		FailedRefunds: len(result.FailedUsers),
	})
	buf.Flush()

	log.WithFields(log.Fields{
		"raffleID":      raffleID,
		"reason":        reason,
		"refundedUsers": len(result.RefundedUsers),
		"failedRefunds": len(result.FailedUsers),
	}).Info("Raffle cancelled")

	return result, nil
}

func (s *raffleService) refund(ctx context.Context, raffle *entities.Raffle, participant *entities.RaffleParticipant) error {
	wallet, err := s.walletRepo.GetByOwner(ctx, participant.UserID, raffle.WalletKind, raffle.Currency)
	if err != nil {
		return fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return domain.ErrWalletNotFound
	}

	amount := participant.RefundAmount(raffle.TicketPrice)
	referenceID := fmt.Sprintf("raffle-%d-cancel-%d", raffle.ID, participant.UserID)
	if _, err := s.coordinator.Refund(ctx, wallet.ID, amount, referenceID); err != nil {
		return err
	}
	return nil
}

func (s *raffleService) alertRefunds(ctx context.Context, raffle *entities.Raffle, failedUsers []int64, cause error) {
	if s.alerter == nil {
		return
	}
	details := map[string]any{
		"raffleID":    raffle.ID,
		"ticketPrice": raffle.TicketPrice.String(),
		"failedUsers": failedUsers,
	}
	if cause != nil {
		details["error"] = cause.Error()
	}
	s.alerter.Raise(ctx, events.OperatorAlertEvent{
		Kind:     "raffle_refund_failed",
		Severity: events.AlertSeverityCritical,
		Message:  fmt.Sprintf("raffle %d was cancelled but refunds are incomplete", raffle.ID),
		Details:  details,
	})
}

// GetRaffle retrieves a raffle by ID
func (s *raffleService) GetRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, domain.ErrRaffleNotFound
	}
	return raffle, nil
}
