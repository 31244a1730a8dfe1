package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/domain/saga"
	"prizeledger/events"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// drawEngine selects winners with the timestamp-sum rule. The unique draw result per raffle
// is the fence that makes repeated and concurrent draws return the same winner.
type drawEngine struct {
	raffleRepo     interfaces.RaffleRepository
	entryRepo      interfaces.RaffleEntryRepository
	drawResultRepo interfaces.DrawResultRepository
	prizeRepo      interfaces.PrizeRepository
	walletRepo     interfaces.WalletRepository
	coordinator    interfaces.TransferCoordinator
	eventPublisher interfaces.EventPublisher
	alerter        interfaces.OperatorAlerter
	metrics        interfaces.MetricsRecorder
	now            func() time.Time
}

// NewDrawEngine creates a new draw engine
func NewDrawEngine(
	raffleRepo interfaces.RaffleRepository,
	entryRepo interfaces.RaffleEntryRepository,
	drawResultRepo interfaces.DrawResultRepository,
	prizeRepo interfaces.PrizeRepository,
	walletRepo interfaces.WalletRepository,
	coordinator interfaces.TransferCoordinator,
	eventPublisher interfaces.EventPublisher,
	alerter interfaces.OperatorAlerter,
	metrics interfaces.MetricsRecorder,
) interfaces.DrawEngine {
	return &drawEngine{
		raffleRepo:     raffleRepo,
		entryRepo:      entryRepo,
		drawResultRepo: drawResultRepo,
		prizeRepo:      prizeRepo,
		walletRepo:     walletRepo,
		coordinator:    coordinator,
		eventPublisher: eventPublisher,
		alerter:        alerter,
		metrics:        metricsOrNoop(metrics),
		now:            time.Now,
	}
}

// Draw commits a winner for raffleID, or returns the existing result if one was committed
func (e *drawEngine) Draw(ctx context.Context, raffleID int64, opts interfaces.DrawOptions) (*interfaces.DrawOutcome, error) {
	raffle, err := e.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, domain.ErrRaffleNotFound
	}

	existing, err := e.drawResultRepo.GetByRaffle(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check draw result: %w", err)
	}
	if existing != nil {
		return e.alreadyDrawn(ctx, existing)
	}

	if !raffle.IsDrawable(e.now(), opts.Force) {
		log.WithFields(log.Fields{
			"raffleID":    raffleID,
			"status":      raffle.Status,
			"soldTickets": raffle.SoldTickets,
			"force":       opts.Force,
		}).Debug("Raffle is not drawable")
		return nil, domain.ErrRaffleNotDrawable
	}

	entries, err := e.entryRepo.GetByRaffle(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, domain.ErrRaffleNotDrawable
	}

	selection, err := entities.SelectWinner(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to select winner: %w", err)
	}

	result := selection.ToResult(raffleID)
	winner := selection.Entry
	previous := raffle.Status
	prizeRef := fmt.Sprintf("raffle-%d-prize", raffleID)

	prize := &entities.Prize{
		RaffleID:     raffleID,
		WinnerUserID: winner.UserID,
		Amount:       raffle.PrizeAmount,
		Currency:     raffle.PrizeCurrency,
		Status:       entities.PrizeStatusAwaitingPickup,
		Description:  raffle.PrizeDescription,
	}
	var prizeWalletID int64

	s := saga.New("draw").
		AddStep(saga.Step{
			Name: "record_draw_result",
			Execute: func(ctx context.Context) error {
				return e.drawResultRepo.Create(ctx, result)
			},
			Compensate: func(ctx context.Context) error {
				return e.drawResultRepo.Delete(ctx, result.ID)
			},
		}).
		AddStep(saga.Step{
			Name: "complete_raffle",
			Execute: func(ctx context.Context) error {
				ok, err := e.raffleRepo.MarkCompleted(ctx, raffleID, previous, result)
				if err != nil {
					return fmt.Errorf("failed to complete raffle: %w", err)
				}
				if !ok {
					// Another draw or a late sale moved the raffle; the next sweep retries
					return fmt.Errorf("%w: raffle %d changed while drawing from %s", domain.ErrRaffleNotDrawable, raffleID, previous)
				}
				return nil
			},
			Compensate: func(ctx context.Context) error {
				ok, err := e.raffleRepo.RevertDraw(ctx, raffleID, previous)
				if err != nil {
					return fmt.Errorf("failed to revert raffle: %w", err)
				}
				if !ok {
					return fmt.Errorf("raffle %d was not completed", raffleID)
				}
				return nil
			},
		}).
		AddStep(saga.Step{
			Name: "mark_winning_entry",
			Execute: func(ctx context.Context) error {
				return e.entryRepo.SetWinning(ctx, winner.ID, true)
			},
			Compensate: func(ctx context.Context) error {
				return e.entryRepo.SetWinning(ctx, winner.ID, false)
			},
		})

	if raffle.HasMonetaryPrize() {
		s.AddStep(saga.Step{
			Name: "credit_prize",
			Execute: func(ctx context.Context) error {
				wallet, err := e.walletRepo.GetByOwner(ctx, winner.UserID, raffle.PrizeWalletKind, raffle.PrizeCurrency)
				if err != nil {
					return fmt.Errorf("failed to get prize wallet: %w", err)
				}
				if wallet == nil {
					log.WithFields(log.Fields{
						"raffleID":     raffleID,
						"winnerUserID": winner.UserID,
						"walletKind":   raffle.PrizeWalletKind,
						"currency":     raffle.PrizeCurrency,
					}).Warn("Winner has no prize wallet, prize awaits pickup")
					return nil
				}
				if _, err := e.coordinator.CreditPrize(ctx, wallet.ID, raffle.PrizeAmount, prizeRef); err != nil {
					return fmt.Errorf("failed to credit prize: %w", err)
				}
				prizeWalletID = wallet.ID
				prize.WalletID = &prizeWalletID
				prize.Status = entities.PrizeStatusCredited
				return nil
			},
			Compensate: func(ctx context.Context) error {
				if prizeWalletID == 0 {
					return nil
				}
				_, err := e.coordinator.Reverse(ctx, prizeWalletID, raffle.PrizeAmount, prizeRef)
				return err
			},
		})
	}

	s.AddStep(saga.Step{
		Name: "record_prize",
		Execute: func(ctx context.Context) error {
			prize.DrawResultID = result.ID
			if err := e.prizeRepo.Create(ctx, prize); err != nil {
				return fmt.Errorf("failed to record prize: %w", err)
			}
			return nil
		},
	}).WithState(func() map[string]any {
		return map[string]any{
			"raffleID":       raffleID,
			"previousStatus": previous,
			"drawResultID":   result.ID,
			"winningEntryID": winner.ID,
			"winningCode":    winner.ParticipationCode,
			"winnerUserID":   winner.UserID,
			"prizeWalletID":  prizeWalletID,
			"prizeAmount":    raffle.PrizeAmount.String(),
		}
	})

	if err := s.Run(ctx); err != nil {
		if errors.Is(err, domain.ErrAlreadyDrawn) {
			return e.loadExisting(ctx, raffleID)
		}
		return nil, e.fail(ctx, raffleID, s, err)
	}

	e.metrics.RecordDraw(outcomeSuccess)

	buf := events.NewBuffer(e.eventPublisher)
	buf.Add(events.RaffleDrawnEvent{
		RaffleID:     raffleID,
		WinningCode:  result.WinningCode,
		WinnerUserID: result.WinnerUserID,
		PrizeAmount:  raffle.PrizeAmount,
		TimestampSum: result.TimestampSum,
		TotalEntries: result.TotalEntries,
	})
	buf.Flush()

	log.WithFields(log.Fields{
		"raffleID":     raffleID,
		"winningCode":  result.WinningCode,
		"winnerUserID": result.WinnerUserID,
		"winningIndex": result.WinningIndex,
		"totalEntries": result.TotalEntries,
		"timestampSum": result.TimestampSum,
		"prizeStatus":  prize.Status,
	}).Info("Raffle drawn")

	return &interfaces.DrawOutcome{
		WinningCode:  result.WinningCode,
		WinnerUserID: result.WinnerUserID,
		Result:       result,
		Prize:        prize,
	}, nil
}

// fail reports a draw that was rolled back, or one that could not be rolled back
func (e *drawEngine) fail(ctx context.Context, raffleID int64, s *saga.Saga, err error) error {
	if saga.IsCompensationFailure(err) {
		e.metrics.RecordDraw(outcomeCompensationFailed)
		e.metrics.RecordCompensation("draw", outcomeFailed)

		raiseCompensationAlert(ctx, e.alerter, "draw_compensation_failed", err)
		return err
	}

	if len(s.Completed()) > 0 {
		e.metrics.RecordCompensation("draw", outcomeCompensated)
	}
	e.metrics.RecordDraw(outcomeFailed)

	log.WithFields(log.Fields{
		"raffleID":       raffleID,
		"completedSteps": s.Completed(),
		"error":          err,
	}).Warn("Draw rolled back, raffle remains drawable")

	return err
}

// loadExisting returns the result committed by a concurrent draw
func (e *drawEngine) loadExisting(ctx context.Context, raffleID int64) (*interfaces.DrawOutcome, error) {
	existing, err := e.drawResultRepo.GetByRaffle(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing draw result: %w", err)
	}
	if existing == nil {
		// The concurrent draw rolled back after we lost the insert
		return nil, fmt.Errorf("%w: concurrent draw was rolled back", domain.ErrRaffleNotDrawable)
	}
	return e.alreadyDrawn(ctx, existing)
}

func (e *drawEngine) alreadyDrawn(ctx context.Context, existing *entities.DrawResult) (*interfaces.DrawOutcome, error) {
	prize, err := e.prizeRepo.GetByRaffle(ctx, existing.RaffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prize: %w", err)
	}

	e.metrics.RecordDraw(outcomeAlreadyDrawn)

	log.WithFields(log.Fields{
		"raffleID":    existing.RaffleID,
		"winningCode": existing.WinningCode,
	}).Debug("Raffle already drawn, returning existing result")

	return &interfaces.DrawOutcome{
		WinningCode:  existing.WinningCode,
		WinnerUserID: existing.WinnerUserID,
		AlreadyDrawn: true,
		Result:       existing,
		Prize:        prize,
	}, nil
}

// PrizeValue returns what a drawn raffle paid out, zero for pickup-only prizes
func PrizeValue(prize *entities.Prize) decimal.Decimal {
	if prize == nil || prize.Status != entities.PrizeStatusCredited {
		return decimal.Zero
	}
	return prize.Amount
}
