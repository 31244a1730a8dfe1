package services

import (
	"context"
	"errors"
	"fmt"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/domain/saga"
	"prizeledger/domain/utils"
	"prizeledger/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ExchangeSettings names the wallets an exchange moves funds between and the rate applied
type ExchangeSettings struct {
	SourceKind     entities.WalletKind
	SourceCurrency string
	TargetKind     entities.WalletKind
	TargetCurrency string
	Rate           decimal.Decimal
}

// CoordinatorSettings tunes the transfer coordinator
type CoordinatorSettings struct {
	// MaxRetries is how many times a step re-reads a wallet after a version conflict
	MaxRetries int
	Exchange   ExchangeSettings
}

// transferCoordinator runs every wallet mutation as a saga over the wallet store
type transferCoordinator struct {
	walletRepo     interfaces.WalletRepository
	withdrawalRepo interfaces.WithdrawalRepository
	ledger         interfaces.LedgerWriter
	eventPublisher interfaces.EventPublisher
	alerter        interfaces.OperatorAlerter
	metrics        interfaces.MetricsRecorder
	settings       CoordinatorSettings
}

// NewTransferCoordinator creates a new transfer coordinator
func NewTransferCoordinator(
	walletRepo interfaces.WalletRepository,
	withdrawalRepo interfaces.WithdrawalRepository,
	ledger interfaces.LedgerWriter,
	eventPublisher interfaces.EventPublisher,
	alerter interfaces.OperatorAlerter,
	metrics interfaces.MetricsRecorder,
	settings CoordinatorSettings,
) interfaces.TransferCoordinator {
	if settings.MaxRetries < 0 {
		settings.MaxRetries = 0
	}
	return &transferCoordinator{
		walletRepo:     walletRepo,
		withdrawalRepo: withdrawalRepo,
		ledger:         ledger,
		eventPublisher: eventPublisher,
		alerter:        alerter,
		metrics:        metricsOrNoop(metrics),
		settings:       settings,
	}
}

// deltaFunc derives the change to apply from a fresh read of the wallet. It runs again
// after every version conflict.
type deltaFunc func(wallet *entities.Wallet) (entities.WalletDelta, error)

// mutate applies a delta with compare-and-swap, re-reading the wallet after each version
// conflict until MaxRetries is exhausted.
func (c *transferCoordinator) mutate(ctx context.Context, operation string, walletID int64, fn deltaFunc) (*entities.Wallet, *entities.Wallet, error) {
	for attempt := 0; attempt <= c.settings.MaxRetries; attempt++ {
		wallet, err := c.walletRepo.GetByID(ctx, walletID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get wallet: %w", err)
		}
		if wallet == nil {
			return nil, nil, domain.ErrWalletNotFound
		}

		delta, err := fn(wallet)
		if err != nil {
			return nil, nil, err
		}
		if _, err := wallet.Preview(delta); err != nil {
			return nil, nil, err
		}

		updated, err := c.walletRepo.ApplyDelta(ctx, wallet.ID, wallet.Version, delta)
		if errors.Is(err, domain.ErrVersionConflict) {
			c.metrics.RecordVersionConflict(operation)
			log.WithFields(log.Fields{
				"operation": operation,
				"walletID":  walletID,
				"version":   wallet.Version,
				"attempt":   attempt + 1,
			}).Debug("Wallet version conflict, re-reading")
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		return wallet, updated, nil
	}

	return nil, nil, fmt.Errorf("%w: %w", domain.ErrRetryExhausted, domain.ErrVersionConflict)
}

// requireAvailable rejects debits and freezes the wallet cannot cover
func requireAvailable(wallet *entities.Wallet, amount decimal.Decimal) error {
	if !wallet.CanSpend(amount) {
		return fmt.Errorf("%w: available %s, need %s",
			domain.ErrInsufficientAvailable, wallet.Available().String(), amount.String())
	}
	return nil
}

func correlationOrNew(referenceID string) string {
	if referenceID != "" {
		return referenceID
	}
	return uuid.NewString()
}

// journal remembers every wallet mutation a saga made so ledger entries can be written
// with the right status once the saga has resolved
type journal struct {
	correlationID string
	steps         []journalStep
	buffer        *events.Buffer
}

type journalStep struct {
	before   *entities.Wallet
	after    *entities.Wallet
	txType   entities.TransactionType
	status   entities.LedgerStatus
	reversal bool
}

func (c *transferCoordinator) newJournal(correlationID string) *journal {
	return &journal{
		correlationID: correlationID,
		buffer:        events.NewBuffer(c.eventPublisher),
	}
}

// forward records a mutation made by a saga step. status applies if the saga completes.
func (j *journal) forward(before, after *entities.Wallet, txType entities.TransactionType, status entities.LedgerStatus) {
	j.steps = append(j.steps, journalStep{before: before, after: after, txType: txType, status: status})
}

// reversed records a mutation made by a compensation
func (j *journal) reversed(before, after *entities.Wallet) {
	j.steps = append(j.steps, journalStep{
		before:   before,
		after:    after,
		txType:   entities.TransactionTypeReversal,
		status:   entities.LedgerStatusCompleted,
		reversal: true,
	})
}

// last returns the final wallet state written for walletID
func (j *journal) last(walletID int64) *entities.Wallet {
	for i := len(j.steps) - 1; i >= 0; i-- {
		if j.steps[i].after.ID == walletID {
			return j.steps[i].after
		}
	}
	return nil
}

// state is the snapshot logged when compensation fails
func (j *journal) state() map[string]any {
	wallets := make([]map[string]any, 0, len(j.steps))
	for _, step := range j.steps {
		wallets = append(wallets, map[string]any{
			"walletID":      step.after.ID,
			"type":          step.txType,
			"balanceBefore": step.before.Balance.String(),
			"balanceAfter":  step.after.Balance.String(),
			"frozenBefore":  step.before.FrozenBalance.String(),
			"frozenAfter":   step.after.FrozenBalance.String(),
			"versionAfter":  step.after.Version,
		})
	}
	return map[string]any{
		"correlationID": j.correlationID,
		"mutations":     wallets,
	}
}

// commit appends a ledger entry for every journaled mutation. Forward steps of a compensated
// saga are recorded as failed; those left behind by a failed compensation stay pending.
func (c *transferCoordinator) commit(ctx context.Context, j *journal, sagaErr error) ([]*entities.LedgerEntry, bool) {
	entries := make([]*entities.LedgerEntry, 0, len(j.steps))
	ledgerFailed := false

	for _, step := range j.steps {
		status := step.status
		if !step.reversal && sagaErr != nil {
			status = entities.LedgerStatusFailed
			if saga.IsCompensationFailure(sagaErr) {
				status = entities.LedgerStatusPending
			}
		}

		entry := entities.NewLedgerEntry(step.before, step.after, step.txType, status, j.correlationID)
		recorded, err := c.ledger.Record(ctx, entry)
		if err != nil {
			ledgerFailed = true
			entries = append(entries, nil)
			continue
		}
		entries = append(entries, recorded)
	}

	if sagaErr == nil {
		for _, step := range j.steps {
			utils.QueueBalanceChange(j.buffer, step.before, step.after, step.txType, j.correlationID)
		}
		j.buffer.Flush()
	} else {
		j.buffer.Discard()
	}

	return entries, ledgerFailed
}

// finish records the outcome of a saga run and turns compensation failures into alerts
func (c *transferCoordinator) finish(ctx context.Context, operation string, s *saga.Saga, sagaErr error) {
	switch {
	case sagaErr == nil:
		c.metrics.RecordWalletOperation(operation, outcomeSuccess)
	case saga.IsCompensationFailure(sagaErr):
		c.metrics.RecordWalletOperation(operation, outcomeCompensationFailed)
		c.metrics.RecordCompensation(operation, outcomeFailed)
		raiseCompensationAlert(ctx, c.alerter, operation+"_compensation_failed", sagaErr)
	case len(s.Completed()) > 0:
		c.metrics.RecordWalletOperation(operation, outcomeCompensated)
		c.metrics.RecordCompensation(operation, outcomeCompensated)
	default:
		c.metrics.RecordWalletOperation(operation, outcomeFailed)
	}
}

// singleWalletOp runs a one-step saga that applies delta to one wallet
func (c *transferCoordinator) singleWalletOp(
	ctx context.Context,
	operation string,
	walletID int64,
	amount decimal.Decimal,
	referenceID string,
	txType entities.TransactionType,
	fn deltaFunc,
) (*interfaces.BalanceResult, error) {
	if _, err := utils.ValidateAmount(amount); err != nil {
		c.metrics.RecordWalletOperation(operation, outcomeRejected)
		return nil, err
	}

	j := c.newJournal(correlationOrNew(referenceID))

	s := saga.New(operation).
		AddStep(saga.Step{
			Name: "apply_" + txType.String(),
			Execute: func(ctx context.Context) error {
				before, after, err := c.mutate(ctx, operation, walletID, fn)
				if err != nil {
					return err
				}
				j.forward(before, after, txType, entities.LedgerStatusCompleted)
				return nil
			},
		}).
		WithState(j.state)

	err := s.Run(ctx)
	c.finish(ctx, operation, s, err)
	if err != nil {
		log.WithFields(log.Fields{
			"operation":     operation,
			"walletID":      walletID,
			"amount":        amount.String(),
			"correlationID": j.correlationID,
			"error":         err,
		}).Debug("Wallet operation rejected")
		return nil, err
	}

	entries, ledgerFailed := c.commit(ctx, j, nil)
	wallet := j.last(walletID)

	log.WithFields(log.Fields{
		"operation":     operation,
		"walletID":      walletID,
		"amount":        amount.String(),
		"newBalance":    wallet.Balance.String(),
		"correlationID": j.correlationID,
	}).Info("Wallet operation completed")

	return &interfaces.BalanceResult{
		Wallet:            wallet,
		LedgerEntry:       entries[0],
		CorrelationID:     j.correlationID,
		LedgerWriteFailed: ledgerFailed,
	}, nil
}

// Deposit credits an external deposit to a wallet
func (c *transferCoordinator) Deposit(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*interfaces.BalanceResult, error) {
	return c.singleWalletOp(ctx, "deposit", walletID, amount, referenceID, entities.TransactionTypeDeposit,
		func(wallet *entities.Wallet) (entities.WalletDelta, error) {
			return entities.DepositDelta(amount), nil
		})
}

// DebitForPurchase charges a wallet for an order
func (c *transferCoordinator) DebitForPurchase(ctx context.Context, walletID int64, amount decimal.Decimal, orderID string) (*interfaces.BalanceResult, error) {
	return c.singleWalletOp(ctx, "purchase_debit", walletID, amount, orderID, entities.TransactionTypePurchase,
		func(wallet *entities.Wallet) (entities.WalletDelta, error) {
			if err := requireAvailable(wallet, amount); err != nil {
				return entities.WalletDelta{}, err
			}
			return entities.DebitDelta(amount), nil
		})
}

// CreditPrize pays a prize into the winner's wallet
func (c *transferCoordinator) CreditPrize(ctx context.Context, walletID int64, amount decimal.Decimal, prizeID string) (*interfaces.BalanceResult, error) {
	return c.singleWalletOp(ctx, "prize_credit", walletID, amount, prizeID, entities.TransactionTypePrize,
		func(wallet *entities.Wallet) (entities.WalletDelta, error) {
			return entities.CreditDelta(amount), nil
		})
}

// CreditCommission pays a referral commission computed by the caller
func (c *transferCoordinator) CreditCommission(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*interfaces.BalanceResult, error) {
	return c.singleWalletOp(ctx, "commission_credit", walletID, amount, referenceID, entities.TransactionTypeCommission,
		func(wallet *entities.Wallet) (entities.WalletDelta, error) {
			return entities.CreditDelta(amount), nil
		})
}

// Refund returns funds for a purchase that did not go through
func (c *transferCoordinator) Refund(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*interfaces.BalanceResult, error) {
	return c.singleWalletOp(ctx, "refund", walletID, amount, referenceID, entities.TransactionTypeRefund,
		func(wallet *entities.Wallet) (entities.WalletDelta, error) {
			return entities.CreditDelta(amount), nil
		})
}

// Reverse takes back an earlier credit of amount. It fails with ErrInsufficientAvailable
// when the credited funds were already spent or frozen.
func (c *transferCoordinator) Reverse(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*interfaces.BalanceResult, error) {
	return c.singleWalletOp(ctx, "reversal", walletID, amount, referenceID, entities.TransactionTypeReversal,
		func(wallet *entities.Wallet) (entities.WalletDelta, error) {
			if err := requireAvailable(wallet, amount); err != nil {
				return entities.WalletDelta{}, err
			}
			return entities.DebitDelta(amount), nil
		})
}
