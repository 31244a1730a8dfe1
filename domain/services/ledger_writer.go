package services

import (
	"context"
	"fmt"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/events"

	log "github.com/sirupsen/logrus"
)

// ledgerWriter appends audit entries. A failed append never fails the mutation it describes.
type ledgerWriter struct {
	ledgerRepo interfaces.LedgerRepository
	alerter    interfaces.OperatorAlerter
	metrics    interfaces.MetricsRecorder
}

// NewLedgerWriter creates a new ledger writer
func NewLedgerWriter(
	ledgerRepo interfaces.LedgerRepository,
	alerter interfaces.OperatorAlerter,
	metrics interfaces.MetricsRecorder,
) interfaces.LedgerWriter {
	return &ledgerWriter{
		ledgerRepo: ledgerRepo,
		alerter:    alerter,
		metrics:    metricsOrNoop(metrics),
	}
}

// Record appends entry and returns it with its ID set
func (w *ledgerWriter) Record(ctx context.Context, entry *entities.LedgerEntry) (*entities.LedgerEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, w.fail(ctx, entry, fmt.Errorf("invalid ledger entry: %w", err))
	}

	if err := w.ledgerRepo.Record(ctx, entry); err != nil {
		return nil, w.fail(ctx, entry, err)
	}

	return entry, nil
}

func (w *ledgerWriter) fail(ctx context.Context, entry *entities.LedgerEntry, cause error) error {
	correlationID := ""
	if entry.CorrelationID != nil {
		correlationID = *entry.CorrelationID
	}

	details := map[string]any{
		"walletID":        entry.WalletID,
		"userID":          entry.UserID,
		"transactionType": entry.TransactionType,
		"amount":          entry.Amount.String(),
		"balanceBefore":   entry.BalanceBefore.String(),
		"balanceAfter":    entry.BalanceAfter.String(),
		"frozenBefore":    entry.FrozenBefore.String(),
		"frozenAfter":     entry.FrozenAfter.String(),
		"status":          entry.Status,
		"correlationID":   correlationID,
	}

	log.WithFields(log.Fields(details)).WithError(cause).Error("Failed to append ledger entry, audit trail has a gap")

	w.metrics.RecordLedgerWriteFailure(entry.TransactionType.String())

	if w.alerter != nil {
		w.alerter.Raise(ctx, events.OperatorAlertEvent{
			Kind:     "ledger_write_failed",
			Severity: events.AlertSeverityCritical,
			Message:  fmt.Sprintf("ledger entry for wallet %d was not recorded: %v", entry.WalletID, cause),
			Details:  details,
		})
	}

	return fmt.Errorf("%w: %w", domain.ErrLedgerWriteFailed, cause)
}
