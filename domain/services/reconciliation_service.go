package services

import (
	"context"
	"fmt"

	"prizeledger/domain"
	"prizeledger/domain/interfaces"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// reconciliationService replays a wallet's ledger to find where the audit trail and the wallet
// disagree, typically after a LedgerWriteFailed or CompensationFailed alert
type reconciliationService struct {
	walletRepo interfaces.WalletRepository
	ledgerRepo interfaces.LedgerRepository
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(walletRepo interfaces.WalletRepository, ledgerRepo interfaces.LedgerRepository) interfaces.Reconciler {
	return &reconciliationService{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
	}
}

// Reconcile walks the ledger in wallet-version order and checks that each entry starts where
// the previous one ended and that the trajectory ends at the stored balance
func (s *reconciliationService) Reconcile(ctx context.Context, walletID int64) (*interfaces.ReconciliationReport, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, domain.ErrWalletNotFound
	}

	entries, err := s.ledgerRepo.GetTrajectory(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger trajectory: %w", err)
	}

	report := &interfaces.ReconciliationReport{
		WalletID:   walletID,
		Balance:    wallet.Balance,
		EntryCount: len(entries),
	}

	expected := decimal.Zero
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			report.Invalid = append(report.Invalid, entry.ID)
		}
		if !entry.BalanceBefore.Equal(expected) {
			report.Gaps = append(report.Gaps, interfaces.LedgerGap{
				EntryID:        entry.ID,
				ExpectedBefore: expected,
				ActualBefore:   entry.BalanceBefore,
			})
		}
		expected = entry.BalanceAfter
	}

	report.LedgerBalance = expected
	report.Consistent = len(report.Gaps) == 0 &&
		len(report.Invalid) == 0 &&
		report.LedgerBalance.Equal(wallet.Balance)

	fields := log.Fields{
		"walletID":      walletID,
		"balance":       wallet.Balance.String(),
		"ledgerBalance": report.LedgerBalance.String(),
		"entryCount":    report.EntryCount,
		"gaps":          len(report.Gaps),
		"invalid":       len(report.Invalid),
	}
	if report.Consistent {
		log.WithFields(fields).Info("Wallet reconciles with ledger")
	} else {
		log.WithFields(fields).Warn("Wallet does not reconcile with ledger")
	}

	return report, nil
}
