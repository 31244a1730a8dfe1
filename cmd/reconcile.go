package cmd

import (
	"context"
	"fmt"
	"strconv"

	"prizeledger/config"
	"prizeledger/database"
	"prizeledger/domain/services"
	"prizeledger/repository"

	log "github.com/sirupsen/logrus"
)

// ErrInconsistentLedger is returned by Reconcile when the ledger does not explain the balance
var ErrInconsistentLedger = fmt.Errorf("ledger does not match wallet")

// Reconcile replays one wallet's ledger and logs every gap it finds
func Reconcile(ctx context.Context, rawWalletID string) error {
	walletID, err := strconv.ParseInt(rawWalletID, 10, 64)
	if err != nil || walletID <= 0 {
		return fmt.Errorf("invalid wallet id %q", rawWalletID)
	}

	cfg := config.Get()
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repos := repository.NewRepositories(db)
	report, err := services.NewReconciliationService(repos.Wallets, repos.Ledger).Reconcile(ctx, walletID)
	if err != nil {
		return err
	}

	for _, gap := range report.Gaps {
		log.WithFields(log.Fields{
			"walletID":       walletID,
			"entryID":        gap.EntryID,
			"expectedBefore": gap.ExpectedBefore.String(),
			"actualBefore":   gap.ActualBefore.String(),
		}).Warn("Ledger gap")
	}
	for _, entryID := range report.Invalid {
		log.WithFields(log.Fields{
			"walletID": walletID,
			"entryID":  entryID,
		}).Warn("Ledger entry arithmetic is inconsistent")
	}

	fields := log.Fields{
		"walletID":      walletID,
		"balance":       report.Balance.String(),
		"ledgerBalance": report.LedgerBalance.String(),
		"entries":       report.EntryCount,
		"gaps":          len(report.Gaps),
		"invalid":       len(report.Invalid),
	}
	if !report.Consistent {
		log.WithFields(fields).Error("Wallet needs manual reconciliation")
		return ErrInconsistentLedger
	}
	log.WithFields(fields).Info("Wallet is consistent with its ledger")
	return nil
}
