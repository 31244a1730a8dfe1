package services

import (
	"context"
	"fmt"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const (
	defaultLedgerLimit = 50
	maxLedgerLimit     = 500
)

// WalletSlot is one wallet every account is opened with
type WalletSlot struct {
	Kind     entities.WalletKind
	Currency string
}

// walletService opens accounts and serves wallet reads
type walletService struct {
	walletRepo     interfaces.WalletRepository
	ledgerRepo     interfaces.LedgerRepository
	defaultWallets []WalletSlot
}

// NewWalletService creates a new wallet service
func NewWalletService(
	walletRepo interfaces.WalletRepository,
	ledgerRepo interfaces.LedgerRepository,
	defaultWallets []WalletSlot,
) interfaces.WalletService {
	return &walletService{
		walletRepo:     walletRepo,
		ledgerRepo:     ledgerRepo,
		defaultWallets: defaultWallets,
	}
}

// OpenAccount creates the default wallets for a user. Calling it again returns the same wallets.
func (s *walletService) OpenAccount(ctx context.Context, userID int64) ([]*entities.Wallet, error) {
	wallets := make([]*entities.Wallet, 0, len(s.defaultWallets))
	for _, slot := range s.defaultWallets {
		wallet, err := s.walletRepo.Create(ctx, userID, slot.Kind, slot.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s/%s wallet: %w", slot.Kind, slot.Currency, err)
		}
		wallets = append(wallets, wallet)
	}

	log.WithFields(log.Fields{
		"userID":      userID,
		"walletCount": len(wallets),
	}).Info("Account opened")

	return wallets, nil
}

// GetWallet retrieves a wallet by ID
func (s *walletService) GetWallet(ctx context.Context, walletID int64) (*entities.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, domain.ErrWalletNotFound
	}
	return wallet, nil
}

// GetUserWallets returns every wallet a user holds
func (s *walletService) GetUserWallets(ctx context.Context, userID int64) ([]*entities.Wallet, error) {
	wallets, err := s.walletRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallets: %w", err)
	}
	return wallets, nil
}

// GetLedger returns the most recent ledger entries for a wallet
func (s *walletService) GetLedger(ctx context.Context, walletID int64, limit int) ([]*entities.LedgerEntry, error) {
	if _, err := s.GetWallet(ctx, walletID); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = defaultLedgerLimit
	case limit > maxLedgerLimit:
		limit = maxLedgerLimit
	}

	entries, err := s.ledgerRepo.GetByWallet(ctx, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	return entries, nil
}
