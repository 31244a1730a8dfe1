package repository

import (
	"prizeledger/database"
	"prizeledger/domain/interfaces"
)

// Repositories bundles every store the services are wired with
type Repositories struct {
	Wallets     interfaces.WalletRepository
	Ledger      interfaces.LedgerRepository
	Withdrawals interfaces.WithdrawalRepository
	Raffles     interfaces.RaffleRepository
	Entries     interfaces.RaffleEntryRepository
	DrawResults interfaces.DrawResultRepository
	Prizes      interfaces.PrizeRepository
}

// NewRepositories creates pool-backed repositories sharing db
func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Wallets:     NewWalletRepository(db),
		Ledger:      NewLedgerRepository(db),
		Withdrawals: NewWithdrawalRepository(db),
		Raffles:     NewRaffleRepository(db),
		Entries:     NewRaffleEntryRepository(db),
		DrawResults: NewDrawResultRepository(db),
		Prizes:      NewPrizeRepository(db),
	}
}
