package testutil

import (
	"context"
	"testing"
	"time"

	"prizeledger/database"
	"prizeledger/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// CreateTestRaffle returns an unsaved active raffle priced in USD from balance wallets
func CreateTestRaffle(totalTickets int64, ticketPrice string) *entities.Raffle {
	return &entities.Raffle{
		Title:           "Test raffle",
		TicketPrice:     decimal.RequireFromString(ticketPrice),
		WalletKind:      entities.WalletKindBalance,
		Currency:        "USD",
		TotalTickets:    totalTickets,
		Status:          entities.RaffleStatusActive,
		PrizeAmount:     decimal.NewFromInt(50),
		PrizeWalletKind: entities.WalletKindBalance,
		PrizeCurrency:   "USD",
	}
}

// WithDrawTime sets the scheduled draw time of raffle
func WithDrawTime(raffle *entities.Raffle, drawTime time.Time) *entities.Raffle {
	raffle.DrawTime = &drawTime
	return raffle
}

// SeedWallet opens a USD balance wallet for userID and sets its balance directly
func SeedWallet(t *testing.T, db *database.DB, userID int64, balance string) *entities.Wallet {
	t.Helper()
	ctx := context.Background()

	var wallet entities.Wallet
	err := db.QueryRow(ctx, `
		INSERT INTO wallets (user_id, kind, currency, balance, total_deposits)
		VALUES ($1, 'balance', 'USD', $2, $2)
		RETURNING id, user_id, kind, currency, balance, frozen_balance,
			total_deposits, total_withdrawals, version, created_at, updated_at`,
		userID, decimal.RequireFromString(balance),
	).Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.Kind,
		&wallet.Currency,
		&wallet.Balance,
		&wallet.FrozenBalance,
		&wallet.TotalDeposits,
		&wallet.TotalWithdrawals,
		&wallet.Version,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	require.NoError(t, err)
	return &wallet
}
