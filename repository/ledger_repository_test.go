package repository

import (
	"context"
	"testing"

	"prizeledger/domain/entities"
	"prizeledger/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerStep(wallet *entities.Wallet, before, after string, version int64, txType entities.TransactionType) *entities.LedgerEntry {
	from := *wallet
	from.Balance = decimal.RequireFromString(before)
	to := *wallet
	to.Balance = decimal.RequireFromString(after)
	to.Version = version
	return entities.NewLedgerEntry(&from, &to, txType, entities.LedgerStatusCompleted, "corr-1")
}

func TestLedgerRepository_RecordAndRead(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()
	wallet := testutil.SeedWallet(t, testDB.DB, 3001, "0")

	deposit := ledgerStep(wallet, "0", "100", 1, entities.TransactionTypeDeposit)
	require.NoError(t, repo.Record(ctx, deposit))
	assert.NotZero(t, deposit.ID)
	assert.False(t, deposit.CreatedAt.IsZero())

	purchase := ledgerStep(wallet, "100", "70", 2, entities.TransactionTypePurchase)
	require.NoError(t, repo.Record(ctx, purchase))

	t.Run("newest first with limit", func(t *testing.T) {
		entries, err := repo.GetByWallet(ctx, wallet.ID, 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, purchase.ID, entries[0].ID)
		assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(-30)))
		assert.Equal(t, float64(2), entries[0].Metadata["version"])
	})

	t.Run("by correlation", func(t *testing.T) {
		entries, err := repo.GetByCorrelationID(ctx, "corr-1")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("entries are append-only", func(t *testing.T) {
		_, err := testDB.DB.Exec(ctx, `UPDATE ledger_entries SET amount = 0 WHERE id = $1`, deposit.ID)
		assert.Error(t, err)

		_, err = testDB.DB.Exec(ctx, `DELETE FROM ledger_entries WHERE id = $1`, deposit.ID)
		assert.Error(t, err)
	})

	t.Run("inconsistent arithmetic is rejected", func(t *testing.T) {
		bad := ledgerStep(wallet, "70", "80", 3, entities.TransactionTypeRefund)
		bad.Amount = decimal.NewFromInt(5)
		assert.Error(t, repo.Record(ctx, bad))
	})
}

func TestLedgerRepository_TrajectoryFollowsVersions(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()
	wallet := testutil.SeedWallet(t, testDB.DB, 3002, "0")

	// A saga that resolved later appends its entry after a newer mutation's entry
	later := ledgerStep(wallet, "10", "25", 2, entities.TransactionTypeDeposit)
	earlier := ledgerStep(wallet, "0", "10", 1, entities.TransactionTypeDeposit)
	require.NoError(t, repo.Record(ctx, later))
	require.NoError(t, repo.Record(ctx, earlier))

	entries, err := repo.GetTrajectory(ctx, wallet.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, earlier.ID, entries[0].ID)
	assert.Equal(t, later.ID, entries[1].ID)
}
