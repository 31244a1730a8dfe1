package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLedgerEntry(t *testing.T) {
	t.Parallel()

	before := &Wallet{ID: 7, UserID: 42, Balance: dec("100"), FrozenBalance: dec("30"), Version: 3}
	after := &Wallet{ID: 7, UserID: 42, Balance: dec("70"), FrozenBalance: dec("0"), Version: 4}

	entry := NewLedgerEntry(before, after, TransactionTypeWithdrawal, LedgerStatusCompleted, "wd-1")

	require.NoError(t, entry.Validate())
	assert.Equal(t, int64(7), entry.WalletID)
	assert.Equal(t, int64(42), entry.UserID)
	assert.True(t, entry.Amount.Equal(dec("-30")))
	assert.True(t, entry.FrozenChange().Equal(dec("-30")))
	assert.True(t, entry.IsDebit())
	assert.False(t, entry.IsCredit())
	require.NotNil(t, entry.CorrelationID)
	assert.Equal(t, "wd-1", *entry.CorrelationID)
	assert.Equal(t, int64(4), entry.Metadata["version"])
}

func TestNewLedgerEntry_NoCorrelation(t *testing.T) {
	t.Parallel()

	w := &Wallet{ID: 1, Balance: dec("10")}
	entry := NewLedgerEntry(w, w, TransactionTypeWithdrawal, LedgerStatusPending, "")

	assert.Nil(t, entry.CorrelationID)
	assert.True(t, entry.Amount.IsZero())
	assert.NoError(t, entry.Validate())
}

func TestLedgerEntry_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entry   LedgerEntry
		wantErr string
	}{
		{
			name:  "consistent credit",
			entry: LedgerEntry{WalletID: 1, Amount: dec("5"), BalanceBefore: dec("10"), BalanceAfter: dec("15"), Status: LedgerStatusCompleted},
		},
		{
			name:    "inconsistent trajectory",
			entry:   LedgerEntry{WalletID: 1, Amount: dec("5"), BalanceBefore: dec("10"), BalanceAfter: dec("16"), Status: LedgerStatusCompleted},
			wantErr: "inconsistent",
		},
		{
			name:    "missing wallet",
			entry:   LedgerEntry{Amount: dec("5"), BalanceBefore: dec("10"), BalanceAfter: dec("15"), Status: LedgerStatusCompleted},
			wantErr: "wallet id",
		},
		{
			name:    "unknown status",
			entry:   LedgerEntry{WalletID: 1, Amount: dec("0"), BalanceBefore: dec("1"), BalanceAfter: dec("1"), Status: "reversed"},
			wantErr: "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.entry.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
