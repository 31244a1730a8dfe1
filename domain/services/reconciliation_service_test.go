package services

import (
	"context"
	"testing"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func trajectoryEntry(id int64, txType entities.TransactionType, amount, before, after string) *entities.LedgerEntry {
	return &entities.LedgerEntry{
		ID:              id,
		WalletID:        testWalletID,
		UserID:          testUserID,
		TransactionType: txType,
		Amount:          dec(amount),
		BalanceBefore:   dec(before),
		BalanceAfter:    dec(after),
		FrozenBefore:    dec("0"),
		FrozenAfter:     dec("0"),
		Status:          entities.LedgerStatusCompleted,
	}
}

func TestReconciliationService_Reconcile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		balance        string
		entries        []*entities.LedgerEntry
		wantConsistent bool
		wantGaps       []int64
		wantInvalid    []int64
		wantLedger     string
	}{
		{
			name:    "consistent trajectory",
			balance: "70",
			entries: []*entities.LedgerEntry{
				trajectoryEntry(1, entities.TransactionTypeDeposit, "100", "0", "100"),
				trajectoryEntry(2, entities.TransactionTypePurchase, "-30", "100", "70"),
			},
			wantConsistent: true,
			wantLedger:     "70",
		},
		{
			name:    "compensated purchase nets out",
			balance: "100",
			entries: []*entities.LedgerEntry{
				trajectoryEntry(1, entities.TransactionTypeDeposit, "100", "0", "100"),
				func() *entities.LedgerEntry {
					e := trajectoryEntry(2, entities.TransactionTypePurchase, "-30", "100", "70")
					e.Status = entities.LedgerStatusFailed
					return e
				}(),
				trajectoryEntry(3, entities.TransactionTypeRefund, "30", "70", "100"),
			},
			wantConsistent: true,
			wantLedger:     "100",
		},
		{
			name:    "missing entry leaves a gap",
			balance: "90",
			entries: []*entities.LedgerEntry{
				trajectoryEntry(1, entities.TransactionTypeDeposit, "100", "0", "100"),
				trajectoryEntry(3, entities.TransactionTypePurchase, "-10", "80", "70"),
			},
			wantGaps:   []int64{3},
			wantLedger: "70",
		},
		{
			name:    "entry arithmetic is wrong",
			balance: "100",
			entries: []*entities.LedgerEntry{
				trajectoryEntry(1, entities.TransactionTypeDeposit, "90", "0", "100"),
			},
			wantInvalid: []int64{1},
			wantLedger:  "100",
		},
		{
			name:       "wallet ahead of ledger",
			balance:    "50",
			entries:    []*entities.LedgerEntry{},
			wantLedger: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			walletRepo := &testhelpers.MockWalletRepository{}
			ledgerRepo := &testhelpers.MockLedgerRepository{}
			walletRepo.On("GetByID", mock.Anything, testWalletID).
				Return(createTestWallet(testWalletID, entities.WalletKindBalance, tt.balance, "0", 9), nil).Once()
			ledgerRepo.On("GetTrajectory", mock.Anything, testWalletID).Return(tt.entries, nil).Once()

			report, err := NewReconciliationService(walletRepo, ledgerRepo).Reconcile(context.Background(), testWalletID)

			require.NoError(t, err)
			assert.Equal(t, tt.wantConsistent, report.Consistent)
			assert.Equal(t, len(tt.entries), report.EntryCount)
			assert.True(t, report.LedgerBalance.Equal(dec(tt.wantLedger)), "ledger balance %s", report.LedgerBalance)

			gapIDs := make([]int64, 0, len(report.Gaps))
			for _, gap := range report.Gaps {
				gapIDs = append(gapIDs, gap.EntryID)
			}
			assert.ElementsMatch(t, tt.wantGaps, gapIDs)
			assert.ElementsMatch(t, tt.wantInvalid, report.Invalid)
		})
	}
}

func TestReconciliationService_WalletNotFound(t *testing.T) {
	t.Parallel()

	walletRepo := &testhelpers.MockWalletRepository{}
	walletRepo.On("GetByID", mock.Anything, int64(404)).Return(nil, nil).Once()

	_, err := NewReconciliationService(walletRepo, &testhelpers.MockLedgerRepository{}).Reconcile(context.Background(), 404)

	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}
