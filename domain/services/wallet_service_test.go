package services

import (
	"context"
	"errors"
	"testing"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testDefaultWallets = []WalletSlot{
	{Kind: entities.WalletKindBalance, Currency: "USD"},
	{Kind: entities.WalletKindCommission, Currency: "USD"},
}

func TestWalletService_OpenAccount(t *testing.T) {
	t.Parallel()

	walletRepo := &testhelpers.MockWalletRepository{}
	ctx := context.Background()

	walletRepo.On("Create", ctx, testUserID, entities.WalletKindBalance, "USD").
		Return(createTestWallet(1, entities.WalletKindBalance, "0", "0", 0), nil).Once()
	walletRepo.On("Create", ctx, testUserID, entities.WalletKindCommission, "USD").
		Return(createTestWallet(2, entities.WalletKindCommission, "0", "0", 0), nil).Once()

	service := NewWalletService(walletRepo, &testhelpers.MockLedgerRepository{}, testDefaultWallets)
	wallets, err := service.OpenAccount(ctx, testUserID)

	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, entities.WalletKindBalance, wallets[0].Kind)
	assert.Equal(t, entities.WalletKindCommission, wallets[1].Kind)
	walletRepo.AssertExpectations(t)
}

func TestWalletService_OpenAccountFailure(t *testing.T) {
	t.Parallel()

	walletRepo := &testhelpers.MockWalletRepository{}
	walletRepo.On("Create", mock.Anything, testUserID, entities.WalletKindBalance, "USD").
		Return(nil, errors.New("connection refused")).Once()

	service := NewWalletService(walletRepo, &testhelpers.MockLedgerRepository{}, testDefaultWallets)
	_, err := service.OpenAccount(context.Background(), testUserID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "balance/USD")
	walletRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestWalletService_GetWallet(t *testing.T) {
	t.Parallel()

	walletRepo := &testhelpers.MockWalletRepository{}
	walletRepo.On("GetByID", mock.Anything, testWalletID).
		Return(createTestWallet(testWalletID, entities.WalletKindBalance, "12", "2", 3), nil).Once()
	walletRepo.On("GetByID", mock.Anything, int64(404)).Return(nil, nil).Once()

	service := NewWalletService(walletRepo, &testhelpers.MockLedgerRepository{}, nil)

	wallet, err := service.GetWallet(context.Background(), testWalletID)
	require.NoError(t, err)
	assert.True(t, wallet.Available().Equal(dec("10")))

	_, err = service.GetWallet(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestWalletService_GetLedgerClampsLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{name: "default", limit: 0, wantLimit: 50},
		{name: "negative", limit: -5, wantLimit: 50},
		{name: "within range", limit: 20, wantLimit: 20},
		{name: "above maximum", limit: 10000, wantLimit: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			walletRepo := &testhelpers.MockWalletRepository{}
			ledgerRepo := &testhelpers.MockLedgerRepository{}
			walletRepo.On("GetByID", mock.Anything, testWalletID).
				Return(createTestWallet(testWalletID, entities.WalletKindBalance, "0", "0", 1), nil).Once()
			ledgerRepo.On("GetByWallet", mock.Anything, testWalletID, tt.wantLimit).
				Return([]*entities.LedgerEntry{}, nil).Once()

			service := NewWalletService(walletRepo, ledgerRepo, nil)
			_, err := service.GetLedger(context.Background(), testWalletID, tt.limit)

			require.NoError(t, err)
			ledgerRepo.AssertExpectations(t)
		})
	}
}
