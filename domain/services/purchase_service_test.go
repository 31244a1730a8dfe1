package services

import (
	"context"
	"errors"
	"testing"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/domain/testhelpers"
	"prizeledger/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type purchaseMocks struct {
	RaffleRepo  *testhelpers.MockRaffleRepository
	WalletRepo  *testhelpers.MockWalletRepository
	Coordinator *testhelpers.MockTransferCoordinator
	Allocator   *testhelpers.MockTicketAllocator
	Alerter     *testhelpers.MockOperatorAlerter
	Metrics     *testhelpers.MockMetricsRecorder
}

func newPurchaseMocks() *purchaseMocks {
	return &purchaseMocks{
		RaffleRepo:  &testhelpers.MockRaffleRepository{},
		WalletRepo:  &testhelpers.MockWalletRepository{},
		Coordinator: &testhelpers.MockTransferCoordinator{},
		Allocator:   &testhelpers.MockTicketAllocator{},
		Alerter:     &testhelpers.MockOperatorAlerter{},
		Metrics:     &testhelpers.MockMetricsRecorder{},
	}
}

func (m *purchaseMocks) service() interfaces.PurchaseService {
	return NewPurchaseService(m.RaffleRepo, m.WalletRepo, m.Coordinator, m.Allocator, m.Alerter, m.Metrics)
}

func (m *purchaseMocks) assertAll(t *testing.T) {
	m.RaffleRepo.AssertExpectations(t)
	m.WalletRepo.AssertExpectations(t)
	m.Coordinator.AssertExpectations(t)
	m.Allocator.AssertExpectations(t)
	m.Alerter.AssertExpectations(t)
	m.Metrics.AssertExpectations(t)
}

// expectBuyer sets up an active raffle and the buyer's wallet holding balance
func (m *purchaseMocks) expectBuyer(raffle *entities.Raffle, balance string) *entities.Wallet {
	wallet := createTestWallet(testWalletID, entities.WalletKindBalance, balance, "0", 1)
	m.RaffleRepo.On("GetByID", mock.Anything, testRaffleID).Return(raffle, nil).Once()
	m.WalletRepo.On("GetByOwner", mock.Anything, testUserID, entities.WalletKindBalance, "USD").Return(wallet, nil).Once()
	return wallet
}

func TestPurchaseService_PurchaseTickets(t *testing.T) {
	t.Parallel()

	m := newPurchaseMocks()
	ctx := context.Background()
	wallet := m.expectBuyer(createTestRaffle(entities.RaffleStatusActive, 2), "100")
	allocation := &interfaces.AllocationResult{
		RaffleID:    testRaffleID,
		UserID:      testUserID,
		Codes:       []int64{3, 4, 5},
		SoldTickets: 5,
	}

	m.Coordinator.On("DebitForPurchase", ctx, wallet.ID, decEq("30"), "order-1").
		Return(&interfaces.BalanceResult{Wallet: createTestWallet(testWalletID, entities.WalletKindBalance, "70", "0", 2)}, nil).Once()
	m.Allocator.On("AllocateTickets", ctx, testRaffleID, testUserID, int64(3), "order-1").Return(allocation, nil).Once()
	m.Metrics.On("RecordWalletOperation", "purchase", outcomeSuccess).Once()

	result, err := m.service().PurchaseTickets(ctx, testUserID, testRaffleID, 3, "order-1")

	require.NoError(t, err)
	assert.Equal(t, "order-1", result.OrderID)
	assert.Equal(t, []int64{3, 4, 5}, result.Allocation.Codes)
	assert.True(t, result.Payment.Wallet.Balance.Equal(dec("70")))
	m.assertAll(t)
}

func TestPurchaseService_GeneratesOrderID(t *testing.T) {
	t.Parallel()

	m := newPurchaseMocks()
	m.expectBuyer(createTestRaffle(entities.RaffleStatusActive, 0), "100")

	var charged, allocated string
	m.Coordinator.On("DebitForPurchase", mock.Anything, testWalletID, decEq("10"), mock.Anything).
		Run(func(args mock.Arguments) { charged = args.String(3) }).
		Return(&interfaces.BalanceResult{}, nil).Once()
	m.Allocator.On("AllocateTickets", mock.Anything, testRaffleID, testUserID, int64(1), mock.Anything).
		Run(func(args mock.Arguments) { allocated = args.String(4) }).
		Return(&interfaces.AllocationResult{Codes: []int64{1}}, nil).Once()
	m.Metrics.On("RecordWalletOperation", "purchase", outcomeSuccess).Once()

	result, err := m.service().PurchaseTickets(context.Background(), testUserID, testRaffleID, 1, "")

	require.NoError(t, err)
	assert.NotEmpty(t, result.OrderID)
	assert.Equal(t, result.OrderID, charged)
	assert.Equal(t, result.OrderID, allocated)
}

func TestPurchaseService_RefundsWhenAllocationRefused(t *testing.T) {
	t.Parallel()

	m := newPurchaseMocks()
	ctx := context.Background()
	m.expectBuyer(createTestRaffle(entities.RaffleStatusActive, 8), "100")

	m.Coordinator.On("DebitForPurchase", ctx, testWalletID, decEq("20"), "order-2").
		Return(&interfaces.BalanceResult{}, nil).Once()
	// Another buyer took the remaining tickets between the pre-check and the allocation
	m.Allocator.On("AllocateTickets", ctx, testRaffleID, testUserID, int64(2), "order-2").
		Return(nil, domain.ErrSoldOut).Once()
	m.Coordinator.On("Refund", mock.Anything, testWalletID, decEq("20"), "order-2").
		Return(&interfaces.BalanceResult{}, nil).Once()
	m.Metrics.On("RecordWalletOperation", "purchase", outcomeCompensated).Once()
	m.Metrics.On("RecordCompensation", "purchase", outcomeCompensated).Once()

	_, err := m.service().PurchaseTickets(ctx, testUserID, testRaffleID, 2, "order-2")

	assert.ErrorIs(t, err, domain.ErrSoldOut)
	assert.Equal(t, "Sorry, there are not enough tickets left.", domain.UserMessage(err))
	m.assertAll(t)
}

func TestPurchaseService_InsufficientFundsAllocatesNothing(t *testing.T) {
	t.Parallel()

	m := newPurchaseMocks()
	ctx := context.Background()
	m.expectBuyer(createTestRaffle(entities.RaffleStatusActive, 0), "5")

	m.Coordinator.On("DebitForPurchase", ctx, testWalletID, decEq("10"), "order-3").
		Return(nil, domain.ErrInsufficientAvailable).Once()
	m.Metrics.On("RecordWalletOperation", "purchase", outcomeRejected).Once()

	_, err := m.service().PurchaseTickets(ctx, testUserID, testRaffleID, 1, "order-3")

	assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)
	m.Allocator.AssertNotCalled(t, "AllocateTickets", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.Coordinator.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.assertAll(t)
}

func TestPurchaseService_DebitOutageCountsAsFailure(t *testing.T) {
	t.Parallel()

	m := newPurchaseMocks()
	ctx := context.Background()
	m.expectBuyer(createTestRaffle(entities.RaffleStatusActive, 0), "50")

	outage := errors.New("connection reset")
	m.Coordinator.On("DebitForPurchase", ctx, testWalletID, decEq("10"), "order-4").Return(nil, outage).Once()
	m.Metrics.On("RecordWalletOperation", "purchase", outcomeFailed).Once()

	_, err := m.service().PurchaseTickets(ctx, testUserID, testRaffleID, 1, "order-4")

	assert.ErrorIs(t, err, outage)
	assert.False(t, domain.IsUserFacing(err))
	m.Allocator.AssertNotCalled(t, "AllocateTickets", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.assertAll(t)
}

func TestPurchaseService_RejectsBeforeCharging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raffle   *entities.Raffle
		quantity int64
		wantErr  error
	}{
		{
			name:     "raffle pending",
			raffle:   createTestRaffle(entities.RaffleStatusPending, 0),
			quantity: 1,
			wantErr:  domain.ErrRaffleNotActive,
		},
		{
			name:     "raffle sold out",
			raffle:   createTestRaffle(entities.RaffleStatusSoldOut, testTotalTickets),
			quantity: 1,
			wantErr:  domain.ErrRaffleNotActive,
		},
		{
			name:     "more than remaining",
			raffle:   createTestRaffle(entities.RaffleStatusActive, 9),
			quantity: 2,
			wantErr:  domain.ErrSoldOut,
		},
		{
			name:     "raffle missing",
			raffle:   nil,
			quantity: 1,
			wantErr:  domain.ErrRaffleNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newPurchaseMocks()
			if tt.raffle == nil {
				m.RaffleRepo.On("GetByID", mock.Anything, testRaffleID).Return(nil, nil).Once()
			} else {
				m.RaffleRepo.On("GetByID", mock.Anything, testRaffleID).Return(tt.raffle, nil).Once()
			}

			_, err := m.service().PurchaseTickets(context.Background(), testUserID, testRaffleID, tt.quantity, "")

			assert.ErrorIs(t, err, tt.wantErr)
			m.Coordinator.AssertNotCalled(t, "DebitForPurchase", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPurchaseService_InvalidQuantity(t *testing.T) {
	t.Parallel()

	m := newPurchaseMocks()
	_, err := m.service().PurchaseTickets(context.Background(), testUserID, testRaffleID, 0, "")

	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	m.RaffleRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestPurchaseService_WalletMissing(t *testing.T) {
	t.Parallel()

	m := newPurchaseMocks()
	m.RaffleRepo.On("GetByID", mock.Anything, testRaffleID).Return(createTestRaffle(entities.RaffleStatusActive, 0), nil).Once()
	m.WalletRepo.On("GetByOwner", mock.Anything, testUserID, entities.WalletKindBalance, "USD").Return(nil, nil).Once()

	_, err := m.service().PurchaseTickets(context.Background(), testUserID, testRaffleID, 1, "")

	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestPurchaseService_RefundFailureAlerts(t *testing.T) {
	t.Parallel()

	m := newPurchaseMocks()
	ctx := context.Background()
	m.expectBuyer(createTestRaffle(entities.RaffleStatusActive, 0), "100")

	m.Coordinator.On("DebitForPurchase", ctx, testWalletID, decEq("10"), "order-4").
		Return(&interfaces.BalanceResult{}, nil).Once()
	m.Allocator.On("AllocateTickets", ctx, testRaffleID, testUserID, int64(1), "order-4").
		Return(nil, errors.New("connection refused")).Once()
	m.Coordinator.On("Refund", mock.Anything, testWalletID, decEq("10"), "order-4").
		Return(nil, domain.ErrRetryExhausted).Once()
	m.Alerter.On("Raise", ctx, mock.MatchedBy(func(alert events.OperatorAlertEvent) bool {
		return alert.Kind == "purchase_compensation_failed" &&
			alert.Details["orderID"] == "order-4" &&
			alert.Details["cost"] == "10"
	})).Once()
	m.Metrics.On("RecordWalletOperation", "purchase", outcomeCompensationFailed).Once()
	m.Metrics.On("RecordCompensation", "purchase", outcomeFailed).Once()

	_, err := m.service().PurchaseTickets(ctx, testUserID, testRaffleID, 1, "order-4")

	assert.ErrorIs(t, err, domain.ErrCompensationFailed)
	assert.Equal(t, "Something went wrong and support has been notified.", domain.UserMessage(err))
	m.assertAll(t)
}
