package testhelpers

import (
	"context"

	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockTransferCoordinator is a mock implementation of TransferCoordinator
type MockTransferCoordinator struct {
	mock.Mock
}

func (m *MockTransferCoordinator) balanceResult(args mock.Arguments) (*interfaces.BalanceResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.BalanceResult), args.Error(1)
}

func (m *MockTransferCoordinator) withdrawalResult(args mock.Arguments) (*interfaces.WithdrawalResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.WithdrawalResult), args.Error(1)
}

func (m *MockTransferCoordinator) Deposit(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*interfaces.BalanceResult, error) {
	return m.balanceResult(m.Called(ctx, walletID, amount, referenceID))
}

func (m *MockTransferCoordinator) FreezeWithdrawal(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*interfaces.WithdrawalResult, error) {
	return m.withdrawalResult(m.Called(ctx, walletID, amount, referenceID))
}

func (m *MockTransferCoordinator) ApproveWithdrawal(ctx context.Context, requestID int64) (*interfaces.WithdrawalResult, error) {
	return m.withdrawalResult(m.Called(ctx, requestID))
}

func (m *MockTransferCoordinator) RejectWithdrawal(ctx context.Context, requestID int64, reason string) (*interfaces.WithdrawalResult, error) {
	return m.withdrawalResult(m.Called(ctx, requestID, reason))
}

func (m *MockTransferCoordinator) Exchange(ctx context.Context, userID int64, fromAmount decimal.Decimal) (*interfaces.ExchangeResult, error) {
	args := m.Called(ctx, userID, fromAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ExchangeResult), args.Error(1)
}

func (m *MockTransferCoordinator) DebitForPurchase(ctx context.Context, walletID int64, amount decimal.Decimal, orderID string) (*interfaces.BalanceResult, error) {
	return m.balanceResult(m.Called(ctx, walletID, amount, orderID))
}

func (m *MockTransferCoordinator) CreditPrize(ctx context.Context, walletID int64, amount decimal.Decimal, prizeID string) (*interfaces.BalanceResult, error) {
	return m.balanceResult(m.Called(ctx, walletID, amount, prizeID))
}

func (m *MockTransferCoordinator) CreditCommission(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*interfaces.BalanceResult, error) {
	return m.balanceResult(m.Called(ctx, walletID, amount, referenceID))
}

func (m *MockTransferCoordinator) Refund(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*interfaces.BalanceResult, error) {
	return m.balanceResult(m.Called(ctx, walletID, amount, referenceID))
}

func (m *MockTransferCoordinator) Reverse(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*interfaces.BalanceResult, error) {
	return m.balanceResult(m.Called(ctx, walletID, amount, referenceID))
}

// MockTicketAllocator is a mock implementation of TicketAllocator
type MockTicketAllocator struct {
	mock.Mock
}

func (m *MockTicketAllocator) AllocateTickets(ctx context.Context, raffleID, userID, quantity int64, orderID string) (*interfaces.AllocationResult, error) {
	args := m.Called(ctx, raffleID, userID, quantity, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.AllocationResult), args.Error(1)
}

// MockDrawEngine is a mock implementation of DrawEngine
type MockDrawEngine struct {
	mock.Mock
}

func (m *MockDrawEngine) Draw(ctx context.Context, raffleID int64, opts interfaces.DrawOptions) (*interfaces.DrawOutcome, error) {
	args := m.Called(ctx, raffleID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.DrawOutcome), args.Error(1)
}

// MockPurchaseService is a mock implementation of PurchaseService
type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) PurchaseTickets(ctx context.Context, userID, raffleID, quantity int64, orderID string) (*interfaces.PurchaseResult, error) {
	args := m.Called(ctx, userID, raffleID, quantity, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.PurchaseResult), args.Error(1)
}

// MockRaffleService is a mock implementation of RaffleService
type MockRaffleService struct {
	mock.Mock
}

func (m *MockRaffleService) CreateRaffle(ctx context.Context, params interfaces.CreateRaffleParams) (*entities.Raffle, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleService) ActivateRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleService) CancelRaffle(ctx context.Context, raffleID int64, reason string) (*interfaces.CancelResult, error) {
	args := m.Called(ctx, raffleID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.CancelResult), args.Error(1)
}

func (m *MockRaffleService) GetRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

// MockWalletService is a mock implementation of WalletService
type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) OpenAccount(ctx context.Context, userID int64) ([]*entities.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Wallet), args.Error(1)
}

func (m *MockWalletService) GetWallet(ctx context.Context, walletID int64) (*entities.Wallet, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockWalletService) GetUserWallets(ctx context.Context, userID int64) ([]*entities.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Wallet), args.Error(1)
}

func (m *MockWalletService) GetLedger(ctx context.Context, walletID int64, limit int) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, walletID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

// MockReconciler is a mock implementation of Reconciler
type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, walletID int64) (*interfaces.ReconciliationReport, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ReconciliationReport), args.Error(1)
}

// MockOperatorAlerter is a mock implementation of OperatorAlerter
type MockOperatorAlerter struct {
	mock.Mock
}

func (m *MockOperatorAlerter) Raise(ctx context.Context, alert events.OperatorAlertEvent) {
	m.Called(ctx, alert)
}

// MockMetricsRecorder is a mock implementation of MetricsRecorder
type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) RecordWalletOperation(operation, outcome string) {
	m.Called(operation, outcome)
}

func (m *MockMetricsRecorder) RecordVersionConflict(operation string) {
	m.Called(operation)
}

func (m *MockMetricsRecorder) RecordCompensation(saga, outcome string) {
	m.Called(saga, outcome)
}

func (m *MockMetricsRecorder) RecordLedgerWriteFailure(transactionType string) {
	m.Called(transactionType)
}

func (m *MockMetricsRecorder) RecordTicketsAllocated(quantity int64) {
	m.Called(quantity)
}

func (m *MockMetricsRecorder) RecordDraw(outcome string) {
	m.Called(outcome)
}
