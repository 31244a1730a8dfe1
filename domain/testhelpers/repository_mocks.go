package testhelpers

import (
	"context"
	"time"

	"prizeledger/domain/entities"
	"prizeledger/events"

	"github.com/stretchr/testify/mock"
)

// MockWalletRepository is a mock implementation of WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetByID(ctx context.Context, id int64) (*entities.Wallet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetByOwner(ctx context.Context, userID int64, kind entities.WalletKind, currency string) (*entities.Wallet, error) {
	args := m.Called(ctx, userID, kind, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetByUser(ctx context.Context, userID int64) ([]*entities.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Create(ctx context.Context, userID int64, kind entities.WalletKind, currency string) (*entities.Wallet, error) {
	args := m.Called(ctx, userID, kind, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

func (m *MockWalletRepository) ApplyDelta(ctx context.Context, walletID, expectedVersion int64, delta entities.WalletDelta) (*entities.Wallet, error) {
	args := m.Called(ctx, walletID, expectedVersion, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Wallet), args.Error(1)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Record(ctx context.Context, entry *entities.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByWallet(ctx context.Context, walletID int64, limit int) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, walletID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetTrajectory(ctx context.Context, walletID int64) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetByCorrelationID(ctx context.Context, correlationID string) ([]*entities.LedgerEntry, error) {
	args := m.Called(ctx, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.LedgerEntry), args.Error(1)
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository
type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, request *entities.WithdrawalRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id int64) (*entities.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalRepository) TransitionStatus(ctx context.Context, id int64, from, to entities.WithdrawalStatus, reason *string) (bool, error) {
	args := m.Called(ctx, id, from, to, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockWithdrawalRepository) GetPending(ctx context.Context, limit int) ([]*entities.WithdrawalRequest, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WithdrawalRequest), args.Error(1)
}

// MockRaffleRepository is a mock implementation of RaffleRepository
type MockRaffleRepository struct {
	mock.Mock
}

func (m *MockRaffleRepository) Create(ctx context.Context, raffle *entities.Raffle) error {
	args := m.Called(ctx, raffle)
	return args.Error(0)
}

func (m *MockRaffleRepository) GetByID(ctx context.Context, id int64) (*entities.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) Allocate(ctx context.Context, raffleID, userID, quantity int64, orderID *string) (*entities.AllocationOutcome, error) {
	args := m.Called(ctx, raffleID, userID, quantity, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AllocationOutcome), args.Error(1)
}

func (m *MockRaffleRepository) TransitionStatus(ctx context.Context, id int64, from []entities.RaffleStatus, to entities.RaffleStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockRaffleRepository) MarkCompleted(ctx context.Context, id int64, expected entities.RaffleStatus, result *entities.DrawResult) (bool, error) {
	args := m.Called(ctx, id, expected, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockRaffleRepository) RevertDraw(ctx context.Context, id int64, previous entities.RaffleStatus) (bool, error) {
	args := m.Called(ctx, id, previous)
	return args.Bool(0), args.Error(1)
}

func (m *MockRaffleRepository) GetDrawable(ctx context.Context, now time.Time) ([]*entities.Raffle, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Raffle), args.Error(1)
}

// MockRaffleEntryRepository is a mock implementation of RaffleEntryRepository
type MockRaffleEntryRepository struct {
	mock.Mock
}

func (m *MockRaffleEntryRepository) GetByRaffle(ctx context.Context, raffleID int64) ([]*entities.RaffleEntry, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RaffleEntry), args.Error(1)
}

func (m *MockRaffleEntryRepository) GetByUser(ctx context.Context, raffleID, userID int64) ([]*entities.RaffleEntry, error) {
	args := m.Called(ctx, raffleID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RaffleEntry), args.Error(1)
}

func (m *MockRaffleEntryRepository) SetWinning(ctx context.Context, entryID int64, winning bool) error {
	args := m.Called(ctx, entryID, winning)
	return args.Error(0)
}

func (m *MockRaffleEntryRepository) GetParticipants(ctx context.Context, raffleID int64) ([]*entities.RaffleParticipant, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RaffleParticipant), args.Error(1)
}

// MockDrawResultRepository is a mock implementation of DrawResultRepository
type MockDrawResultRepository struct {
	mock.Mock
}

func (m *MockDrawResultRepository) Create(ctx context.Context, result *entities.DrawResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockDrawResultRepository) GetByRaffle(ctx context.Context, raffleID int64) (*entities.DrawResult, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DrawResult), args.Error(1)
}

func (m *MockDrawResultRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPrizeRepository is a mock implementation of PrizeRepository
type MockPrizeRepository struct {
	mock.Mock
}

func (m *MockPrizeRepository) Create(ctx context.Context, prize *entities.Prize) error {
	args := m.Called(ctx, prize)
	return args.Error(0)
}

func (m *MockPrizeRepository) GetByRaffle(ctx context.Context, raffleID int64) (*entities.Prize, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Prize), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
