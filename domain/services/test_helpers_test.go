package services

import (
	"time"

	"prizeledger/domain/entities"
	"prizeledger/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// Test constants for consistent test data
const (
	testUserID       = int64(4242)
	testWalletID     = int64(1)
	testTargetID     = int64(2)
	testRaffleID     = int64(77)
	testRequestID    = int64(9)
	testMaxRetries   = 2
	testCorrelation  = "ref-1"
	testTicketPrice  = "10"
	testTotalTickets = int64(10)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decEq matches a decimal argument by value rather than representation
func decEq(s string) any {
	want := dec(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(want)
	})
}

// deltaEq matches a wallet delta by its balance and frozen components
func deltaEq(balance, frozen string) any {
	wantBalance, wantFrozen := dec(balance), dec(frozen)
	return mock.MatchedBy(func(d entities.WalletDelta) bool {
		return d.Balance.Equal(wantBalance) && d.Frozen.Equal(wantFrozen)
	})
}

// ledgerEq matches a ledger entry by type, status and signed amount
func ledgerEq(txType entities.TransactionType, status entities.LedgerStatus, amount string) any {
	want := dec(amount)
	return mock.MatchedBy(func(e *entities.LedgerEntry) bool {
		return e.TransactionType == txType && e.Status == status && e.Amount.Equal(want)
	})
}

func createTestWallet(id int64, kind entities.WalletKind, balance, frozen string, version int64) *entities.Wallet {
	return &entities.Wallet{
		ID:               id,
		UserID:           testUserID,
		Kind:             kind,
		Currency:         "USD",
		Balance:          dec(balance),
		FrozenBalance:    dec(frozen),
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		Version:          version,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

func createTestRaffle(status entities.RaffleStatus, sold int64, opts ...func(*entities.Raffle)) *entities.Raffle {
	raffle := &entities.Raffle{
		ID:              testRaffleID,
		Title:           "Weekend raffle",
		TicketPrice:     dec(testTicketPrice),
		WalletKind:      entities.WalletKindBalance,
		Currency:        "USD",
		TotalTickets:    testTotalTickets,
		SoldTickets:     sold,
		Status:          status,
		PrizeAmount:     dec("80"),
		PrizeWalletKind: entities.WalletKindBalance,
		PrizeCurrency:   "USD",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	for _, opt := range opts {
		opt(raffle)
	}
	return raffle
}

// createTestEntries builds entries created at the given epoch milliseconds, codes from 1
func createTestEntries(userIDs []int64, millis []int64) []*entities.RaffleEntry {
	entries := make([]*entities.RaffleEntry, len(millis))
	for i, ms := range millis {
		entries[i] = &entities.RaffleEntry{
			ID:                int64(100 + i),
			RaffleID:          testRaffleID,
			UserID:            userIDs[i%len(userIDs)],
			ParticipationCode: int64(i + 1),
			CreatedAt:         time.UnixMilli(ms),
		}
	}
	return entries
}

// TestMocks aggregates the mocks a coordinator needs
type TestMocks struct {
	WalletRepo     *testhelpers.MockWalletRepository
	WithdrawalRepo *testhelpers.MockWithdrawalRepository
	LedgerRepo     *testhelpers.MockLedgerRepository
	EventPublisher *testhelpers.MockEventPublisher
	Alerter        *testhelpers.MockOperatorAlerter
	Metrics        *testhelpers.MockMetricsRecorder
}

// NewTestMocks creates a new set of mocks. Publishing and metrics are permissive by default.
func NewTestMocks() *TestMocks {
	m := &TestMocks{
		WalletRepo:     &testhelpers.MockWalletRepository{},
		WithdrawalRepo: &testhelpers.MockWithdrawalRepository{},
		LedgerRepo:     &testhelpers.MockLedgerRepository{},
		EventPublisher: &testhelpers.MockEventPublisher{},
		Alerter:        &testhelpers.MockOperatorAlerter{},
		Metrics:        &testhelpers.MockMetricsRecorder{},
	}
	m.EventPublisher.On("Publish", mock.Anything).Return(nil).Maybe()
	return m
}

// permissiveMetrics accepts every measurement not explicitly expected
func (m *TestMocks) permissiveMetrics() {
	m.Metrics.On("RecordWalletOperation", mock.Anything, mock.Anything).Maybe()
	m.Metrics.On("RecordVersionConflict", mock.Anything).Maybe()
	m.Metrics.On("RecordCompensation", mock.Anything, mock.Anything).Maybe()
	m.Metrics.On("RecordLedgerWriteFailure", mock.Anything).Maybe()
	m.Metrics.On("RecordTicketsAllocated", mock.Anything).Maybe()
	m.Metrics.On("RecordDraw", mock.Anything).Maybe()
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t mock.TestingT) {
	m.WalletRepo.AssertExpectations(t)
	m.WithdrawalRepo.AssertExpectations(t)
	m.LedgerRepo.AssertExpectations(t)
	m.Alerter.AssertExpectations(t)
	m.Metrics.AssertExpectations(t)
}

func newTestCoordinator(m *TestMocks) *transferCoordinator {
	ledger := NewLedgerWriter(m.LedgerRepo, m.Alerter, m.Metrics)
	return NewTransferCoordinator(
		m.WalletRepo,
		m.WithdrawalRepo,
		ledger,
		m.EventPublisher,
		m.Alerter,
		m.Metrics,
		CoordinatorSettings{
			MaxRetries: testMaxRetries,
			Exchange: ExchangeSettings{
				SourceKind:     entities.WalletKindCommission,
				SourceCurrency: "USD",
				TargetKind:     entities.WalletKindBalance,
				TargetCurrency: "USD",
				Rate:           decimal.NewFromInt(1),
			},
		},
	).(*transferCoordinator)
}
