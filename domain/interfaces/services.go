package interfaces

import (
	"context"
	"time"

	"prizeledger/domain/entities"
	"prizeledger/events"

	"github.com/shopspring/decimal"
)

// BalanceResult is the outcome of a single-wallet operation
type BalanceResult struct {
	Wallet        *entities.Wallet
	LedgerEntry   *entities.LedgerEntry // nil when the ledger append failed
	CorrelationID string
	// LedgerWriteFailed is set when the mutation stands but its audit entry could not be written
	LedgerWriteFailed bool
}

// ExchangeResult is the outcome of moving funds between two wallets of one user
type ExchangeResult struct {
	Source            *entities.Wallet
	Target            *entities.Wallet
	SourceAmount      decimal.Decimal
	TargetAmount      decimal.Decimal
	CorrelationID     string
	LedgerWriteFailed bool
}

// WithdrawalResult is the outcome of a freeze, approve or reject
type WithdrawalResult struct {
	Request           *entities.WithdrawalRequest
	Wallet            *entities.Wallet
	LedgerEntry       *entities.LedgerEntry
	LedgerWriteFailed bool
}

// AllocationResult is the outcome of a ticket allocation
type AllocationResult struct {
	RaffleID    int64
	UserID      int64
	Codes       []int64
	Entries     []*entities.RaffleEntry
	SoldTickets int64
	SoldOut     bool
}

// PurchaseResult is the outcome of paying for and receiving tickets
type PurchaseResult struct {
	Allocation *AllocationResult
	Payment    *BalanceResult
	OrderID    string
}

// DrawOptions controls a draw request
type DrawOptions struct {
	// Force allows drawing an active raffle whose draw time has passed
	Force bool
}

// DrawOutcome is the answer to Draw
type DrawOutcome struct {
	WinningCode  int64
	WinnerUserID int64
	AlreadyDrawn bool
	Result       *entities.DrawResult
	Prize        *entities.Prize
}

// CancelResult reports the refunds issued for a cancelled raffle
type CancelResult struct {
	Raffle        *entities.Raffle
	RefundedUsers []int64
	FailedUsers   []int64
}

// LedgerGap is a point where the ledger stops agreeing with the wallet trajectory
type LedgerGap struct {
	EntryID        int64
	ExpectedBefore decimal.Decimal
	ActualBefore   decimal.Decimal
}

// ReconciliationReport compares a wallet with its ledger
type ReconciliationReport struct {
	WalletID      int64
	Balance       decimal.Decimal
	LedgerBalance decimal.Decimal
	EntryCount    int
	Gaps          []LedgerGap
	Invalid       []int64 // entries whose own arithmetic is inconsistent
	Consistent    bool
}

// CreateRaffleParams describes a new raffle
type CreateRaffleParams struct {
	Title            string
	TicketPrice      decimal.Decimal
	WalletKind       entities.WalletKind
	Currency         string
	TotalTickets     int64
	PrizeAmount      decimal.Decimal
	PrizeWalletKind  entities.WalletKind
	PrizeCurrency    string
	PrizeDescription *string
	DrawTime         *time.Time
}

// LedgerWriter appends audit entries and raises an operator alert when it cannot
type LedgerWriter interface {
	// Record appends entry. A returned error wraps domain.ErrLedgerWriteFailed and is
	// informational: callers must not roll back the mutation it describes.
	Record(ctx context.Context, entry *entities.LedgerEntry) (*entities.LedgerEntry, error)
}

// TransferCoordinator runs wallet operations as sagas with compensating rollback
type TransferCoordinator interface {
	Deposit(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*BalanceResult, error)
	FreezeWithdrawal(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*WithdrawalResult, error)
	ApproveWithdrawal(ctx context.Context, requestID int64) (*WithdrawalResult, error)
	RejectWithdrawal(ctx context.Context, requestID int64, reason string) (*WithdrawalResult, error)
	Exchange(ctx context.Context, userID int64, fromAmount decimal.Decimal) (*ExchangeResult, error)
	DebitForPurchase(ctx context.Context, walletID int64, amount decimal.Decimal, orderID string) (*BalanceResult, error)
	CreditPrize(ctx context.Context, walletID int64, amount decimal.Decimal, prizeID string) (*BalanceResult, error)
	CreditCommission(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*BalanceResult, error)
	Refund(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*BalanceResult, error)
	Reverse(ctx context.Context, walletID int64, amount decimal.Decimal, referenceID string) (*BalanceResult, error)
}

// TicketAllocator issues participation codes
type TicketAllocator interface {
	AllocateTickets(ctx context.Context, raffleID, userID, quantity int64, orderID string) (*AllocationResult, error)
}

// DrawEngine selects and pays raffle winners
type DrawEngine interface {
	Draw(ctx context.Context, raffleID int64, opts DrawOptions) (*DrawOutcome, error)
}

// PurchaseService charges a wallet and allocates tickets as one saga
type PurchaseService interface {
	PurchaseTickets(ctx context.Context, userID, raffleID, quantity int64, orderID string) (*PurchaseResult, error)
}

// RaffleService manages the raffle lifecycle outside of allocation and drawing
type RaffleService interface {
	CreateRaffle(ctx context.Context, params CreateRaffleParams) (*entities.Raffle, error)
	ActivateRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error)
	CancelRaffle(ctx context.Context, raffleID int64, reason string) (*CancelResult, error)
	GetRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error)
}

// WalletService opens and reads wallets
type WalletService interface {
	OpenAccount(ctx context.Context, userID int64) ([]*entities.Wallet, error)
	GetWallet(ctx context.Context, walletID int64) (*entities.Wallet, error)
	GetUserWallets(ctx context.Context, userID int64) ([]*entities.Wallet, error)
	GetLedger(ctx context.Context, walletID int64, limit int) ([]*entities.LedgerEntry, error)
}

// Reconciler checks a wallet against its ledger
type Reconciler interface {
	Reconcile(ctx context.Context, walletID int64) (*ReconciliationReport, error)
}

// OperatorAlerter notifies operators about failures that need a human
type OperatorAlerter interface {
	Raise(ctx context.Context, alert events.OperatorAlertEvent)
}

// MetricsRecorder receives domain measurements
type MetricsRecorder interface {
	RecordWalletOperation(operation, outcome string)
	RecordVersionConflict(operation string)
	RecordCompensation(saga, outcome string)
	RecordLedgerWriteFailure(transactionType string)
	RecordTicketsAllocated(quantity int64)
	RecordDraw(outcome string)
}
