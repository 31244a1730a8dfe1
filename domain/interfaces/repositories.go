package interfaces

import (
	"context"
	"time"

	"prizeledger/domain/entities"
	"prizeledger/events"
)

// WalletRepository is the Wallet Store: reads plus a single compare-and-swap mutation primitive
type WalletRepository interface {
	// GetByID retrieves a wallet by ID, returning nil if it does not exist
	GetByID(ctx context.Context, id int64) (*entities.Wallet, error)

	// GetByOwner retrieves the wallet for (user, kind, currency), returning nil if it does not exist
	GetByOwner(ctx context.Context, userID int64, kind entities.WalletKind, currency string) (*entities.Wallet, error)

	// GetByUser returns every wallet a user holds
	GetByUser(ctx context.Context, userID int64) ([]*entities.Wallet, error)

	// Create opens a wallet, returning the existing one if it was already opened
	Create(ctx context.Context, userID int64, kind entities.WalletKind, currency string) (*entities.Wallet, error)

	// ApplyDelta applies delta only if the stored version equals expectedVersion.
	// Returns domain.ErrVersionConflict on mismatch and domain.ErrInsufficientAvailable
	// when the result would break the balance invariants.
	ApplyDelta(ctx context.Context, walletID, expectedVersion int64, delta entities.WalletDelta) (*entities.Wallet, error)
}

// LedgerRepository stores append-only ledger entries
type LedgerRepository interface {
	// Record appends an entry, filling in its ID and CreatedAt
	Record(ctx context.Context, entry *entities.LedgerEntry) error

	// GetByWallet returns the most recent entries for a wallet, newest first
	GetByWallet(ctx context.Context, walletID int64, limit int) ([]*entities.LedgerEntry, error)

	// GetTrajectory returns every entry for a wallet in append order
	GetTrajectory(ctx context.Context, walletID int64) ([]*entities.LedgerEntry, error)

	// GetByCorrelationID returns all entries recorded for one business event
	GetByCorrelationID(ctx context.Context, correlationID string) ([]*entities.LedgerEntry, error)
}

// WithdrawalRepository stores withdrawal requests awaiting review
type WithdrawalRepository interface {
	// Create inserts a pending request
	Create(ctx context.Context, request *entities.WithdrawalRequest) error

	// GetByID retrieves a request, returning nil if it does not exist
	GetByID(ctx context.Context, id int64) (*entities.WithdrawalRequest, error)

	// TransitionStatus moves a request from one status to another, returning false if it was
	// not in the expected status
	TransitionStatus(ctx context.Context, id int64, from, to entities.WithdrawalStatus, reason *string) (bool, error)

	// GetPending returns requests still awaiting review, oldest first
	GetPending(ctx context.Context, limit int) ([]*entities.WithdrawalRequest, error)
}

// RaffleRepository stores raffles and performs the atomic ticket allocation
type RaffleRepository interface {
	// Create inserts a raffle, filling in its ID and timestamps
	Create(ctx context.Context, raffle *entities.Raffle) error

	// GetByID retrieves a raffle, returning nil if it does not exist
	GetByID(ctx context.Context, id int64) (*entities.Raffle, error)

	// Allocate atomically reserves quantity tickets and inserts their entries in one statement.
	// Returns nil entries when the raffle is not active or lacks capacity; nothing is reserved then.
	Allocate(ctx context.Context, raffleID, userID, quantity int64, orderID *string) (*entities.AllocationOutcome, error)

	// TransitionStatus moves a raffle to status `to` if it currently has one of `from`
	TransitionStatus(ctx context.Context, id int64, from []entities.RaffleStatus, to entities.RaffleStatus) (bool, error)

	// MarkCompleted records the winner and moves the raffle from expected to completed.
	// It refuses when sold_tickets no longer equals result.TotalEntries.
	MarkCompleted(ctx context.Context, id int64, expected entities.RaffleStatus, result *entities.DrawResult) (bool, error)

	// RevertDraw clears winner fields and restores the status the raffle had before the draw
	RevertDraw(ctx context.Context, id int64, previous entities.RaffleStatus) (bool, error)

	// GetDrawable returns sold-out raffles and active raffles whose draw time has passed
	GetDrawable(ctx context.Context, now time.Time) ([]*entities.Raffle, error)
}

// RaffleEntryRepository reads and flags issued tickets
type RaffleEntryRepository interface {
	// GetByRaffle returns every entry in draw order (created_at, then id)
	GetByRaffle(ctx context.Context, raffleID int64) ([]*entities.RaffleEntry, error)

	// GetByUser returns the entries a user holds in a raffle
	GetByUser(ctx context.Context, raffleID, userID int64) ([]*entities.RaffleEntry, error)

	// SetWinning sets or clears the winning flag on an entry
	SetWinning(ctx context.Context, entryID int64, winning bool) error

	// GetParticipants returns per-user ticket counts for a raffle
	GetParticipants(ctx context.Context, raffleID int64) ([]*entities.RaffleParticipant, error)
}

// DrawResultRepository stores the one committed result per raffle
type DrawResultRepository interface {
	// Create inserts the result; returns domain.ErrAlreadyDrawn if the raffle already has one
	Create(ctx context.Context, result *entities.DrawResult) error

	// GetByRaffle retrieves the result for a raffle, returning nil if it was not drawn
	GetByRaffle(ctx context.Context, raffleID int64) (*entities.DrawResult, error)

	// Delete removes a result during draw compensation
	Delete(ctx context.Context, id int64) error
}

// PrizeRepository stores prize pickup records
type PrizeRepository interface {
	// Create inserts the prize record for a drawn raffle
	Create(ctx context.Context, prize *entities.Prize) error

	// GetByRaffle retrieves the prize for a raffle, returning nil if none exists
	GetByRaffle(ctx context.Context, raffleID int64) (*entities.Prize, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// EventSubscriber lets the application layer react to domain events without
// depending on the transport
type EventSubscriber interface {
	Subscribe(eventType events.EventType, handler func(context.Context, events.Event) error) error
}
