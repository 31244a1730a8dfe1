package repository

import (
	"context"
	"errors"
	"fmt"

	"prizeledger/database"
	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const walletColumns = `
	id, user_id, kind, currency, balance, frozen_balance,
	total_deposits, total_withdrawals, version, created_at, updated_at`

// WalletRepository implements the wallet store on PostgreSQL
type WalletRepository struct {
	q Queryable
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *database.DB) interfaces.WalletRepository {
	return &WalletRepository{q: db.Pool}
}

// GetByID retrieves a wallet by ID
func (r *WalletRepository) GetByID(ctx context.Context, id int64) (*entities.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet %d: %w", id, err)
	}
	return wallet, nil
}

// GetByOwner retrieves the wallet a user holds for kind and currency
func (r *WalletRepository) GetByOwner(ctx context.Context, userID int64, kind entities.WalletKind, currency string) (*entities.Wallet, error) {
	query := `SELECT ` + walletColumns + `
		FROM wallets
		WHERE user_id = $1 AND kind = $2 AND currency = $3`

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, userID, kind, currency))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s wallet for user %d: %w", kind, currency, userID, err)
	}
	return wallet, nil
}

// GetByUser returns every wallet a user holds
func (r *WalletRepository) GetByUser(ctx context.Context, userID int64) ([]*entities.Wallet, error) {
	query := `SELECT ` + walletColumns + `
		FROM wallets
		WHERE user_id = $1
		ORDER BY id`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallets for user %d: %w", userID, err)
	}
	defer rows.Close()

	var wallets []*entities.Wallet
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, wallet)
	}

	return wallets, rows.Err()
}

// Create opens a wallet. Opening an existing (user, kind, currency) returns the stored wallet.
func (r *WalletRepository) Create(ctx context.Context, userID int64, kind entities.WalletKind, currency string) (*entities.Wallet, error) {
	// The no-op update makes RETURNING yield the existing row on conflict
	query := `
		INSERT INTO wallets (user_id, kind, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, kind, currency) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + walletColumns

	wallet, err := scanWallet(r.q.QueryRow(ctx, query, userID, kind, currency))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s/%s wallet for user %d: %w", kind, currency, userID, err)
	}
	return wallet, nil
}

// ApplyDelta applies delta in one statement guarded by the expected version. The table's
// check constraints reject any result that would break the balance invariants.
func (r *WalletRepository) ApplyDelta(ctx context.Context, walletID, expectedVersion int64, delta entities.WalletDelta) (*entities.Wallet, error) {
	if delta.IsZero() {
		return nil, fmt.Errorf("%w: empty delta for wallet %d", domain.ErrInvalidAmount, walletID)
	}

	query := `
		UPDATE wallets
		SET balance = balance + $3,
			frozen_balance = frozen_balance + $4,
			total_deposits = total_deposits + $5,
			total_withdrawals = total_withdrawals + $6,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING ` + walletColumns

	wallet, err := scanWallet(r.q.QueryRow(ctx, query,
		walletID,
		expectedVersion,
		delta.Balance,
		delta.Frozen,
		delta.Deposits,
		delta.Withdrawals,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missedVersion(ctx, walletID)
	}
	if constraint, ok := constraintViolation(err, pgCheckViolation); ok {
		return nil, fmt.Errorf("%w: wallet %d violates %s", domain.ErrInsufficientAvailable, walletID, constraint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update wallet %d: %w", walletID, err)
	}
	return wallet, nil
}

// missedVersion tells a stale version apart from a wallet that does not exist
func (r *WalletRepository) missedVersion(ctx context.Context, walletID int64) error {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, walletID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check wallet %d: %w", walletID, err)
	}
	if !exists {
		return domain.ErrWalletNotFound
	}
	return domain.ErrVersionConflict
}

func scanWallet(row pgx.Row) (*entities.Wallet, error) {
	var wallet entities.Wallet
	err := row.Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.Kind,
		&wallet.Currency,
		&wallet.Balance,
		&wallet.FrozenBalance,
		&wallet.TotalDeposits,
		&wallet.TotalWithdrawals,
		&wallet.Version,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}
