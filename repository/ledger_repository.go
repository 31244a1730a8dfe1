package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"prizeledger/database"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `
	id, wallet_id, user_id, transaction_type, amount, balance_before, balance_after,
	frozen_before, frozen_after, status, correlation_id, metadata, created_at`

// LedgerRepository implements the append-only ledger on PostgreSQL
type LedgerRepository struct {
	q Queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) interfaces.LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// Record appends an entry
func (r *LedgerRepository) Record(ctx context.Context, entry *entities.LedgerEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger metadata: %w", err)
	}
	if entry.Metadata == nil {
		metadata = []byte("{}")
	}

	query := `
		INSERT INTO ledger_entries (
			wallet_id, user_id, transaction_type, amount, balance_before, balance_after,
			frozen_before, frozen_after, status, correlation_id, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err = r.q.QueryRow(ctx, query,
		entry.WalletID,
		entry.UserID,
		entry.TransactionType,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.FrozenBefore,
		entry.FrozenAfter,
		entry.Status,
		entry.CorrelationID,
		metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record %s entry for wallet %d: %w", entry.TransactionType, entry.WalletID, err)
	}

	return nil
}

// GetByWallet returns the most recent entries for a wallet, newest first
func (r *LedgerRepository) GetByWallet(ctx context.Context, walletID int64, limit int) ([]*entities.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE wallet_id = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for wallet %d: %w", walletID, err)
	}
	return collectLedgerEntries(rows)
}

// GetTrajectory returns every entry for a wallet in the order the wallet passed through them.
// Entries are appended after their saga resolves, so id order can differ from version order.
func (r *LedgerRepository) GetTrajectory(ctx context.Context, walletID int64) ([]*entities.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE wallet_id = $1
		ORDER BY (metadata->>'version')::bigint NULLS FIRST, id`

	rows, err := r.q.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger trajectory for wallet %d: %w", walletID, err)
	}
	return collectLedgerEntries(rows)
}

// GetByCorrelationID returns all entries recorded for one business event
func (r *LedgerRepository) GetByCorrelationID(ctx context.Context, correlationID string) ([]*entities.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE correlation_id = $1
		ORDER BY id`

	rows, err := r.q.Query(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for correlation %s: %w", correlationID, err)
	}
	return collectLedgerEntries(rows)
}

func collectLedgerEntries(rows pgx.Rows) ([]*entities.LedgerEntry, error) {
	defer rows.Close()

	var entries []*entities.LedgerEntry
	for rows.Next() {
		var entry entities.LedgerEntry
		var metadata []byte
		err := rows.Scan(
			&entry.ID,
			&entry.WalletID,
			&entry.UserID,
			&entry.TransactionType,
			&entry.Amount,
			&entry.BalanceBefore,
			&entry.BalanceAfter,
			&entry.FrozenBefore,
			&entry.FrozenAfter,
			&entry.Status,
			&entry.CorrelationID,
			&metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for entry %d: %w", entry.ID, err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
