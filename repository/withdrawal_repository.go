package repository

import (
	"context"
	"errors"
	"fmt"

	"prizeledger/database"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const withdrawalColumns = `id, wallet_id, user_id, amount, status, reason, correlation_id, created_at, reviewed_at`

// WithdrawalRepository stores withdrawal requests on PostgreSQL
type WithdrawalRepository struct {
	q Queryable
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *database.DB) interfaces.WithdrawalRepository {
	return &WithdrawalRepository{q: db.Pool}
}

// Create inserts a pending request
func (r *WithdrawalRepository) Create(ctx context.Context, request *entities.WithdrawalRequest) error {
	if request.Status == "" {
		request.Status = entities.WithdrawalStatusPending
	}

	query := `
		INSERT INTO withdrawal_requests (wallet_id, user_id, amount, status, reason, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		request.WalletID,
		request.UserID,
		request.Amount,
		request.Status,
		request.Reason,
		request.CorrelationID,
	).Scan(&request.ID, &request.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal request for wallet %d: %w", request.WalletID, err)
	}
	return nil
}

// GetByID retrieves a request
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*entities.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`

	request, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal request %d: %w", id, err)
	}
	return request, nil
}

// TransitionStatus moves a request from one status to another. Reopening a request clears its
// review timestamp.
func (r *WithdrawalRepository) TransitionStatus(ctx context.Context, id int64, from, to entities.WithdrawalStatus, reason *string) (bool, error) {
	query := `
		UPDATE withdrawal_requests
		SET status = $3,
			reason = COALESCE($4, reason),
			reviewed_at = CASE WHEN $3 = 'pending' THEN NULL ELSE NOW() END
		WHERE id = $1 AND status = $2`

	result, err := r.q.Exec(ctx, query, id, from, to, reason)
	if err != nil {
		return false, fmt.Errorf("failed to move withdrawal request %d to %s: %w", id, to, err)
	}
	return result.RowsAffected() == 1, nil
}

// GetPending returns requests still awaiting review, oldest first
func (r *WithdrawalRepository) GetPending(ctx context.Context, limit int) ([]*entities.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + `
		FROM withdrawal_requests
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending withdrawal requests: %w", err)
	}
	defer rows.Close()

	var requests []*entities.WithdrawalRequest
	for rows.Next() {
		request, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		requests = append(requests, request)
	}

	return requests, rows.Err()
}

func scanWithdrawal(row pgx.Row) (*entities.WithdrawalRequest, error) {
	var request entities.WithdrawalRequest
	err := row.Scan(
		&request.ID,
		&request.WalletID,
		&request.UserID,
		&request.Amount,
		&request.Status,
		&request.Reason,
		&request.CorrelationID,
		&request.CreatedAt,
		&request.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	return &request, nil
}
