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

// PrizeRepository stores prize records on PostgreSQL
type PrizeRepository struct {
	q Queryable
}

// NewPrizeRepository creates a new prize repository
func NewPrizeRepository(db *database.DB) interfaces.PrizeRepository {
	return &PrizeRepository{q: db.Pool}
}

// Create inserts the prize record for a drawn raffle
func (r *PrizeRepository) Create(ctx context.Context, prize *entities.Prize) error {
	query := `
		INSERT INTO prizes (raffle_id, draw_result_id, winner_user_id, wallet_id, amount, currency, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		prize.RaffleID,
		prize.DrawResultID,
		prize.WinnerUserID,
		prize.WalletID,
		prize.Amount,
		prize.Currency,
		prize.Status,
		prize.Description,
	).Scan(&prize.ID, &prize.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record prize for raffle %d: %w", prize.RaffleID, err)
	}
	return nil
}

// GetByRaffle retrieves the prize for a raffle
func (r *PrizeRepository) GetByRaffle(ctx context.Context, raffleID int64) (*entities.Prize, error) {
	query := `
		SELECT id, raffle_id, draw_result_id, winner_user_id, wallet_id, amount, currency, status, description, created_at
		FROM prizes
		WHERE raffle_id = $1`

	var prize entities.Prize
	err := r.q.QueryRow(ctx, query, raffleID).Scan(
		&prize.ID,
		&prize.RaffleID,
		&prize.DrawResultID,
		&prize.WinnerUserID,
		&prize.WalletID,
		&prize.Amount,
		&prize.Currency,
		&prize.Status,
		&prize.Description,
		&prize.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prize for raffle %d: %w", raffleID, err)
	}
	return &prize, nil
}
