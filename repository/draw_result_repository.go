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

// DrawResultRepository stores the single committed draw per raffle on PostgreSQL
type DrawResultRepository struct {
	q Queryable
}

// NewDrawResultRepository creates a new draw result repository
func NewDrawResultRepository(db *database.DB) interfaces.DrawResultRepository {
	return &DrawResultRepository{q: db.Pool}
}

// Create inserts the result. The unique raffle constraint is what makes concurrent draws agree.
func (r *DrawResultRepository) Create(ctx context.Context, result *entities.DrawResult) error {
	query := `
		INSERT INTO draw_results (
			raffle_id, winning_entry_id, winning_code, winner_user_id,
			winning_index, total_entries, timestamp_sum
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		result.RaffleID,
		result.WinningEntryID,
		result.WinningCode,
		result.WinnerUserID,
		result.WinningIndex,
		result.TotalEntries,
		result.TimestampSum,
	).Scan(&result.ID, &result.CreatedAt)
	if _, ok := constraintViolation(err, pgUniqueViolation); ok {
		return domain.ErrAlreadyDrawn
	}
	if err != nil {
		return fmt.Errorf("failed to record draw result for raffle %d: %w", result.RaffleID, err)
	}
	return nil
}

// GetByRaffle retrieves the result for a raffle
func (r *DrawResultRepository) GetByRaffle(ctx context.Context, raffleID int64) (*entities.DrawResult, error) {
	query := `
		SELECT id, raffle_id, winning_entry_id, winning_code, winner_user_id,
			winning_index, total_entries, timestamp_sum::text, created_at
		FROM draw_results
		WHERE raffle_id = $1`

	var result entities.DrawResult
	err := r.q.QueryRow(ctx, query, raffleID).Scan(
		&result.ID,
		&result.RaffleID,
		&result.WinningEntryID,
		&result.WinningCode,
		&result.WinnerUserID,
		&result.WinningIndex,
		&result.TotalEntries,
		&result.TimestampSum,
		&result.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result for raffle %d: %w", raffleID, err)
	}
	return &result, nil
}

// Delete removes a result while a failed draw is rolled back
func (r *DrawResultRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM draw_results WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete draw result %d: %w", id, err)
	}
	return nil
}
