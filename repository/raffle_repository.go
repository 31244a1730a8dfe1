package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prizeledger/database"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const raffleColumns = `
	id, title, ticket_price, wallet_kind, currency, total_tickets, sold_tickets, status,
	prize_amount, prize_wallet_kind, prize_currency, prize_description, draw_time,
	winning_code, winner_user_id, winning_entry_id, drawn_at, created_at, updated_at`

// RaffleRepository stores raffles and allocates their tickets on PostgreSQL
type RaffleRepository struct {
	q Queryable
}

// NewRaffleRepository creates a new raffle repository
func NewRaffleRepository(db *database.DB) interfaces.RaffleRepository {
	return &RaffleRepository{q: db.Pool}
}

// Create inserts a raffle
func (r *RaffleRepository) Create(ctx context.Context, raffle *entities.Raffle) error {
	query := `
		INSERT INTO raffles (
			title, ticket_price, wallet_kind, currency, total_tickets, status,
			prize_amount, prize_wallet_kind, prize_currency, prize_description, draw_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, sold_tickets, created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		raffle.Title,
		raffle.TicketPrice,
		raffle.WalletKind,
		raffle.Currency,
		raffle.TotalTickets,
		raffle.Status,
		raffle.PrizeAmount,
		raffle.PrizeWalletKind,
		raffle.PrizeCurrency,
		raffle.PrizeDescription,
		raffle.DrawTime,
	).Scan(&raffle.ID, &raffle.SoldTickets, &raffle.CreatedAt, &raffle.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create raffle: %w", err)
	}
	return nil
}

// GetByID retrieves a raffle
func (r *RaffleRepository) GetByID(ctx context.Context, id int64) (*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + ` FROM raffles WHERE id = $1`

	raffle, err := scanRaffle(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle %d: %w", id, err)
	}
	return raffle, nil
}

// Allocate reserves quantity tickets and issues their entries in one statement. The guarded
// update serializes concurrent buyers on the raffle row, so codes never repeat or skip and the
// raffle flips to sold_out exactly when the last ticket goes. Sales close at draw_time.
func (r *RaffleRepository) Allocate(ctx context.Context, raffleID, userID, quantity int64, orderID *string) (*entities.AllocationOutcome, error) {
	query := `
		WITH reserved AS (
			UPDATE raffles
			SET sold_tickets = sold_tickets + $3::bigint,
				status = CASE
					WHEN sold_tickets + $3::bigint = total_tickets THEN 'sold_out'
					ELSE status
				END,
				updated_at = NOW()
			WHERE id = $1
				AND status = 'active'
				AND (draw_time IS NULL OR draw_time > NOW())
				AND sold_tickets + $3::bigint <= total_tickets
			RETURNING id, sold_tickets, total_tickets, status
		), issued AS (
			INSERT INTO raffle_entries (raffle_id, user_id, participation_code, order_id, created_at)
			SELECT reserved.id, $2, reserved.sold_tickets - $3::bigint + n, $4, clock_timestamp()
			FROM reserved, generate_series(1::bigint, $3::bigint) AS n
			RETURNING id, raffle_id, user_id, participation_code, order_id, is_winning, created_at
		)
		SELECT
			issued.id, issued.raffle_id, issued.user_id, issued.participation_code,
			issued.order_id, issued.is_winning, issued.created_at,
			reserved.sold_tickets, reserved.total_tickets, reserved.status
		FROM issued, reserved
		ORDER BY issued.participation_code`

	rows, err := r.q.Query(ctx, query, raffleID, userID, quantity, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate %d tickets in raffle %d: %w", quantity, raffleID, err)
	}
	defer rows.Close()

	outcome := &entities.AllocationOutcome{}
	for rows.Next() {
		var entry entities.RaffleEntry
		err := rows.Scan(
			&entry.ID,
			&entry.RaffleID,
			&entry.UserID,
			&entry.ParticipationCode,
			&entry.OrderID,
			&entry.IsWinning,
			&entry.CreatedAt,
			&outcome.SoldTickets,
			&outcome.TotalTickets,
			&outcome.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocated entry: %w", err)
		}
		outcome.Entries = append(outcome.Entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to allocate %d tickets in raffle %d: %w", quantity, raffleID, err)
	}

	if len(outcome.Entries) == 0 {
		return nil, nil
	}
	return outcome, nil
}

// TransitionStatus moves a raffle to `to` if its status is one of `from`
func (r *RaffleRepository) TransitionStatus(ctx context.Context, id int64, from []entities.RaffleStatus, to entities.RaffleStatus) (bool, error) {
	allowed := make([]string, len(from))
	for i, status := range from {
		allowed[i] = string(status)
	}

	query := `
		UPDATE raffles
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = ANY($2)`

	result, err := r.q.Exec(ctx, query, id, allowed, to)
	if err != nil {
		return false, fmt.Errorf("failed to move raffle %d to %s: %w", id, to, err)
	}
	return result.RowsAffected() == 1, nil
}

// MarkCompleted records the winner and completes the raffle if it is still in expected and
// no ticket was sold after the entries behind result were read
func (r *RaffleRepository) MarkCompleted(ctx context.Context, id int64, expected entities.RaffleStatus, result *entities.DrawResult) (bool, error) {
	query := `
		UPDATE raffles
		SET status = 'completed',
			winning_code = $3,
			winner_user_id = $4,
			winning_entry_id = $5,
			drawn_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status = $2 AND sold_tickets = $6`

	tag, err := r.q.Exec(ctx, query, id, expected,
		result.WinningCode, result.WinnerUserID, result.WinningEntryID, result.TotalEntries)
	if err != nil {
		return false, fmt.Errorf("failed to complete raffle %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RevertDraw restores a completed raffle to previous and clears its winner
func (r *RaffleRepository) RevertDraw(ctx context.Context, id int64, previous entities.RaffleStatus) (bool, error) {
	query := `
		UPDATE raffles
		SET status = $2,
			winning_code = NULL,
			winner_user_id = NULL,
			winning_entry_id = NULL,
			drawn_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status = 'completed'`

	tag, err := r.q.Exec(ctx, query, id, previous)
	if err != nil {
		return false, fmt.Errorf("failed to revert draw of raffle %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetDrawable returns sold-out raffles and active raffles with entries whose draw time has passed
func (r *RaffleRepository) GetDrawable(ctx context.Context, now time.Time) ([]*entities.Raffle, error) {
	query := `SELECT ` + raffleColumns + `
		FROM raffles
		WHERE status = 'sold_out'
			OR (status = 'active' AND sold_tickets > 0 AND draw_time <= $1)
		ORDER BY id`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get drawable raffles: %w", err)
	}
	defer rows.Close()

	var raffles []*entities.Raffle
	for rows.Next() {
		raffle, err := scanRaffle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raffle: %w", err)
		}
		raffles = append(raffles, raffle)
	}

	return raffles, rows.Err()
}

func scanRaffle(row pgx.Row) (*entities.Raffle, error) {
	var raffle entities.Raffle
	err := row.Scan(
		&raffle.ID,
		&raffle.Title,
		&raffle.TicketPrice,
		&raffle.WalletKind,
		&raffle.Currency,
		&raffle.TotalTickets,
		&raffle.SoldTickets,
		&raffle.Status,
		&raffle.PrizeAmount,
		&raffle.PrizeWalletKind,
		&raffle.PrizeCurrency,
		&raffle.PrizeDescription,
		&raffle.DrawTime,
		&raffle.WinningCode,
		&raffle.WinnerUserID,
		&raffle.WinningEntryID,
		&raffle.DrawnAt,
		&raffle.CreatedAt,
		&raffle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}
