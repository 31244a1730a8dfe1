package repository

import (
	"context"
	"fmt"

	"prizeledger/database"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const entryColumns = `id, raffle_id, user_id, participation_code, order_id, is_winning, created_at`

// RaffleEntryRepository reads and flags issued tickets on PostgreSQL
type RaffleEntryRepository struct {
	q Queryable
}

// NewRaffleEntryRepository creates a new raffle entry repository
func NewRaffleEntryRepository(db *database.DB) interfaces.RaffleEntryRepository {
	return &RaffleEntryRepository{q: db.Pool}
}

// GetByRaffle returns every entry in draw order
func (r *RaffleEntryRepository) GetByRaffle(ctx context.Context, raffleID int64) ([]*entities.RaffleEntry, error) {
	query := `SELECT ` + entryColumns + `
		FROM raffle_entries
		WHERE raffle_id = $1
		ORDER BY created_at, id`

	rows, err := r.q.Query(ctx, query, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for raffle %d: %w", raffleID, err)
	}
	return collectEntries(rows)
}

// GetByUser returns the entries a user holds in a raffle
func (r *RaffleEntryRepository) GetByUser(ctx context.Context, raffleID, userID int64) ([]*entities.RaffleEntry, error) {
	query := `SELECT ` + entryColumns + `
		FROM raffle_entries
		WHERE raffle_id = $1 AND user_id = $2
		ORDER BY participation_code`

	rows, err := r.q.Query(ctx, query, raffleID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for user %d in raffle %d: %w", userID, raffleID, err)
	}
	return collectEntries(rows)
}

// SetWinning sets or clears the winning flag on an entry
func (r *RaffleEntryRepository) SetWinning(ctx context.Context, entryID int64, winning bool) error {
	tag, err := r.q.Exec(ctx, `UPDATE raffle_entries SET is_winning = $2 WHERE id = $1`, entryID, winning)
	if err != nil {
		return fmt.Errorf("failed to flag entry %d: %w", entryID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("raffle entry %d not found", entryID)
	}
	return nil
}

// GetParticipants returns how many tickets each user holds in a raffle
func (r *RaffleEntryRepository) GetParticipants(ctx context.Context, raffleID int64) ([]*entities.RaffleParticipant, error) {
	query := `
		SELECT user_id, COUNT(*) AS ticket_count
		FROM raffle_entries
		WHERE raffle_id = $1
		GROUP BY user_id
		ORDER BY user_id`

	rows, err := r.q.Query(ctx, query, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants for raffle %d: %w", raffleID, err)
	}
	defer rows.Close()

	var participants []*entities.RaffleParticipant
	for rows.Next() {
		var participant entities.RaffleParticipant
		if err := rows.Scan(&participant.UserID, &participant.TicketCount); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, &participant)
	}

	return participants, rows.Err()
}

func collectEntries(rows pgx.Rows) ([]*entities.RaffleEntry, error) {
	defer rows.Close()

	var entries []*entities.RaffleEntry
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
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan raffle entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
