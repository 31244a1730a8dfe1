package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// RaffleEntry is one ticket held by a user in a raffle
type RaffleEntry struct {
	ID                int64     `db:"id"`
	RaffleID          int64     `db:"raffle_id"`
	UserID            int64     `db:"user_id"`
	ParticipationCode int64     `db:"participation_code"`
	OrderID           *string   `db:"order_id"`
	IsWinning         bool      `db:"is_winning"`
	CreatedAt         time.Time `db:"created_at"`
}

// RaffleParticipant summarizes the tickets one user holds in a raffle
type RaffleParticipant struct {
	UserID      int64 `db:"user_id"`
	TicketCount int64 `db:"ticket_count"`
}

// RefundAmount returns what the participant paid at the given ticket price
func (p *RaffleParticipant) RefundAmount(ticketPrice decimal.Decimal) decimal.Decimal {
	return ticketPrice.Mul(decimal.NewFromInt(p.TicketCount))
}

// ParticipationCodes extracts the codes from a set of entries
func ParticipationCodes(entries []*RaffleEntry) []int64 {
	codes := make([]int64, 0, len(entries))
	for _, entry := range entries {
		codes = append(codes, entry.ParticipationCode)
	}
	return codes
}

// AllocationOutcome is what one successful allocation produced
type AllocationOutcome struct {
	Entries      []*RaffleEntry
	SoldTickets  int64
	TotalTickets int64
	Status       RaffleStatus
}

// FilledRaffle returns true if this allocation sold the last ticket
func (o *AllocationOutcome) FilledRaffle() bool {
	return o.Status == RaffleStatusSoldOut
}
