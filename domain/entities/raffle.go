package entities

import (
	"fmt"
	"time"

	"prizeledger/domain"

	"github.com/shopspring/decimal"
)

// RaffleStatus represents the lifecycle state of a raffle
type RaffleStatus string

const (
	RaffleStatusPending   RaffleStatus = "pending"
	RaffleStatusActive    RaffleStatus = "active"
	RaffleStatusSoldOut   RaffleStatus = "sold_out"
	RaffleStatusCompleted RaffleStatus = "completed"
	RaffleStatusCancelled RaffleStatus = "cancelled"
)

var raffleTransitions = map[RaffleStatus][]RaffleStatus{
	RaffleStatusPending: {RaffleStatusActive},
	RaffleStatusActive:  {RaffleStatusSoldOut, RaffleStatusCompleted, RaffleStatusCancelled},
	RaffleStatusSoldOut: {RaffleStatusCompleted, RaffleStatusCancelled},
}

// CanTransitionTo returns true if the lifecycle allows moving from s to next
func (s RaffleStatus) CanTransitionTo(next RaffleStatus) bool {
	for _, allowed := range raffleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true for completed and cancelled raffles
func (s RaffleStatus) IsTerminal() bool {
	return s == RaffleStatusCompleted || s == RaffleStatusCancelled
}

// Raffle is a fixed-capacity draw with a ticket price paid from one wallet kind
type Raffle struct {
	ID               int64           `db:"id"`
	Title            string          `db:"title"`
	TicketPrice      decimal.Decimal `db:"ticket_price"`
	WalletKind       WalletKind      `db:"wallet_kind"`
	Currency         string          `db:"currency"`
	TotalTickets     int64           `db:"total_tickets"`
	SoldTickets      int64           `db:"sold_tickets"`
	Status           RaffleStatus    `db:"status"`
	PrizeAmount      decimal.Decimal `db:"prize_amount"`
	PrizeWalletKind  WalletKind      `db:"prize_wallet_kind"`
	PrizeCurrency    string          `db:"prize_currency"`
	PrizeDescription *string         `db:"prize_description"`
	DrawTime         *time.Time      `db:"draw_time"`
	WinningCode      *int64          `db:"winning_code"`
	WinnerUserID     *int64          `db:"winner_user_id"`
	WinningEntryID   *int64          `db:"winning_entry_id"`
	DrawnAt          *time.Time      `db:"drawn_at"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// Validate checks a raffle definition before it is stored
func (r *Raffle) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidRaffle)
	}
	if !r.TicketPrice.IsPositive() {
		return fmt.Errorf("%w: ticket price must be positive", domain.ErrInvalidRaffle)
	}
	if r.TotalTickets <= 0 {
		return fmt.Errorf("%w: total tickets must be positive", domain.ErrInvalidRaffle)
	}
	if r.PrizeAmount.IsNegative() {
		return fmt.Errorf("%w: prize amount cannot be negative", domain.ErrInvalidRaffle)
	}
	if r.WalletKind == "" || r.Currency == "" {
		return fmt.Errorf("%w: wallet kind and currency are required", domain.ErrInvalidRaffle)
	}
	return nil
}

// RemainingTickets returns how many tickets can still be sold
func (r *Raffle) RemainingTickets() int64 {
	return r.TotalTickets - r.SoldTickets
}

// IsSoldOut returns true when every ticket has been allocated
func (r *Raffle) IsSoldOut() bool {
	return r.SoldTickets >= r.TotalTickets
}

// SalesOpen returns true while an active raffle has not reached its draw time.
// Sales close at the draw time so a forced draw sees every entry.
func (r *Raffle) SalesOpen(now time.Time) bool {
	if r.Status != RaffleStatusActive {
		return false
	}
	return r.DrawTime == nil || now.Before(*r.DrawTime)
}

// CheckAllocation validates a purchase of quantity tickets against the current snapshot.
// The allocator re-checks atomically; this only rejects obviously impossible requests early.
func (r *Raffle) CheckAllocation(quantity int64, now time.Time) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if !r.SalesOpen(now) {
		return domain.ErrRaffleNotActive
	}
	if quantity > r.RemainingTickets() {
		return domain.ErrSoldOut
	}
	return nil
}

// TicketCost returns the price of quantity tickets
func (r *Raffle) TicketCost(quantity int64) decimal.Decimal {
	return r.TicketPrice.Mul(decimal.NewFromInt(quantity))
}

// IsDrawable returns true if a draw may run now. Sold-out raffles are always drawable;
// active raffles only when forced past their scheduled draw time with at least one entry.
func (r *Raffle) IsDrawable(now time.Time, force bool) bool {
	switch r.Status {
	case RaffleStatusSoldOut:
		return true
	case RaffleStatusActive:
		return force && r.SoldTickets > 0 && r.DrawTime != nil && !now.Before(*r.DrawTime)
	default:
		return false
	}
}

// HasMonetaryPrize returns true if the winner is credited with funds
func (r *Raffle) HasMonetaryPrize() bool {
	return r.PrizeAmount.IsPositive()
}

// IsDrawn returns true if winner fields are set
func (r *Raffle) IsDrawn() bool {
	return r.WinningCode != nil && r.WinnerUserID != nil
}
