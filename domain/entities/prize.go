package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PrizeStatus describes how a prize reached the winner
type PrizeStatus string

const (
	// PrizeStatusCredited means the amount was paid into the winner's wallet
	PrizeStatusCredited PrizeStatus = "credited"
	// PrizeStatusAwaitingPickup means a physical prize waits to be collected
	PrizeStatusAwaitingPickup PrizeStatus = "awaiting_pickup"
)

// Prize is the pickup record created for a raffle winner
type Prize struct {
	ID           int64           `db:"id"`
	RaffleID     int64           `db:"raffle_id"`
	DrawResultID int64           `db:"draw_result_id"`
	WinnerUserID int64           `db:"winner_user_id"`
	WalletID     *int64          `db:"wallet_id"`
	Amount       decimal.Decimal `db:"amount"`
	Currency     string          `db:"currency"`
	Status       PrizeStatus     `db:"status"`
	Description  *string         `db:"description"`
	CreatedAt    time.Time       `db:"created_at"`
}
