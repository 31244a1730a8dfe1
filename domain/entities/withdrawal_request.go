package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the review state of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// WithdrawalRequest holds frozen funds until a reviewer approves or rejects it
type WithdrawalRequest struct {
	ID            int64            `db:"id"`
	WalletID      int64            `db:"wallet_id"`
	UserID        int64            `db:"user_id"`
	Amount        decimal.Decimal  `db:"amount"`
	Status        WithdrawalStatus `db:"status"`
	Reason        *string          `db:"reason"`
	CorrelationID string           `db:"correlation_id"`
	CreatedAt     time.Time        `db:"created_at"`
	ReviewedAt    *time.Time       `db:"reviewed_at"`
}

// IsPending returns true if the request still awaits review
func (w *WithdrawalRequest) IsPending() bool {
	return w.Status == WithdrawalStatusPending
}
