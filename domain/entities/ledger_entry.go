package entities

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerStatus is the settlement state recorded with a ledger entry
type LedgerStatus string

const (
	LedgerStatusCompleted LedgerStatus = "completed"
	LedgerStatusPending   LedgerStatus = "pending"
	LedgerStatusFailed    LedgerStatus = "failed"
)

// LedgerEntry is an immutable record of one wallet mutation
type LedgerEntry struct {
	ID              int64           `db:"id"`
	WalletID        int64           `db:"wallet_id"`
	UserID          int64           `db:"user_id"`
	TransactionType TransactionType `db:"transaction_type"`
	Amount          decimal.Decimal `db:"amount"`
	BalanceBefore   decimal.Decimal `db:"balance_before"`
	BalanceAfter    decimal.Decimal `db:"balance_after"`
	FrozenBefore    decimal.Decimal `db:"frozen_before"`
	FrozenAfter     decimal.Decimal `db:"frozen_after"`
	Status          LedgerStatus    `db:"status"`
	CorrelationID   *string         `db:"correlation_id"`
	Metadata        map[string]any  `db:"metadata"`
	CreatedAt       time.Time       `db:"created_at"`
}

// NewLedgerEntry builds the entry describing the move from before to after
func NewLedgerEntry(before, after *Wallet, txType TransactionType, status LedgerStatus, correlationID string) *LedgerEntry {
	entry := &LedgerEntry{
		WalletID:        after.ID,
		UserID:          after.UserID,
		TransactionType: txType,
		Amount:          after.Balance.Sub(before.Balance),
		BalanceBefore:   before.Balance,
		BalanceAfter:    after.Balance,
		FrozenBefore:    before.FrozenBalance,
		FrozenAfter:     after.FrozenBalance,
		Status:          status,
		Metadata: map[string]any{
			"version": after.Version,
		},
	}
	if correlationID != "" {
		entry.CorrelationID = &correlationID
	}
	return entry
}

// Validate performs basic validation on the entry
func (e *LedgerEntry) Validate() error {
	if e.WalletID == 0 {
		return errors.New("wallet id is required")
	}
	if !e.BalanceAfter.Equal(e.BalanceBefore.Add(e.Amount)) {
		return errors.New("balance calculation is inconsistent")
	}
	switch e.Status {
	case LedgerStatusCompleted, LedgerStatusPending, LedgerStatusFailed:
	default:
		return errors.New("unknown ledger status")
	}
	return nil
}

// IsCredit returns true if the entry increased the balance
func (e *LedgerEntry) IsCredit() bool {
	return e.Amount.IsPositive()
}

// IsDebit returns true if the entry decreased the balance
func (e *LedgerEntry) IsDebit() bool {
	return e.Amount.IsNegative()
}

// FrozenChange returns the change in reserved funds recorded by the entry
func (e *LedgerEntry) FrozenChange() decimal.Decimal {
	return e.FrozenAfter.Sub(e.FrozenBefore)
}
