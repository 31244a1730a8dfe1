package entities

import (
	"fmt"
	"time"

	"prizeledger/domain"

	"github.com/shopspring/decimal"
)

// WalletKind distinguishes the purpose of a wallet held in the same currency
type WalletKind string

const (
	WalletKindBalance    WalletKind = "balance"
	WalletKindPoints     WalletKind = "points"
	WalletKindCommission WalletKind = "commission"
)

// Wallet is a per-user, per-kind, per-currency balance record
type Wallet struct {
	ID               int64           `db:"id"`
	UserID           int64           `db:"user_id"`
	Kind             WalletKind      `db:"kind"`
	Currency         string          `db:"currency"`
	Balance          decimal.Decimal `db:"balance"`
	FrozenBalance    decimal.Decimal `db:"frozen_balance"`
	TotalDeposits    decimal.Decimal `db:"total_deposits"`
	TotalWithdrawals decimal.Decimal `db:"total_withdrawals"`
	Version          int64           `db:"version"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// Available returns the spendable part of the balance
func (w *Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.FrozenBalance)
}

// CanSpend returns true if the available balance covers amount
func (w *Wallet) CanSpend(amount decimal.Decimal) bool {
	return w.Available().GreaterThanOrEqual(amount)
}

// Validate checks the balance invariants
func (w *Wallet) Validate() error {
	if w.Balance.IsNegative() {
		return fmt.Errorf("%w: balance would be negative", domain.ErrInsufficientAvailable)
	}
	if w.FrozenBalance.IsNegative() {
		return fmt.Errorf("frozen balance cannot be negative")
	}
	if w.FrozenBalance.GreaterThan(w.Balance) {
		return fmt.Errorf("%w: frozen balance exceeds balance", domain.ErrInsufficientAvailable)
	}
	return nil
}

// Preview returns the wallet as it would look after delta, without mutating w
func (w *Wallet) Preview(delta WalletDelta) (*Wallet, error) {
	next := *w
	next.Balance = w.Balance.Add(delta.Balance)
	next.FrozenBalance = w.FrozenBalance.Add(delta.Frozen)
	next.TotalDeposits = w.TotalDeposits.Add(delta.Deposits)
	next.TotalWithdrawals = w.TotalWithdrawals.Add(delta.Withdrawals)
	next.Version = w.Version + 1

	if err := next.Validate(); err != nil {
		return nil, err
	}
	return &next, nil
}

// Owner returns the (user, kind, currency) identity of the wallet
func (w *Wallet) Owner() WalletOwner {
	return WalletOwner{UserID: w.UserID, Kind: w.Kind, Currency: w.Currency}
}

// WalletOwner identifies a wallet by its natural key
type WalletOwner struct {
	UserID   int64
	Kind     WalletKind
	Currency string
}

// WalletDelta is a signed change applied to a wallet in one compare-and-swap
type WalletDelta struct {
	Balance     decimal.Decimal
	Frozen      decimal.Decimal
	Deposits    decimal.Decimal
	Withdrawals decimal.Decimal
}

// CreditDelta adds amount to the balance
func CreditDelta(amount decimal.Decimal) WalletDelta {
	return WalletDelta{Balance: amount}
}

// DebitDelta removes amount from the balance
func DebitDelta(amount decimal.Decimal) WalletDelta {
	return WalletDelta{Balance: amount.Neg()}
}

// DepositDelta credits amount and counts it as a deposit
func DepositDelta(amount decimal.Decimal) WalletDelta {
	return WalletDelta{Balance: amount, Deposits: amount}
}

// FreezeDelta reserves amount without debiting it
func FreezeDelta(amount decimal.Decimal) WalletDelta {
	return WalletDelta{Frozen: amount}
}

// ReleaseDelta releases a reservation without debiting it
func ReleaseDelta(amount decimal.Decimal) WalletDelta {
	return WalletDelta{Frozen: amount.Neg()}
}

// SettleWithdrawalDelta debits amount and releases the matching reservation
func SettleWithdrawalDelta(amount decimal.Decimal) WalletDelta {
	return WalletDelta{Balance: amount.Neg(), Frozen: amount.Neg(), Withdrawals: amount}
}

// IsZero returns true if applying d would change nothing but the version
func (d WalletDelta) IsZero() bool {
	return d.Balance.IsZero() && d.Frozen.IsZero() && d.Deposits.IsZero() && d.Withdrawals.IsZero()
}
