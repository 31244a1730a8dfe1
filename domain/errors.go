package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Wallet and ledger errors
var (
	// ErrVersionConflict means the wallet changed since it was read; re-read and retry
	ErrVersionConflict = errors.New("wallet version conflict")

	// ErrInsufficientAvailable means balance minus frozen balance cannot cover the amount
	ErrInsufficientAvailable = errors.New("insufficient available balance")

	// ErrLedgerWriteFailed is a soft failure: the wallet mutation stands but the audit trail has a gap
	ErrLedgerWriteFailed = errors.New("ledger write failed")

	// ErrCompensationFailed means a saga could not undo a committed step and needs manual reconciliation
	ErrCompensationFailed = errors.New("compensation failed")

	// ErrRetryExhausted is returned when version conflicts persist after all retries
	ErrRetryExhausted = errors.New("too many concurrent updates, please retry")

	ErrWalletNotFound       = errors.New("wallet not found")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrSameWallet           = errors.New("source and target wallet must differ")
	ErrWithdrawalNotFound   = errors.New("withdrawal request not found")
	ErrWithdrawalNotPending = errors.New("withdrawal request is not pending")
)

// Raffle errors
var (
	// ErrSoldOut means the raffle cannot fit the requested quantity; nothing was reserved
	ErrSoldOut = errors.New("raffle sold out")

	// ErrAlreadyDrawn is an idempotent replay of a completed draw and is treated as success
	ErrAlreadyDrawn = errors.New("raffle already drawn")

	ErrRaffleNotFound    = errors.New("raffle not found")
	ErrRaffleNotActive   = errors.New("raffle is not accepting entries")
	ErrRaffleNotDrawable = errors.New("raffle is not ready to be drawn")
	ErrInvalidTransition = errors.New("invalid raffle status transition")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidRaffle     = errors.New("invalid raffle definition")
)

// CompensationError reports a saga step that failed and a compensation that could not undo
// an earlier step. State carries the before/after snapshot needed for manual reconciliation.
type CompensationError struct {
	Saga             string
	FailedStep       string
	CompensatingStep string
	Cause            error
	CompensationErr  error
	State            map[string]any
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("saga %s: step %s failed (%v) and compensation of %s failed: %v",
		e.Saga, e.FailedStep, e.Cause, e.CompensatingStep, e.CompensationErr)
}

// Unwrap exposes ErrCompensationFailed along with both underlying causes
func (e *CompensationError) Unwrap() []error {
	return []error{ErrCompensationFailed, e.Cause, e.CompensationErr}
}

// IsUserFacing reports whether err is an expected terminal state the end user should see as-is
func IsUserFacing(err error) bool {
	return errors.Is(err, ErrInsufficientAvailable) ||
		errors.Is(err, ErrSoldOut) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrRaffleNotActive)
}

// UserMessage maps an error to the text shown to end users. Version conflicts stay invisible
// unless retries ran out, and internal failures collapse to a generic message.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCompensationFailed):
		return "Something went wrong and support has been notified."
	case errors.Is(err, ErrInsufficientAvailable):
		return "Insufficient available balance."
	case errors.Is(err, ErrSoldOut):
		return "Sorry, there are not enough tickets left."
	case errors.Is(err, ErrRetryExhausted), errors.Is(err, ErrVersionConflict):
		return "The system is busy, please retry."
	case errors.Is(err, ErrInvalidAmount):
		return "Amount must be greater than zero."
	case errors.Is(err, ErrInvalidQuantity):
		return "Quantity must be greater than zero."
	case errors.Is(err, ErrSameWallet):
		return "Cannot exchange into the same wallet."
	case errors.Is(err, ErrWalletNotFound):
		return "Wallet not found."
	case errors.Is(err, ErrRaffleNotFound):
		return "Raffle not found."
	case errors.Is(err, ErrRaffleNotActive):
		return "This raffle is not open for entries."
	case errors.Is(err, ErrRaffleNotDrawable):
		return "This raffle is not ready to be drawn."
	case errors.Is(err, ErrWithdrawalNotFound):
		return "Withdrawal request not found."
	case errors.Is(err, ErrWithdrawalNotPending):
		return "This withdrawal request was already reviewed."
	case errors.Is(err, ErrInvalidTransition):
		return "The raffle changed state, please refresh."
	case errors.Is(err, ErrInvalidRaffle):
		return strings.TrimPrefix(err.Error(), ErrInvalidRaffle.Error()+": ")
	default:
		return "An unexpected error occurred, please retry."
	}
}
