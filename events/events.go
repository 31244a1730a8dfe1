package events

import (
	"github.com/shopspring/decimal"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChanged      EventType = "balance_changed"
	EventTypeWithdrawalRequested EventType = "withdrawal_requested"
	EventTypeWithdrawalReviewed  EventType = "withdrawal_reviewed"
	EventTypeTicketsAllocated    EventType = "tickets_allocated"
	EventTypeRaffleSoldOut       EventType = "raffle_sold_out"
	EventTypeRaffleDrawn         EventType = "raffle_drawn"
	EventTypeRaffleCancelled     EventType = "raffle_cancelled"
	EventTypeOperatorAlert       EventType = "operator_alert"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangedEvent is emitted for every wallet mutation that completed
type BalanceChangedEvent struct {
	WalletID        int64           `json:"wallet_id"`
	UserID          int64           `json:"user_id"`
	Kind            string          `json:"kind"`
	Currency        string          `json:"currency"`
	OldBalance      decimal.Decimal `json:"old_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	FrozenBalance   decimal.Decimal `json:"frozen_balance"`
	TransactionType string          `json:"transaction_type"`
	CorrelationID   string          `json:"correlation_id"`
}

func (e BalanceChangedEvent) Type() EventType {
	return EventTypeBalanceChanged
}

// WithdrawalRequestedEvent is emitted after funds are frozen for review
type WithdrawalRequestedEvent struct {
	RequestID int64           `json:"request_id"`
	WalletID  int64           `json:"wallet_id"`
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (e WithdrawalRequestedEvent) Type() EventType {
	return EventTypeWithdrawalRequested
}

// WithdrawalReviewedEvent is emitted after a request is approved or rejected
type WithdrawalReviewedEvent struct {
	RequestID int64           `json:"request_id"`
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

func (e WithdrawalReviewedEvent) Type() EventType {
	return EventTypeWithdrawalReviewed
}

// TicketsAllocatedEvent is emitted after participation codes are issued
type TicketsAllocatedEvent struct {
	RaffleID    int64   `json:"raffle_id"`
	UserID      int64   `json:"user_id"`
	Codes       []int64 `json:"codes"`
	SoldTickets int64   `json:"sold_tickets"`
}

func (e TicketsAllocatedEvent) Type() EventType {
	return EventTypeTicketsAllocated
}

// RaffleSoldOutEvent is emitted once, when the last ticket is allocated
type RaffleSoldOutEvent struct {
	RaffleID     int64 `json:"raffle_id"`
	TotalTickets int64 `json:"total_tickets"`
}

func (e RaffleSoldOutEvent) Type() EventType {
	return EventTypeRaffleSoldOut
}

// RaffleDrawnEvent is emitted after a winner is committed and paid
type RaffleDrawnEvent struct {
	RaffleID     int64           `json:"raffle_id"`
	WinningCode  int64           `json:"winning_code"`
	WinnerUserID int64           `json:"winner_user_id"`
	PrizeAmount  decimal.Decimal `json:"prize_amount"`
	TimestampSum string          `json:"timestamp_sum"`
	TotalEntries int64           `json:"total_entries"`
}

func (e RaffleDrawnEvent) Type() EventType {
	return EventTypeRaffleDrawn
}

// RaffleCancelledEvent is emitted after a raffle is cancelled and refunds are issued
type RaffleCancelledEvent struct {
	RaffleID      int64  `json:"raffle_id"`
	Reason        string `json:"reason"`
	RefundedUsers int    `json:"refunded_users"`
	FailedRefunds int    `json:"failed_refunds"`
}

func (e RaffleCancelledEvent) Type() EventType {
	return EventTypeRaffleCancelled
}

// AlertSeverity ranks operator alerts
type AlertSeverity string

const (
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// OperatorAlertEvent asks a human to look at the ledger or a stuck saga
type OperatorAlertEvent struct {
	Kind     string         `json:"kind"`
	Severity AlertSeverity  `json:"severity"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details"`
}

func (e OperatorAlertEvent) Type() EventType {
	return EventTypeOperatorAlert
}
