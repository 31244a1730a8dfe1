package api

import (
	"time"

	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/domain/services"

	"github.com/shopspring/decimal"
)

type amountRequest struct {
	Amount      string `json:"amount"`
	ReferenceID string `json:"referenceId"`
}

type reviewRequest struct {
	Reason string `json:"reason"`
}

type ticketsRequest struct {
	Quantity int64  `json:"quantity"`
	OrderID  string `json:"orderId"`
}

type drawRequest struct {
	Force bool `json:"force"`
}

type createRaffleRequest struct {
	Title            string     `json:"title"`
	TicketPrice      string     `json:"ticketPrice"`
	WalletKind       string     `json:"walletKind"`
	Currency         string     `json:"currency"`
	TotalTickets     int64      `json:"totalTickets"`
	PrizeAmount      string     `json:"prizeAmount"`
	PrizeWalletKind  string     `json:"prizeWalletKind"`
	PrizeCurrency    string     `json:"prizeCurrency"`
	PrizeDescription *string    `json:"prizeDescription"`
	DrawTime         *time.Time `json:"drawTime"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// WalletDTO is the wire form of a wallet
type WalletDTO struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	Kind          string          `json:"kind"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	FrozenBalance decimal.Decimal `json:"frozenBalance"`
	Available     decimal.Decimal `json:"available"`
	Version       int64           `json:"version"`
}

// LedgerEntryDTO is the wire form of a ledger entry
type LedgerEntryDTO struct {
	ID              int64           `json:"id"`
	WalletID        int64           `json:"walletId"`
	TransactionType string          `json:"transactionType"`
	Amount          decimal.Decimal `json:"amount"`
	BalanceBefore   decimal.Decimal `json:"balanceBefore"`
	BalanceAfter    decimal.Decimal `json:"balanceAfter"`
	FrozenBefore    decimal.Decimal `json:"frozenBefore"`
	FrozenAfter     decimal.Decimal `json:"frozenAfter"`
	Status          string          `json:"status"`
	CorrelationID   *string         `json:"correlationId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// BalanceResponse answers single-wallet operations
type BalanceResponse struct {
	NewBalance        decimal.Decimal `json:"newBalance"`
	Wallet            WalletDTO       `json:"wallet"`
	LedgerEntry       *LedgerEntryDTO `json:"ledgerEntry,omitempty"`
	CorrelationID     string          `json:"correlationId"`
	LedgerWriteFailed bool            `json:"ledgerWriteFailed,omitempty"`
}

// WithdrawalResponse answers freeze, approve and reject
type WithdrawalResponse struct {
	RequestID         int64           `json:"requestId"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	NewBalance        decimal.Decimal `json:"newBalance"`
	FrozenBalance     decimal.Decimal `json:"frozenBalance"`
	LedgerWriteFailed bool            `json:"ledgerWriteFailed,omitempty"`
}

// ExchangeResponse answers an exchange
type ExchangeResponse struct {
	SourceBalance     decimal.Decimal `json:"sourceBalance"`
	TargetBalance     decimal.Decimal `json:"targetBalance"`
	SourceAmount      decimal.Decimal `json:"sourceAmount"`
	TargetAmount      decimal.Decimal `json:"targetAmount"`
	CorrelationID     string          `json:"correlationId"`
	LedgerWriteFailed bool            `json:"ledgerWriteFailed,omitempty"`
}

// AllocationResponse answers an allocation
type AllocationResponse struct {
	RaffleID    int64   `json:"raffleId"`
	Codes       []int64 `json:"codes"`
	SoldTickets int64   `json:"soldTickets"`
	SoldOut     bool    `json:"soldOut"`
}

// PurchaseResponse answers a paid allocation
type PurchaseResponse struct {
	OrderID    string             `json:"orderId"`
	Allocation AllocationResponse `json:"allocation"`
	NewBalance decimal.Decimal    `json:"newBalance"`
}

// DrawResponse answers a draw
type DrawResponse struct {
	RaffleID     int64           `json:"raffleId"`
	WinningCode  int64           `json:"winningCode"`
	WinnerUserID int64           `json:"winnerUserId"`
	AlreadyDrawn bool            `json:"alreadyDrawn"`
	TimestampSum string          `json:"timestampSum,omitempty"`
	TotalEntries int64           `json:"totalEntries,omitempty"`
	PrizeStatus  string          `json:"prizeStatus,omitempty"`
	PrizeValue   decimal.Decimal `json:"prizeValue"`
}

// RaffleDTO is the wire form of a raffle
type RaffleDTO struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Status       string          `json:"status"`
	TicketPrice  decimal.Decimal `json:"ticketPrice"`
	Currency     string          `json:"currency"`
	TotalTickets int64           `json:"totalTickets"`
	SoldTickets  int64           `json:"soldTickets"`
	PrizeAmount  decimal.Decimal `json:"prizeAmount"`
	DrawTime     *time.Time      `json:"drawTime,omitempty"`
	WinningCode  *int64          `json:"winningCode,omitempty"`
	WinnerUserID *int64          `json:"winnerUserId,omitempty"`
}

// CancelResponse answers a cancellation
type CancelResponse struct {
	Raffle        RaffleDTO `json:"raffle"`
	RefundedUsers []int64   `json:"refundedUsers"`
	FailedUsers   []int64   `json:"failedUsers"`
}

// ReconciliationResponse reports a wallet's ledger consistency
type ReconciliationResponse struct {
	WalletID      int64           `json:"walletId"`
	Balance       decimal.Decimal `json:"balance"`
	LedgerBalance decimal.Decimal `json:"ledgerBalance"`
	EntryCount    int             `json:"entryCount"`
	Gaps          []int64         `json:"gapEntryIds"`
	Invalid       []int64         `json:"invalidEntryIds"`
	Consistent    bool            `json:"consistent"`
}

func toWalletDTO(w *entities.Wallet) WalletDTO {
	return WalletDTO{
		ID:            w.ID,
		UserID:        w.UserID,
		Kind:          string(w.Kind),
		Currency:      w.Currency,
		Balance:       w.Balance,
		FrozenBalance: w.FrozenBalance,
		Available:     w.Available(),
		Version:       w.Version,
	}
}

func toWalletDTOs(wallets []*entities.Wallet) []WalletDTO {
	out := make([]WalletDTO, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, toWalletDTO(w))
	}
	return out
}

func toLedgerEntryDTO(e *entities.LedgerEntry) *LedgerEntryDTO {
	if e == nil {
		return nil
	}
	return &LedgerEntryDTO{
		ID:              e.ID,
		WalletID:        e.WalletID,
		TransactionType: string(e.TransactionType),
		Amount:          e.Amount,
		BalanceBefore:   e.BalanceBefore,
		BalanceAfter:    e.BalanceAfter,
		FrozenBefore:    e.FrozenBefore,
		FrozenAfter:     e.FrozenAfter,
		Status:          string(e.Status),
		CorrelationID:   e.CorrelationID,
		CreatedAt:       e.CreatedAt,
	}
}

func toBalanceResponse(result *interfaces.BalanceResult) BalanceResponse {
	return BalanceResponse{
		NewBalance:        result.Wallet.Balance,
		Wallet:            toWalletDTO(result.Wallet),
		LedgerEntry:       toLedgerEntryDTO(result.LedgerEntry),
		CorrelationID:     result.CorrelationID,
		LedgerWriteFailed: result.LedgerWriteFailed,
	}
}

func toWithdrawalResponse(result *interfaces.WithdrawalResult) WithdrawalResponse {
	return WithdrawalResponse{
		RequestID:         result.Request.ID,
		Status:            string(result.Request.Status),
		Amount:            result.Request.Amount,
		NewBalance:        result.Wallet.Balance,
		FrozenBalance:     result.Wallet.FrozenBalance,
		LedgerWriteFailed: result.LedgerWriteFailed,
	}
}

func toAllocationResponse(result *interfaces.AllocationResult) AllocationResponse {
	return AllocationResponse{
		RaffleID:    result.RaffleID,
		Codes:       result.Codes,
		SoldTickets: result.SoldTickets,
		SoldOut:     result.SoldOut,
	}
}

func toRaffleDTO(r *entities.Raffle) RaffleDTO {
	return RaffleDTO{
		ID:           r.ID,
		Title:        r.Title,
		Status:       string(r.Status),
		TicketPrice:  r.TicketPrice,
		Currency:     r.Currency,
		TotalTickets: r.TotalTickets,
		SoldTickets:  r.SoldTickets,
		PrizeAmount:  r.PrizeAmount,
		DrawTime:     r.DrawTime,
		WinningCode:  r.WinningCode,
		WinnerUserID: r.WinnerUserID,
	}
}

func toDrawResponse(raffleID int64, outcome *interfaces.DrawOutcome) DrawResponse {
	resp := DrawResponse{
		RaffleID:     raffleID,
		WinningCode:  outcome.WinningCode,
		WinnerUserID: outcome.WinnerUserID,
		AlreadyDrawn: outcome.AlreadyDrawn,
		PrizeValue:   services.PrizeValue(outcome.Prize),
	}
	if outcome.Result != nil {
		resp.TimestampSum = outcome.Result.TimestampSum
		resp.TotalEntries = outcome.Result.TotalEntries
	}
	if outcome.Prize != nil {
		resp.PrizeStatus = string(outcome.Prize.Status)
	}
	return resp
}

func toReconciliationResponse(report *interfaces.ReconciliationReport) ReconciliationResponse {
	gaps := make([]int64, 0, len(report.Gaps))
	for _, gap := range report.Gaps {
		gaps = append(gaps, gap.EntryID)
	}
	invalid := report.Invalid
	if invalid == nil {
		invalid = []int64{}
	}
	return ReconciliationResponse{
		WalletID:      report.WalletID,
		Balance:       report.Balance,
		LedgerBalance: report.LedgerBalance,
		EntryCount:    report.EntryCount,
		Gaps:          gaps,
		Invalid:       invalid,
		Consistent:    report.Consistent,
	}
}
