package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/domain/utils"

	"github.com/shopspring/decimal"
)

var errBadBody = errors.New("invalid request body")

// Services is everything the HTTP surface calls into
type Services struct {
	Wallets    interfaces.WalletService
	Transfers  interfaces.TransferCoordinator
	Allocator  interfaces.TicketAllocator
	Purchases  interfaces.PurchaseService
	Raffles    interfaces.RaffleService
	Draws      interfaces.DrawEngine
	Reconciler interfaces.Reconciler
	// Health checks run on every /healthz request, keyed by dependency name
	Health map[string]HealthCheck
}

// Handler exposes the ledger and raffle operations over HTTP
type Handler struct {
	svc Services
}

// NewHandler creates a new handler
func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc}
}

// decodeBody reads a JSON body into v. An empty body leaves v at its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

// OpenAccount handles POST /accounts
func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	wallets, err := h.svc.Wallets.OpenAccount(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWalletDTOs(wallets))
}

// GetMyWallets handles GET /users/me/wallets
func (h *Handler) GetMyWallets(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	wallets, err := h.svc.Wallets.GetUserWallets(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTOs(wallets))
}

// GetWallet handles GET /wallets/{walletID}
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	walletID, err := pathID(r, "walletID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	wallet, err := h.svc.Wallets.GetWallet(r.Context(), walletID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(wallet))
}

// GetLedger handles GET /wallets/{walletID}/ledger?limit=N
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	walletID, err := pathID(r, "walletID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeError(w, r, fmt.Errorf("%w: limit must be an integer", errBadBody))
			return
		}
	}

	entries, err := h.svc.Wallets.GetLedger(r.Context(), walletID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]*LedgerEntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toLedgerEntryDTO(entry))
	}
	writeJSON(w, http.StatusOK, out)
}

// walletAmount reads the wallet id and the amount request shared by single-wallet operations
func walletAmount(w http.ResponseWriter, r *http.Request) (int64, decimal.Decimal, string, error) {
	walletID, err := pathID(r, "walletID")
	if err != nil {
		return 0, decimal.Zero, "", err
	}

	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		return 0, decimal.Zero, "", err
	}

	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		return 0, decimal.Zero, "", err
	}
	return walletID, amount, strings.TrimSpace(req.ReferenceID), nil
}

// balanceOperation serves an endpoint that moves funds on one wallet
func (h *Handler) balanceOperation(
	op func(r *http.Request, walletID int64, amount decimal.Decimal, ref string) (*interfaces.BalanceResult, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		walletID, amount, ref, err := walletAmount(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		result, err := op(r, walletID, amount, ref)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toBalanceResponse(result))
	}
}

// Deposit handles POST /wallets/{walletID}/deposits
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.balanceOperation(func(r *http.Request, walletID int64, amount decimal.Decimal, ref string) (*interfaces.BalanceResult, error) {
		return h.svc.Transfers.Deposit(r.Context(), walletID, amount, ref)
	})(w, r)
}

// DebitForPurchase handles POST /wallets/{walletID}/debits, referenceId is the order id
func (h *Handler) DebitForPurchase(w http.ResponseWriter, r *http.Request) {
	h.balanceOperation(func(r *http.Request, walletID int64, amount decimal.Decimal, ref string) (*interfaces.BalanceResult, error) {
		return h.svc.Transfers.DebitForPurchase(r.Context(), walletID, amount, ref)
	})(w, r)
}

// CreditPrize handles POST /wallets/{walletID}/prizes, referenceId is the prize id
func (h *Handler) CreditPrize(w http.ResponseWriter, r *http.Request) {
	h.balanceOperation(func(r *http.Request, walletID int64, amount decimal.Decimal, ref string) (*interfaces.BalanceResult, error) {
		return h.svc.Transfers.CreditPrize(r.Context(), walletID, amount, ref)
	})(w, r)
}

// CreditCommission handles POST /wallets/{walletID}/commissions
func (h *Handler) CreditCommission(w http.ResponseWriter, r *http.Request) {
	h.balanceOperation(func(r *http.Request, walletID int64, amount decimal.Decimal, ref string) (*interfaces.BalanceResult, error) {
		return h.svc.Transfers.CreditCommission(r.Context(), walletID, amount, ref)
	})(w, r)
}

// RequestWithdrawal handles POST /wallets/{walletID}/withdrawals and freezes the amount
func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	walletID, amount, ref, err := walletAmount(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.Transfers.FreezeWithdrawal(r.Context(), walletID, amount, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWithdrawalResponse(result))
}

// ApproveWithdrawal handles POST /withdrawals/{requestID}/approve
func (h *Handler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r, "requestID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.Transfers.ApproveWithdrawal(r.Context(), requestID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWithdrawalResponse(result))
}

// RejectWithdrawal handles POST /withdrawals/{requestID}/reject
func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r, "requestID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req reviewRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.Transfers.RejectWithdrawal(r.Context(), requestID, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWithdrawalResponse(result))
}

// Exchange handles POST /exchanges for the calling user
func (h *Handler) Exchange(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.Transfers.Exchange(r.Context(), uid, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExchangeResponse{
		SourceBalance:     result.Source.Balance,
		TargetBalance:     result.Target.Balance,
		SourceAmount:      result.SourceAmount,
		TargetAmount:      result.TargetAmount,
		CorrelationID:     result.CorrelationID,
		LedgerWriteFailed: result.LedgerWriteFailed,
	})
}

// Reconcile handles GET /wallets/{walletID}/reconciliation
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	walletID, err := pathID(r, "walletID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := h.svc.Reconciler.Reconcile(r.Context(), walletID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciliationResponse(report))
}

// CreateRaffle handles POST /raffles
func (h *Handler) CreateRaffle(w http.ResponseWriter, r *http.Request) {
	var req createRaffleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	price, err := utils.ParseAmount(req.TicketPrice)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: ticket price: %v", domain.ErrInvalidRaffle, err))
		return
	}
	prize := decimal.Zero
	if strings.TrimSpace(req.PrizeAmount) != "" {
		if prize, err = decimal.NewFromString(strings.TrimSpace(req.PrizeAmount)); err != nil {
			writeError(w, r, fmt.Errorf("%w: prize amount is not a number", domain.ErrInvalidRaffle))
			return
		}
	}

	raffle, err := h.svc.Raffles.CreateRaffle(r.Context(), interfaces.CreateRaffleParams{
		Title:            req.Title,
		TicketPrice:      price,
		WalletKind:       entities.WalletKind(req.WalletKind),
		Currency:         req.Currency,
		TotalTickets:     req.TotalTickets,
		PrizeAmount:      prize,
		PrizeWalletKind:  entities.WalletKind(req.PrizeWalletKind),
		PrizeCurrency:    req.PrizeCurrency,
		PrizeDescription: req.PrizeDescription,
		DrawTime:         req.DrawTime,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRaffleDTO(raffle))
}

// GetRaffle handles GET /raffles/{raffleID}
func (h *Handler) GetRaffle(w http.ResponseWriter, r *http.Request) {
	raffleID, err := pathID(r, "raffleID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	raffle, err := h.svc.Raffles.GetRaffle(r.Context(), raffleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRaffleDTO(raffle))
}

// ActivateRaffle handles POST /raffles/{raffleID}/activate
func (h *Handler) ActivateRaffle(w http.ResponseWriter, r *http.Request) {
	raffleID, err := pathID(r, "raffleID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	raffle, err := h.svc.Raffles.ActivateRaffle(r.Context(), raffleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRaffleDTO(raffle))
}

// CancelRaffle handles POST /raffles/{raffleID}/cancel
func (h *Handler) CancelRaffle(w http.ResponseWriter, r *http.Request) {
	raffleID, err := pathID(r, "raffleID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req cancelRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.Raffles.CancelRaffle(r.Context(), raffleID, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := CancelResponse{
		Raffle:        toRaffleDTO(result.Raffle),
		RefundedUsers: result.RefundedUsers,
		FailedUsers:   result.FailedUsers,
	}
	if resp.RefundedUsers == nil {
		resp.RefundedUsers = []int64{}
	}
	if resp.FailedUsers == nil {
		resp.FailedUsers = []int64{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ticketsParams reads the caller, raffle and ticket request shared by allocation and purchase
func ticketsParams(w http.ResponseWriter, r *http.Request) (int64, int64, ticketsRequest, error) {
	uid, err := userID(r)
	if err != nil {
		return 0, 0, ticketsRequest{}, err
	}
	raffleID, err := pathID(r, "raffleID")
	if err != nil {
		return 0, 0, ticketsRequest{}, err
	}

	var req ticketsRequest
	if err := decodeBody(w, r, &req); err != nil {
		return 0, 0, ticketsRequest{}, err
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	return uid, raffleID, req, nil
}

// AllocateTickets handles POST /raffles/{raffleID}/allocations for an already paid order
func (h *Handler) AllocateTickets(w http.ResponseWriter, r *http.Request) {
	uid, raffleID, req, err := ticketsParams(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.Allocator.AllocateTickets(r.Context(), raffleID, uid, req.Quantity, req.OrderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllocationResponse(result))
}

// PurchaseTickets handles POST /raffles/{raffleID}/purchases, charging the caller's wallet
func (h *Handler) PurchaseTickets(w http.ResponseWriter, r *http.Request) {
	uid, raffleID, req, err := ticketsParams(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.Purchases.PurchaseTickets(r.Context(), uid, raffleID, req.Quantity, req.OrderID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := PurchaseResponse{
		OrderID:    result.OrderID,
		Allocation: toAllocationResponse(result.Allocation),
	}
	if result.Payment != nil && result.Payment.Wallet != nil {
		resp.NewBalance = result.Payment.Wallet.Balance
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Draw handles POST /raffles/{raffleID}/draw. Drawing twice returns the committed result.
func (h *Handler) Draw(w http.ResponseWriter, r *http.Request) {
	raffleID, err := pathID(r, "raffleID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req drawRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	outcome, err := h.svc.Draws.Draw(r.Context(), raffleID, interfaces.DrawOptions{Force: req.Force})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDrawResponse(raffleID, outcome))
}
