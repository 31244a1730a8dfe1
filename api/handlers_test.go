package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"prizeledger/domain"
	"prizeledger/domain/entities"
	"prizeledger/domain/interfaces"
	"prizeledger/domain/testhelpers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type apiMocks struct {
	wallets    *testhelpers.MockWalletService
	transfers  *testhelpers.MockTransferCoordinator
	allocator  *testhelpers.MockTicketAllocator
	purchases  *testhelpers.MockPurchaseService
	raffles    *testhelpers.MockRaffleService
	draws      *testhelpers.MockDrawEngine
	reconciler *testhelpers.MockReconciler
	router     http.Handler
}

func newAPI(t *testing.T) *apiMocks {
	t.Helper()
	m := &apiMocks{
		wallets:    new(testhelpers.MockWalletService),
		transfers:  new(testhelpers.MockTransferCoordinator),
		allocator:  new(testhelpers.MockTicketAllocator),
		purchases:  new(testhelpers.MockPurchaseService),
		raffles:    new(testhelpers.MockRaffleService),
		draws:      new(testhelpers.MockDrawEngine),
		reconciler: new(testhelpers.MockReconciler),
	}
	reg := prometheus.NewRegistry()
	m.router = NewRouter(Services{
		Wallets:    m.wallets,
		Transfers:  m.transfers,
		Allocator:  m.allocator,
		Purchases:  m.purchases,
		Raffles:    m.raffles,
		Draws:      m.draws,
		Reconciler: m.reconciler,
	}, reg, reg)
	return m
}

func (m *apiMocks) do(method, path, body string, userID int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set(UserIDHeader, fmt.Sprint(userID))
	}
	rec := httptest.NewRecorder()
	m.router.ServeHTTP(rec, req)
	return rec
}

func decEq(s string) any {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func testWallet(id int64, balance, frozen string) *entities.Wallet {
	return &entities.Wallet{
		ID:            id,
		UserID:        42,
		Kind:          entities.WalletKindBalance,
		Currency:      "USD",
		Balance:       decimal.RequireFromString(balance),
		FrozenBalance: decimal.RequireFromString(frozen),
		Version:       3,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	m := newAPI(t)

	rec := m.do(http.MethodGet, "/healthz", "", 0)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = m.do(http.MethodGet, "/metrics", "", 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "prizeledger_http_requests_total")
}

func TestHealthReportsFailingChecks(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	router := NewRouter(Services{
		Health: map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"nats":     func(context.Context) error { return errors.New("not connected") },
		},
	}, reg, reg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, map[string]string{"database": "ok", "nats": "not connected"}, body.Checks)
}

func TestDeposit(t *testing.T) {
	t.Parallel()
	m := newAPI(t)

	m.transfers.On("Deposit", mock.Anything, int64(7), decEq("25.5"), "ref-1").
		Return(&interfaces.BalanceResult{
			Wallet:        testWallet(7, "125.5", "0"),
			CorrelationID: "corr-1",
			LedgerEntry:   &entities.LedgerEntry{ID: 99, WalletID: 7, TransactionType: entities.TransactionTypeDeposit},
		}, nil)

	rec := m.do(http.MethodPost, "/wallets/7/deposits", `{"amount":"25.5","referenceId":"ref-1"}`, 0)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[BalanceResponse](t, rec)
	assert.True(t, resp.NewBalance.Equal(decimal.RequireFromString("125.5")))
	assert.Equal(t, "corr-1", resp.CorrelationID)
	require.NotNil(t, resp.LedgerEntry)
	assert.Equal(t, int64(99), resp.LedgerEntry.ID)
	m.transfers.AssertExpectations(t)
}

func TestBalanceOperations_RejectBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"zero amount", "/wallets/7/deposits", `{"amount":"0"}`, http.StatusBadRequest},
		{"negative amount", "/wallets/7/debits", `{"amount":"-3"}`, http.StatusBadRequest},
		{"too precise", "/wallets/7/prizes", `{"amount":"0.000000001"}`, http.StatusBadRequest},
		{"not a number", "/wallets/7/commissions", `{"amount":"ten"}`, http.StatusBadRequest},
		{"unknown field", "/wallets/7/deposits", `{"amount":"1","extra":true}`, http.StatusBadRequest},
		{"bad wallet id", "/wallets/abc/deposits", `{"amount":"1"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newAPI(t)
			rec := m.do(http.MethodPost, tt.path, tt.body, 0)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			m.transfers.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"insufficient", fmt.Errorf("debit: %w", domain.ErrInsufficientAvailable), http.StatusUnprocessableEntity},
		{"wallet missing", domain.ErrWalletNotFound, http.StatusNotFound},
		{"retries exhausted", domain.ErrRetryExhausted, http.StatusServiceUnavailable},
		{"compensation failed", &domain.CompensationError{Saga: "purchase", Cause: errors.New("x"), CompensationErr: errors.New("y")}, http.StatusInternalServerError},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newAPI(t)
			m.transfers.On("DebitForPurchase", mock.Anything, int64(3), decEq("10"), "order-9").Return(nil, tt.err)

			rec := m.do(http.MethodPost, "/wallets/3/debits", `{"amount":"10","referenceId":"order-9"}`, 0)
			assert.Equal(t, tt.status, rec.Code)

			resp := decode[errorResponse](t, rec)
			assert.Equal(t, domain.UserMessage(tt.err), resp.Message)
		})
	}
}

func TestWithdrawalFlow(t *testing.T) {
	t.Parallel()
	m := newAPI(t)

	pending := &entities.WithdrawalRequest{ID: 5, WalletID: 7, Amount: decimal.NewFromInt(30), Status: entities.WithdrawalStatusPending}
	m.transfers.On("FreezeWithdrawal", mock.Anything, int64(7), decEq("30"), "").
		Return(&interfaces.WithdrawalResult{Request: pending, Wallet: testWallet(7, "100", "30")}, nil)

	rec := m.do(http.MethodPost, "/wallets/7/withdrawals", `{"amount":"30"}`, 0)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	frozen := decode[WithdrawalResponse](t, rec)
	assert.Equal(t, int64(5), frozen.RequestID)
	assert.True(t, frozen.FrozenBalance.Equal(decimal.NewFromInt(30)))

	approved := *pending
	approved.Status = entities.WithdrawalStatusApproved
	m.transfers.On("ApproveWithdrawal", mock.Anything, int64(5)).
		Return(&interfaces.WithdrawalResult{Request: &approved, Wallet: testWallet(7, "70", "0")}, nil)

	rec = m.do(http.MethodPost, "/withdrawals/5/approve", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[WithdrawalResponse](t, rec)
	assert.Equal(t, "approved", resp.Status)
	assert.True(t, resp.NewBalance.Equal(decimal.NewFromInt(70)))

	m.transfers.On("RejectWithdrawal", mock.Anything, int64(5), "duplicate").
		Return(nil, domain.ErrWithdrawalNotPending)

	rec = m.do(http.MethodPost, "/withdrawals/5/reject", `{"reason":" duplicate "}`, 0)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExchange(t *testing.T) {
	t.Parallel()

	t.Run("requires identity", func(t *testing.T) {
		m := newAPI(t)
		rec := m.do(http.MethodPost, "/exchanges", `{"amount":"5"}`, 0)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("moves funds for the caller", func(t *testing.T) {
		m := newAPI(t)
		m.transfers.On("Exchange", mock.Anything, int64(42), decEq("5")).
			Return(&interfaces.ExchangeResult{
				Source:       testWallet(1, "15", "0"),
				Target:       testWallet(2, "5", "0"),
				SourceAmount: decimal.NewFromInt(5),
				TargetAmount: decimal.NewFromInt(5),
			}, nil)

		rec := m.do(http.MethodPost, "/exchanges", `{"amount":"5"}`, 42)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[ExchangeResponse](t, rec)
		assert.True(t, resp.SourceBalance.Equal(decimal.NewFromInt(15)))
		assert.True(t, resp.TargetBalance.Equal(decimal.NewFromInt(5)))
	})
}

func TestAccountsAndLedger(t *testing.T) {
	t.Parallel()
	m := newAPI(t)

	m.wallets.On("OpenAccount", mock.Anything, int64(42)).
		Return([]*entities.Wallet{testWallet(1, "0", "0"), testWallet(2, "0", "0")}, nil)
	rec := m.do(http.MethodPost, "/accounts", "", 42)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, decode[[]WalletDTO](t, rec), 2)

	m.wallets.On("GetWallet", mock.Anything, int64(1)).Return(testWallet(1, "100", "40"), nil)
	rec = m.do(http.MethodGet, "/wallets/1", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[WalletDTO](t, rec).Available.Equal(decimal.NewFromInt(60)))

	m.wallets.On("GetLedger", mock.Anything, int64(1), 20).
		Return([]*entities.LedgerEntry{{ID: 3}, {ID: 2}}, nil)
	rec = m.do(http.MethodGet, "/wallets/1/ledger?limit=20", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]LedgerEntryDTO](t, rec), 2)

	rec = m.do(http.MethodGet, "/wallets/1/ledger?limit=many", "", 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPurchaseTickets(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		m := newAPI(t)
		m.purchases.On("PurchaseTickets", mock.Anything, int64(42), int64(9), int64(2), "order-1").
			Return(&interfaces.PurchaseResult{
				OrderID:    "order-1",
				Allocation: &interfaces.AllocationResult{RaffleID: 9, Codes: []int64{4, 5}, SoldTickets: 5},
				Payment:    &interfaces.BalanceResult{Wallet: testWallet(1, "80", "0")},
			}, nil)

		rec := m.do(http.MethodPost, "/raffles/9/purchases", `{"quantity":2,"orderId":"order-1"}`, 42)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		resp := decode[PurchaseResponse](t, rec)
		assert.Equal(t, []int64{4, 5}, resp.Allocation.Codes)
		assert.True(t, resp.NewBalance.Equal(decimal.NewFromInt(80)))
	})

	t.Run("sold out", func(t *testing.T) {
		m := newAPI(t)
		m.purchases.On("PurchaseTickets", mock.Anything, int64(42), int64(9), int64(2), "").
			Return(nil, domain.ErrSoldOut)

		rec := m.do(http.MethodPost, "/raffles/9/purchases", `{"quantity":2}`, 42)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, domain.UserMessage(domain.ErrSoldOut), decode[errorResponse](t, rec).Message)
	})
}

func TestAllocateTickets(t *testing.T) {
	t.Parallel()
	m := newAPI(t)

	m.allocator.On("AllocateTickets", mock.Anything, int64(9), int64(42), int64(1), "paid-3").
		Return(&interfaces.AllocationResult{RaffleID: 9, Codes: []int64{10}, SoldTickets: 10, SoldOut: true}, nil)

	rec := m.do(http.MethodPost, "/raffles/9/allocations", `{"quantity":1,"orderId":"paid-3"}`, 42)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, decode[AllocationResponse](t, rec).SoldOut)
}

func TestDraw(t *testing.T) {
	t.Parallel()

	t.Run("returns the committed winner", func(t *testing.T) {
		m := newAPI(t)
		m.draws.On("Draw", mock.Anything, int64(9), interfaces.DrawOptions{}).
			Return(&interfaces.DrawOutcome{
				WinningCode:  1,
				WinnerUserID: 600,
				AlreadyDrawn: true,
				Result:       &entities.DrawResult{TimestampSum: "150", TotalEntries: 5},
				Prize:        &entities.Prize{Amount: decimal.NewFromInt(50), Status: entities.PrizeStatusCredited},
			}, nil)

		rec := m.do(http.MethodPost, "/raffles/9/draw", "", 0)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[DrawResponse](t, rec)
		assert.Equal(t, int64(1), resp.WinningCode)
		assert.True(t, resp.AlreadyDrawn)
		assert.Equal(t, "150", resp.TimestampSum)
		assert.True(t, resp.PrizeValue.Equal(decimal.NewFromInt(50)))
	})

	t.Run("forced draw of a raffle not ready", func(t *testing.T) {
		m := newAPI(t)
		m.draws.On("Draw", mock.Anything, int64(9), interfaces.DrawOptions{Force: true}).
			Return(nil, domain.ErrRaffleNotDrawable)

		rec := m.do(http.MethodPost, "/raffles/9/draw", `{"force":true}`, 0)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestRaffleLifecycle(t *testing.T) {
	t.Parallel()
	m := newAPI(t)

	m.raffles.On("CreateRaffle", mock.Anything, mock.MatchedBy(func(p interfaces.CreateRaffleParams) bool {
		return p.Title == "Bike" && p.TotalTickets == 10 && p.TicketPrice.Equal(decimal.NewFromInt(2))
	})).Return(&entities.Raffle{ID: 9, Title: "Bike", Status: entities.RaffleStatusPending, TotalTickets: 10}, nil)

	rec := m.do(http.MethodPost, "/raffles", `{"title":"Bike","ticketPrice":"2","totalTickets":10,"currency":"usd"}`, 0)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "pending", decode[RaffleDTO](t, rec).Status)

	rec = m.do(http.MethodPost, "/raffles", `{"title":"Bike","ticketPrice":"free","totalTickets":10}`, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	m.raffles.On("ActivateRaffle", mock.Anything, int64(9)).
		Return(&entities.Raffle{ID: 9, Status: entities.RaffleStatusActive}, nil)
	rec = m.do(http.MethodPost, "/raffles/9/activate", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)

	m.raffles.On("CancelRaffle", mock.Anything, int64(9), "venue closed").
		Return(&interfaces.CancelResult{Raffle: &entities.Raffle{ID: 9, Status: entities.RaffleStatusCancelled}, RefundedUsers: []int64{1, 2}}, nil)
	rec = m.do(http.MethodPost, "/raffles/9/cancel", `{"reason":"venue closed"}`, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	cancelled := decode[CancelResponse](t, rec)
	assert.Equal(t, []int64{1, 2}, cancelled.RefundedUsers)
	assert.Equal(t, []int64{}, cancelled.FailedUsers)

	m.raffles.On("GetRaffle", mock.Anything, int64(404)).Return(nil, domain.ErrRaffleNotFound)
	rec = m.do(http.MethodGet, "/raffles/404", "", 0)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReconcile(t *testing.T) {
	t.Parallel()
	m := newAPI(t)

	m.reconciler.On("Reconcile", mock.Anything, int64(7)).Return(&interfaces.ReconciliationReport{
		WalletID:      7,
		Balance:       decimal.NewFromInt(100),
		LedgerBalance: decimal.NewFromInt(90),
		EntryCount:    4,
		Gaps:          []interfaces.LedgerGap{{EntryID: 12}},
	}, nil)

	rec := m.do(http.MethodGet, "/wallets/7/reconciliation", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ReconciliationResponse](t, rec)
	assert.False(t, resp.Consistent)
	assert.Equal(t, []int64{12}, resp.Gaps)
	assert.Equal(t, []int64{}, resp.Invalid)
}
