package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// NewRouter registers every endpoint. Collectors are registered on reg and served from gatherer.
func NewRouter(svc Services, reg prometheus.Registerer, gatherer prometheus.Gatherer) http.Handler {
	h := NewHandler(svc)
	metrics := newHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.middleware)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Post("/accounts", h.OpenAccount)
	r.Get("/users/me/wallets", h.GetMyWallets)
	r.Post("/exchanges", h.Exchange)

	r.Route("/wallets/{walletID}", func(r chi.Router) {
		r.Get("/", h.GetWallet)
		r.Get("/ledger", h.GetLedger)
		r.Get("/reconciliation", h.Reconcile)
		r.Post("/deposits", h.Deposit)
		r.Post("/withdrawals", h.RequestWithdrawal)
		r.Post("/debits", h.DebitForPurchase)
		r.Post("/prizes", h.CreditPrize)
		r.Post("/commissions", h.CreditCommission)
	})

	r.Route("/withdrawals/{requestID}", func(r chi.Router) {
		r.Post("/approve", h.ApproveWithdrawal)
		r.Post("/reject", h.RejectWithdrawal)
	})

	r.Post("/raffles", h.CreateRaffle)
	r.Route("/raffles/{raffleID}", func(r chi.Router) {
		r.Get("/", h.GetRaffle)
		r.Post("/activate", h.ActivateRaffle)
		r.Post("/cancel", h.CancelRaffle)
		r.Post("/allocations", h.AllocateTickets)
		r.Post("/purchases", h.PurchaseTickets)
		r.Post("/draw", h.Draw)
	})

	return r
}

// NewServer wraps handler in an http.Server with conservative timeouts
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// requestLogger logs each request through logrus at debug, or warn for server errors
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		entry := log.WithFields(log.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"bytes":     ww.BytesWritten(),
			"duration":  time.Since(start).String(),
			"requestID": middleware.GetReqID(r.Context()),
		})
		if ww.Status() >= http.StatusInternalServerError {
			entry.Warn("HTTP request failed")
			return
		}
		entry.Debug("HTTP request")
	})
}
