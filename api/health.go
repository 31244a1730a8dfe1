package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck returns an error when the dependency it watches is unusable
type HealthCheck func(ctx context.Context) error

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health runs every registered check and answers 503 when any of them fails
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.svc.Health))}
	code := http.StatusOK
	for name, check := range h.svc.Health {
		if err := check(ctx); err != nil {
			log.WithFields(log.Fields{"check": name, "error": err}).Warn("Health check failed")
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, code, resp)
}
