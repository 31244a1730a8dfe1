package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"prizeledger/domain"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// UserIDHeader carries the caller identity, verified upstream before requests reach this API
const UserIDHeader = "X-User-ID"

var (
	errMissingUser = errors.New("missing or invalid " + UserIDHeader + " header")
	errBadID       = errors.New("invalid id in path")
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError maps err to a status code and the friendly message end users see
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		}).Error("Request failed")
	}

	message := domain.UserMessage(err)
	if errors.Is(err, errMissingUser) || errors.Is(err, errBadID) || errors.Is(err, errBadBody) {
		message = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: errorCode(status), Message: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingUser):
		return http.StatusUnauthorized
	case errors.Is(err, errBadID), errors.Is(err, errBadBody),
		errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidRaffle), errors.Is(err, domain.ErrSameWallet):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWalletNotFound), errors.Is(err, domain.ErrRaffleNotFound),
		errors.Is(err, domain.ErrWithdrawalNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCompensationFailed):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrInsufficientAvailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSoldOut), errors.Is(err, domain.ErrRaffleNotActive),
		errors.Is(err, domain.ErrRaffleNotDrawable), errors.Is(err, domain.ErrWithdrawalNotPending),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRetryExhausted), errors.Is(err, domain.ErrVersionConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(status int) string {
	return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
}

// userID reads the caller identity header
func userID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errMissingUser
	}
	return id, nil
}

// pathID reads a positive integer route parameter
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}
