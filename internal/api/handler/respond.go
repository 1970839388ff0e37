// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"investflow-core/internal/util"
)

// DefaultTimeout bounds request handling; mutations surface retryable errors
// well before this instead of hanging.
const DefaultTimeout = 15 * time.Second

// respondWithJSON sends a JSON response with the given status code.
func respondWithJSON(w http.ResponseWriter, logger *slog.Logger, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError maps service errors onto HTTP status codes.
func respondWithError(w http.ResponseWriter, logger *slog.Logger, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput), util.IsError(err, util.ErrInvalidTerms):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrNotFound), util.IsError(err, util.ErrWalletNotFound), util.IsError(err, util.ErrCommitmentNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case util.IsError(err, util.ErrInsufficientFunds):
		statusCode = http.StatusPaymentRequired // 402 Payment Required
		message = "Insufficient funds"
	case util.IsError(err, util.ErrInvalidTransition):
		statusCode = http.StatusConflict
		message = "Invalid commitment state transition"
	case util.IsError(err, util.ErrDuplicateReference):
		statusCode = http.StatusConflict
		message = "Duplicate reference"
	case util.IsError(err, util.ErrConflict):
		// Bounded retries already happened in the service layer.
		statusCode = http.StatusServiceUnavailable
		message = "Concurrent modification conflict, please retry"
	case util.IsError(err, util.ErrWalletFrozen), util.IsError(err, util.ErrLedgerIntegrity):
		logger.Error("Wallet integrity failure surfaced to API", "error", err)
		statusCode = http.StatusInternalServerError
		message = "Wallet unavailable pending integrity review"
	default:
		logger.Error("Unhandled service error", "error", err)
	}

	respondWithJSON(w, logger, statusCode, map[string]string{"error": message})
}

// pagination parses limit/offset query parameters with defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit = 10
	offset = 0
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && n >= 0 {
		offset = n
	}
	return limit, offset
}
