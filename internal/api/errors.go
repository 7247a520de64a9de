package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/secretbox-core/internal/action"
	"github.com/nerrad567/secretbox-core/internal/bridge"
	"github.com/nerrad567/secretbox-core/internal/chain"
	"github.com/nerrad567/secretbox-core/internal/dispatch"
	"github.com/nerrad567/secretbox-core/internal/pin"
	"github.com/nerrad567/secretbox-core/internal/show"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeConflict     = "conflict"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeInternal     = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeUnavailable writes a 503 error response.
func writeUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps an engine, bridge or store error to a response.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, chain.ErrChainNotFound),
		errors.Is(err, pin.ErrInvalidPinReference),
		errors.Is(err, dispatch.ErrNotFound),
		errors.Is(err, show.ErrRunNotFound):
		return http.StatusNotFound, ErrCodeNotFound

	case errors.Is(err, chain.ErrAlreadyArmed),
		errors.Is(err, chain.ErrNotIdle),
		errors.Is(err, chain.ErrNotArmed),
		errors.Is(err, chain.ErrNoPattern):
		return http.StatusConflict, ErrCodeConflict

	case errors.Is(err, chain.ErrTimerPoolExhausted):
		return http.StatusServiceUnavailable, ErrCodeUnavailable

	case errors.Is(err, dispatch.ErrPayloadLengthMismatch),
		errors.Is(err, bridge.ErrEmptyFrame),
		errors.Is(err, bridge.ErrUnknownOperation),
		errors.Is(err, action.ErrArgumentCountMismatch),
		errors.Is(err, action.ErrInvalidArgument),
		errors.Is(err, action.ErrUnknownKind),
		errors.Is(err, pin.ErrInputOnly),
		errors.Is(err, chain.ErrInvalidChain):
		return http.StatusBadRequest, ErrCodeBadRequest

	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
