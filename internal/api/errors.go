package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/mixroute-core/internal/routing"
	"github.com/nerrad567/mixroute-core/internal/sidechain"
	"github.com/nerrad567/mixroute-core/internal/vca"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeNotFound      = "not_found"
	ErrCodeConflict      = "conflict"
	ErrCodeUnprocessable = "unprocessable"
	ErrCodeInternal      = "internal_error"
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

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// statusFor maps a domain error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, routing.ErrPointNotFound),
		errors.Is(err, routing.ErrRouteNotFound),
		errors.Is(err, vca.ErrFaderNotFound),
		errors.Is(err, vca.ErrGroupNotFound),
		errors.Is(err, sidechain.ErrRouteNotFound),
		errors.Is(err, sidechain.ErrBusNotFound):
		return http.StatusNotFound, ErrCodeNotFound

	case errors.Is(err, routing.ErrDuplicateRoute),
		errors.Is(err, routing.ErrFeedbackLoop),
		errors.Is(err, vca.ErrAlreadyGrouped),
		errors.Is(err, vca.ErrCircularGroup),
		errors.Is(err, vca.ErrGroupTooDeep),
		errors.Is(err, vca.ErrNotManaged),
		errors.Is(err, sidechain.ErrNotManaged):
		return http.StatusConflict, ErrCodeConflict

	case errors.Is(err, routing.ErrIncompatibleEndpoints),
		errors.Is(err, routing.ErrInvalidSelfRoute),
		errors.Is(err, routing.ErrUnregisteredEndpoint):
		return http.StatusUnprocessableEntity, ErrCodeUnprocessable

	case errors.Is(err, routing.ErrInvalidPoint),
		errors.Is(err, vca.ErrInvalidName),
		errors.Is(err, sidechain.ErrEmptyName),
		errors.Is(err, sidechain.ErrInvalidBusConfig):
		return http.StatusBadRequest, ErrCodeBadRequest
	}
	return http.StatusInternalServerError, ErrCodeInternal
}

// writeDomainError writes err with the status its sentinel maps to.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, code, msg)
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
