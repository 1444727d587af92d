package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fkhayef/librarycore/internal/apperror"
)

// APIResponse is the standard response wrapper
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
	// AuditIncomplete flags a committed change whose audit row was not written
	AuditIncomplete bool `json:"audit_incomplete,omitempty"`
}

// APIError represents an error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta contains pagination and other metadata
type Meta struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

// JSON sends a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	json.NewEncoder(w).Encode(response)
}

// JSONWithMeta sends a JSON response with pagination metadata
func JSONWithMeta(w http.ResponseWriter, status int, data any, meta *Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    meta,
	}

	json.NewEncoder(w).Encode(response)
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// Common error responses
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "BAD_REQUEST", message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, "NOT_FOUND", message)
}

func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, "FORBIDDEN", message)
}

func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, "CONFLICT", message)
}

func Gone(w http.ResponseWriter, message string) {
	Error(w, http.StatusGone, "GONE", message)
}

func Unprocessable(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnprocessableEntity, "UNPROCESSABLE", message)
}

// Degraded sends a success response for a change that committed without its
// audit row
func Degraded(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(APIResponse{
		Success:         true,
		Data:            data,
		AuditIncomplete: true,
	})
}

// Result writes data, flagging degraded success when err only reports a
// missing audit row. Any other error is mapped through FromError.
func Result(w http.ResponseWriter, status int, data any, err error, fallback string) {
	switch {
	case err == nil:
		JSON(w, status, data)
	case apperror.IsDegraded(err) && data != nil:
		Degraded(w, status, data)
	default:
		FromError(w, err, fallback)
	}
}

// FromError maps the library error taxonomy to HTTP statuses. Unknown errors
// become a 500 carrying fallback rather than the internal message.
func FromError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, apperror.ErrPermissionDenied):
		Forbidden(w, err.Error())
	case errors.Is(err, apperror.ErrEmailMismatch):
		Error(w, http.StatusForbidden, "EMAIL_MISMATCH", err.Error())
	case errors.Is(err, apperror.ErrNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, apperror.ErrDuplicateInvitation):
		Error(w, http.StatusConflict, "DUPLICATE_INVITATION", err.Error())
	case errors.Is(err, apperror.ErrAlreadyProcessed):
		Error(w, http.StatusConflict, "ALREADY_PROCESSED", err.Error())
	case errors.Is(err, apperror.ErrConflict), errors.Is(err, apperror.ErrInvalidTransition):
		Conflict(w, err.Error())
	case errors.Is(err, apperror.ErrExpired):
		Gone(w, err.Error())
	case errors.Is(err, apperror.ErrRenewalLimit):
		Unprocessable(w, err.Error())
	case errors.Is(err, apperror.ErrInvalidInput):
		BadRequest(w, err.Error())
	default:
		InternalError(w, fallback)
	}
}
