package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/model"
)

// Error codes carried in error responses.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeStorage          = "STORAGE_ERROR"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
)

// Envelope is the body of every procedure response. Exactly one of Result
// and Error is meaningful; a null Result is a valid "not found" answer.
type Envelope struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody describes a failed call.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// resultResponse wraps data in the result envelope.
func resultResponse(w http.ResponseWriter, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Error("error encoding result", "error", err)
		jsonError(w, http.StatusInternalServerError, CodeInternal, "failed to encode result")
		return
	}
	jsonResponse(w, http.StatusOK, Envelope{Result: raw})
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, Envelope{Error: &ErrorBody{Code: code, Message: message}})
}

// errorResponse maps err onto a status code and error body. Server-side
// failures are logged with the attributes of the request in ctx.
func errorResponse(ctx context.Context, w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	var se *model.StorageError
	switch {
	case errors.As(err, &ve):
		jsonResponse(w, http.StatusBadRequest, Envelope{Error: &ErrorBody{
			Code:    CodeValidation,
			Message: ve.Error(),
			Field:   ve.Field,
		}})
	case errors.Is(err, model.ErrUnauthorized):
		jsonError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
	case errors.As(err, &se):
		slog.Error("storage failure", append(requestAttrs(ctx), "op", se.Op, "error", se.Err)...)
		jsonError(w, http.StatusInternalServerError, CodeStorage, se.Error())
	default:
		slog.Error("procedure failed", append(requestAttrs(ctx), "error", err)...)
		jsonError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}
