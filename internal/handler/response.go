// Package handler translates HTTP requests into service calls.
//
// Handlers parse the request (path, query, JSON body), call exactly one
// service operation and write the result. They hold no business rules: every
// decision about points, challenges or balances lives in package service.
//
// Every error response has the same shape:
//
//	{"error": "validation_error", "message": "Passwords do not match", "field": "confirmPassword"}
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/auth"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`         // shown to the user
	Field   string `json:"field,omitempty"` // form field at fault, if any
}

// writeJSON sets the header and status before encoding; anything written
// after the first byte of the body is ignored by net/http.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are gone already; all we can do is log
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to a status code. Errors that are not an
// *apperror.AppError become a generic 500 so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, kind := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   kind,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// failed logs unexpected errors before writing them. Domain errors are the
// client's problem and are not logged.
func failed(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error(msg, slog.String("error", err.Error()))
	}
	writeError(w, err)
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// userID returns the authenticated caller. Routes behind RequireAuth always
// have one; the check guards against wiring mistakes.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("", "valid authentication required"))
	}
	return id, ok
}
