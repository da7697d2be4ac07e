package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/evep-health/evep/internal/entity"
)

const errInternalText = "internal error"

type ResponseError struct {
	Message string `json:"message"`
}

func sendErr(ctx context.Context, w http.ResponseWriter, code int, err error, msg string) {
	slog.ErrorContext(ctx, msg, "error", err.Error(), "http_code", code)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err = json.NewEncoder(w).Encode(ResponseError{
		Message: msg,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode error response",
			"error", err.Error(),
			"http_code", http.StatusInternalServerError)
	}
}

func sendJSON(ctx context.Context, w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		sendErr(ctx, w, http.StatusInternalServerError, err, errInternalText)
		return
	}
}

// authErrStatus maps service-layer auth errors to HTTP statuses; anything
// unrecognized is a 500.
func authErrStatus(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrInvalidCredential):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, entity.ErrUserBlocked):
		return http.StatusForbidden, "account is blocked, contact support"
	case errors.Is(err, entity.ErrTokenExpired),
		errors.Is(err, entity.ErrInvalidToken),
		errors.Is(err, entity.ErrTokenRevoked),
		errors.Is(err, entity.ErrUserNotFound):
		return http.StatusUnauthorized, "session expired, sign in again"
	case errors.Is(err, entity.ErrTooManyRequests):
		return http.StatusTooManyRequests, "too many attempts, try again later"
	default:
		return http.StatusInternalServerError, errInternalText
	}
}
