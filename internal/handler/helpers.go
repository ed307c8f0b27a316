package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/infra/resilience"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeBody reads a JSON request body into v. A malformed body is reported
// as a validation error so it maps to 400.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "corpo da requisição inválido"}
	}
	return nil
}

// parseOptionalDate parses a YYYY-MM-DD field; empty means absent.
func parseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(value)
	if err != nil {
		return nil, &domain.ErrValidation{Field: field, Message: err.Error()}
	}
	return &t, nil
}

func parseOptionalBool(field, value string) (*bool, error) {
	if value == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, &domain.ErrValidation{Field: field, Message: "deve ser true ou false"}
	}
	return &b, nil
}

// retryOnConflict re-runs fn when it fails with a concurrent modification of
// the same record. Every other outcome is returned as is.
func retryOnConflict(ctx context.Context, opts Options, fn func() error) error {
	return resilience.RetryWithBackoff(ctx, resilience.Config{
		MaxRetries:     opts.ConflictRetries,
		InitialBackoff: opts.RetryBackoff,
		ShouldRetry: func(err error) bool {
			var conflict *domain.ErrConflict
			return errors.As(err, &conflict)
		},
	}, fn)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var validation *domain.ErrValidation
	var businessRule *domain.ErrBusinessRule
	var limitExceeded *domain.ErrLimitExceeded
	var conflict *domain.ErrConflict
	var unauthorized *domain.ErrUnauthorized

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &businessRule):
		logger.Debug("business rule violation", zap.String("rule", businessRule.Rule))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &limitExceeded):
		logger.Warn("limit exceeded",
			zap.String("card_id", limitExceeded.CardID),
			zap.String("available", limitExceeded.Available.StringFixed(2)),
			zap.String("required", limitExceeded.Required.StringFixed(2)),
		)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
