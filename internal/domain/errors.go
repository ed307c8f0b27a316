package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Error types for consistent error handling across the ledger.

// ErrNotFound indicates a resource was not found or belongs to another owner.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrBusinessRule indicates a well-formed request that the ledger rules reject.
// Nothing is persisted when it is returned.
type ErrBusinessRule struct {
	Rule    string
	Message string
}

func (e *ErrBusinessRule) Error() string {
	return fmt.Sprintf("business rule violation [%s]: %s", e.Rule, e.Message)
}

// ErrLimitExceeded indicates a card purchase that would overdraw the available limit
// while the caller asked for over-limit purchases to be rejected.
type ErrLimitExceeded struct {
	CardID    string
	Limit     decimal.Decimal
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *ErrLimitExceeded) Error() string {
	return fmt.Sprintf("limit exceeded [card %s]: limit=%s available=%s required=%s",
		e.CardID, e.Limit.StringFixed(2), e.Available.StringFixed(2), e.Required.StringFixed(2))
}

// ErrConflict indicates a concurrent modification of the same record.
type ErrConflict struct {
	Resource string
	ID       string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("concurrent modification of %s %s", e.Resource, e.ID)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
