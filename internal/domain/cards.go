package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Credit Cards
// ============================================================

// CreditCard is a card with a credit ceiling. AvailableLimit is derived state
// kept in [0, Limit] by the limit reconciler; nothing else writes it.
type CreditCard struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	Name            string          `json:"name"`
	Limit           decimal.Decimal `json:"limit"`
	AvailableLimit  decimal.Decimal `json:"available_limit"`
	BestPurchaseDay int             `json:"best_purchase_day"` // statement cut-off day
	DueDay          int             `json:"due_day"`
	AccountID       string          `json:"account_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// UsedLimit is the committed part of the ceiling.
func (c *CreditCard) UsedLimit() decimal.Decimal {
	return c.Limit.Sub(c.AvailableLimit)
}

// CreditCardRequest is the payload to register a new card.
type CreditCardRequest struct {
	Name            string          `json:"name"`
	Limit           decimal.Decimal `json:"limit"`
	BestPurchaseDay int             `json:"best_purchase_day"`
	DueDay          int             `json:"due_day"`
	AccountID       string          `json:"account_id,omitempty"`
}

// CreditCardPatch carries the fields to change on a card. Nil means unchanged.
type CreditCardPatch struct {
	Name            *string          `json:"name,omitempty"`
	Limit           *decimal.Decimal `json:"limit,omitempty"`
	BestPurchaseDay *int             `json:"best_purchase_day,omitempty"`
	DueDay          *int             `json:"due_day,omitempty"`
	AccountID       *string          `json:"account_id,omitempty"`
}

// ReconcileMode tells how an available limit was settled.
type ReconcileMode string

const (
	ReconcileIncremental ReconcileMode = "incremental"
	ReconcileFull        ReconcileMode = "full"
)

// LimitSettlement is the outcome of settling one card.
type LimitSettlement struct {
	Card      CreditCard      `json:"card"`
	Mode      ReconcileMode   `json:"mode"`
	Raw       decimal.Decimal `json:"raw"` // value before saturation
	OverLimit bool            `json:"over_limit"`
}

// CreditCardInvoice is the per-month view of a card's debts.
type CreditCardInvoice struct {
	CardID        string          `json:"card_id"`
	CardName      string          `json:"card_name"`
	Month         string          `json:"month"`
	DueDate       time.Time       `json:"due_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	UnpaidAmount  decimal.Decimal `json:"unpaid_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	HasAdjustment bool            `json:"has_adjustment"`
	Debts         []DebtView      `json:"debts"`
}
