package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Debts
// ============================================================

// DebtType is the scheduling shape of a debt.
type DebtType string

const (
	DebtSingle      DebtType = "single"
	DebtMonthly     DebtType = "monthly"
	DebtInstallment DebtType = "installment"
)

// Valid reports whether t is a known debt type.
func (t DebtType) Valid() bool {
	switch t {
	case DebtSingle, DebtMonthly, DebtInstallment:
		return true
	}
	return false
}

// DebtKind separates purchases (amount >= 0) from invoice adjustments
// (signed delta over a whole month).
type DebtKind string

const (
	KindPurchase   DebtKind = "purchase"
	KindAdjustment DebtKind = "adjustment"
)

// AdjustmentDescription is the description prefix of invoice adjustments.
const AdjustmentDescription = "Reajuste de Fatura"

// Installments numbers one debt inside its purchase group.
type Installments struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Debt is a scheduled monetary obligation tracked until paid.
type Debt struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Kind         DebtKind        `json:"kind"`
	Type         DebtType        `json:"type"`
	CategoryID   string          `json:"category_id,omitempty"`
	CreditCardID string          `json:"credit_card_id,omitempty"`
	AccountID    string          `json:"account_id,omitempty"`
	DueDate      time.Time       `json:"due_date"`
	PurchaseDate *time.Time      `json:"purchase_date,omitempty"`
	Paid         bool            `json:"paid"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	Installments *Installments   `json:"installments,omitempty"`
	GroupID      string          `json:"group_id,omitempty"`
	Month        string          `json:"month"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsAdjustment reports whether the debt corrects a whole month's invoice.
func (d *Debt) IsAdjustment() bool {
	return d.Kind == KindAdjustment || IsAdjustmentDescription(d.Description)
}

// IsAdjustmentDescription matches the "Reajuste de Fatura" description pattern.
func IsAdjustmentDescription(desc string) bool {
	return strings.Contains(strings.ToLower(desc), strings.ToLower(AdjustmentDescription))
}

var installmentSuffix = regexp.MustCompile(`\s*\(\d+/\d+\)\s*$`)

// BaseDescription strips the trailing " (i/total)" suffix.
func BaseDescription(desc string) string {
	return strings.TrimSpace(installmentSuffix.ReplaceAllString(desc, ""))
}

// InstallmentDescription renders "<base> (i/total)".
func InstallmentDescription(base string, current, total int) string {
	return fmt.Sprintf("%s (%d/%d)", base, current, total)
}

// DebtFilter narrows debt listings. Empty fields match everything.
type DebtFilter struct {
	CreditCardID string
	Month        string
	Paid         *bool
	Type         DebtType
	GroupID      string
}

// Matches reports whether d passes every set field of f.
func (f DebtFilter) Matches(d *Debt) bool {
	switch {
	case f.CreditCardID != "" && d.CreditCardID != f.CreditCardID:
		return false
	case f.Month != "" && d.Month != f.Month:
		return false
	case f.Paid != nil && d.Paid != *f.Paid:
		return false
	case f.Type != "" && d.Type != f.Type:
		return false
	case f.GroupID != "" && d.GroupID != f.GroupID:
		return false
	}
	return true
}

// CreateDebtRequest is the payload to register a debt, or a group of installments.
type CreateDebtRequest struct {
	Description      string
	Amount           decimal.Decimal
	Type             DebtType
	Kind             DebtKind
	DueDate          *time.Time
	PurchaseDate     *time.Time
	CategoryID       string
	CreditCardID     string
	AccountID        string
	InstallmentCount int
	IsTotalAmount    bool
	Month            string
	// AllowOverLimit overrides the service default for purchases that exceed
	// the card's available limit. Nil keeps the default.
	AllowOverLimit *bool
}

// CreateDebtResult carries every debt written by one create.
type CreateDebtResult struct {
	Debts     []Debt            `json:"debts"`
	OverLimit bool              `json:"over_limit"`
	Cards     []LimitSettlement `json:"cards,omitempty"`
}

// UpdateScope selects the records an update or delete touches.
type UpdateScope string

const (
	ScopeThis UpdateScope = "this"
	ScopeAll  UpdateScope = "all"
)

// ParseScope maps the wire value; empty means this-only.
func ParseScope(s string) (UpdateScope, error) {
	switch UpdateScope(s) {
	case "", ScopeThis:
		return ScopeThis, nil
	case ScopeAll:
		return ScopeAll, nil
	}
	return "", &ErrValidation{Field: "scope", Message: "deve ser this ou all"}
}

// DebtPatch carries the fields to change on a debt. Nil means unchanged.
type DebtPatch struct {
	Description *string
	Amount      *decimal.Decimal
	CategoryID  *string
	DueDate     *time.Time
	Paid        *bool
	// AllowOverLimit overrides the service default when an amount increase
	// overdraws the card.
	AllowOverLimit *bool
}

// UpdateDebtResult carries every debt written by one update.
type UpdateDebtResult struct {
	Debts     []Debt            `json:"debts"`
	OverLimit bool              `json:"over_limit"`
	Cards     []LimitSettlement `json:"cards,omitempty"`
}

// DebtView is a debt joined with its metadata and payment progress.
type DebtView struct {
	Debt
	CategoryName   string          `json:"category_name,omitempty"`
	CreditCardName string          `json:"credit_card_name,omitempty"`
	AccountName    string          `json:"account_name,omitempty"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	Remaining      decimal.Decimal `json:"remaining"`
}

// CardTotal is the unpaid total of one card.
type CardTotal struct {
	CreditCardID   string          `json:"credit_card_id"`
	CreditCardName string          `json:"credit_card_name"`
	Total          decimal.Decimal `json:"total"`
}

// MonthTotal is the unpaid total of one billing month.
type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// CardMonthTotal is the unpaid total of one card in one billing month.
type CardMonthTotal struct {
	CreditCardID string          `json:"credit_card_id"`
	Month        string          `json:"month"`
	Total        decimal.Decimal `json:"total"`
}

// DebtSummary aggregates every unpaid debt of an owner.
type DebtSummary struct {
	TotalUnpaid decimal.Decimal  `json:"total_unpaid"`
	Count       int              `json:"count"`
	ByCard      []CardTotal      `json:"by_card"`
	ByMonth     []MonthTotal     `json:"by_month"`
	ByCardMonth []CardMonthTotal `json:"by_card_month"`
}
