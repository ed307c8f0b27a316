package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Debt Payments
// ============================================================

// FundingKind selects where a payment is debited from.
type FundingKind string

const (
	FundingAccount FundingKind = "account"
	FundingWallet  FundingKind = "wallet"
	FundingDefault FundingKind = "default" // the owner's default wallet, created on demand
)

// FundingSource is the account or wallet debited by a payment.
type FundingSource struct {
	Kind FundingKind `json:"kind"`
	ID   string      `json:"id,omitempty"`
}

// PayDebtRequest applies a partial or full payment to a debt.
type PayDebtRequest struct {
	Amount decimal.Decimal
	Source FundingSource
	Date   time.Time
	// ExpectedVersion, when non-zero, must match the debt's current version.
	ExpectedVersion int64
}

// PaymentResult is returned after a payment commits.
type PaymentResult struct {
	Transaction Transaction      `json:"transaction"`
	Debt        Debt             `json:"debt"`
	TotalPaid   decimal.Decimal  `json:"total_paid"`
	Remaining   decimal.Decimal  `json:"remaining"`
	Card        *LimitSettlement `json:"card,omitempty"`
}
