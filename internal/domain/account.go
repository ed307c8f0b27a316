package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Accounts & Wallets (funding sources)
// ============================================================

// Account types.
const (
	AccountChecking   = "checking"
	AccountSavings    = "savings"
	AccountInvestment = "investment"
)

// DefaultWalletName is the name of the lazily created default funding sink.
const DefaultWalletName = "Carteira Principal"

// Account represents a bank account owned by one user.
type Account struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"` // checking, savings, investment
	Balance   decimal.Decimal `json:"balance"`
	Bank      string          `json:"bank,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AccountRequest is the payload to open an account.
type AccountRequest struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Balance decimal.Decimal `json:"balance"`
	Bank    string          `json:"bank,omitempty"`
}

// Wallet is a cash-like holding with no bank identity.
type Wallet struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	IsDefault bool            `json:"is_default"`
	CreatedAt time.Time       `json:"created_at"`
}

// WalletRequest is the payload to create a wallet.
type WalletRequest struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// ============================================================
// Categories
// ============================================================

// Category labels debts and transactions.
type Category struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	Type    string `json:"type"` // income, expense
}

// CategoryRequest is the payload to create a category.
type CategoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ============================================================
// Transactions (money movement)
// ============================================================

// Transaction types.
const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

// Transaction is an immutable record of money movement. A payment against a
// debt is always an expense with DebtID set.
type Transaction struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Date         time.Time       `json:"date"`
	Month        string          `json:"month"`
	CategoryID   string          `json:"category_id,omitempty"`
	AccountID    string          `json:"account_id,omitempty"`
	WalletID     string          `json:"wallet_id,omitempty"`
	CreditCardID string          `json:"credit_card_id,omitempty"`
	DebtID       string          `json:"debt_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TransactionFilter narrows transaction listings. Empty fields match everything.
type TransactionFilter struct {
	DebtID string
	Type   string
	Month  string
}

// Matches reports whether t passes every set field of f.
func (f TransactionFilter) Matches(t *Transaction) bool {
	switch {
	case f.DebtID != "" && t.DebtID != f.DebtID:
		return false
	case f.Type != "" && t.Type != f.Type:
		return false
	case f.Month != "" && t.Month != f.Month:
		return false
	}
	return true
}
