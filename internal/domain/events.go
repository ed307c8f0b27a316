package domain

import "time"

// Ledger event types published after a commit.
const (
	EventDebtCreated    = "debt.created"
	EventDebtUpdated    = "debt.updated"
	EventDebtDeleted    = "debt.deleted"
	EventDebtPaid       = "debt.paid"
	EventCardReconciled = "card.reconciled"
	EventCardDeleted    = "card.deleted"
)

// LedgerEvent notifies downstream consumers that committed ledger state changed.
// It carries ids only; consumers read the records they need.
type LedgerEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	OwnerID       string    `json:"owner_id"`
	DebtIDs       []string  `json:"debt_ids,omitempty"`
	CreditCardID  string    `json:"credit_card_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
