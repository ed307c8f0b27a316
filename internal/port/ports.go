// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerReader holds the owner-scoped queries of the ledger. Every method
// returns *domain.ErrNotFound when the record is missing or owned by someone else.
type LedgerReader interface {
	// Accounts & wallets
	GetAccount(ctx context.Context, ownerID, accountID string) (*domain.Account, error)
	ListAccounts(ctx context.Context, ownerID string) ([]domain.Account, error)
	GetWallet(ctx context.Context, ownerID, walletID string) (*domain.Wallet, error)
	GetDefaultWallet(ctx context.Context, ownerID string) (*domain.Wallet, error)
	ListWallets(ctx context.Context, ownerID string) ([]domain.Wallet, error)

	// Categories
	GetCategory(ctx context.Context, ownerID, categoryID string) (*domain.Category, error)
	ListCategories(ctx context.Context, ownerID string) ([]domain.Category, error)

	// Credit cards
	GetCreditCard(ctx context.Context, ownerID, cardID string) (*domain.CreditCard, error)
	ListCreditCards(ctx context.Context, ownerID string) ([]domain.CreditCard, error)

	// Debts
	GetDebt(ctx context.Context, ownerID, debtID string) (*domain.Debt, error)
	ListDebts(ctx context.Context, ownerID string, filter domain.DebtFilter) ([]domain.Debt, error)

	// Transactions
	ListTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, error)
	// PaidTotals sums the expense transactions linked to each debt. With no
	// ids given it covers every debt of the owner. Debts without payments are absent.
	PaidTotals(ctx context.Context, ownerID string, debtIDs ...string) (map[string]decimal.Decimal, error)
}

// LedgerWriter holds the mutations of the ledger. Ids and timestamps are
// assigned by the caller.
type LedgerWriter interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	AdjustAccountBalance(ctx context.Context, ownerID, accountID string, delta decimal.Decimal) error
	// DeleteAccount clears the account link of debts, cards and transactions.
	DeleteAccount(ctx context.Context, ownerID, accountID string) error

	CreateWallet(ctx context.Context, wallet *domain.Wallet) error
	AdjustWalletBalance(ctx context.Context, ownerID, walletID string, delta decimal.Decimal) error

	CreateCategory(ctx context.Context, category *domain.Category) error

	CreateCreditCard(ctx context.Context, card *domain.CreditCard) error
	UpdateCreditCard(ctx context.Context, card *domain.CreditCard) error
	// DeleteCreditCard removes the card and every debt charged to it.
	DeleteCreditCard(ctx context.Context, ownerID, cardID string) error

	CreateDebt(ctx context.Context, debt *domain.Debt) error
	// UpdateDebt writes the debt only if the stored version still equals
	// debt.Version, then increments debt.Version. A stale version returns
	// *domain.ErrConflict.
	UpdateDebt(ctx context.Context, debt *domain.Debt) error
	// DeleteDebt keeps the debt's transactions and clears their debt link.
	DeleteDebt(ctx context.Context, ownerID, debtID string) error

	InsertTransaction(ctx context.Context, txn *domain.Transaction) error
}

// LedgerTx is the view of the store inside one atomic unit of work.
type LedgerTx interface {
	LedgerReader
	LedgerWriter
}

// LedgerStore is the persistent ledger. Writes happen only through WithTx:
// fn's changes commit when it returns nil and roll back otherwise.
type LedgerStore interface {
	LedgerReader
	WithTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
	Ping(ctx context.Context) error
}

// EventPublisher delivers committed ledger events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
	Close() error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
