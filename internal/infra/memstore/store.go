// Package memstore is an in-memory ledger store. Transactions work on a
// private copy of the data that replaces the shared state on commit, and
// only one transaction runs at a time.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("memstore")

// Store implements port.LedgerStore in memory.
type Store struct {
	mu   sync.RWMutex
	data *state
}

var _ port.LedgerStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: newState()}
}

// WithTx runs fn against a copy of the data and publishes the copy when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx port.LedgerTx) error) error {
	ctx, span := tracer.Start(ctx, "memstore.WithTx")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	if err := fn(ctx, work); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) read() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Reads go to the committed state. Committed states are never mutated, so a
// reader can keep using the one it loaded.

func (s *Store) GetAccount(ctx context.Context, ownerID, accountID string) (*domain.Account, error) {
	return s.read().GetAccount(ctx, ownerID, accountID)
}

func (s *Store) ListAccounts(ctx context.Context, ownerID string) ([]domain.Account, error) {
	return s.read().ListAccounts(ctx, ownerID)
}

func (s *Store) GetWallet(ctx context.Context, ownerID, walletID string) (*domain.Wallet, error) {
	return s.read().GetWallet(ctx, ownerID, walletID)
}

func (s *Store) GetDefaultWallet(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	return s.read().GetDefaultWallet(ctx, ownerID)
}

func (s *Store) ListWallets(ctx context.Context, ownerID string) ([]domain.Wallet, error) {
	return s.read().ListWallets(ctx, ownerID)
}

func (s *Store) GetCategory(ctx context.Context, ownerID, categoryID string) (*domain.Category, error) {
	return s.read().GetCategory(ctx, ownerID, categoryID)
}

func (s *Store) ListCategories(ctx context.Context, ownerID string) ([]domain.Category, error) {
	return s.read().ListCategories(ctx, ownerID)
}

func (s *Store) GetCreditCard(ctx context.Context, ownerID, cardID string) (*domain.CreditCard, error) {
	return s.read().GetCreditCard(ctx, ownerID, cardID)
}

func (s *Store) ListCreditCards(ctx context.Context, ownerID string) ([]domain.CreditCard, error) {
	return s.read().ListCreditCards(ctx, ownerID)
}

func (s *Store) GetDebt(ctx context.Context, ownerID, debtID string) (*domain.Debt, error) {
	return s.read().GetDebt(ctx, ownerID, debtID)
}

func (s *Store) ListDebts(ctx context.Context, ownerID string, filter domain.DebtFilter) ([]domain.Debt, error) {
	return s.read().ListDebts(ctx, ownerID, filter)
}

func (s *Store) ListTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	return s.read().ListTransactions(ctx, ownerID, filter)
}

func (s *Store) PaidTotals(ctx context.Context, ownerID string, debtIDs ...string) (map[string]decimal.Decimal, error) {
	return s.read().PaidTotals(ctx, ownerID, debtIDs...)
}

// ============================================================
// state
// ============================================================

type state struct {
	accounts     map[string]domain.Account
	wallets      map[string]domain.Wallet
	categories   map[string]domain.Category
	cards        map[string]domain.CreditCard
	debts        map[string]domain.Debt
	transactions []domain.Transaction
}

func newState() *state {
	return &state{
		accounts:   map[string]domain.Account{},
		wallets:    map[string]domain.Wallet{},
		categories: map[string]domain.Category{},
		cards:      map[string]domain.CreditCard{},
		debts:      map[string]domain.Debt{},
	}
}

func (st *state) clone() *state {
	c := &state{
		accounts:     make(map[string]domain.Account, len(st.accounts)),
		wallets:      make(map[string]domain.Wallet, len(st.wallets)),
		categories:   make(map[string]domain.Category, len(st.categories)),
		cards:        make(map[string]domain.CreditCard, len(st.cards)),
		debts:        make(map[string]domain.Debt, len(st.debts)),
		transactions: make([]domain.Transaction, len(st.transactions)),
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.wallets {
		c.wallets[k] = v
	}
	for k, v := range st.categories {
		c.categories[k] = v
	}
	for k, v := range st.cards {
		c.cards[k] = v
	}
	for k, v := range st.debts {
		c.debts[k] = copyDebt(v)
	}
	copy(c.transactions, st.transactions)
	return c
}

// copyDebt detaches the pointer fields of d.
func copyDebt(d domain.Debt) domain.Debt {
	if d.PurchaseDate != nil {
		p := *d.PurchaseDate
		d.PurchaseDate = &p
	}
	if d.PaidAt != nil {
		p := *d.PaidAt
		d.PaidAt = &p
	}
	if d.Installments != nil {
		i := *d.Installments
		d.Installments = &i
	}
	return d
}

func notFound(resource, id string) error {
	return &domain.ErrNotFound{Resource: resource, ID: id}
}

// --- reads ---

func (st *state) GetAccount(_ context.Context, ownerID, accountID string) (*domain.Account, error) {
	a, ok := st.accounts[accountID]
	if !ok || a.OwnerID != ownerID {
		return nil, notFound("account", accountID)
	}
	return &a, nil
}

func (st *state) ListAccounts(_ context.Context, ownerID string) ([]domain.Account, error) {
	out := []domain.Account{}
	for _, a := range st.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *state) GetWallet(_ context.Context, ownerID, walletID string) (*domain.Wallet, error) {
	w, ok := st.wallets[walletID]
	if !ok || w.OwnerID != ownerID {
		return nil, notFound("wallet", walletID)
	}
	return &w, nil
}

func (st *state) GetDefaultWallet(_ context.Context, ownerID string) (*domain.Wallet, error) {
	for _, w := range st.wallets {
		if w.OwnerID == ownerID && w.IsDefault {
			return &w, nil
		}
	}
	return nil, notFound("wallet", "default")
}

func (st *state) ListWallets(_ context.Context, ownerID string) ([]domain.Wallet, error) {
	out := []domain.Wallet{}
	for _, w := range st.wallets {
		if w.OwnerID == ownerID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *state) GetCategory(_ context.Context, ownerID, categoryID string) (*domain.Category, error) {
	c, ok := st.categories[categoryID]
	if !ok || c.OwnerID != ownerID {
		return nil, notFound("category", categoryID)
	}
	return &c, nil
}

func (st *state) ListCategories(_ context.Context, ownerID string) ([]domain.Category, error) {
	out := []domain.Category{}
	for _, c := range st.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *state) GetCreditCard(_ context.Context, ownerID, cardID string) (*domain.CreditCard, error) {
	c, ok := st.cards[cardID]
	if !ok || c.OwnerID != ownerID {
		return nil, notFound("credit_card", cardID)
	}
	return &c, nil
}

func (st *state) ListCreditCards(_ context.Context, ownerID string) ([]domain.CreditCard, error) {
	out := []domain.CreditCard{}
	for _, c := range st.cards {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *state) GetDebt(_ context.Context, ownerID, debtID string) (*domain.Debt, error) {
	d, ok := st.debts[debtID]
	if !ok || d.OwnerID != ownerID {
		return nil, notFound("debt", debtID)
	}
	d = copyDebt(d)
	return &d, nil
}

func (st *state) ListDebts(_ context.Context, ownerID string, filter domain.DebtFilter) ([]domain.Debt, error) {
	out := []domain.Debt{}
	for _, d := range st.debts {
		if d.OwnerID == ownerID && filter.Matches(&d) {
			out = append(out, copyDebt(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (st *state) ListTransactions(_ context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	for i := range st.transactions {
		t := st.transactions[i]
		if t.OwnerID == ownerID && filter.Matches(&t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (st *state) PaidTotals(_ context.Context, ownerID string, debtIDs ...string) (map[string]decimal.Decimal, error) {
	var wanted map[string]bool
	if len(debtIDs) > 0 {
		wanted = make(map[string]bool, len(debtIDs))
		for _, id := range debtIDs {
			wanted[id] = true
		}
	}
	totals := map[string]decimal.Decimal{}
	for _, t := range st.transactions {
		if t.OwnerID != ownerID || t.DebtID == "" || t.Type != domain.TransactionExpense {
			continue
		}
		if wanted != nil && !wanted[t.DebtID] {
			continue
		}
		totals[t.DebtID] = totals[t.DebtID].Add(t.Amount)
	}
	return totals, nil
}

// --- writes ---

func (st *state) CreateAccount(_ context.Context, account *domain.Account) error {
	st.accounts[account.ID] = *account
	return nil
}

func (st *state) AdjustAccountBalance(_ context.Context, ownerID, accountID string, delta decimal.Decimal) error {
	a, ok := st.accounts[accountID]
	if !ok || a.OwnerID != ownerID {
		return notFound("account", accountID)
	}
	a.Balance = a.Balance.Add(delta)
	st.accounts[accountID] = a
	return nil
}

func (st *state) DeleteAccount(_ context.Context, ownerID, accountID string) error {
	a, ok := st.accounts[accountID]
	if !ok || a.OwnerID != ownerID {
		return notFound("account", accountID)
	}
	delete(st.accounts, accountID)
	for id, d := range st.debts {
		if d.AccountID == accountID {
			d.AccountID = ""
			st.debts[id] = d
		}
	}
	for id, c := range st.cards {
		if c.AccountID == accountID {
			c.AccountID = ""
			st.cards[id] = c
		}
	}
	for i := range st.transactions {
		if st.transactions[i].AccountID == accountID {
			st.transactions[i].AccountID = ""
		}
	}
	return nil
}

func (st *state) CreateWallet(_ context.Context, wallet *domain.Wallet) error {
	if wallet.IsDefault {
		for _, w := range st.wallets {
			if w.OwnerID == wallet.OwnerID && w.IsDefault {
				return &domain.ErrConflict{Resource: "wallet", ID: "default"}
			}
		}
	}
	st.wallets[wallet.ID] = *wallet
	return nil
}

func (st *state) AdjustWalletBalance(_ context.Context, ownerID, walletID string, delta decimal.Decimal) error {
	w, ok := st.wallets[walletID]
	if !ok || w.OwnerID != ownerID {
		return notFound("wallet", walletID)
	}
	w.Balance = w.Balance.Add(delta)
	st.wallets[walletID] = w
	return nil
}

func (st *state) CreateCategory(_ context.Context, category *domain.Category) error {
	st.categories[category.ID] = *category
	return nil
}

func (st *state) CreateCreditCard(_ context.Context, card *domain.CreditCard) error {
	st.cards[card.ID] = *card
	return nil
}

func (st *state) UpdateCreditCard(_ context.Context, card *domain.CreditCard) error {
	c, ok := st.cards[card.ID]
	if !ok || c.OwnerID != card.OwnerID {
		return notFound("credit_card", card.ID)
	}
	st.cards[card.ID] = *card
	return nil
}

func (st *state) DeleteCreditCard(_ context.Context, ownerID, cardID string) error {
	c, ok := st.cards[cardID]
	if !ok || c.OwnerID != ownerID {
		return notFound("credit_card", cardID)
	}
	delete(st.cards, cardID)
	removed := map[string]bool{}
	for id, d := range st.debts {
		if d.CreditCardID == cardID {
			removed[id] = true
			delete(st.debts, id)
		}
	}
	for i := range st.transactions {
		t := &st.transactions[i]
		if t.CreditCardID == cardID {
			t.CreditCardID = ""
		}
		if removed[t.DebtID] {
			t.DebtID = ""
		}
	}
	return nil
}

func (st *state) CreateDebt(_ context.Context, debt *domain.Debt) error {
	st.debts[debt.ID] = copyDebt(*debt)
	return nil
}

func (st *state) UpdateDebt(_ context.Context, debt *domain.Debt) error {
	current, ok := st.debts[debt.ID]
	if !ok || current.OwnerID != debt.OwnerID {
		return notFound("debt", debt.ID)
	}
	if current.Version != debt.Version {
		return &domain.ErrConflict{Resource: "debt", ID: debt.ID}
	}
	debt.Version++
	st.debts[debt.ID] = copyDebt(*debt)
	return nil
}

func (st *state) DeleteDebt(_ context.Context, ownerID, debtID string) error {
	d, ok := st.debts[debtID]
	if !ok || d.OwnerID != ownerID {
		return notFound("debt", debtID)
	}
	delete(st.debts, debtID)
	for i := range st.transactions {
		if st.transactions[i].DebtID == debtID {
			st.transactions[i].DebtID = ""
		}
	}
	return nil
}

func (st *state) InsertTransaction(_ context.Context, txn *domain.Transaction) error {
	st.transactions = append(st.transactions, *txn)
	return nil
}
