// Package storetest holds the behavior every port.LedgerStore must share.
// Store packages run it from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/port"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerA = "owner-a"
	ownerB = "owner-b"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// Run executes the contract suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) port.LedgerStore) {
	t.Run("AccountsAndBalances", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("DefaultWalletIsUnique", func(t *testing.T) { testDefaultWallet(t, newStore(t)) })
	t.Run("CategoriesSortedByName", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("DebtRoundTrip", func(t *testing.T) { testDebtRoundTrip(t, newStore(t)) })
	t.Run("DebtFilters", func(t *testing.T) { testDebtFilters(t, newStore(t)) })
	t.Run("OptimisticDebtUpdate", func(t *testing.T) { testOptimisticUpdate(t, newStore(t)) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("TransactionsAndPaidTotals", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("DeleteDebtKeepsTransactions", func(t *testing.T) { testDeleteDebt(t, newStore(t)) })
	t.Run("DeleteCardCascades", func(t *testing.T) { testDeleteCard(t, newStore(t)) })
	t.Run("DeleteAccountUnlinks", func(t *testing.T) { testDeleteAccount(t, newStore(t)) })
	t.Run("OwnerIsolation", func(t *testing.T) { testOwnerIsolation(t, newStore(t)) })
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func write(t *testing.T, store port.LedgerStore, fn func(ctx context.Context, tx port.LedgerTx) error) {
	t.Helper()
	require.NoError(t, store.WithTx(context.Background(), fn))
}

func requireNotFound(t *testing.T, err error) {
	t.Helper()
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
}

func seedCard(t *testing.T, store port.LedgerStore, owner, id string) *domain.CreditCard {
	t.Helper()
	card := &domain.CreditCard{
		ID: id, OwnerID: owner, Name: "Card " + id,
		Limit: money("1000"), AvailableLimit: money("1000"),
		BestPurchaseDay: 5, DueDay: 10,
		CreatedAt: base, UpdatedAt: base,
	}
	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.CreateCreditCard(ctx, card)
	})
	return card
}

func newDebt(owner, id, cardID, month string, amount string) *domain.Debt {
	due, _ := time.Parse(domain.MonthLayout, month)
	return &domain.Debt{
		ID: id, OwnerID: owner, Description: "Debt " + id,
		Amount: money(amount), Kind: domain.KindPurchase, Type: domain.DebtSingle,
		CreditCardID: cardID, DueDate: due.AddDate(0, 0, 9), Month: month,
		Version: 1, CreatedAt: base, UpdatedAt: base,
	}
}

func seedDebts(t *testing.T, store port.LedgerStore, debts ...*domain.Debt) {
	t.Helper()
	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		for _, d := range debts {
			if err := tx.CreateDebt(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func testAccounts(t *testing.T, store port.LedgerStore) {
	ctx := context.Background()
	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		if err := tx.CreateAccount(ctx, &domain.Account{ID: "acc-2", OwnerID: ownerA, Name: "Poupança",
			Type: domain.AccountSavings, Balance: money("10"), CreatedAt: base.Add(time.Hour)}); err != nil {
			return err
		}
		return tx.CreateAccount(ctx, &domain.Account{ID: "acc-1", OwnerID: ownerA, Name: "Conta",
			Type: domain.AccountChecking, Balance: money("500.25"), Bank: "Itaú", CreatedAt: base})
	})

	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.AdjustAccountBalance(ctx, ownerA, "acc-1", money("-40.10"))
	})

	acc, err := store.GetAccount(ctx, ownerA, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "Conta", acc.Name)
	assert.Equal(t, "Itaú", acc.Bank)
	assert.True(t, acc.Balance.Equal(money("460.15")), acc.Balance.String())

	list, err := store.ListAccounts(ctx, ownerA)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "acc-1", list[0].ID)

	err = store.WithTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.AdjustAccountBalance(ctx, ownerA, "missing", money("1"))
	})
	requireNotFound(t, err)
}

func testDefaultWallet(t *testing.T, store port.LedgerStore) {
	ctx := context.Background()

	_, err := store.GetDefaultWallet(ctx, ownerA)
	requireNotFound(t, err)

	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		if err := tx.CreateWallet(ctx, &domain.Wallet{ID: "w-extra", OwnerID: ownerA, Name: "Viagem", CreatedAt: base}); err != nil {
			return err
		}
		return tx.CreateWallet(ctx, &domain.Wallet{ID: "w-1", OwnerID: ownerA, Name: domain.DefaultWalletName,
			IsDefault: true, CreatedAt: base.Add(time.Hour)})
	})

	err = store.WithTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.CreateWallet(ctx, &domain.Wallet{ID: "w-2", OwnerID: ownerA, Name: "Outra", IsDefault: true, CreatedAt: base})
	})
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)

	// Another owner has a default wallet of its own.
	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.CreateWallet(ctx, &domain.Wallet{ID: "w-b", OwnerID: ownerB, Name: domain.DefaultWalletName, IsDefault: true, CreatedAt: base})
	})

	w, err := store.GetDefaultWallet(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, "w-1", w.ID)

	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.AdjustWalletBalance(ctx, ownerA, "w-1", money("-12.5"))
	})
	wallets, err := store.ListWallets(ctx, ownerA)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "w-1", wallets[0].ID, "default wallet first")
	assert.True(t, wallets[0].Balance.Equal(money("-12.5")))
}

func testCategories(t *testing.T, store port.LedgerStore) {
	ctx := context.Background()
	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		for _, c := range []domain.Category{
			{ID: "c-2", OwnerID: ownerA, Name: "Transporte", Type: "expense"},
			{ID: "c-1", OwnerID: ownerA, Name: "Alimentação", Type: "expense"},
			{ID: "c-3", OwnerID: ownerA, Name: "Salário", Type: "income"},
		} {
			c := c
			if err := tx.CreateCategory(ctx, &c); err != nil {
				return err
			}
		}
		return nil
	})
	list, err := store.ListCategories(ctx, ownerA)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Alimentação", "Salário", "Transporte"}, []string{list[0].Name, list[1].Name, list[2].Name})

	c, err := store.GetCategory(ctx, ownerA, "c-3")
	require.NoError(t, err)
	assert.Equal(t, "income", c.Type)
}

func testDebtRoundTrip(t *testing.T, store port.LedgerStore) {
	ctx := context.Background()
	seedCard(t, store, ownerA, "card-1")

	purchase := date("2025-03-03")
	paidAt := date("2025-03-20")
	d := newDebt(ownerA, "d-1", "card-1", "2025-03", "33.33")
	d.Description = "TV (1/3)"
	d.Type = domain.DebtInstallment
	d.PurchaseDate = &purchase
	d.Installments = &domain.Installments{Current: 1, Total: 3}
	d.GroupID = "g-1"
	d.Paid = true
	d.PaidAt = &paidAt
	seedDebts(t, store, d)

	got, err := store.GetDebt(ctx, ownerA, "d-1")
	require.NoError(t, err)
	assert.Equal(t, "TV (1/3)", got.Description)
	assert.True(t, got.Amount.Equal(money("33.33")))
	assert.Equal(t, domain.KindPurchase, got.Kind)
	assert.Equal(t, domain.DebtInstallment, got.Type)
	assert.Equal(t, "card-1", got.CreditCardID)
	assert.Equal(t, date("2025-03-10"), got.DueDate.UTC())
	require.NotNil(t, got.PurchaseDate)
	assert.Equal(t, purchase, got.PurchaseDate.UTC())
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, paidAt, got.PaidAt.UTC())
	assert.True(t, got.Paid)
	assert.Equal(t, &domain.Installments{Current: 1, Total: 3}, got.Installments)
	assert.Equal(t, "g-1", got.GroupID)
	assert.Equal(t, "2025-03", got.Month)
	assert.Equal(t, int64(1), got.Version)

	// Adjustments keep their sign.
	adj := newDebt(ownerA, "d-2", "card-1", "2025-03", "-50")
	adj.Kind = domain.KindAdjustment
	adj.Description = domain.AdjustmentDescription
	seedDebts(t, store, adj)
	got, err = store.GetDebt(ctx, ownerA, "d-2")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(money("-50")))
	assert.True(t, got.IsAdjustment())
	assert.Nil(t, got.PurchaseDate)
	assert.Nil(t, got.Installments)

	_, err = store.GetDebt(ctx, ownerA, "missing")
	requireNotFound(t, err)
}

func testDebtFilters(t *testing.T, store port.LedgerStore) {
	ctx := context.Background()
	seedCard(t, store, ownerA, "card-1")
	seedCard(t, store, ownerA, "card-2")

	march := newDebt(ownerA, "d-1", "card-1", "2025-03", "10")
	april := newDebt(ownerA, "d-2", "card-1", "2025-04", "20")
	april.GroupID = "g-1"
	april.Type = domain.DebtInstallment
	other := newDebt(ownerA, "d-3", "card-2", "2025-03", "30")
	other.Paid = true
	bill := newDebt(ownerA, "d-4", "", "2025-02", "40")
	bill.Type = domain.DebtMonthly
	seedDebts(t, store, april, march, other, bill)

	ids := func(filter domain.DebtFilter) []string {
		t.Helper()
		debts, err := store.ListDebts(ctx, ownerA, filter)
		require.NoError(t, err)
		out := make([]string, len(debts))
		for i, d := range debts {
			out[i] = d.ID
		}
		return out
	}
	unpaid, paid := false, true

	assert.Equal(t, []string{"d-4", "d-1", "d-3", "d-2"}, ids(domain.DebtFilter{}), "sorted by due date")
	assert.Equal(t, []string{"d-1", "d-2"}, ids(domain.DebtFilter{CreditCardID: "card-1"}))
	assert.Equal(t, []string{"d-1", "d-3"}, ids(domain.DebtFilter{Month: "2025-03"}))
	assert.Equal(t, []string{"d-3"}, ids(domain.DebtFilter{Paid: &paid}))
	assert.Equal(t, []string{"d-4", "d-1", "d-2"}, ids(domain.DebtFilter{Paid: &unpaid}))
	assert.Equal(t, []string{"d-4"}, ids(domain.DebtFilter{Type: domain.DebtMonthly}))
	assert.Equal(t, []string{"d-2"}, ids(domain.DebtFilter{GroupID: "g-1"}))
	assert.Equal(t, []string{"d-1"}, ids(domain.DebtFilter{CreditCardID: "card-1", Month: "2025-03", Paid: &unpaid}))
}

func testOptimisticUpdate(t *testing.T, store port.LedgerStore) {
	ctx := context.Background()
	seedDebts(t, store, newDebt(ownerA, "d-1", "", "2025-03", "10"))

	stale, err := store.GetDebt(ctx, ownerA, "d-1")
	require.NoError(t, err)

	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		d, err := tx.GetDebt(ctx, ownerA, "d-1")
		if err != nil {
			return err
		}
		d.Amount = money("15")
		if err := tx.UpdateDebt(ctx, d); err != nil {
			return err
		}
		if d.Version != 2 {
			return errors.New("version not bumped on the written value")
		}
		return nil
	})

	stale.Amount = money("99")
	err = store.WithTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.UpdateDebt(ctx, stale)
	})
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "debt", conflict.Resource)

	got, err := store.GetDebt(ctx, ownerA, "d-1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(money("15")))
	assert.Equal(t, int64(2), got.Version)
}

func testRollback(t *testing.T, store port.LedgerStore) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		if err := tx.CreateAccount(ctx, &domain.Account{ID: "acc-1", OwnerID: ownerA, Name: "Conta",
			Type: domain.AccountChecking, Balance: decimal.Zero, CreatedAt: base}); err != nil {
			return err
		}
		// Writes are visible inside the transaction.
		if _, err := tx.GetAccount(ctx, ownerA, "acc-1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetAccount(ctx, ownerA, "acc-1")
	requireNotFound(t, err)
}

func testTransactions(t *testing.T, store port.LedgerStore) {
	ctx := context.Background()
	seedDebts(t, store,
		newDebt(ownerA, "d-1", "", "2025-03", "100"),
		newDebt(ownerA, "d-2", "", "2025-03", "50"),
	)
	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		for _, txn := range []domain.Transaction{
			{ID: "t-1", OwnerID: ownerA, Type: domain.TransactionExpense, Amount: money("30"), Date: date("2025-03-05"), Month: "2025-03", DebtID: "d-1", CreatedAt: base},
			{ID: "t-2", OwnerID: ownerA, Type: domain.TransactionExpense, Amount: money("20.50"), Date: date("2025-04-02"), Month: "2025-04", DebtID: "d-1", CreatedAt: base},
			{ID: "t-3", OwnerID: ownerA, Type: domain.TransactionIncome, Amount: money("1000"), Date: date("2025-03-01"), Month: "2025-03", CreatedAt: base},
		} {
			txn := txn
			if err := tx.InsertTransaction(ctx, &txn); err != nil {
				return err
			}
		}
		return nil
	})

	all, err := store.ListTransactions(ctx, ownerA, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"t-2", "t-1", "t-3"}, []string{all[0].ID, all[1].ID, all[2].ID}, "newest first")
	assert.True(t, all[0].Amount.Equal(money("20.50")))
	assert.Equal(t, date("2025-04-02"), all[0].Date.UTC())

	byDebt, err := store.ListTransactions(ctx, ownerA, domain.TransactionFilter{DebtID: "d-1", Month: "2025-03"})
	require.NoError(t, err)
	require.Len(t, byDebt, 1)
	assert.Equal(t, "t-1", byDebt[0].ID)

	income, err := store.ListTransactions(ctx, ownerA, domain.TransactionFilter{Type: domain.TransactionIncome})
	require.NoError(t, err)
	require.Len(t, income, 1)

	totals, err := store.PaidTotals(ctx, ownerA, "d-1", "d-2")
	require.NoError(t, err)
	assert.True(t, totals["d-1"].Equal(money("50.50")), totals["d-1"].String())
	assert.True(t, totals["d-2"].IsZero())

	everything, err := store.PaidTotals(ctx, ownerA)
	require.NoError(t, err)
	assert.True(t, everything["d-1"].Equal(money("50.50")))
}

func testDeleteDebt(t *testing.T, store port.LedgerStore) {
	ctx := context.Background()
	seedDebts(t, store, newDebt(ownerA, "d-1", "", "2025-03", "100"))
	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.InsertTransaction(ctx, &domain.Transaction{ID: "t-1", OwnerID: ownerA, Type: domain.TransactionExpense,
			Amount: money("30"), Date: date("2025-03-05"), Month: "2025-03", DebtID: "d-1", CreatedAt: base})
	})

	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.DeleteDebt(ctx, ownerA, "d-1")
	})

	_, err := store.GetDebt(ctx, ownerA, "d-1")
	requireNotFound(t, err)
	txns, err := store.ListTransactions(ctx, ownerA, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Empty(t, txns[0].DebtID)

	err = store.WithTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.DeleteDebt(ctx, ownerA, "d-1")
	})
	requireNotFound(t, err)
}

func testDeleteCard(t *testing.T, store port.LedgerStore) {
	ctx := context.Background()
	seedCard(t, store, ownerA, "card-1")
	seedCard(t, store, ownerA, "card-2")
	seedDebts(t, store,
		newDebt(ownerA, "d-1", "card-1", "2025-03", "10"),
		newDebt(ownerA, "d-2", "card-1", "2025-04", "20"),
		newDebt(ownerA, "d-3", "card-2", "2025-03", "30"),
	)
	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.InsertTransaction(ctx, &domain.Transaction{ID: "t-1", OwnerID: ownerA, Type: domain.TransactionExpense,
			Amount: money("10"), Date: date("2025-03-05"), Month: "2025-03", DebtID: "d-1", CreditCardID: "card-1", CreatedAt: base})
	})

	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.DeleteCreditCard(ctx, ownerA, "card-1")
	})

	_, err := store.GetCreditCard(ctx, ownerA, "card-1")
	requireNotFound(t, err)
	debts, err := store.ListDebts(ctx, ownerA, domain.DebtFilter{})
	require.NoError(t, err)
	require.Len(t, debts, 1)
	assert.Equal(t, "d-3", debts[0].ID)

	txns, err := store.ListTransactions(ctx, ownerA, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Empty(t, txns[0].DebtID)
	assert.Empty(t, txns[0].CreditCardID)
}

func testDeleteAccount(t *testing.T, store port.LedgerStore) {
	ctx := context.Background()
	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.CreateAccount(ctx, &domain.Account{ID: "acc-1", OwnerID: ownerA, Name: "Conta",
			Type: domain.AccountChecking, Balance: decimal.Zero, CreatedAt: base})
	})
	card := &domain.CreditCard{ID: "card-1", OwnerID: ownerA, Name: "Card", Limit: money("100"), AvailableLimit: money("100"),
		BestPurchaseDay: 5, DueDay: 10, AccountID: "acc-1", CreatedAt: base, UpdatedAt: base}
	debt := newDebt(ownerA, "d-1", "", "2025-03", "10")
	debt.AccountID = "acc-1"
	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		if err := tx.CreateCreditCard(ctx, card); err != nil {
			return err
		}
		if err := tx.CreateDebt(ctx, debt); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, &domain.Transaction{ID: "t-1", OwnerID: ownerA, Type: domain.TransactionExpense,
			Amount: money("10"), Date: date("2025-03-05"), Month: "2025-03", AccountID: "acc-1", CreatedAt: base})
	})

	write(t, store, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.DeleteAccount(ctx, ownerA, "acc-1")
	})

	c, err := store.GetCreditCard(ctx, ownerA, "card-1")
	require.NoError(t, err)
	assert.Empty(t, c.AccountID)
	d, err := store.GetDebt(ctx, ownerA, "d-1")
	require.NoError(t, err)
	assert.Empty(t, d.AccountID)
	txns, err := store.ListTransactions(ctx, ownerA, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns[0].AccountID)
}

func testOwnerIsolation(t *testing.T, store port.LedgerStore) {
	ctx := context.Background()
	seedCard(t, store, ownerA, "card-1")
	seedDebts(t, store, newDebt(ownerA, "d-1", "card-1", "2025-03", "10"))

	_, err := store.GetCreditCard(ctx, ownerB, "card-1")
	requireNotFound(t, err)
	_, err = store.GetDebt(ctx, ownerB, "d-1")
	requireNotFound(t, err)

	debts, err := store.ListDebts(ctx, ownerB, domain.DebtFilter{})
	require.NoError(t, err)
	assert.Empty(t, debts)
	cards, err := store.ListCreditCards(ctx, ownerB)
	require.NoError(t, err)
	assert.Empty(t, cards)

	err = store.WithTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.DeleteCreditCard(ctx, ownerB, "card-1")
	})
	requireNotFound(t, err)

	err = store.WithTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		d := newDebt(ownerB, "d-1", "", "2025-03", "10")
		return tx.UpdateDebt(ctx, d)
	})
	requireNotFound(t, err)
}
