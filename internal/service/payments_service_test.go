package service_test

import (
	"sync"
	"testing"

	"github.com/ClebyFrancisco/fineixo/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) bill(t *testing.T, amount string) domain.Debt {
	t.Helper()
	due := day("2025-03-10")
	res, err := f.svc.CreateDebt(f.ctx, owner, &domain.CreateDebtRequest{
		Description: "Conta de luz",
		Amount:      dec(amount),
		DueDate:     &due,
	})
	require.NoError(t, err)
	return res.Debts[0]
}

func TestPayDebt_PartialThenTotal(t *testing.T) {
	f := newFixture(t)
	debt := f.bill(t, "100")

	first, err := f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{Amount: dec("40"), Date: day("2025-03-05")})
	require.NoError(t, err)
	assert.False(t, first.Debt.Paid)
	assert.Nil(t, first.Debt.PaidAt)
	assertMoney(t, "40", first.TotalPaid)
	assertMoney(t, "60", first.Remaining)
	assert.Equal(t, "Pagamento parcial: Conta de luz", first.Transaction.Description)
	assert.Equal(t, domain.TransactionExpense, first.Transaction.Type)
	assert.Equal(t, debt.ID, first.Transaction.DebtID)
	assert.Equal(t, "2025-03", first.Transaction.Month)

	second, err := f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{Amount: dec("60"), Date: day("2025-04-02")})
	require.NoError(t, err)
	assert.True(t, second.Debt.Paid)
	require.NotNil(t, second.Debt.PaidAt)
	assert.Equal(t, day("2025-04-02"), *second.Debt.PaidAt)
	assertMoney(t, "0", second.Remaining)
	assert.Equal(t, "Pagamento total: Conta de luz", second.Transaction.Description)
	assert.Equal(t, "2025-04", second.Transaction.Month)
	assert.EqualValues(t, 3, second.Debt.Version)

	// Both payments came out of the lazily created default wallet.
	wallet, err := f.svc.DefaultWallet(f.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultWalletName, wallet.Name)
	assert.True(t, wallet.IsDefault)
	assertMoney(t, "-100", wallet.Balance)
	assert.Equal(t, wallet.ID, second.Transaction.WalletID)

	txns, err := f.svc.ListTransactions(f.ctx, owner, domain.TransactionFilter{DebtID: debt.ID})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, second.Transaction.ID, txns[0].ID, "newest first")
}

func TestPayDebt_RejectsMoreThanRemaining(t *testing.T) {
	f := newFixture(t)
	debt := f.bill(t, "100")
	_, err := f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{Amount: dec("70")})
	require.NoError(t, err)

	_, err = f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{Amount: dec("30.01")})
	var rule *domain.ErrBusinessRule
	require.ErrorAs(t, err, &rule)
	assert.Equal(t, "payment_exceeds_remaining", rule.Rule)

	paid, err := f.store.PaidTotals(f.ctx, owner, debt.ID)
	require.NoError(t, err)
	assertMoney(t, "70", paid[debt.ID])
	wallet, err := f.store.GetDefaultWallet(f.ctx, owner)
	require.NoError(t, err)
	assertMoney(t, "-70", wallet.Balance)
}

func TestPayDebt_RejectedPaymentCreatesNothing(t *testing.T) {
	f := newFixture(t)
	debt := f.bill(t, "100")

	_, err := f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{Amount: dec("150")})
	var rule *domain.ErrBusinessRule
	require.ErrorAs(t, err, &rule)

	_, err = f.store.GetDefaultWallet(f.ctx, owner)
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf, "default wallet must not be created by a rejected payment")
	txns, err := f.store.ListTransactions(f.ctx, owner, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestPayDebt_InvalidAmount(t *testing.T) {
	f := newFixture(t)
	debt := f.bill(t, "100")

	for _, amount := range []string{"0", "-10", "0.004"} {
		_, err := f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{Amount: dec(amount)})
		var verr *domain.ErrValidation
		require.ErrorAs(t, err, &verr, amount)
	}
}

func TestPayDebt_FromAccountAndWallet(t *testing.T) {
	f := newFixture(t)
	debt := f.bill(t, "100")
	account, err := f.svc.CreateAccount(f.ctx, owner, &domain.AccountRequest{Name: "Conta Corrente", Balance: dec("500"), Bank: "Itaú"})
	require.NoError(t, err)
	wallet, err := f.svc.CreateWallet(f.ctx, owner, &domain.WalletRequest{Name: "Cofre", Balance: dec("20")})
	require.NoError(t, err)

	res, err := f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{
		Amount: dec("40"),
		Source: domain.FundingSource{Kind: domain.FundingAccount, ID: account.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, account.ID, res.Transaction.AccountID)
	assert.Equal(t, day("2025-03-03"), res.Transaction.Date, "defaults to today")

	_, err = f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{
		Amount: dec("50"),
		Source: domain.FundingSource{Kind: domain.FundingWallet, ID: wallet.ID},
	})
	require.NoError(t, err)

	got, err := f.svc.GetAccount(f.ctx, owner, account.ID)
	require.NoError(t, err)
	assertMoney(t, "460", got.Balance)
	w, err := f.store.GetWallet(f.ctx, owner, wallet.ID)
	require.NoError(t, err)
	assertMoney(t, "-30", w.Balance, "negative balances are allowed")
}

func TestPayDebt_UnknownFundingSourceRollsBack(t *testing.T) {
	f := newFixture(t)
	debt := f.bill(t, "100")

	_, err := f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{
		Amount: dec("40"),
		Source: domain.FundingSource{Kind: domain.FundingAccount, ID: "missing"},
	})
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "account", nf.Resource)

	txns, err := f.store.ListTransactions(f.ctx, owner, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
	d, err := f.store.GetDebt(f.ctx, owner, debt.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, d.Version)
}

func TestPayDebt_SourceValidation(t *testing.T) {
	f := newFixture(t)
	debt := f.bill(t, "100")

	sources := []domain.FundingSource{
		{Kind: domain.FundingAccount},
		{Kind: "pix", ID: "x"},
		{ID: "wallet-without-kind"},
	}
	for _, src := range sources {
		_, err := f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{Amount: dec("1"), Source: src})
		var verr *domain.ErrValidation
		require.ErrorAs(t, err, &verr, "%+v", src)
	}
}

func TestPayDebt_UnknownDebt(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PayDebt(f.ctx, owner, "missing", &domain.PayDebtRequest{Amount: dec("1")})
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "debt", nf.Resource)
}

func TestPayDebt_ExpectedVersion(t *testing.T) {
	f := newFixture(t)
	debt := f.bill(t, "100")

	_, err := f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{Amount: dec("10"), ExpectedVersion: debt.Version})
	require.NoError(t, err)

	// The first payment bumped the version; a payer still holding it is stale.
	_, err = f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{Amount: dec("10"), ExpectedVersion: debt.Version})
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(1), f.metrics.GetLedgerSnapshot().Conflicts)

	paid, err := f.store.PaidTotals(f.ctx, owner, debt.ID)
	require.NoError(t, err)
	assertMoney(t, "10", paid[debt.ID])
}

func TestPayDebt_PaidAtSetOnlyOnce(t *testing.T) {
	f := newFixture(t)
	debt := f.bill(t, "100")

	paid := true
	_, err := f.svc.UpdateDebt(f.ctx, owner, debt.ID, &domain.DebtPatch{Paid: &paid}, domain.ScopeThis)
	require.NoError(t, err)

	res, err := f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{Amount: dec("100"), Date: day("2025-05-01")})
	require.NoError(t, err)
	require.NotNil(t, res.Debt.PaidAt)
	assert.Equal(t, day("2025-03-03"), *res.Debt.PaidAt)
}

func TestPayDebt_CardDebtRestoresLimitWhenSettled(t *testing.T) {
	f := newFixture(t)
	card := f.card(t, "1000", 5, 10)
	f.purchase(t, card.ID, "100", "2025-03-01", 1)
	res := f.purchase(t, card.ID, "250", "2025-03-02", 1)
	assertMoney(t, "650", f.available(t, card.ID))

	partial, err := f.svc.PayDebt(f.ctx, owner, res.Debts[0].ID, &domain.PayDebtRequest{Amount: dec("100")})
	require.NoError(t, err)
	assert.Nil(t, partial.Card, "partial payments leave the limit alone")
	assertMoney(t, "650", f.available(t, card.ID))

	total, err := f.svc.PayDebt(f.ctx, owner, res.Debts[0].ID, &domain.PayDebtRequest{Amount: dec("150")})
	require.NoError(t, err)
	require.NotNil(t, total.Card)
	assertMoney(t, "900", total.Card.Card.AvailableLimit)
	assertMoney(t, "900", f.available(t, card.ID))
	assert.Equal(t, card.ID, total.Transaction.CreditCardID)
	f.assertLimitInvariant(t, card.ID)
}

func TestPayDebt_ConcurrentPaymentsNeverOverpay(t *testing.T) {
	f := newFixture(t)
	debt := f.bill(t, "100")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PayDebt(f.ctx, owner, debt.ID, &domain.PayDebtRequest{Amount: dec("30")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var rule *domain.ErrBusinessRule
		require.ErrorAs(t, err, &rule)
	}
	assert.Equal(t, 3, succeeded)

	paid, err := f.store.PaidTotals(f.ctx, owner, debt.ID)
	require.NoError(t, err)
	assertMoney(t, "90", paid[debt.ID])
}

func TestDefaultWallet_ConcurrentFirstUse(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := f.svc.DefaultWallet(f.ctx, owner)
			if err == nil {
				ids[i] = w.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	wallets, err := f.svc.ListWallets(f.ctx, owner)
	require.NoError(t, err)
	assert.Len(t, wallets, 1)
}
