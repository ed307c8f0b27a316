package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/infra/memstore"
	"github.com/ClebyFrancisco/fineixo/internal/infra/storetest"
	"github.com/ClebyFrancisco/fineixo/internal/port"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.LedgerStore { return memstore.New() })
}

func TestReadsDoNotAliasStoredDebts(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	purchase := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx port.LedgerTx) error {
		return tx.CreateDebt(ctx, &domain.Debt{
			ID: "d-1", OwnerID: "o", Amount: decimal.NewFromInt(10), Month: "2025-03",
			PurchaseDate: &purchase, Installments: &domain.Installments{Current: 1, Total: 2}, Version: 1,
		})
	}))

	got, err := store.GetDebt(ctx, "o", "d-1")
	require.NoError(t, err)
	got.Installments.Current = 99
	*got.PurchaseDate = purchase.AddDate(1, 0, 0)

	again, err := store.GetDebt(ctx, "o", "d-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Installments.Current)
	assert.Equal(t, purchase, *again.PurchaseDate)
}

func TestCanceledContextSkipsTransaction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := memstore.New().WithTx(ctx, func(context.Context, port.LedgerTx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
