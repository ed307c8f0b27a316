package service_test

import (
	"testing"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPlanInstallments_CardPurchaseBeforeBestDay(t *testing.T) {
	card := &domain.CreditCard{ID: "card-1", BestPurchaseDay: 5, DueDay: 10}

	drafts, err := service.PlanInstallments(service.PlanInput{
		Description:  "Mercado",
		Amount:       dec("300"),
		Count:        1,
		PurchaseDate: day("2025-03-03"),
		Card:         card,
	})
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	d := drafts[0]
	assert.Equal(t, "Mercado", d.Description)
	assert.Equal(t, day("2025-03-10"), d.DueDate)
	assert.Equal(t, "2025-03", d.Month)
	assert.Nil(t, d.Installments)
	assert.Empty(t, d.GroupID)
	assert.Equal(t, "card-1", d.CreditCardID)
	assert.Equal(t, domain.DebtSingle, d.Type)
	require.NotNil(t, d.PurchaseDate)
	assert.Equal(t, day("2025-03-03"), *d.PurchaseDate)
}

func TestPlanInstallments_CardPurchaseOnBestDayMovesToNextMonth(t *testing.T) {
	card := &domain.CreditCard{ID: "card-1", BestPurchaseDay: 5, DueDay: 10}

	for _, purchase := range []string{"2025-03-05", "2025-03-20"} {
		drafts, err := service.PlanInstallments(service.PlanInput{
			Description:  "Farmácia",
			Amount:       dec("50"),
			Count:        1,
			PurchaseDate: day(purchase),
			Card:         card,
		})
		require.NoError(t, err)
		assert.Equal(t, day("2025-04-10"), drafts[0].DueDate, purchase)
		assert.Equal(t, "2025-04", drafts[0].Month, purchase)
	}
}

func TestPlanInstallments_TotalAmountSplit(t *testing.T) {
	card := &domain.CreditCard{ID: "card-1", BestPurchaseDay: 5, DueDay: 10}

	drafts, err := service.PlanInstallments(service.PlanInput{
		Description:   "TV",
		Amount:        dec("100"),
		IsTotalAmount: true,
		Count:         3,
		PurchaseDate:  day("2025-03-03"),
		Card:          card,
		GroupID:       "group-1",
	})
	require.NoError(t, err)
	require.Len(t, drafts, 3)

	sum := decimal.Zero
	for i, d := range drafts {
		n := i + 1
		assert.True(t, d.Amount.Equal(dec("33.33")), "installment %d amount %s", n, d.Amount)
		assert.Equal(t, domain.InstallmentDescription("TV", n, 3), d.Description)
		require.NotNil(t, d.Installments)
		assert.Equal(t, domain.Installments{Current: n, Total: 3}, *d.Installments)
		assert.Equal(t, "group-1", d.GroupID)
		assert.Equal(t, domain.DebtInstallment, d.Type)
		sum = sum.Add(d.Amount)
	}
	assert.Equal(t, []string{"2025-03", "2025-04", "2025-05"}, []string{drafts[0].Month, drafts[1].Month, drafts[2].Month})

	tolerance := dec("0.03")
	assert.True(t, sum.Sub(dec("100")).Abs().LessThanOrEqual(tolerance), "sum %s", sum)
}

func TestPlanInstallments_PerInstallmentAmount(t *testing.T) {
	drafts, err := service.PlanInstallments(service.PlanInput{
		Description: "Curso",
		Amount:      dec("250.005"),
		Count:       2,
		DueDate:     day("2025-06-15"),
		GroupID:     "g",
	})
	require.NoError(t, err)
	for _, d := range drafts {
		assert.True(t, d.Amount.Equal(dec("250.01")), d.Amount.String())
	}
}

func TestPlanInstallments_DayClampedToMonthEnd(t *testing.T) {
	card := &domain.CreditCard{ID: "card-1", BestPurchaseDay: 5, DueDay: 31}

	drafts, err := service.PlanInstallments(service.PlanInput{
		Description:  "Sofá",
		Amount:       dec("90"),
		Count:        3,
		PurchaseDate: day("2025-01-10"),
		Card:         card,
		GroupID:      "g",
	})
	require.NoError(t, err)

	assert.Equal(t, day("2025-02-28"), drafts[0].DueDate)
	assert.Equal(t, day("2025-03-31"), drafts[1].DueDate)
	assert.Equal(t, day("2025-04-30"), drafts[2].DueDate)
}

func TestPlanInstallments_NonCardStartsAtDueDate(t *testing.T) {
	drafts, err := service.PlanInstallments(service.PlanInput{
		Description: "Empréstimo",
		Amount:      dec("200"),
		Count:       3,
		DueDate:     day("2025-01-31"),
		GroupID:     "g",
	})
	require.NoError(t, err)

	assert.Equal(t, day("2025-01-31"), drafts[0].DueDate)
	assert.Equal(t, day("2025-02-28"), drafts[1].DueDate)
	assert.Equal(t, day("2025-03-31"), drafts[2].DueDate)
	assert.Equal(t, "2025-01", drafts[0].Month)
	assert.Empty(t, drafts[0].CreditCardID)
}

func TestPlanInstallments_YearRollover(t *testing.T) {
	card := &domain.CreditCard{ID: "card-1", BestPurchaseDay: 1, DueDay: 8}

	drafts, err := service.PlanInstallments(service.PlanInput{
		Description:  "Viagem",
		Amount:       dec("120"),
		Count:        2,
		PurchaseDate: day("2025-12-15"),
		Card:         card,
		GroupID:      "g",
	})
	require.NoError(t, err)
	assert.Equal(t, day("2026-01-08"), drafts[0].DueDate)
	assert.Equal(t, day("2026-02-08"), drafts[1].DueDate)
}

func TestPlanInstallments_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    service.PlanInput
		field string
	}{
		{"zero count", service.PlanInput{Description: "x", Amount: dec("1"), DueDate: day("2025-01-01")}, "installment_count"},
		{"negative amount", service.PlanInput{Description: "x", Amount: dec("-1"), Count: 1, DueDate: day("2025-01-01")}, "amount"},
		{"zero amount", service.PlanInput{Description: "x", Amount: dec("0"), Count: 1, DueDate: day("2025-01-01")}, "amount"},
		{"total too small to split", service.PlanInput{Description: "x", Amount: dec("0.01"), Count: 3, IsTotalAmount: true,
			DueDate: day("2025-01-01")}, "amount"},
		{"missing due date", service.PlanInput{Description: "x", Amount: dec("1"), Count: 1}, "due_date"},
		{"bad due day", service.PlanInput{Description: "x", Amount: dec("1"), Count: 1, PurchaseDate: day("2025-01-01"),
			Card: &domain.CreditCard{BestPurchaseDay: 5, DueDay: 32}}, "due_day"},
		{"missing purchase date", service.PlanInput{Description: "x", Amount: dec("1"), Count: 1,
			Card: &domain.CreditCard{BestPurchaseDay: 5, DueDay: 10}}, "purchase_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.PlanInstallments(tt.in)
			var verr *domain.ErrValidation
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
