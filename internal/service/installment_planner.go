package service

import (
	"fmt"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/domain"

	"github.com/shopspring/decimal"
)

// ============================================================
// Installment Planner
// ============================================================

// PlanInput describes a purchase to expand into dated debt drafts.
type PlanInput struct {
	Description   string
	Amount        decimal.Decimal
	IsTotalAmount bool
	Count         int
	Type          domain.DebtType
	// PurchaseDate anchors card purchases.
	PurchaseDate time.Time
	// DueDate anchors debts without a card.
	DueDate time.Time
	// Card, when set, supplies the billing cycle (BestPurchaseDay, DueDay).
	Card *domain.CreditCard
	// GroupID is shared by every draft when Count > 1.
	GroupID string
}

// PlanInstallments expands a purchase into Count debt drafts numbered 1..Count.
// Drafts carry no id, owner or timestamps.
//
// A card purchase made before the card's best purchase day lands in the
// purchase month, otherwise in the following one; its due day is the card's.
// Other debts start in the month of DueDate and keep its day. Days that do not
// exist in a target month are clamped to its last day.
func PlanInstallments(in PlanInput) ([]domain.Debt, error) {
	if in.Count < 1 {
		return nil, &domain.ErrValidation{Field: "installment_count", Message: "deve ser maior ou igual a 1"}
	}
	if in.Amount.IsNegative() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "não pode ser negativo"}
	}

	amount := in.Amount
	if in.IsTotalAmount && in.Count > 1 {
		amount = amount.Div(decimal.NewFromInt(int64(in.Count)))
	}
	amount = domain.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "valor da parcela deve ser maior que zero"}
	}

	var (
		base   time.Time
		offset int
		day    int
	)
	if in.Card != nil {
		if err := validateDay("best_purchase_day", in.Card.BestPurchaseDay); err != nil {
			return nil, err
		}
		if err := validateDay("due_day", in.Card.DueDay); err != nil {
			return nil, err
		}
		if in.PurchaseDate.IsZero() {
			return nil, &domain.ErrValidation{Field: "purchase_date", Message: "obrigatório para compras no cartão"}
		}
		base = domain.DateOnly(in.PurchaseDate)
		if base.Day() >= in.Card.BestPurchaseDay {
			offset = 1
		}
		day = in.Card.DueDay
	} else {
		if in.DueDate.IsZero() {
			return nil, &domain.ErrValidation{Field: "due_date", Message: "obrigatório"}
		}
		base = domain.DateOnly(in.DueDate)
		day = base.Day()
	}

	kind := in.Type
	if kind == "" {
		kind = domain.DebtSingle
	}
	if in.Count > 1 {
		kind = domain.DebtInstallment
	}

	var purchase *time.Time
	if !in.PurchaseDate.IsZero() {
		p := domain.DateOnly(in.PurchaseDate)
		purchase = &p
	}

	drafts := make([]domain.Debt, 0, in.Count)
	for i := 1; i <= in.Count; i++ {
		due := domain.ShiftMonths(base, offset+i-1, day)
		d := domain.Debt{
			Description:  in.Description,
			Amount:       amount,
			Kind:         domain.KindPurchase,
			Type:         kind,
			DueDate:      due,
			PurchaseDate: purchase,
			Month:        domain.MonthOf(due),
		}
		if in.Card != nil {
			d.CreditCardID = in.Card.ID
		}
		if in.Count > 1 {
			d.Description = domain.InstallmentDescription(in.Description, i, in.Count)
			d.Installments = &domain.Installments{Current: i, Total: in.Count}
			d.GroupID = in.GroupID
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func validateDay(field string, day int) error {
	if day < 1 || day > 31 {
		return &domain.ErrValidation{Field: field, Message: fmt.Sprintf("dia %d fora do intervalo 1-31", day)}
	}
	return nil
}
