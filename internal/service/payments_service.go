package service

import (
	"context"
	"fmt"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Debt Payments
// ============================================================

// PayDebt applies a partial or full payment to a debt: it debits the funding
// source, records the expense transaction and marks the debt paid once the
// linked payments reach its amount. Everything happens in one transaction.
func (s *LedgerService) PayDebt(ctx context.Context, ownerID, debtID string, req *domain.PayDebtRequest) (*domain.PaymentResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.PayDebt")
	defer span.End()
	span.SetAttributes(attribute.String("debt.id", debtID))

	amount := domain.RoundMoney(req.Amount)
	if !amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "deve ser maior que zero"}
	}
	source := req.Source
	if source.Kind == "" {
		source.Kind = domain.FundingDefault
		if source.ID != "" {
			return nil, &domain.ErrValidation{Field: "source.kind", Message: "obrigatório quando source.id é informado"}
		}
	}
	switch source.Kind {
	case domain.FundingAccount, domain.FundingWallet:
		if source.ID == "" {
			return nil, &domain.ErrValidation{Field: "source.id", Message: "obrigatório"}
		}
	case domain.FundingDefault:
	default:
		return nil, &domain.ErrValidation{Field: "source.kind", Message: "deve ser account, wallet ou default"}
	}
	date := s.today()
	if !req.Date.IsZero() {
		date = domain.DateOnly(req.Date)
	}

	result := &domain.PaymentResult{}
	err := s.write(ctx, "pay_debt", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
		debt, err := tx.GetDebt(ctx, ownerID, debtID)
		if err != nil {
			return err
		}
		if req.ExpectedVersion != 0 && req.ExpectedVersion != debt.Version {
			return &domain.ErrConflict{Resource: "debt", ID: debt.ID}
		}

		paid, err := tx.PaidTotals(ctx, ownerID, debt.ID)
		if err != nil {
			return err
		}
		totalPaid := paid[debt.ID]
		left := debt.Amount.Sub(totalPaid)
		if amount.GreaterThan(left) {
			return &domain.ErrBusinessRule{
				Rule:    "payment_exceeds_remaining",
				Message: fmt.Sprintf("pagamento de %s excede o saldo restante de %s", amount.StringFixed(2), left.StringFixed(2)),
			}
		}

		txn := domain.Transaction{
			ID:           uuid.NewString(),
			OwnerID:      ownerID,
			Type:         domain.TransactionExpense,
			Amount:       amount,
			Date:         date,
			Month:        domain.MonthOf(date),
			CategoryID:   debt.CategoryID,
			CreditCardID: debt.CreditCardID,
			DebtID:       debt.ID,
			CreatedAt:    s.now().UTC(),
		}

		switch source.Kind {
		case domain.FundingAccount:
			if _, err := tx.GetAccount(ctx, ownerID, source.ID); err != nil {
				return err
			}
			if err := tx.AdjustAccountBalance(ctx, ownerID, source.ID, amount.Neg()); err != nil {
				return err
			}
			txn.AccountID = source.ID
		case domain.FundingWallet:
			if _, err := tx.GetWallet(ctx, ownerID, source.ID); err != nil {
				return err
			}
			if err := tx.AdjustWalletBalance(ctx, ownerID, source.ID, amount.Neg()); err != nil {
				return err
			}
			txn.WalletID = source.ID
		default:
			wallet, err := s.defaultWalletTx(ctx, tx, ownerID)
			if err != nil {
				return err
			}
			if err := tx.AdjustWalletBalance(ctx, ownerID, wallet.ID, amount.Neg()); err != nil {
				return err
			}
			txn.WalletID = wallet.ID
		}

		newTotal := totalPaid.Add(amount)
		settled := newTotal.GreaterThanOrEqual(debt.Amount)
		if settled {
			txn.Description = "Pagamento total: " + debt.Description
		} else {
			txn.Description = "Pagamento parcial: " + debt.Description
		}
		if err := tx.InsertTransaction(ctx, &txn); err != nil {
			return fmt.Errorf("inserting payment transaction: %w", err)
		}

		before := *debt
		if settled && !debt.Paid {
			debt.Paid = true
		}
		if debt.Paid && debt.PaidAt == nil {
			paidAt := date
			debt.PaidAt = &paidAt
		}
		debt.UpdatedAt = s.now().UTC()
		// Every payment bumps the version, so concurrent payers serialize on it.
		if err := tx.UpdateDebt(ctx, debt); err != nil {
			return err
		}

		settlements, err := s.settleLimits(ctx, tx, ownerID, changeEffects(&before, debt), false)
		if err != nil {
			return err
		}

		result.Transaction = txn
		result.Debt = *debt
		result.TotalPaid = newTotal
		result.Remaining = debt.Amount.Sub(newTotal)
		if len(settlements) > 0 {
			result.Card = &settlements[0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("debt payment applied",
		zap.String("owner_id", ownerID),
		zap.String("debt_id", debtID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("source", string(source.Kind)),
		zap.Bool("paid", result.Debt.Paid),
	)
	s.publish(ctx, domain.LedgerEvent{
		Type:          domain.EventDebtPaid,
		OwnerID:       ownerID,
		DebtIDs:       []string{debtID},
		CreditCardID:  result.Debt.CreditCardID,
		TransactionID: result.Transaction.ID,
	})
	return result, nil
}
