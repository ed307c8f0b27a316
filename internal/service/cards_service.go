package service

import (
	"context"
	"strings"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Credit Cards
// ============================================================

// CreateCreditCard registers a card with its whole limit available.
func (s *LedgerService) CreateCreditCard(ctx context.Context, ownerID string, req *domain.CreditCardRequest) (*domain.CreditCard, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateCreditCard")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "obrigatório"}
	}
	limit := domain.RoundMoney(req.Limit)
	if limit.IsNegative() {
		return nil, &domain.ErrValidation{Field: "limit", Message: "não pode ser negativo"}
	}
	if err := validateDay("best_purchase_day", req.BestPurchaseDay); err != nil {
		return nil, err
	}
	if err := validateDay("due_day", req.DueDay); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	card := &domain.CreditCard{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Name:            name,
		Limit:           limit,
		AvailableLimit:  limit,
		BestPurchaseDay: req.BestPurchaseDay,
		DueDay:          req.DueDay,
		AccountID:       req.AccountID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := s.write(ctx, "create_card", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
		if err := checkLinks(ctx, tx, ownerID, "", req.AccountID); err != nil {
			return err
		}
		return tx.CreateCreditCard(ctx, card)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("credit card created",
		zap.String("owner_id", ownerID),
		zap.String("card_id", card.ID),
		zap.String("limit", limit.StringFixed(2)),
	)
	return card, nil
}

func (s *LedgerService) ListCreditCards(ctx context.Context, ownerID string) ([]domain.CreditCard, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListCreditCards")
	defer span.End()

	return s.store.ListCreditCards(ctx, ownerID)
}

func (s *LedgerService) GetCreditCard(ctx context.Context, ownerID, cardID string) (*domain.CreditCard, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetCreditCard")
	defer span.End()

	return s.store.GetCreditCard(ctx, ownerID, cardID)
}

// UpdateCreditCard patches a card. A new limit is settled against the card's
// unpaid debts with the full computation.
func (s *LedgerService) UpdateCreditCard(ctx context.Context, ownerID, cardID string, patch *domain.CreditCardPatch) (*domain.CreditCard, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateCreditCard")
	defer span.End()
	span.SetAttributes(attribute.String("card.id", cardID))

	if patch == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "obrigatório"}
	}

	var (
		card          *domain.CreditCard
		limitChanged  bool
		reconcileMode domain.ReconcileMode
	)
	err := s.write(ctx, "update_card", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
		c, err := tx.GetCreditCard(ctx, ownerID, cardID)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return &domain.ErrValidation{Field: "name", Message: "não pode ser vazio"}
			}
			c.Name = name
		}
		if patch.BestPurchaseDay != nil {
			if err := validateDay("best_purchase_day", *patch.BestPurchaseDay); err != nil {
				return err
			}
			c.BestPurchaseDay = *patch.BestPurchaseDay
		}
		if patch.DueDay != nil {
			if err := validateDay("due_day", *patch.DueDay); err != nil {
				return err
			}
			c.DueDay = *patch.DueDay
		}
		if patch.AccountID != nil {
			if err := checkLinks(ctx, tx, ownerID, "", *patch.AccountID); err != nil {
				return err
			}
			c.AccountID = *patch.AccountID
		}
		if patch.Limit != nil {
			limit := domain.RoundMoney(*patch.Limit)
			if limit.IsNegative() {
				return &domain.ErrValidation{Field: "limit", Message: "não pode ser negativo"}
			}
			limitChanged = !limit.Equal(c.Limit)
			c.Limit = limit
		}
		c.UpdatedAt = s.now().UTC()
		if err := tx.UpdateCreditCard(ctx, c); err != nil {
			return err
		}
		if limitChanged {
			st, err := s.reconcileCard(ctx, tx, c)
			if err != nil {
				return err
			}
			reconcileMode = st.Mode
			*c = st.Card
		}
		card = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("credit card updated",
		zap.String("owner_id", ownerID),
		zap.String("card_id", cardID),
		zap.Bool("limit_changed", limitChanged),
	)
	if limitChanged {
		s.publish(ctx, domain.LedgerEvent{Type: domain.EventCardReconciled, OwnerID: ownerID, CreditCardID: cardID})
		s.logger.Debug("card limit reconciled", zap.String("card_id", cardID), zap.String("mode", string(reconcileMode)))
	}
	return card, nil
}

// DeleteCreditCard removes a card together with every debt charged to it.
func (s *LedgerService) DeleteCreditCard(ctx context.Context, ownerID, cardID string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteCreditCard")
	defer span.End()
	span.SetAttributes(attribute.String("card.id", cardID))

	var removed []domain.Debt
	err := s.write(ctx, "delete_card", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
		if _, err := tx.GetCreditCard(ctx, ownerID, cardID); err != nil {
			return err
		}
		debts, err := tx.ListDebts(ctx, ownerID, domain.DebtFilter{CreditCardID: cardID})
		if err != nil {
			return err
		}
		removed = debts
		return tx.DeleteCreditCard(ctx, ownerID, cardID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("credit card deleted",
		zap.String("owner_id", ownerID),
		zap.String("card_id", cardID),
		zap.Int("debts_removed", len(removed)),
	)
	s.publish(ctx, domain.LedgerEvent{
		Type:         domain.EventCardDeleted,
		OwnerID:      ownerID,
		CreditCardID: cardID,
		DebtIDs:      debtIDs(removed),
	})
	return nil
}

// ReconcileCreditCard recomputes the card's available limit from all of its
// unpaid debts.
func (s *LedgerService) ReconcileCreditCard(ctx context.Context, ownerID, cardID string) (*domain.LimitSettlement, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ReconcileCreditCard")
	defer span.End()
	span.SetAttributes(attribute.String("card.id", cardID))

	var settlement domain.LimitSettlement
	err := s.write(ctx, "reconcile_card", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
		card, err := tx.GetCreditCard(ctx, ownerID, cardID)
		if err != nil {
			return err
		}
		settlement, err = s.reconcileCard(ctx, tx, card)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("credit card reconciled",
		zap.String("owner_id", ownerID),
		zap.String("card_id", cardID),
		zap.String("available_limit", settlement.Card.AvailableLimit.StringFixed(2)),
		zap.Bool("over_limit", settlement.OverLimit),
	)
	s.publish(ctx, domain.LedgerEvent{Type: domain.EventCardReconciled, OwnerID: ownerID, CreditCardID: cardID})
	return &settlement, nil
}
