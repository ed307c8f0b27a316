package service

import (
	"context"
	"errors"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Limit Reconciler
// ============================================================

// limitEffect is the change one debt write makes to a card's available limit.
type limitEffect struct {
	cardID            string
	month             string
	delta             decimal.Decimal
	touchesAdjustment bool
}

// chargeEffect is the effect of an unpaid card debt starting to count.
func chargeEffect(d *domain.Debt) []limitEffect {
	if d.CreditCardID == "" || d.Paid {
		return nil
	}
	return []limitEffect{{cardID: d.CreditCardID, month: d.Month, delta: d.Amount.Neg(), touchesAdjustment: d.IsAdjustment()}}
}

// releaseEffect is the effect of an unpaid card debt ceasing to count.
func releaseEffect(d *domain.Debt) []limitEffect {
	if d.CreditCardID == "" || d.Paid {
		return nil
	}
	return []limitEffect{{cardID: d.CreditCardID, month: d.Month, delta: d.Amount, touchesAdjustment: d.IsAdjustment()}}
}

// changeEffects compares two versions of one debt.
func changeEffects(before, after *domain.Debt) []limitEffect {
	if before.Amount.Equal(after.Amount) &&
		before.Paid == after.Paid &&
		before.CreditCardID == after.CreditCardID &&
		before.Month == after.Month &&
		before.IsAdjustment() == after.IsAdjustment() {
		return nil
	}
	effects := append(releaseEffect(before), chargeEffect(after)...)
	adjustment := before.IsAdjustment() || after.IsAdjustment()
	for i := range effects {
		effects[i].touchesAdjustment = effects[i].touchesAdjustment || adjustment
	}
	return effects
}

// settleLimits brings the available limit of every card named in effects up to
// date. It runs inside the operation's transaction after its debt writes.
//
// Incremental mode adds the deltas to the stored value. Full mode recomputes the
// value from every unpaid debt of the card; it is used when an adjustment is
// involved or sits in an affected month, and when the stored value is on a
// boundary or the incremental result would leave [0, limit], since saturation
// makes the stored value lose information.
//
// When reject is set and a card that the effects charge ends up over its
// limit, settleLimits returns *domain.ErrLimitExceeded.
func (s *LedgerService) settleLimits(ctx context.Context, tx port.LedgerTx, ownerID string, effects []limitEffect, reject bool) ([]domain.LimitSettlement, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.settleLimits")
	defer span.End()

	type cardEffects struct {
		delta  decimal.Decimal
		months []string
		full   bool
	}
	var order []string
	byCard := make(map[string]*cardEffects)
	for _, e := range effects {
		ce, ok := byCard[e.cardID]
		if !ok {
			ce = &cardEffects{}
			byCard[e.cardID] = ce
			order = append(order, e.cardID)
		}
		ce.delta = ce.delta.Add(e.delta)
		ce.months = appendUnique(ce.months, e.month)
		ce.full = ce.full || e.touchesAdjustment
	}

	settlements := make([]domain.LimitSettlement, 0, len(order))
	for _, cardID := range order {
		ce := byCard[cardID]
		card, err := tx.GetCreditCard(ctx, ownerID, cardID)
		if err != nil {
			var nf *domain.ErrNotFound
			if errors.As(err, &nf) {
				continue
			}
			return nil, err
		}

		full := ce.full
		if !full {
			full, err = monthsHoldAdjustment(ctx, tx, ownerID, cardID, ce.months)
			if err != nil {
				return nil, err
			}
		}

		raw := card.AvailableLimit.Add(ce.delta)
		if !full && (card.AvailableLimit.IsZero() || card.AvailableLimit.Equal(card.Limit) ||
			raw.IsNegative() || raw.GreaterThan(card.Limit)) {
			full = true
		}

		mode := domain.ReconcileIncremental
		if full {
			mode = domain.ReconcileFull
			raw, err = uncommittedLimit(ctx, tx, ownerID, card)
			if err != nil {
				return nil, err
			}
		}

		available := card.AvailableLimit
		settlement, err := s.applyLimit(ctx, tx, card, raw, mode)
		if err != nil {
			return nil, err
		}

		if settlement.OverLimit {
			if reject && ce.delta.IsNegative() {
				s.metrics.IncrOverLimit("rejected")
				return nil, &domain.ErrLimitExceeded{
					CardID:    card.ID,
					Limit:     card.Limit,
					Available: available,
					Required:  ce.delta.Neg(),
				}
			}
			s.metrics.IncrOverLimit("recorded")
			s.logger.Warn("card over limit",
				zap.String("owner_id", ownerID),
				zap.String("card_id", card.ID),
				zap.String("raw_available", raw.StringFixed(2)),
			)
		}
		settlements = append(settlements, settlement)
	}

	span.SetAttributes(attribute.Int("ledger.cards_settled", len(settlements)))
	return settlements, nil
}

// reconcileCard runs the full computation for one card.
func (s *LedgerService) reconcileCard(ctx context.Context, tx port.LedgerTx, card *domain.CreditCard) (domain.LimitSettlement, error) {
	raw, err := uncommittedLimit(ctx, tx, card.OwnerID, card)
	if err != nil {
		return domain.LimitSettlement{}, err
	}
	return s.applyLimit(ctx, tx, card, raw, domain.ReconcileFull)
}

// applyLimit saturates raw into [0, limit] and stores it when it changed.
func (s *LedgerService) applyLimit(ctx context.Context, tx port.LedgerTx, card *domain.CreditCard, raw decimal.Decimal, mode domain.ReconcileMode) (domain.LimitSettlement, error) {
	raw = domain.RoundMoney(raw)
	available := domain.ClampMoney(raw, decimal.Zero, card.Limit)
	if !available.Equal(card.AvailableLimit) {
		card.AvailableLimit = available
		card.UpdatedAt = s.now().UTC()
		if err := tx.UpdateCreditCard(ctx, card); err != nil {
			return domain.LimitSettlement{}, err
		}
	}
	s.metrics.IncrSettlement(mode)
	return domain.LimitSettlement{
		Card:      *card,
		Mode:      mode,
		Raw:       raw,
		OverLimit: raw.IsNegative(),
	}, nil
}

// uncommittedLimit is limit minus every unpaid debt of the card, unsaturated.
func uncommittedLimit(ctx context.Context, tx port.LedgerReader, ownerID string, card *domain.CreditCard) (decimal.Decimal, error) {
	unpaid := false
	debts, err := tx.ListDebts(ctx, ownerID, domain.DebtFilter{CreditCardID: card.ID, Paid: &unpaid})
	if err != nil {
		return decimal.Zero, err
	}
	committed := decimal.Zero
	for i := range debts {
		committed = committed.Add(debts[i].Amount)
	}
	return card.Limit.Sub(committed), nil
}

func monthsHoldAdjustment(ctx context.Context, tx port.LedgerReader, ownerID, cardID string, months []string) (bool, error) {
	for _, month := range months {
		debts, err := tx.ListDebts(ctx, ownerID, domain.DebtFilter{CreditCardID: cardID, Month: month})
		if err != nil {
			return false, err
		}
		for i := range debts {
			if debts[i].IsAdjustment() {
				return true, nil
			}
		}
	}
	return false, nil
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
