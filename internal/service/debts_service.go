package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxInstallments bounds one purchase group.
const maxInstallments = 420

// ============================================================
// Debt Lifecycle
// ============================================================

// CreateDebt registers a debt, expanding installment purchases into their group,
// and settles the limit of the card they are charged to.
func (s *LedgerService) CreateDebt(ctx context.Context, ownerID string, req *domain.CreateDebtRequest) (*domain.CreateDebtResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateDebt")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	if err := normalizeCreateDebt(req); err != nil {
		return nil, err
	}

	result := &domain.CreateDebtResult{}
	err := s.write(ctx, "create_debt", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
		var card *domain.CreditCard
		if req.CreditCardID != "" {
			c, err := tx.GetCreditCard(ctx, ownerID, req.CreditCardID)
			if err != nil {
				return err
			}
			card = c
		}
		if err := checkLinks(ctx, tx, ownerID, req.CategoryID, req.AccountID); err != nil {
			return err
		}

		drafts, err := s.draftDebts(req, card)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		var effects []limitEffect
		for i := range drafts {
			d := &drafts[i]
			d.ID = uuid.NewString()
			d.OwnerID = ownerID
			d.CategoryID = req.CategoryID
			d.AccountID = req.AccountID
			d.Version = 1
			d.CreatedAt = now
			d.UpdatedAt = now
			if err := tx.CreateDebt(ctx, d); err != nil {
				return fmt.Errorf("creating debt: %w", err)
			}
			effects = append(effects, chargeEffect(d)...)
		}

		settlements, err := s.settleLimits(ctx, tx, ownerID, effects, s.shouldReject(req.AllowOverLimit))
		if err != nil {
			return err
		}

		result.Debts = drafts
		result.Cards = settlements
		for _, st := range settlements {
			result.OverLimit = result.OverLimit || st.OverLimit
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("debt created",
		zap.String("owner_id", ownerID),
		zap.Int("records", len(result.Debts)),
		zap.String("card_id", req.CreditCardID),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.Bool("over_limit", result.OverLimit),
	)
	s.publish(ctx, domain.LedgerEvent{
		Type:         domain.EventDebtCreated,
		OwnerID:      ownerID,
		DebtIDs:      debtIDs(result.Debts),
		CreditCardID: req.CreditCardID,
	})
	return result, nil
}

// normalizeCreateDebt validates req and fills its defaults in place.
func normalizeCreateDebt(req *domain.CreateDebtRequest) error {
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return &domain.ErrValidation{Field: "description", Message: "obrigatório"}
	}
	if req.Type == "" {
		req.Type = domain.DebtSingle
		if req.InstallmentCount > 1 {
			req.Type = domain.DebtInstallment
		}
	}
	if !req.Type.Valid() {
		return &domain.ErrValidation{Field: "type", Message: "deve ser single, monthly ou installment"}
	}
	if req.InstallmentCount == 0 {
		req.InstallmentCount = 1
	}
	if req.InstallmentCount < 1 || req.InstallmentCount > maxInstallments {
		return &domain.ErrValidation{Field: "installment_count", Message: fmt.Sprintf("deve estar entre 1 e %d", maxInstallments)}
	}
	if req.InstallmentCount > 1 && req.Type != domain.DebtInstallment {
		return &domain.ErrValidation{Field: "installment_count", Message: "só se aplica a parcelamentos"}
	}
	if req.Month != "" && !domain.ValidMonth(req.Month) {
		return &domain.ErrValidation{Field: "month", Message: "use o formato YYYY-MM"}
	}
	req.Amount = domain.RoundMoney(req.Amount)

	if req.Kind == "" {
		req.Kind = domain.KindPurchase
		if domain.IsAdjustmentDescription(req.Description) {
			req.Kind = domain.KindAdjustment
		}
	}
	switch req.Kind {
	case domain.KindPurchase:
		if !req.Amount.IsPositive() {
			return &domain.ErrValidation{Field: "amount", Message: "deve ser maior que zero"}
		}
	case domain.KindAdjustment:
		if req.Amount.IsZero() {
			return &domain.ErrBusinessRule{Rule: "adjustment_zero", Message: "reajuste de fatura não pode ser zero"}
		}
		if req.CreditCardID == "" {
			return &domain.ErrValidation{Field: "credit_card_id", Message: "obrigatório para reajuste de fatura"}
		}
		if req.InstallmentCount > 1 {
			return &domain.ErrValidation{Field: "installment_count", Message: "reajuste de fatura não é parcelado"}
		}
		if req.Month == "" && req.DueDate == nil {
			return &domain.ErrValidation{Field: "month", Message: "obrigatório para reajuste de fatura"}
		}
	default:
		return &domain.ErrValidation{Field: "kind", Message: "deve ser purchase ou adjustment"}
	}
	return nil
}

// draftDebts turns a normalized request into the debts to persist.
func (s *LedgerService) draftDebts(req *domain.CreateDebtRequest, card *domain.CreditCard) ([]domain.Debt, error) {
	if req.Kind == domain.KindAdjustment {
		month := req.Month
		if month == "" {
			month = domain.MonthOf(*req.DueDate)
		}
		first, _ := time.Parse(domain.MonthLayout, month)
		due := domain.ShiftMonths(first, 0, card.DueDay)
		if req.DueDate != nil {
			due = domain.DateOnly(*req.DueDate)
		}
		return []domain.Debt{{
			Description:  req.Description,
			Amount:       req.Amount,
			Kind:         domain.KindAdjustment,
			Type:         domain.DebtSingle,
			CreditCardID: card.ID,
			DueDate:      due,
			Month:        month,
		}}, nil
	}

	// A single card debt with an explicit due date keeps it.
	if req.InstallmentCount == 1 && (card == nil || req.DueDate != nil) {
		if req.DueDate == nil {
			return nil, &domain.ErrValidation{Field: "due_date", Message: "obrigatório"}
		}
		due := domain.DateOnly(*req.DueDate)
		month := req.Month
		if month == "" {
			month = domain.MonthOf(due)
		}
		d := domain.Debt{
			Description: req.Description,
			Amount:      req.Amount,
			Kind:        domain.KindPurchase,
			Type:        req.Type,
			DueDate:     due,
			Month:       month,
		}
		if req.PurchaseDate != nil {
			p := domain.DateOnly(*req.PurchaseDate)
			d.PurchaseDate = &p
		}
		if card != nil {
			d.CreditCardID = card.ID
		}
		return []domain.Debt{d}, nil
	}

	in := PlanInput{
		Description:   req.Description,
		Amount:        req.Amount,
		IsTotalAmount: req.IsTotalAmount,
		Count:         req.InstallmentCount,
		Type:          req.Type,
		Card:          card,
		GroupID:       uuid.NewString(),
	}
	if req.DueDate != nil {
		in.DueDate = *req.DueDate
	}
	if card != nil {
		in.PurchaseDate = s.today()
	}
	if req.PurchaseDate != nil {
		in.PurchaseDate = *req.PurchaseDate
	}
	drafts, err := PlanInstallments(in)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 1 && req.Month != "" {
		drafts[0].Month = req.Month
	}
	return drafts, nil
}

// UpdateDebt patches one debt or its whole installment group and settles
// every card month the change touches.
func (s *LedgerService) UpdateDebt(ctx context.Context, ownerID, debtID string, patch *domain.DebtPatch, scope domain.UpdateScope) (*domain.UpdateDebtResult, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateDebt")
	defer span.End()
	span.SetAttributes(attribute.String("debt.id", debtID), attribute.String("scope", string(scope)))

	if err := validateDebtPatch(patch); err != nil {
		return nil, err
	}

	result := &domain.UpdateDebtResult{}
	var cardID string
	err := s.write(ctx, "update_debt", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
		target, err := tx.GetDebt(ctx, ownerID, debtID)
		if err != nil {
			return err
		}
		cardID = target.CreditCardID
		if patch.CategoryID != nil && *patch.CategoryID != "" {
			if _, err := tx.GetCategory(ctx, ownerID, *patch.CategoryID); err != nil {
				return err
			}
		}
		members, err := resolveGroup(ctx, tx, ownerID, target, scope)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		var effects []limitEffect
		updated := make([]domain.Debt, 0, len(members))
		for i := range members {
			before := members[i]
			after := before
			if err := s.applyDebtPatch(&after, patch, len(members) == 1); err != nil {
				return err
			}
			after.UpdatedAt = now
			if err := tx.UpdateDebt(ctx, &after); err != nil {
				return err
			}
			effects = append(effects, changeEffects(&before, &after)...)
			updated = append(updated, after)
		}

		settlements, err := s.settleLimits(ctx, tx, ownerID, effects, s.shouldReject(patch.AllowOverLimit))
		if err != nil {
			return err
		}
		result.Debts = updated
		result.Cards = settlements
		for _, st := range settlements {
			result.OverLimit = result.OverLimit || st.OverLimit
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("debt updated",
		zap.String("owner_id", ownerID),
		zap.String("debt_id", debtID),
		zap.String("scope", string(scope)),
		zap.Int("records", len(result.Debts)),
	)
	s.publish(ctx, domain.LedgerEvent{
		Type:         domain.EventDebtUpdated,
		OwnerID:      ownerID,
		DebtIDs:      debtIDs(result.Debts),
		CreditCardID: cardID,
	})
	return result, nil
}

func validateDebtPatch(patch *domain.DebtPatch) error {
	if patch == nil {
		return &domain.ErrValidation{Field: "body", Message: "obrigatório"}
	}
	if patch.Description != nil {
		desc := strings.TrimSpace(*patch.Description)
		if desc == "" {
			return &domain.ErrValidation{Field: "description", Message: "não pode ser vazio"}
		}
		patch.Description = &desc
	}
	if patch.Amount != nil {
		amount := domain.RoundMoney(*patch.Amount)
		patch.Amount = &amount
	}
	return nil
}

// applyDebtPatch changes d in place. Due dates are only moved when the patch
// targets a single record; group members keep their own schedule. The kind
// is fixed at creation, so a rename may not cross the adjustment pattern.
func (s *LedgerService) applyDebtPatch(d *domain.Debt, patch *domain.DebtPatch, single bool) error {
	if patch.DueDate != nil && !single {
		return &domain.ErrValidation{Field: "due_date", Message: "só pode ser alterado em uma parcela por vez (scope=this)"}
	}
	if patch.Description != nil {
		desc := *patch.Description
		if d.Installments != nil {
			desc = domain.InstallmentDescription(domain.BaseDescription(desc), d.Installments.Current, d.Installments.Total)
		}
		wasAdjustment := d.IsAdjustment()
		d.Description = desc
		if d.IsAdjustment() != wasAdjustment {
			return &domain.ErrValidation{Field: "description", Message: "não pode converter entre compra e reajuste de fatura"}
		}
	}
	if patch.Amount != nil {
		amount := *patch.Amount
		if d.IsAdjustment() {
			if amount.IsZero() {
				return &domain.ErrBusinessRule{Rule: "adjustment_zero", Message: "reajuste de fatura não pode ser zero"}
			}
		} else if !amount.IsPositive() {
			return &domain.ErrValidation{Field: "amount", Message: "deve ser maior que zero"}
		}
		d.Amount = amount
	}
	if patch.CategoryID != nil {
		d.CategoryID = *patch.CategoryID
	}
	if patch.DueDate != nil {
		due := domain.DateOnly(*patch.DueDate)
		d.DueDate = due
		d.Month = domain.MonthOf(due)
	}
	if patch.Paid != nil && *patch.Paid != d.Paid {
		d.Paid = *patch.Paid
		if d.Paid {
			if d.PaidAt == nil {
				today := s.today()
				d.PaidAt = &today
			}
		} else {
			d.PaidAt = nil
		}
	}
	return nil
}

// DeleteDebt removes one debt or its whole installment group. Unpaid card
// debts give their amount back to the card.
func (s *LedgerService) DeleteDebt(ctx context.Context, ownerID, debtID string, scope domain.UpdateScope) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteDebt")
	defer span.End()
	span.SetAttributes(attribute.String("debt.id", debtID), attribute.String("scope", string(scope)))

	var (
		removed []domain.Debt
		cardID  string
	)
	err := s.write(ctx, "delete_debt", ownerID, func(ctx context.Context, tx port.LedgerTx) error {
		target, err := tx.GetDebt(ctx, ownerID, debtID)
		if err != nil {
			return err
		}
		cardID = target.CreditCardID
		members, err := resolveGroup(ctx, tx, ownerID, target, scope)
		if err != nil {
			return err
		}

		var effects []limitEffect
		for i := range members {
			if err := tx.DeleteDebt(ctx, ownerID, members[i].ID); err != nil {
				return err
			}
			effects = append(effects, releaseEffect(&members[i])...)
		}
		if _, err := s.settleLimits(ctx, tx, ownerID, effects, false); err != nil {
			return err
		}
		removed = members
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("debt deleted",
		zap.String("owner_id", ownerID),
		zap.String("debt_id", debtID),
		zap.String("scope", string(scope)),
		zap.Int("records", len(removed)),
	)
	s.publish(ctx, domain.LedgerEvent{
		Type:         domain.EventDebtDeleted,
		OwnerID:      ownerID,
		DebtIDs:      debtIDs(removed),
		CreditCardID: cardID,
	})
	return nil
}

// resolveGroup returns the debts an operation with the given scope touches,
// ordered by installment number. Groups are found by group id; debts without
// one fall back to the same base description and installment total.
func resolveGroup(ctx context.Context, tx port.LedgerReader, ownerID string, target *domain.Debt, scope domain.UpdateScope) ([]domain.Debt, error) {
	if scope != domain.ScopeAll || (target.GroupID == "" && target.Installments == nil) {
		return []domain.Debt{*target}, nil
	}

	var members []domain.Debt
	if target.GroupID != "" {
		debts, err := tx.ListDebts(ctx, ownerID, domain.DebtFilter{GroupID: target.GroupID})
		if err != nil {
			return nil, err
		}
		members = debts
	} else {
		debts, err := tx.ListDebts(ctx, ownerID, domain.DebtFilter{})
		if err != nil {
			return nil, err
		}
		base := domain.BaseDescription(target.Description)
		for _, d := range debts {
			if d.Installments == nil || d.Installments.Total != target.Installments.Total {
				continue
			}
			if domain.BaseDescription(d.Description) == base {
				members = append(members, d)
			}
		}
	}
	if len(members) == 0 {
		return []domain.Debt{*target}, nil
	}

	sort.SliceStable(members, func(i, j int) bool {
		return installmentNumber(&members[i]) < installmentNumber(&members[j])
	})
	return members, nil
}

func installmentNumber(d *domain.Debt) int {
	if d.Installments == nil {
		return 0
	}
	return d.Installments.Current
}

// checkLinks verifies the optional category and account references.
func checkLinks(ctx context.Context, tx port.LedgerReader, ownerID, categoryID, accountID string) error {
	if categoryID != "" {
		if _, err := tx.GetCategory(ctx, ownerID, categoryID); err != nil {
			return err
		}
	}
	if accountID != "" {
		if _, err := tx.GetAccount(ctx, ownerID, accountID); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================
// Debt Queries
// ============================================================

// GetDebt returns one debt with its metadata and payment progress.
func (s *LedgerService) GetDebt(ctx context.Context, ownerID, debtID string) (*domain.DebtView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetDebt")
	defer span.End()

	d, err := s.store.GetDebt(ctx, ownerID, debtID)
	if err != nil {
		return nil, err
	}
	views, err := s.debtViews(ctx, ownerID, []domain.Debt{*d})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListDebts returns the owner's debts matching filter, joined with metadata.
func (s *LedgerService) ListDebts(ctx context.Context, ownerID string, filter domain.DebtFilter) ([]domain.DebtView, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListDebts")
	defer span.End()
	span.SetAttributes(attribute.String("owner.id", ownerID))

	if filter.Month != "" && !domain.ValidMonth(filter.Month) {
		return nil, &domain.ErrValidation{Field: "month", Message: "use o formato YYYY-MM"}
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "deve ser single, monthly ou installment"}
	}

	debts, err := s.store.ListDebts(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}
	return s.debtViews(ctx, ownerID, debts)
}

// debtViews joins debts with category, card and account names and their paid totals.
func (s *LedgerService) debtViews(ctx context.Context, ownerID string, debts []domain.Debt) ([]domain.DebtView, error) {
	if len(debts) == 0 {
		return []domain.DebtView{}, nil
	}

	var (
		cards      []domain.CreditCard
		categories []domain.Category
		accounts   []domain.Account
		paid       map[string]decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cards, err = s.store.ListCreditCards(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.store.ListCategories(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		accounts, err = s.store.ListAccounts(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		paid, err = s.store.PaidTotals(gctx, ownerID, debtIDs(debts)...)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading debt metadata: %w", err)
	}

	cardNames := make(map[string]string, len(cards))
	for _, c := range cards {
		cardNames[c.ID] = c.Name
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}
	accountNames := make(map[string]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}

	views := make([]domain.DebtView, len(debts))
	for i, d := range debts {
		totalPaid := paid[d.ID]
		views[i] = domain.DebtView{
			Debt:           d,
			CategoryName:   categoryNames[d.CategoryID],
			CreditCardName: cardNames[d.CreditCardID],
			AccountName:    accountNames[d.AccountID],
			TotalPaid:      totalPaid,
			Remaining:      remaining(&d, totalPaid),
		}
	}
	return views, nil
}

// remaining is what is still owed on d after totalPaid.
func remaining(d *domain.Debt, totalPaid decimal.Decimal) decimal.Decimal {
	if d.Paid {
		return decimal.Zero
	}
	return d.Amount.Sub(totalPaid)
}

// SummarizeDebts totals what the owner still owes, by card, by month and by
// card and month. Results are cached until the owner's next write.
func (s *LedgerService) SummarizeDebts(ctx context.Context, ownerID string) (*domain.DebtSummary, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.SummarizeDebts")
	defer span.End()

	if s.summaries != nil {
		if cached, ok := s.summaries.Get(summaryKey(ownerID)); ok {
			s.metrics.IncrCacheHit(summaryCacheName)
			return cached, nil
		}
		s.metrics.IncrCacheMiss(summaryCacheName)
	}

	gen := s.summaryGeneration(ownerID)
	unpaid := false
	debts, err := s.store.ListDebts(ctx, ownerID, domain.DebtFilter{Paid: &unpaid})
	if err != nil {
		return nil, err
	}
	views, err := s.debtViews(ctx, ownerID, debts)
	if err != nil {
		return nil, err
	}

	summary := &domain.DebtSummary{
		TotalUnpaid: decimal.Zero,
		ByCard:      []domain.CardTotal{},
		ByMonth:     []domain.MonthTotal{},
		ByCardMonth: []domain.CardMonthTotal{},
	}
	byCard := map[string]*domain.CardTotal{}
	byMonth := map[string]*domain.MonthTotal{}
	byCardMonth := map[[2]string]*domain.CardMonthTotal{}
	for _, v := range views {
		summary.TotalUnpaid = summary.TotalUnpaid.Add(v.Remaining)
		summary.Count++

		mt, ok := byMonth[v.Month]
		if !ok {
			mt = &domain.MonthTotal{Month: v.Month}
			byMonth[v.Month] = mt
		}
		mt.Total = mt.Total.Add(v.Remaining)

		if v.CreditCardID == "" {
			continue
		}
		ct, ok := byCard[v.CreditCardID]
		if !ok {
			ct = &domain.CardTotal{CreditCardID: v.CreditCardID, CreditCardName: v.CreditCardName}
			byCard[v.CreditCardID] = ct
		}
		ct.Total = ct.Total.Add(v.Remaining)

		key := [2]string{v.CreditCardID, v.Month}
		cm, ok := byCardMonth[key]
		if !ok {
			cm = &domain.CardMonthTotal{CreditCardID: v.CreditCardID, Month: v.Month}
			byCardMonth[key] = cm
		}
		cm.Total = cm.Total.Add(v.Remaining)
	}

	for _, ct := range byCard {
		summary.ByCard = append(summary.ByCard, *ct)
	}
	sort.Slice(summary.ByCard, func(i, j int) bool { return summary.ByCard[i].CreditCardName < summary.ByCard[j].CreditCardName })
	for _, mt := range byMonth {
		summary.ByMonth = append(summary.ByMonth, *mt)
	}
	sort.Slice(summary.ByMonth, func(i, j int) bool { return summary.ByMonth[i].Month < summary.ByMonth[j].Month })
	for _, cm := range byCardMonth {
		summary.ByCardMonth = append(summary.ByCardMonth, *cm)
	}
	sort.Slice(summary.ByCardMonth, func(i, j int) bool {
		a, b := summary.ByCardMonth[i], summary.ByCardMonth[j]
		if a.CreditCardID != b.CreditCardID {
			return a.CreditCardID < b.CreditCardID
		}
		return a.Month < b.Month
	})

	s.cacheSummary(ownerID, gen, summary)
	return summary, nil
}

// GetCardInvoice returns the card's debts for one billing month with their totals.
func (s *LedgerService) GetCardInvoice(ctx context.Context, ownerID, cardID, month string) (*domain.CreditCardInvoice, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetCardInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("card.id", cardID), attribute.String("month", month))

	if !domain.ValidMonth(month) {
		return nil, &domain.ErrValidation{Field: "month", Message: "use o formato YYYY-MM"}
	}
	card, err := s.store.GetCreditCard(ctx, ownerID, cardID)
	if err != nil {
		return nil, err
	}
	debts, err := s.store.ListDebts(ctx, ownerID, domain.DebtFilter{CreditCardID: cardID, Month: month})
	if err != nil {
		return nil, err
	}
	views, err := s.debtViews(ctx, ownerID, debts)
	if err != nil {
		return nil, err
	}

	first, _ := time.Parse(domain.MonthLayout, month)
	invoice := &domain.CreditCardInvoice{
		CardID:       card.ID,
		CardName:     card.Name,
		Month:        month,
		DueDate:      domain.ShiftMonths(first, 0, card.DueDay),
		TotalAmount:  decimal.Zero,
		UnpaidAmount: decimal.Zero,
		PaidAmount:   decimal.Zero,
		Debts:        views,
	}
	for _, v := range views {
		invoice.TotalAmount = invoice.TotalAmount.Add(v.Amount)
		invoice.PaidAmount = invoice.PaidAmount.Add(v.TotalPaid)
		invoice.UnpaidAmount = invoice.UnpaidAmount.Add(v.Remaining)
		invoice.HasAdjustment = invoice.HasAdjustment || v.IsAdjustment()
	}
	return invoice, nil
}
