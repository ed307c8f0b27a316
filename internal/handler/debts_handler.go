package handler

import (
	"net/http"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ============================================================
// Request bodies
// ============================================================

type createDebtBody struct {
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	Type             domain.DebtType `json:"type"`
	Kind             domain.DebtKind `json:"kind"`
	DueDate          string          `json:"due_date"`
	PurchaseDate     string          `json:"purchase_date"`
	CategoryID       string          `json:"category_id"`
	CreditCardID     string          `json:"credit_card_id"`
	AccountID        string          `json:"account_id"`
	InstallmentCount int             `json:"installment_count"`
	IsTotalAmount    bool            `json:"is_total_amount"`
	Month            string          `json:"month"`
	AllowOverLimit   *bool           `json:"allow_over_limit"`
}

func (b *createDebtBody) toRequest() (*domain.CreateDebtRequest, error) {
	due, err := parseOptionalDate("due_date", b.DueDate)
	if err != nil {
		return nil, err
	}
	purchase, err := parseOptionalDate("purchase_date", b.PurchaseDate)
	if err != nil {
		return nil, err
	}
	return &domain.CreateDebtRequest{
		Description:      b.Description,
		Amount:           b.Amount,
		Type:             b.Type,
		Kind:             b.Kind,
		DueDate:          due,
		PurchaseDate:     purchase,
		CategoryID:       b.CategoryID,
		CreditCardID:     b.CreditCardID,
		AccountID:        b.AccountID,
		InstallmentCount: b.InstallmentCount,
		IsTotalAmount:    b.IsTotalAmount,
		Month:            b.Month,
		AllowOverLimit:   b.AllowOverLimit,
	}, nil
}

type patchDebtBody struct {
	Description    *string          `json:"description"`
	Amount         *decimal.Decimal `json:"amount"`
	CategoryID     *string          `json:"category_id"`
	DueDate        *string          `json:"due_date"`
	Paid           *bool            `json:"paid"`
	AllowOverLimit *bool            `json:"allow_over_limit"`
}

func (b *patchDebtBody) toPatch() (*domain.DebtPatch, error) {
	patch := &domain.DebtPatch{
		Description:    b.Description,
		Amount:         b.Amount,
		CategoryID:     b.CategoryID,
		Paid:           b.Paid,
		AllowOverLimit: b.AllowOverLimit,
	}
	if b.DueDate != nil {
		due, err := domain.ParseDate(*b.DueDate)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "due_date", Message: err.Error()}
		}
		patch.DueDate = &due
	}
	return patch, nil
}

type payDebtBody struct {
	Amount          decimal.Decimal      `json:"amount"`
	Source          domain.FundingSource `json:"source"`
	Date            string               `json:"date"`
	ExpectedVersion int64                `json:"expected_version"`
}

// ============================================================
// Debts
// ============================================================

func createDebtHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/debts")
		defer span.End()

		var body createDebtBody
		if err := decodeBody(r, &body); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		req, err := body.toRequest()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := svc.CreateDebt(ctx, OwnerIDFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func listDebtsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/debts")
		defer span.End()

		q := r.URL.Query()
		paid, err := parseOptionalBool("paid", q.Get("paid"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		filter := domain.DebtFilter{
			CreditCardID: q.Get("creditCardId"),
			Month:        q.Get("month"),
			Paid:         paid,
			Type:         domain.DebtType(q.Get("type")),
			GroupID:      q.Get("groupId"),
		}

		debts, err := svc.ListDebts(ctx, OwnerIDFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if debts == nil {
			debts = []domain.DebtView{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"debts": debts})
	}
}

func debtSummaryHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/debts/summary")
		defer span.End()

		summary, err := svc.SummarizeDebts(ctx, OwnerIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func getDebtHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/debts/{debtId}")
		defer span.End()

		debt, err := svc.GetDebt(ctx, OwnerIDFromContext(ctx), chi.URLParam(r, "debtId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, debt)
	}
}

func updateDebtHandler(svc *service.LedgerService, logger *zap.Logger, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/debts/{debtId}")
		defer span.End()

		scope, err := domain.ParseScope(r.URL.Query().Get("scope"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var body patchDebtBody
		if err := decodeBody(r, &body); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		patch, err := body.toPatch()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		ownerID := OwnerIDFromContext(ctx)
		debtID := chi.URLParam(r, "debtId")

		var result *domain.UpdateDebtResult
		err = retryOnConflict(ctx, opts, func() error {
			var err error
			result, err = svc.UpdateDebt(ctx, ownerID, debtID, patch, scope)
			return err
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func deleteDebtHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/debts/{debtId}")
		defer span.End()

		scope, err := domain.ParseScope(r.URL.Query().Get("scope"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := svc.DeleteDebt(ctx, OwnerIDFromContext(ctx), chi.URLParam(r, "debtId"), scope); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func payDebtHandler(svc *service.LedgerService, logger *zap.Logger, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/debts/{debtId}/payments")
		defer span.End()

		var body payDebtBody
		if err := decodeBody(r, &body); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		date, err := parseOptionalDate("date", body.Date)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		req := &domain.PayDebtRequest{
			Amount:          body.Amount,
			Source:          body.Source,
			ExpectedVersion: body.ExpectedVersion,
		}
		if date != nil {
			req.Date = *date
		}

		ownerID := OwnerIDFromContext(ctx)
		debtID := chi.URLParam(r, "debtId")

		// A caller-pinned version that lost the race stays a conflict.
		retryOpts := opts
		if req.ExpectedVersion != 0 {
			retryOpts.ConflictRetries = 0
		}

		var result *domain.PaymentResult
		err = retryOnConflict(ctx, retryOpts, func() error {
			var err error
			result, err = svc.PayDebt(ctx, ownerID, debtID, req)
			return err
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}
