package handler

import (
	"net/http"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Credit cards
// ============================================================

func createCardHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/credit-cards")
		defer span.End()

		var req domain.CreditCardRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		card, err := svc.CreateCreditCard(ctx, OwnerIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, card)
	}
}

func listCardsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/credit-cards")
		defer span.End()

		cards, err := svc.ListCreditCards(ctx, OwnerIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if cards == nil {
			cards = []domain.CreditCard{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
	}
}

func getCardHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/credit-cards/{cardId}")
		defer span.End()

		card, err := svc.GetCreditCard(ctx, OwnerIDFromContext(ctx), chi.URLParam(r, "cardId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, card)
	}
}

func updateCardHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/credit-cards/{cardId}")
		defer span.End()

		var patch domain.CreditCardPatch
		if err := decodeBody(r, &patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		card, err := svc.UpdateCreditCard(ctx, OwnerIDFromContext(ctx), chi.URLParam(r, "cardId"), &patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, card)
	}
}

func deleteCardHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/credit-cards/{cardId}")
		defer span.End()

		if err := svc.DeleteCreditCard(ctx, OwnerIDFromContext(ctx), chi.URLParam(r, "cardId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reconcileCardHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/credit-cards/{cardId}/reconcile")
		defer span.End()

		settlement, err := svc.ReconcileCreditCard(ctx, OwnerIDFromContext(ctx), chi.URLParam(r, "cardId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, settlement)
	}
}

func cardInvoiceHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/credit-cards/{cardId}/invoices/{month}")
		defer span.End()

		invoice, err := svc.GetCardInvoice(ctx, OwnerIDFromContext(ctx), chi.URLParam(r, "cardId"), chi.URLParam(r, "month"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, invoice)
	}
}
