package handler

import (
	"net/http"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/infra/auth"
	"github.com/ClebyFrancisco/fineixo/internal/infra/observability"
	"github.com/ClebyFrancisco/fineixo/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Options tunes the HTTP layer.
type Options struct {
	// DevAuth accepts an X-Owner-ID header in place of a bearer token.
	DevAuth bool
	// ConflictRetries is how many times a write that lost an optimistic
	// version check is replayed before answering 409.
	ConflictRetries int
	RetryBackoff    time.Duration
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.LedgerService, verifier *auth.Verifier, metrics *observability.Metrics, logger *zap.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc, logger))
	r.Get("/readyz", readyzHandler(svc))
	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(OwnerAuthMiddleware(verifier, opts.DevAuth, logger))

		r.Get("/metrics/ledger", ledgerMetricsHandler(metrics))

		// =============================================
		// Accounts, wallets, categories
		// =============================================
		r.Post("/accounts", createAccountHandler(svc, logger))
		r.Get("/accounts", listAccountsHandler(svc, logger))
		r.Get("/accounts/{accountId}", getAccountHandler(svc, logger))
		r.Delete("/accounts/{accountId}", deleteAccountHandler(svc, logger))

		r.Post("/wallets", createWalletHandler(svc, logger))
		r.Get("/wallets", listWalletsHandler(svc, logger))
		r.Get("/wallets/default", defaultWalletHandler(svc, logger))

		r.Post("/categories", createCategoryHandler(svc, logger))
		r.Get("/categories", listCategoriesHandler(svc, logger))

		r.Get("/transactions", listTransactionsHandler(svc, logger))

		// =============================================
		// Credit cards
		// =============================================
		r.Post("/credit-cards", createCardHandler(svc, logger))
		r.Get("/credit-cards", listCardsHandler(svc, logger))
		r.Get("/credit-cards/{cardId}", getCardHandler(svc, logger))
		r.Patch("/credit-cards/{cardId}", updateCardHandler(svc, logger))
		r.Delete("/credit-cards/{cardId}", deleteCardHandler(svc, logger))
		r.Post("/credit-cards/{cardId}/reconcile", reconcileCardHandler(svc, logger))
		r.Get("/credit-cards/{cardId}/invoices/{month}", cardInvoiceHandler(svc, logger))

		// =============================================
		// Debts
		// =============================================
		r.Post("/debts", createDebtHandler(svc, logger))
		r.Get("/debts", listDebtsHandler(svc, logger))
		r.Get("/debts/summary", debtSummaryHandler(svc, logger))
		r.Get("/debts/{debtId}", getDebtHandler(svc, logger))
		r.Patch("/debts/{debtId}", updateDebtHandler(svc, logger, opts))
		r.Delete("/debts/{debtId}", deleteDebtHandler(svc, logger))
		r.Post("/debts/{debtId}/payments", payDebtHandler(svc, logger, opts))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "fineixo-api", Status: "healthy", LastChecked: now},
		}

		if svc != nil {
			start := time.Now()
			err := svc.Ping(r.Context())
			status := "healthy"
			if err != nil {
				logger.Warn("health: store ping failed", zap.Error(err))
				status = "unhealthy"
			}
			services = append(services, domain.ServiceHealth{
				Name: "ledger-store", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler(svc *service.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc != nil {
			if err := svc.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ledgerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if metrics == nil {
			writeJSON(w, http.StatusOK, domain.LedgerMetrics{Period: "all_time"})
			return
		}
		writeJSON(w, http.StatusOK, metrics.GetLedgerSnapshot())
	}
}
