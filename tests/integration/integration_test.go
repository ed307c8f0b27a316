package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/handler"
	"github.com/ClebyFrancisco/fineixo/internal/infra/auth"
	"github.com/ClebyFrancisco/fineixo/internal/infra/cache"
	"github.com/ClebyFrancisco/fineixo/internal/infra/events"
	"github.com/ClebyFrancisco/fineixo/internal/infra/observability"
	"github.com/ClebyFrancisco/fineixo/internal/infra/resilience"
	"github.com/ClebyFrancisco/fineixo/internal/infra/sqlstore"
	"github.com/ClebyFrancisco/fineixo/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const secret = "integration-secret"

// app is the full stack over a SQLite file, served by a real HTTP server.
type app struct {
	server *httptest.Server
	store  *sqlstore.Store
	events *observer.ObservedLogs
	once   sync.Once
}

func startApp(t *testing.T, dbPath string) *app {
	t.Helper()

	store, err := sqlstore.Open(context.Background(), dbPath, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	core, logs := observer.New(zapcore.InfoLevel)
	metrics := observability.NewMetrics()
	summaries := cache.New[*domain.DebtSummary](time.Minute)

	cb := resilience.NewCircuitBreaker("ledger-store", func(err error) bool {
		return err == nil || service.IsDomainError(err)
	})
	svc := service.NewLedgerService(store, events.NewLogPublisher(zap.New(core)), summaries, metrics, zap.NewNop(), service.LedgerOptions{
		Guard: resilience.NewGuard(cb, resilience.NewBulkhead(10)),
	})
	router := handler.NewRouter(svc, auth.NewVerifier(secret), metrics, zap.NewNop(), handler.Options{
		ConflictRetries: 1,
		RetryBackoff:    time.Millisecond,
	})

	a := &app{server: httptest.NewServer(router), store: store, events: logs}
	t.Cleanup(a.stop)
	t.Cleanup(summaries.Close)
	return a
}

func (a *app) stop() {
	a.once.Do(func() {
		a.server.Close()
		a.store.Close()
	})
}

// TestIntegration_FullFlow drives an over-limit purchase, its payment from a
// bank account and the card removal through HTTP, then checks the data
// survives a restart.
func TestIntegration_FullFlow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fineixo.db")
	a := startApp(t, dbPath)
	token := signToken(t, "owner-int-1")

	// --- Account and card ---
	var account domain.Account
	call(t, a, token, http.MethodPost, "/v1/accounts", map[string]any{
		"name": "Conta principal", "type": "checking", "balance": "2000", "bank": "Itaú",
	}, http.StatusCreated, &account)

	var card domain.CreditCard
	call(t, a, token, http.MethodPost, "/v1/credit-cards", map[string]any{
		"name": "Visa", "limit": "1000", "best_purchase_day": 5, "due_day": 10, "account_id": account.ID,
	}, http.StatusCreated, &card)
	assertMoney(t, "1000", card.AvailableLimit)

	// --- Over-limit purchase is recorded and saturates at zero ---
	var created domain.CreateDebtResult
	call(t, a, token, http.MethodPost, "/v1/debts", map[string]any{
		"description":    "Geladeira",
		"amount":         "1200",
		"credit_card_id": card.ID,
		"purchase_date":  "2025-03-01",
	}, http.StatusCreated, &created)
	if !created.OverLimit || len(created.Cards) != 1 {
		t.Fatalf("expected an over-limit settlement, got %+v", created)
	}
	assertMoney(t, "0", created.Cards[0].Card.AvailableLimit)
	debt := created.Debts[0]

	// --- Pay it from the account ---
	var payment domain.PaymentResult
	call(t, a, token, http.MethodPost, "/v1/debts/"+debt.ID+"/payments", map[string]any{
		"amount": "1200",
		"source": map[string]any{"kind": "account", "id": account.ID},
		"date":   "2025-03-10",
	}, http.StatusCreated, &payment)
	if !payment.Debt.Paid || payment.Card == nil {
		t.Fatalf("expected a settled card debt, got %+v", payment)
	}
	assertMoney(t, "1000", payment.Card.Card.AvailableLimit)

	var gotAccount domain.Account
	call(t, a, token, http.MethodGet, "/v1/accounts/"+account.ID, nil, http.StatusOK, &gotAccount)
	assertMoney(t, "800", gotAccount.Balance)

	// --- Reconcile agrees with the incremental bookkeeping ---
	var settlement domain.LimitSettlement
	call(t, a, token, http.MethodPost, "/v1/credit-cards/"+card.ID+"/reconcile", nil, http.StatusOK, &settlement)
	if settlement.Mode != domain.ReconcileFull {
		t.Errorf("expected full reconciliation, got %s", settlement.Mode)
	}
	assertMoney(t, "1000", settlement.Card.AvailableLimit)

	// --- Another owner sees nothing ---
	call(t, a, signToken(t, "owner-int-2"), http.MethodGet, "/v1/debts/"+debt.ID, nil, http.StatusNotFound, nil)

	// --- Restart on the same file ---
	a.stop()
	a = startApp(t, dbPath)

	var persisted domain.DebtView
	call(t, a, token, http.MethodGet, "/v1/debts/"+debt.ID, nil, http.StatusOK, &persisted)
	if !persisted.Paid || persisted.PaidAt == nil {
		t.Errorf("payment not persisted: %+v", persisted)
	}
	assertMoney(t, "1200", persisted.TotalPaid)

	// --- Deleting the card removes its debts but keeps the money trail ---
	call(t, a, token, http.MethodDelete, "/v1/credit-cards/"+card.ID, nil, http.StatusNoContent, nil)

	var debts struct {
		Debts []domain.DebtView `json:"debts"`
	}
	call(t, a, token, http.MethodGet, "/v1/debts", nil, http.StatusOK, &debts)
	if len(debts.Debts) != 0 {
		t.Errorf("expected card debts removed, got %d", len(debts.Debts))
	}

	var txns struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	call(t, a, token, http.MethodGet, "/v1/transactions", nil, http.StatusOK, &txns)
	if len(txns.Transactions) != 1 {
		t.Fatalf("expected the payment transaction kept, got %d", len(txns.Transactions))
	}
	if txns.Transactions[0].DebtID != "" || txns.Transactions[0].CreditCardID != "" {
		t.Errorf("expected unlinked transaction, got %+v", txns.Transactions[0])
	}

	if n := a.events.FilterField(zap.String("event_type", domain.EventCardDeleted)).Len(); n != 1 {
		t.Errorf("expected one card.deleted event, got %d", n)
	}
}

// TestIntegration_ConcurrentPayments fires parallel payments at one debt and
// checks the total paid never exceeds its amount.
func TestIntegration_ConcurrentPayments(t *testing.T) {
	a := startApp(t, filepath.Join(t.TempDir(), "fineixo.db"))
	token := signToken(t, "owner-int-3")

	var created domain.CreateDebtResult
	call(t, a, token, http.MethodPost, "/v1/debts", map[string]any{
		"description": "Aluguel", "amount": "100", "type": "single", "due_date": "2025-04-05",
	}, http.StatusCreated, &created)
	debtID := created.Debts[0].ID

	const payers = 8
	statuses := make(chan int, payers)
	for i := 0; i < payers; i++ {
		go func() {
			body, _ := json.Marshal(map[string]any{"amount": "25"})
			req, _ := http.NewRequest(http.MethodPost, a.server.URL+"/v1/debts/"+debtID+"/payments", bytes.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}

	accepted := 0
	for i := 0; i < payers; i++ {
		switch code := <-statuses; code {
		case http.StatusCreated:
			accepted++
		case http.StatusUnprocessableEntity, http.StatusConflict:
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if accepted != 4 {
		t.Errorf("expected exactly 4 accepted payments, got %d", accepted)
	}

	var view domain.DebtView
	call(t, a, token, http.MethodGet, "/v1/debts/"+debtID, nil, http.StatusOK, &view)
	assertMoney(t, "100", view.TotalPaid)
	if !view.Paid {
		t.Error("debt should be paid")
	}
}

// ============================================================
// Helpers
// ============================================================

func call(t *testing.T, a *app, token, method, path string, body any, want int, out any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		t.Fatalf("%s %s: expected %d, got %d (%s)", method, path, want, resp.StatusCode, e.Error)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func signToken(t *testing.T, owner string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   owner,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	if !decimal.RequireFromString(want).Equal(got) {
		t.Errorf("expected %s, got %s", want, got.String())
	}
}
