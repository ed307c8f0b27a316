// Package service provides the business logic layer (use cases).
// LedgerService owns the credit-card obligation ledger: debt lifecycle,
// installment planning, card limit reconciliation and debt payments,
// plus the account, wallet and category operations they depend on.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/ClebyFrancisco/fineixo/internal/infra/observability"
	"github.com/ClebyFrancisco/fineixo/internal/infra/resilience"
	"github.com/ClebyFrancisco/fineixo/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ledgerTracer = otel.Tracer("service/ledger")

const summaryCacheName = "summary"

// LedgerOptions tunes a LedgerService.
type LedgerOptions struct {
	// RejectOverLimit is the default over-limit policy for requests that do
	// not choose one.
	RejectOverLimit bool
	// Guard wraps every store transaction (circuit breaker + bulkhead).
	Guard *resilience.Guard
	// Clock overrides time.Now.
	Clock func() time.Time
}

// LedgerService orchestrates every ledger operation through the store.
type LedgerService struct {
	store     port.LedgerStore
	publisher port.EventPublisher
	summaries port.Cache[*domain.DebtSummary]
	metrics   *observability.Metrics
	logger    *zap.Logger

	rejectOverLimit bool
	guard           *resilience.Guard
	now             func() time.Time

	wallets singleflight.Group

	// summaryGen counts committed writes per owner. A summary computed while
	// the count moved is not cached.
	summaryMu  sync.Mutex
	summaryGen map[string]uint64
}

// NewLedgerService creates a new ledger service. publisher and summaries may be nil.
func NewLedgerService(
	store port.LedgerStore,
	publisher port.EventPublisher,
	summaries port.Cache[*domain.DebtSummary],
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts LedgerOptions,
) *LedgerService {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &LedgerService{
		store:           store,
		publisher:       publisher,
		summaries:       summaries,
		metrics:         metrics,
		logger:          logger,
		rejectOverLimit: opts.RejectOverLimit,
		guard:           opts.Guard,
		now:             now,
		summaryGen:      make(map[string]uint64),
	}
}

// Ping checks the store.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// IsDomainError reports whether err is a ledger rule outcome rather than an
// infrastructure failure.
func IsDomainError(err error) bool {
	var (
		notFound     *domain.ErrNotFound
		validation   *domain.ErrValidation
		businessRule *domain.ErrBusinessRule
		limit        *domain.ErrLimitExceeded
		conflict     *domain.ErrConflict
	)
	return errors.As(err, &notFound) ||
		errors.As(err, &validation) ||
		errors.As(err, &businessRule) ||
		errors.As(err, &limit) ||
		errors.As(err, &conflict)
}

// ============================================================
// Unit of work
// ============================================================

// write runs fn in one store transaction guarded by the breaker and bulkhead,
// records the outcome and drops the owner's cached summary on commit.
func (s *LedgerService) write(ctx context.Context, op, ownerID string, fn func(ctx context.Context, tx port.LedgerTx) error) error {
	start := time.Now()
	err := s.guard.Do(ctx, func() error {
		return s.store.WithTx(ctx, fn)
	})
	s.metrics.RecordOperationDuration(op, time.Since(start))

	if err != nil {
		s.metrics.IncrOperation("error")
		var conflict *domain.ErrConflict
		if errors.As(err, &conflict) {
			s.metrics.IncrConflict(conflict.Resource)
		}
		if resilience.IsOpen(err) {
			return &domain.ErrCircuitOpen{Service: "ledger-store"}
		}
		if !IsDomainError(err) {
			s.logger.Error("ledger write failed", zap.String("operation", op), zap.String("owner_id", ownerID), zap.Error(err))
		}
		return err
	}

	s.metrics.IncrOperation("success")
	s.invalidateSummary(ownerID)
	return nil
}

// publish delivers a committed event. Failures are logged and counted only.
func (s *LedgerService) publish(ctx context.Context, evt domain.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	evt.ID = uuid.NewString()
	evt.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.metrics.IncrPublishFailure(evt.Type)
		s.logger.Warn("failed to publish ledger event",
			zap.String("type", evt.Type),
			zap.String("owner_id", evt.OwnerID),
			zap.Error(err),
		)
	}
}

func (s *LedgerService) today() time.Time {
	return domain.DateOnly(s.now())
}

// shouldReject resolves the over-limit policy of one request.
func (s *LedgerService) shouldReject(allowOverLimit *bool) bool {
	if allowOverLimit != nil {
		return !*allowOverLimit
	}
	return s.rejectOverLimit
}

func summaryKey(ownerID string) string {
	return "summary:" + ownerID
}

func (s *LedgerService) summaryGeneration(ownerID string) uint64 {
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()
	return s.summaryGen[ownerID]
}

// invalidateSummary bumps the owner's generation before dropping the cached
// summary, so a read that started earlier cannot put a stale one back.
func (s *LedgerService) invalidateSummary(ownerID string) {
	s.summaryMu.Lock()
	s.summaryGen[ownerID]++
	s.summaryMu.Unlock()
	if s.summaries != nil {
		s.summaries.Delete(summaryKey(ownerID))
	}
}

// cacheSummary stores summary only if no write committed since gen was read.
func (s *LedgerService) cacheSummary(ownerID string, gen uint64, summary *domain.DebtSummary) {
	if s.summaries == nil {
		return
	}
	s.summaryMu.Lock()
	defer s.summaryMu.Unlock()
	if s.summaryGen[ownerID] != gen {
		s.logger.Debug("summary not cached, owner changed during read", zap.String("owner_id", ownerID))
		return
	}
	s.summaries.Set(summaryKey(ownerID), summary)
}

func debtIDs(debts []domain.Debt) []string {
	ids := make([]string, len(debts))
	for i := range debts {
		ids[i] = debts[i].ID
	}
	return ids
}
