package observability

import (
	"testing"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
)

func TestLedgerSnapshot(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 3; i++ {
		m.IncrOperation("success")
	}
	m.IncrOperation("error")
	m.RecordOperationDuration("create_debt", 20*time.Millisecond)
	m.IncrSettlement(domain.ReconcileIncremental)
	m.IncrSettlement(domain.ReconcileIncremental)
	m.IncrSettlement(domain.ReconcileFull)
	m.IncrOverLimit("recorded")
	m.IncrOverLimit("rejected")
	m.IncrConflict("debt")
	m.IncrCacheHit("summary")
	m.IncrCacheMiss("summary")
	m.IncrCacheMiss("summary")
	m.IncrCacheMiss("summary")
	m.IncrPublishFailure(domain.EventDebtPaid)
	m.IncrPublishFailure(domain.EventCardDeleted)

	s := m.GetLedgerSnapshot()
	if s.Operations != 4 || s.Errors != 1 {
		t.Errorf("expected 4 operations / 1 error, got %d / %d", s.Operations, s.Errors)
	}
	if s.ErrorRate != 0.25 {
		t.Errorf("expected error rate 0.25, got %v", s.ErrorRate)
	}
	if s.IncrementalSettles != 2 || s.FullReconciliations != 1 {
		t.Errorf("unexpected settlements: %+v", s)
	}
	if s.OverLimitEvents != 2 || s.Conflicts != 1 {
		t.Errorf("unexpected over-limit/conflicts: %+v", s)
	}
	if s.CacheHitRate != 0.25 {
		t.Errorf("expected cache hit rate 0.25, got %v", s.CacheHitRate)
	}
	if s.EventPublishFailures != 2 {
		t.Errorf("expected 2 publish failures, got %d", s.EventPublishFailures)
	}
}

func TestLedgerSnapshot_Empty(t *testing.T) {
	s := NewMetrics().GetLedgerSnapshot()
	if s.Operations != 0 || s.ErrorRate != 0 || s.CacheHitRate != 0 || s.EventPublishFailures != 0 {
		t.Errorf("expected zero snapshot, got %+v", s)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "", "bogus"} {
		if l := NewLogger(level); l == nil {
			t.Fatalf("nil logger for level %q", level)
		}
	}
	if NewLogger("warn").Core().Enabled(-1) {
		t.Error("warn logger should not enable debug")
	}
}
