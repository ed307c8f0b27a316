package observability

import (
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	operationsTotal   *prometheus.CounterVec
	reconciliations   *prometheus.CounterVec
	overLimit         *prometheus.CounterVec
	conflicts         *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	publishFailures   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Total ledger write operations by outcome.",
			},
			[]string{"status"},
		),
		reconciliations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_limit_settlements_total",
				Help: "Card limit settlements by mode.",
			},
			[]string{"mode"},
		),
		overLimit: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_over_limit_total",
				Help: "Card settlements whose committed total exceeded the limit.",
			},
			[]string{"outcome"},
		),
		conflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_conflicts_total",
				Help: "Optimistic lock conflicts by resource.",
			},
			[]string{"resource"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		publishFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_event_publish_failures_total",
				Help: "Ledger events that could not be published.",
			},
			[]string{"type"},
		),
	}
}

// RecordOperationDuration records the duration of an operation.
func (m *Metrics) RecordOperationDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrOperation increments the operation counter with a status label.
func (m *Metrics) IncrOperation(status string) {
	m.operationsTotal.WithLabelValues(status).Inc()
}

// IncrSettlement counts one card limit settlement.
func (m *Metrics) IncrSettlement(mode domain.ReconcileMode) {
	m.reconciliations.WithLabelValues(string(mode)).Inc()
}

// IncrOverLimit counts an over-limit settlement; outcome is "recorded" or "rejected".
func (m *Metrics) IncrOverLimit(outcome string) {
	m.overLimit.WithLabelValues(outcome).Inc()
}

// IncrConflict increments the optimistic lock conflict counter.
func (m *Metrics) IncrConflict(resource string) {
	m.conflicts.WithLabelValues(resource).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrPublishFailure counts an event that was not delivered.
func (m *Metrics) IncrPublishFailure(eventType string) {
	m.publishFailures.WithLabelValues(eventType).Inc()
}

// GetLedgerSnapshot returns a snapshot of ledger metrics suitable for the
// GET /v1/metrics/ledger endpoint.
func (m *Metrics) GetLedgerSnapshot() *domain.LedgerMetrics {
	// Prometheus counters expose cumulative values.
	success := getCounterValue(m.operationsTotal, "success")
	errCount := getCounterValue(m.operationsTotal, "error")
	total := success + errCount
	hits := getCounterValue(m.cacheHits, "summary")
	misses := getCounterValue(m.cacheMisses, "summary")

	errorRate := float64(0)
	cacheHitRate := float64(0)
	if total > 0 {
		errorRate = errCount / total
	}
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.LedgerMetrics{
		Operations:           int64(total),
		Errors:               int64(errCount),
		ErrorRate:            errorRate,
		IncrementalSettles:   int64(getCounterValue(m.reconciliations, string(domain.ReconcileIncremental))),
		FullReconciliations:  int64(getCounterValue(m.reconciliations, string(domain.ReconcileFull))),
		OverLimitEvents:      int64(getCounterValue(m.overLimit, "recorded") + getCounterValue(m.overLimit, "rejected")),
		Conflicts:            int64(getCounterValue(m.conflicts, "debt")),
		CacheHitRate:         cacheHitRate,
		EventPublishFailures: int64(sumCounterVec(m.publishFailures)),
		Period:               "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounterVec adds up every child of cv regardless of labels.
func sumCounterVec(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()
	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil {
			total += m.Counter.GetValue()
		}
	}
	return total
}
