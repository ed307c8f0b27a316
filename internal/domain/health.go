package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// LedgerMetrics is returned by GET /v1/metrics/ledger.
type LedgerMetrics struct {
	Operations           int64   `json:"operations"`
	Errors               int64   `json:"errors"`
	ErrorRate            float64 `json:"errorRate"`
	IncrementalSettles   int64   `json:"incrementalSettles"`
	FullReconciliations  int64   `json:"fullReconciliations"`
	OverLimitEvents      int64   `json:"overLimitEvents"`
	Conflicts            int64   `json:"conflicts"`
	CacheHitRate         float64 `json:"cacheHitRate"`
	EventPublishFailures int64   `json:"eventPublishFailures"`
	Period               string  `json:"period"`
}
