package mgit

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds mgit's counters and histogram. They are updated only by
// RecordBulkReport and RecordResolveResult, which a host calls with a
// finished report or result; nothing in mgit updates
// ChangeRecordsEmitted or OperationDuration. mgit never starts an HTTP server or registers a default registry
// itself: a host that wants metrics exposed supplies its own
// prometheus.Registerer and scrapes it however it already does
// (observability exporters are explicitly out of scope for mgit).
type Metrics struct {
	ResolvedRepositories prometheus.Counter
	ProviderErrors       *prometheus.CounterVec
	BulkActions          *prometheus.CounterVec
	ChangeRecordsEmitted prometheus.Counter
	OperationDuration    *prometheus.HistogramVec
}

// NewMetrics builds and registers a Metrics set against reg. Call this
// once per process; passing the same reg to two Metrics instances will
// fail registration with a duplicate-collector error, matching
// prometheus/client_golang's normal semantics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ResolvedRepositories: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mgit",
			Name:      "resolved_repositories_total",
			Help:      "Total repositories returned by Resolve across all providers.",
		}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mgit",
			Name:      "provider_errors_total",
			Help:      "Total per-provider resolution errors, labeled by provider config name.",
		}, []string{"provider"}),
		BulkActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mgit",
			Name:      "bulk_actions_total",
			Help:      "Total bulk operation engine decisions, labeled by action.",
		}, []string{"action"}),
		ChangeRecordsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mgit",
			Name:      "change_records_emitted_total",
			Help:      "Total ChangeRecord lines emitted by the change pipeline.",
		}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mgit",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Resolve/Bulk/ChangePipeline calls, labeled by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	collectors := []prometheus.Collector{
		m.ResolvedRepositories, m.ProviderErrors, m.BulkActions, m.ChangeRecordsEmitted, m.OperationDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordBulkReport tallies a BulkReport's per-action counts into m.
func (m *Metrics) RecordBulkReport(report BulkReport) {
	if m == nil {
		return
	}
	for action, n := range report.Counts {
		m.BulkActions.WithLabelValues(string(action)).Add(float64(n))
	}
}

// RecordResolveResult tallies a ResolveResult into m.
func (m *Metrics) RecordResolveResult(res ResolveResult) {
	if m == nil {
		return
	}
	m.ResolvedRepositories.Add(float64(len(res.Repositories)))
	for provider := range res.PerProviderErrors {
		m.ProviderErrors.WithLabelValues(provider).Inc()
	}
}
