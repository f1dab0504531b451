package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry      *prometheus.Registry
	syncRuns      *prometheus.CounterVec // total reconciliation runs
	syncDuration  prometheus.Histogram   // time per run
	rpcRequests   *prometheus.CounterVec // remote api calls
	reconcileOps  *prometheus.CounterVec // applied operations
	journalWrites *prometheus.CounterVec // journal appends
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	namespace := "hosttech_dns_sync"

	m := &Metrics{
		registry: registry,

		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Total number of reconciliation runs",
		}, []string{"status"}),

		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of reconciliation runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Total remote API requests",
		}, []string{"operation", "status"}),

		reconcileOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_operations_total",
			Help:      "Total record operations issued by reconciliation",
		}, []string{"operation", "status"}),

		journalWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_writes_total",
			Help:      "Total run journal writes",
		}, []string{"status"}),
	}

	registry.MustRegister(
		m.syncRuns,
		m.syncDuration,
		m.rpcRequests,
		m.reconcileOps,
		m.journalWrites,
	)
	return m
}

// All increment methods tolerate a nil receiver so library packages can run
// without metrics wired, e.g. in tests.

func (m *Metrics) IncSyncRun(success bool) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(boolToResult(success)).Inc()
}

func (m *Metrics) SetSyncDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.syncDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncRPCRequest(operation string, success bool) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(operation, boolToResult(success)).Inc()
}

func (m *Metrics) IncReconcileOp(operation string, success bool) {
	if m == nil || !isValidOperation(operation) {
		return
	}
	m.reconcileOps.WithLabelValues(operation, boolToResult(success)).Inc()
}

func (m *Metrics) IncJournalWrite(success bool) {
	if m == nil {
		return
	}
	m.journalWrites.WithLabelValues(boolToResult(success)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidOperation(op string) bool {
	switch op {
	case "create", "update", "delete":
		return true
	}
	return false
}
