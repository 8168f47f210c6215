package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medshare_operations_total",
		Help: "Contract operations by name and outcome",
	}, []string{"operation", "outcome"})

	accessDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medshare_access_denied_total",
		Help: "Authorization denials by operation",
	}, []string{"operation"})

	auditEntriesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medshare_audit_entries_total",
		Help: "Audit entries appended to the public log by kind",
	}, []string{"kind"})

	erasureCorrelations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medshare_erasure_correlations_total",
		Help: "Erasures authorized from a prior deletion audit entry",
	})
)

// ObserveOperation records one finished contract operation.
func ObserveOperation(operation, outcome string) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveDenial records one authorization denial.
func ObserveDenial(operation string) {
	accessDenied.WithLabelValues(operation).Inc()
}

// ObserveAuditEntry records one appended audit entry.
func ObserveAuditEntry(kind string) {
	auditEntriesWritten.WithLabelValues(kind).Inc()
}

// ObserveErasureCorrelation records an erasure authorized against the trail
// of an already-deleted asset.
func ObserveErasureCorrelation() {
	erasureCorrelations.Inc()
}
