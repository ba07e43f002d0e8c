package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edvin/vpshost/internal/model"
)

var reconcileDomains = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "vpshost_reconcile_domains",
		Help: "Domains per canonical certificate status as of the last reconciliation sweep",
	},
	[]string{"status"},
)

var reconcileRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vpshost_reconcile_runs_total",
		Help: "Completed reconciliation sweeps by result",
	},
	[]string{"result"},
)

// SetReconcileStatusCounts publishes the per-status domain counts from a
// finished sweep. Statuses absent from the sweep are zeroed so stale values
// never linger.
func SetReconcileStatusCounts(counts map[string]int) {
	for _, status := range []string{
		model.SSLStatusNone, model.SSLStatusPending, model.SSLStatusActive,
		model.SSLStatusOrphaned, model.SSLStatusExpired, model.SSLStatusUnreachable,
	} {
		reconcileDomains.WithLabelValues(status).Set(float64(counts[status]))
	}
}

// CountReconcileRun records one finished sweep.
func CountReconcileRun(result string) {
	reconcileRuns.WithLabelValues(result).Inc()
}
