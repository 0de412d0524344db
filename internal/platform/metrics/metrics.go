package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the sync engine.
type Metrics struct {
	ReconcilePasses      *prometheus.CounterVec
	ProfileFetchAttempts prometheus.Counter
	ProfileFetchMisses   prometheus.Counter
	OptimisticInserts    *prometheus.CounterVec
	OptimisticRemoves    *prometheus.CounterVec
	Rollbacks            *prometheus.CounterVec
	EnrichmentHits       prometheus.Counter
	EnrichmentMisses     prometheus.Counter
}

// New registers and returns the engine's metrics collectors.
func New() *Metrics {
	return &Metrics{
		ReconcilePasses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mindspend_reconcile_passes_total",
			Help: "Total auth reconciliation passes by originating event",
		}, []string{"event"}),
		ProfileFetchAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mindspend_profile_fetch_attempts_total",
			Help: "Total profile fetch attempts including retries",
		}),
		ProfileFetchMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mindspend_profile_fetch_misses_total",
			Help: "Profile fetches that found no row",
		}),
		OptimisticInserts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mindspend_optimistic_inserts_total",
			Help: "Optimistic inserts by collection",
		}, []string{"collection"}),
		OptimisticRemoves: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mindspend_optimistic_removes_total",
			Help: "Optimistic removes by collection",
		}, []string{"collection"}),
		Rollbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mindspend_optimistic_rollbacks_total",
			Help: "Optimistic mutations rolled back after a remote failure",
		}, []string{"collection", "op"}),
		EnrichmentHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mindspend_enrichment_hits_total",
			Help: "Preview-image extractions that matched a pattern",
		}),
		EnrichmentMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mindspend_enrichment_misses_total",
			Help: "Preview-image extractions that fell back to defaults",
		}),
	}
}
