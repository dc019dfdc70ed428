package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds all Prometheus metrics for the integration pipeline.
type PipelineMetrics struct {
	FetchesTotal      *prometheus.CounterVec
	RecordsPublished  *prometheus.CounterVec
	TokenCacheHits    prometheus.Counter
	TokenCacheMisses  prometheus.Counter
	BatchesApplied    prometheus.Counter
	BatchesFailed     prometheus.Counter
	CustomersUpserted prometheus.Counter
}

// NewPipelineMetrics initializes and registers the Prometheus metrics.
func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		FetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "fetch",
			Name:      "attempts_total",
			Help:      "Total number of upstream fetch-and-publish attempts by resource and outcome.",
		}, []string{"resource", "status"}), // status: ok, error
		RecordsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "publish",
			Name:      "records_total",
			Help:      "Total number of records published to the broker by resource.",
		}, []string{"resource"}),
		TokenCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "auth",
			Name:      "token_cache_hits_total",
			Help:      "Total number of upstream token cache hits.",
		}),
		TokenCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "auth",
			Name:      "token_cache_misses_total",
			Help:      "Total number of upstream token cache misses.",
		}),
		BatchesApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "merge",
			Name:      "batches_applied_total",
			Help:      "Total number of batches applied to the merge store.",
		}),
		BatchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "merge",
			Name:      "batches_failed_total",
			Help:      "Total number of batches that failed to apply.",
		}),
		CustomersUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "integration_hub",
			Subsystem: "merge",
			Name:      "customers_upserted_total",
			Help:      "Total number of customer aggregates written by batch application.",
		}),
	}
}
