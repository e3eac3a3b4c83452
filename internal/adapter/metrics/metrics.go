package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DataMetrics holds all Prometheus metrics for the data access layer.
type DataMetrics struct {
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	IsolationViolations prometheus.Counter
	RateLimitDecisions  *prometheus.CounterVec
	AuditWrites         *prometheus.CounterVec
}

// NewDataMetrics initializes and registers the Prometheus metrics.
func NewDataMetrics() *DataMetrics {
	return &DataMetrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "nutricare",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of tenant cache hits.",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "nutricare",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of tenant cache misses.",
		}),
		IsolationViolations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "nutricare",
			Subsystem: "cache",
			Name:      "tenant_isolation_violations_total",
			Help:      "Cache entries rejected because the embedded tenant tag did not match the requesting tenant.",
		}),
		RateLimitDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nutricare",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limiter decisions by outcome.",
		}, []string{"outcome"}), // outcome: allowed, denied, fail_open
		AuditWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nutricare",
			Subsystem: "audit",
			Name:      "writes_total",
			Help:      "Audit log writes by status.",
		}, []string{"status"}), // status: written, failed
	}
}
