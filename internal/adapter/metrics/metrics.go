package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vsd_gateway"

// GatewayMetrics holds all Prometheus metrics for the gateway.
type GatewayMetrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	AuthDecisions     *prometheus.CounterVec
	AuditEntries      *prometheus.CounterVec
	TenantCacheHits   prometheus.Counter
	TenantCacheMisses prometheus.Counter
	WALActive         prometheus.Gauge
	RateLimited       prometheus.Counter
}

// NewGatewayMetrics initializes the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	factory := promauto.With(reg)
	return &GatewayMetrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by server, method and status.",
		}, []string{"server", "method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"server"}),
		AuthDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "decisions_total",
			Help:      "Authentication and authorization outcomes by path.",
		}, []string{"path", "outcome"}), // path: admin, tenant; outcome: allowed, unauthenticated, forbidden, error
		AuditEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Audit entries by outcome.",
		}, []string{"outcome"}), // outcome: written, failed, dropped
		TenantCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tenant_cache_hits_total",
			Help:      "Total number of tenant directory cache hits.",
		}),
		TenantCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tenant_cache_misses_total",
			Help:      "Total number of tenant directory cache misses.",
		}),
		WALActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "wal_active_gauge",
			Help:      "Indicates if audit entries are being written to the local WAL (1 for active, 0 for inactive).",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Total number of public API requests rejected by the rate limiter.",
		}),
	}
}

// AuthDecision increments the auth decision counter. Safe on a nil receiver.
func (m *GatewayMetrics) AuthDecision(path, outcome string) {
	if m == nil {
		return
	}
	m.AuthDecisions.WithLabelValues(path, outcome).Inc()
}

// AuditEntry increments the audit entry counter. Safe on a nil receiver.
func (m *GatewayMetrics) AuditEntry(outcome string) {
	if m == nil {
		return
	}
	m.AuditEntries.WithLabelValues(outcome).Inc()
}
