package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the engine's prometheus metrics.
type Collector struct {
	compactionsTotal   *prometheus.CounterVec
	compactionDuration *prometheus.HistogramVec
	compactionTokens   *prometheus.HistogramVec

	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	fallbacksTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a collector registered on reg. Passing nil uses
// the default prometheus registerer; tests pass their own registry so
// parallel collectors never collide.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.compactionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compactions_total",
			Help:      "Total number of compaction runs",
		},
		[]string{"strategy", "status"},
	)

	c.compactionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compaction_duration_seconds",
			Help:      "Compaction run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"strategy"},
	)

	c.compactionTokens = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compaction_result_tokens",
			Help:      "Token count of assembled contexts",
			Buckets:   prometheus.ExponentialBuckets(256, 2, 10),
		},
		[]string{"strategy"},
	)

	c.providerRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of summarization provider calls",
		},
		[]string{"provider", "status"},
	)

	c.providerLatency = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Summarization provider call latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of summary cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of summary cache misses",
		},
		[]string{"cache_type"},
	)

	c.fallbacksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of chunks degraded to raw trimmed content",
		},
		[]string{"strategy"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordCompaction records one compaction run.
func (c *Collector) RecordCompaction(strategy, status string, duration time.Duration, resultTokens int) {
	c.compactionsTotal.WithLabelValues(strategy, status).Inc()
	c.compactionDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	c.compactionTokens.WithLabelValues(strategy).Observe(float64(resultTokens))
}

// RecordProviderCall records one summarization call.
func (c *Collector) RecordProviderCall(provider, status string, latency time.Duration) {
	c.providerRequests.WithLabelValues(provider, status).Inc()
	c.providerLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordCacheHit records a summary cache hit.
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a summary cache miss.
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordFallbacks records n degraded chunks for a strategy.
func (c *Collector) RecordFallbacks(strategy string, n int) {
	if n > 0 {
		c.fallbacksTotal.WithLabelValues(strategy).Add(float64(n))
	}
}
