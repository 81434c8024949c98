// Package metrics exposes Prometheus counters for the conversion, analytics
// and ledger paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finagent"

var (
	// RateFetches counts rate table fetches by result ("ok", "error", "stale").
	RateFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_fetches_total",
		Help:      "Exchange rate table fetches by result.",
	}, []string{"result"})

	RateCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_cache_hits_total",
		Help:      "Conversions served from a fresh cached rate table.",
	})

	ConversionsUnavailable = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversions_unavailable_total",
		Help:      "Conversions that failed for lack of a usable rate.",
	})

	InsightsCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "insights_cache_total",
		Help:      "Spending insight lookups by cache result.",
	}, []string{"result"})

	// SplitResolutions counts resolved allocations by method.
	SplitResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "split_resolutions_total",
		Help:      "Split allocations by resolution method.",
	}, []string{"method"})

	ReconciliationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "split_reconciliation_failures_total",
		Help:      "Split allocations rejected by the final validation gate.",
	})

	// LedgerWriteFailures counts failed friend/debt writes by kind.
	LedgerWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_write_failures_total",
		Help:      "Per-item ledger write failures.",
	}, []string{"kind"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Ledger events by publish result.",
	}, []string{"result"})

	// RPCDuration observes unary RPC latency by procedure and status code.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rpc_duration_seconds",
		Help:      "Unary RPC latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"procedure", "code"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
