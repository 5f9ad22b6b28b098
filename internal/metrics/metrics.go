// Package metrics holds the prometheus collectors shared by the proxy and the
// offline cache worker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "weather_dashboard"

var (
	// Registry is the registry every collector below is registered with.
	Registry = prometheus.NewRegistry()

	ProxyRequests = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proxy_requests_total",
		Help:      "Requests served by /api/weather, by response status.",
	}, []string{"status"})

	UpstreamRequests = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Upstream provider attempts, by outcome.",
	}, []string{"outcome"})

	UpstreamLatency = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of single upstream provider attempts.",
		Buckets:   prometheus.DefBuckets,
	})

	ResponseCacheLookups = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "response_cache_lookups_total",
		Help:      "Upstream response cache lookups, by result.",
	}, []string{"result"})

	OfflineResponses = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "offline_responses_total",
		Help:      "Responses produced by the offline cache worker, by strategy and source.",
	}, []string{"strategy", "source"})
)

func init() {
	Registry.MustRegister(prometheus.NewGoCollector())
}

// Handler exposes Registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
