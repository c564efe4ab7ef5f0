package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		redemptionsTotal,
		redemptionLatencyMs,
	)
}

var (
	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemptions_total",
			Help: "Redemption attempts by code kind and outcome.",
		},
		[]string{"kind", "outcome"}, // outcome: success, not_found, already_redeemed, ...
	)

	redemptionLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "redemption_latency_ms",
			Help:    "Redemption call latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncRedemption(kind, outcome string) {
	redemptionsTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}

func ObserveRedemptionLatency(ms float64) {
	redemptionLatencyMs.Observe(ms)
}
