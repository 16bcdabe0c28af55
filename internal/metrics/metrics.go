// Package metrics provides Prometheus metrics for the routing core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskgate"

var (
	// RoutingDecisionsTotal counts routing decisions by reason and provider.
	RoutingDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Total routing decisions by reason code and selected provider",
		},
		[]string{"reason", "provider"},
	)

	// FallbacksTotal counts provider substitutions.
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total provider fallbacks by source, destination and reason",
		},
		[]string{"from", "to", "reason"},
	)

	// AdmissionDenialsTotal counts blocked requests by reason.
	AdmissionDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_denials_total",
			Help:      "Total admission denials by reason code",
		},
		[]string{"reason"},
	)

	// SoftLimitWarningsTotal counts cost checks that crossed a soft limit.
	SoftLimitWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "soft_limit_warnings_total",
			Help:      "Total cost checks that exceeded a soft budget limit",
		},
		[]string{"scope"},
	)

	// CostUsageUSD tracks running cost usage per limit scope.
	CostUsageUSD = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cost_usage_usd",
			Help:      "Running cost usage in USD per limit scope",
		},
		[]string{"scope"},
	)

	// RateWindowRequests tracks requests admitted in the current window.
	RateWindowRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_window_requests",
			Help:      "Requests admitted in the current one-minute window per scope",
		},
		[]string{"scope"},
	)

	// RateWindowTokens tracks tokens admitted in the current window.
	RateWindowTokens = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_window_tokens",
			Help:      "Tokens admitted in the current one-minute window per scope",
		},
		[]string{"scope"},
	)

	// DecisionLatency observes the wall-clock latency of routing decisions.
	DecisionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_latency_seconds",
			Help:      "Wall-clock latency of building one routing decision",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)
)
