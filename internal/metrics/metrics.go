// Package metrics exposes the Prometheus collectors for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts finished turns by outcome ("done" or "error").
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roamkit",
		Name:      "turns_total",
		Help:      "Finished turns by terminal outcome.",
	}, []string{"outcome"})

	// TurnsInFlight tracks turns currently holding a session lease.
	TurnsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roamkit",
		Name:      "turns_in_flight",
		Help:      "Turns currently in flight.",
	})

	// StageRetries counts retry attempts against the specialist upstream.
	StageRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roamkit",
		Name:      "stage_retries_total",
		Help:      "Stage invocation retries by stage name.",
	}, []string{"stage"})

	// StoreDegraded is 1 while the state store serves from the in-memory
	// fallback.
	StoreDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roamkit",
		Name:      "store_degraded",
		Help:      "Whether the state store is running on its in-memory fallback.",
	})

	// RateLimited counts requests rejected by the rate gate.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roamkit",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-client rate gate.",
	})
)
