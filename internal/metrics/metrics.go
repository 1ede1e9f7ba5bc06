// Package metrics exposes the Prometheus-format counters and histograms
// named in 4.I: reconciles by controller/result, HTTP requests by
// route/status, SSE sessions, activation latency, and idle reaps.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconcilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nmcp_reconciles_total",
		Help: "Reconciles by controller and result.",
	}, []string{"controller", "result"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nmcp_http_requests_total",
		Help: "Gateway HTTP requests by route and status class.",
	}, []string{"route", "status"})

	SSESessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nmcp_sse_sessions_opened_total",
		Help: "SSE sessions opened by the gateway.",
	})

	SSESessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nmcp_sse_sessions_open",
		Help: "SSE sessions currently open.",
	})

	ActivationLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nmcp_activation_latency_seconds",
		Help:    "Time from activation request to routable endpoint.",
		Buckets: prometheus.DefBuckets,
	})

	IdleReapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nmcp_idle_reaps_total",
		Help: "Servers transitioned Running to Idle by the idle reaper.",
	})
)
