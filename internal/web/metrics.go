package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the strategy API. Registered once on the default
// registry; /metrics serves them via promhttp.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autopilot_http_requests_total",
		Help: "HTTP requests served, by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autopilot_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	rankRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autopilot_rank_requests_total",
		Help: "Ranking requests, by data quality of the result.",
	}, []string{"data_quality"})

	plansCompiledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autopilot_plans_compiled_total",
		Help: "Plan compilations, by outcome.",
	}, []string{"outcome"})
)
