package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route and status
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "respira_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration tracks handler latency
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "respira_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// CheckinsTotal counts check-in settlements by outcome
	CheckinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "respira_checkins_total",
		Help: "Check-in settlements by outcome",
	}, []string{"outcome"})

	// RateLimitRejections counts requests rejected by the limiter
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "respira_rate_limit_rejections_total",
		Help: "Requests rejected by the per-user rate limiter",
	})

	// PushDeliveries counts push sends by outcome (sent, failed, removed)
	PushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "respira_push_deliveries_total",
		Help: "Push notification deliveries by outcome",
	}, []string{"outcome"})

	// AnalyticsFlushes counts batch flushes by result
	AnalyticsFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "respira_analytics_flushes_total",
		Help: "Analytics batch flushes by result",
	}, []string{"result"})

	// AnalyticsEventsDropped counts events dropped when the queue is full
	AnalyticsEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "respira_analytics_events_dropped_total",
		Help: "Analytics events dropped because the queue was full",
	})
)
