// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Collectors register with the default registry on package init:
//   - dreamcompanion_analyses_total{outcome}
//   - dreamcompanion_analysis_duration_seconds
//   - dreamcompanion_records_analyzed_total
//   - dreamcompanion_records_skipped_total
//   - dreamcompanion_http_requests_total{route,code}
//   - dreamcompanion_http_rate_limited_total
//   - dreamcompanion_premium_checks_total{result}
//   - dreamcompanion_feed_entries_imported_total{feed}
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dreamcompanion"

var (
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of journal analyses by outcome",
		},
		[]string{"outcome"}, // "ok", "no_dreams", "canceled"
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a full journal analysis in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	RecordsAnalyzed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_analyzed_total",
			Help:      "Total number of dream records analyzed",
		},
	)

	RecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Total number of stored dream payloads that could not be decoded",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the per-user rate limiter",
		},
	)

	PremiumChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "premium_checks_total",
			Help:      "Total number of premium entitlement checks by result",
		},
		[]string{"result"}, // "cached", "granted", "denied", "error"
	)

	FeedEntriesImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_entries_imported_total",
			Help:      "Total number of journal entries imported from feeds",
		},
		[]string{"feed"},
	)
)
