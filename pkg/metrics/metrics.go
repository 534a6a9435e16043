// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cognito-authorizer.
//
// go-cognito-authorizer is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for authorization
// decisions, denial reasons, key set fetches and the local HTTP emulation.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all authorizer metrics
	Namespace = "authorizer"

	// Label names
	LabelEffect     = "effect"
	LabelReason     = "reason"
	LabelStatus     = "status"
	LabelMethod     = "method"
	LabelRoute      = "route"
	LabelStatusCode = "status_code"

	// RouteOther labels requests that matched no registered route.
	RouteOther = "other"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// DecisionsTotal counts authorization decisions by effect.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decisions_total",
			Help:      "Total number of authorization decisions by effect",
		},
		[]string{LabelEffect},
	)

	// DenialsTotal counts Deny decisions by reason.
	DenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "denials_total",
			Help:      "Total number of denied authorizations by reason",
		},
		[]string{LabelReason},
	)

	// DecisionDuration tracks end-to-end decision latency in seconds,
	// including any key set fetch.
	DecisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "decision_duration_seconds",
			Help:      "Duration of authorization decisions in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{LabelEffect},
	)

	// KeySetFetchTotal counts key set downloads by status.
	KeySetFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "jwks",
			Name:      "fetch_total",
			Help:      "Total number of key set fetches by status",
		},
		[]string{LabelStatus},
	)

	// KeySetFetchDuration tracks key set download latency in seconds.
	KeySetFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "jwks",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of key set fetches in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// KeySetKeys is the number of usable signing keys in the cached set.
	KeySetKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "jwks",
			Name:      "keys",
			Help:      "Number of usable signing keys in the cached key set",
		},
	)

	// HTTPRequestsTotal tracks the total number of HTTP requests by method,
	// route pattern and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route and status code",
		},
		[]string{LabelMethod, LabelRoute, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelRoute},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordDecision records one authorization decision. reason is empty for
// Allow decisions.
//
// Example:
//
//	start := time.Now()
//	decision := authz.Authorize(ctx, token)
//	RecordDecision("Deny", "token_expired", time.Since(start).Seconds())
func RecordDecision(effect, reason string, duration float64) {
	if !enabled.Load() {
		return
	}
	DecisionsTotal.WithLabelValues(effect).Inc()
	DecisionDuration.WithLabelValues(effect).Observe(duration)
	if reason != "" {
		DenialsTotal.WithLabelValues(reason).Inc()
	}
}

// RecordKeySetFetch records a key set download. keys is only applied to
// the gauge on success.
func RecordKeySetFetch(status string, duration float64, keys int) {
	if !enabled.Load() {
		return
	}
	KeySetFetchTotal.WithLabelValues(status).Inc()
	KeySetFetchDuration.Observe(duration)
	if status == StatusSuccess {
		KeySetKeys.Set(float64(keys))
	}
}

// RecordHTTPRequest records an HTTP request with its duration and status.
// route is the matched route pattern, never the raw path.
func RecordHTTPRequest(method, route, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
