// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the relay:
// - inbound HTTP latency and throughput
// - webhook outcomes (notified, filtered, rejected)
// - outbound push latency and upstream status
// - attachment store operations
// - push circuit breaker state

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexntfy_api_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plexntfy_api_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "plexntfy_api_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)

	// Webhook Metrics
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexntfy_webhook_events_total",
			Help: "Webhook requests by outcome",
		},
		[]string{"outcome"}, // notified, filtered, no_payload, unauthorized, not_configured, upstream_rejected, error
	)

	WebhookEventKinds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexntfy_webhook_event_kinds_total",
			Help: "Decoded webhook events by normalised kind",
		},
		[]string{"kind"},
	)

	// Push Metrics
	PushRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plexntfy_push_request_duration_seconds",
			Help:    "Latency of outbound push requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	PushRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexntfy_push_requests_total",
			Help: "Outbound push requests by result",
		},
		[]string{"result"}, // success, rejected, error
	)

	// Attachment Metrics
	AttachmentOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexntfy_attachment_operations_total",
			Help: "Attachment store operations by result",
		},
		[]string{"operation", "result"}, // store|retrieve, ok|miss|error
	)

	AttachmentBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plexntfy_attachment_bytes_total",
			Help: "Total thumbnail bytes stored",
		},
	)

	AttachmentEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plexntfy_attachment_evictions_total",
			Help: "Expired attachments removed by maintenance",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordWebhookOutcome counts one webhook request.
func RecordWebhookOutcome(outcome string) {
	WebhookEvents.WithLabelValues(outcome).Inc()
}

// RecordWebhookKind counts one decoded event.
func RecordWebhookKind(kind string) {
	WebhookEventKinds.WithLabelValues(kind).Inc()
}

// RecordPush records an outbound push attempt.
func RecordPush(result string, duration time.Duration) {
	PushRequests.WithLabelValues(result).Inc()
	PushRequestDuration.Observe(duration.Seconds())
}

// RecordAttachmentStore records a store attempt.
func RecordAttachmentStore(size int, err error) {
	if err != nil {
		AttachmentOperations.WithLabelValues("store", "error").Inc()
		return
	}
	AttachmentOperations.WithLabelValues("store", "ok").Inc()
	AttachmentBytes.Add(float64(size))
}

// RecordAttachmentRetrieve records a lookup; result is ok, miss or error.
func RecordAttachmentRetrieve(result string) {
	AttachmentOperations.WithLabelValues("retrieve", result).Inc()
}

// RecordAttachmentEvictions adds n maintenance evictions.
func RecordAttachmentEvictions(n int) {
	if n > 0 {
		AttachmentEvictions.Add(float64(n))
	}
}
