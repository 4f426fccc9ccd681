package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckoutSessionsTotal counts checkout session requests by outcome.
	CheckoutSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lighthouse",
		Subsystem: "checkout",
		Name:      "sessions_total",
		Help:      "Checkout session requests by outcome.",
	}, []string{"outcome"})

	// WebhookRequestsTotal counts Stripe webhook requests by event type and status.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lighthouse",
		Subsystem: "checkout",
		Name:      "webhook_requests_total",
		Help:      "Stripe webhook requests by event type and HTTP status.",
	}, []string{"event_type", "status"})

	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lighthouse",
		Subsystem: "checkout",
		Name:      "webhook_duration_seconds",
		Help:      "Stripe webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// LicenseDispatchesTotal counts license workflow dispatch attempts.
	LicenseDispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lighthouse",
		Subsystem: "checkout",
		Name:      "license_dispatches_total",
		Help:      "License workflow dispatch attempts by outcome.",
	}, []string{"outcome"})

	NotificationEmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lighthouse",
		Subsystem: "notifier",
		Name:      "emails_total",
		Help:      "Sales notification emails by outcome.",
	}, []string{"outcome"})
)

// Outcome labels shared by the counters above.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)
