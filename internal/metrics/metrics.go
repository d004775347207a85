// Package metrics exposes Prometheus collectors for registrations, payments and webhook delivery.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stride",
		Name:      "registrations_created_total",
		Help:      "Course and event registrations created.",
	}, []string{"kind", "plan", "payment_method"})

	RegistrationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stride",
		Name:      "registrations_rejected_total",
		Help:      "Registration submissions rejected before persistence.",
	}, []string{"reason"})

	PaymentNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stride",
		Name:      "payment_notifications_total",
		Help:      "Gateway payment notifications by resulting status.",
	}, []string{"status"})

	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stride",
		Name:      "webhook_deliveries_total",
		Help:      "Outbound webhook delivery attempts by result.",
	}, []string{"event_type", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stride",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
