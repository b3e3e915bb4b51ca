package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Total number of persistent cart mutations",
	}, []string{"op", "result"})

	CartMergeItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_merge_items_total",
		Help: "Guest cart items merged into persistent carts",
	}, []string{"result"})

	CartCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_cache_lookups_total",
		Help: "Cart cache lookups by outcome",
	}, []string{"outcome"})

	CheckoutSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Checkout session initiations by result",
	}, []string{"result"})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of pending orders created",
	})

	OrdersPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_paid_total",
		Help: "Total number of orders transitioned to paid",
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment provider notifications by type and result",
	}, []string{"type", "result"})

	BestEffortFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "best_effort_failures_total",
		Help: "Failures of best-effort side effects that were logged and swallowed",
	}, []string{"step"})

	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_request_latency_seconds",
		Help:    "Latency of calls to external providers",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "op"})

	PendingOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pending_orders",
		Help: "Orders created by checkout and not yet paid, as seen by the notification worker",
	})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Order confirmation notifications by result",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
