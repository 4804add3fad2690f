// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Total number of cart mutations by operation",
	}, []string{"operation"})

	CartClearFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_cart_clear_failures_total",
		Help: "Carts that could not be emptied after an order was placed",
	})

	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Total number of orders placed by payment mode",
	}, []string{"payment_mode"})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_failed_total",
		Help: "Order placements that failed, by error code",
	}, []string{"code"})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_transitions_total",
		Help: "Order status transitions",
	}, []string{"from", "to"})

	ItemReturnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_item_returns_total",
		Help: "Individual order items returned",
	})

	PaymentVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payment_verifications_total",
		Help: "Payment verifications by gateway and result",
	}, []string{"gateway", "result"})

	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_payment_gateway_latency_seconds",
		Help:    "Latency of calls to the payment gateway",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway", "operation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
