package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the counters tracked by the API.
type Metrics struct {
	registry *prometheus.Registry

	CheckoutSessions *prometheus.CounterVec
	WebhookEvents    *prometheus.CounterVec
	OrdersCreated    prometheus.Counter
	StockMismatches  prometheus.Counter
	EmailsSent       *prometheus.CounterVec
}

// New registers the API counters on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		CheckoutSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urbantuxedo",
			Subsystem: "checkout",
			Name:      "sessions_total",
			Help:      "Checkout sessions attempted, by outcome.",
		}, []string{"status"}),
		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urbantuxedo",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Payment webhook events received, by type and outcome.",
		}, []string{"type", "outcome"}),
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "urbantuxedo",
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders materialised from completed payments.",
		}),
		StockMismatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "urbantuxedo",
			Subsystem: "inventory",
			Name:      "stock_mismatches_total",
			Help:      "Inventory adjustments that did not match a stock record.",
		}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "urbantuxedo",
			Subsystem: "notifications",
			Name:      "emails_total",
			Help:      "Notification emails attempted, by kind and status.",
		}, []string{"kind", "status"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
