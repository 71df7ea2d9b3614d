package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OrderMetrics counts order outcomes.
type OrderMetrics struct {
	created       prometheus.Counter
	cancelled     prometheus.Counter
	statusChanges *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	orderValue    prometheus.Histogram
	eventFailures *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics with reg.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	f := promauto.With(reg)
	return &OrderMetrics{
		created: f.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders committed.",
		}),
		cancelled: f.NewCounter(prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "Pending orders cancelled with their stock released.",
		}),
		statusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_changes_total",
			Help: "Status updates by target status.",
		}, []string{"status"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "order_rejections_total",
			Help: "Order attempts rejected, by error code.",
		}, []string{"code"}),
		orderValue: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "order_total_amount",
			Help:    "Order totals in the store currency.",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		eventFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "order_event_publish_failures_total",
			Help: "Order events that could not be published.",
		}, []string{"topic"}),
	}
}
