package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// ProducerMetrics are the collectors updated by Producer.
type ProducerMetrics struct {
	published    *prometheus.CounterVec
	errors       *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	breakerState prometheus.Gauge
}

// NewProducerMetrics registers producer collectors on reg.
func NewProducerMetrics(reg prometheus.Registerer) *ProducerMetrics {
	f := promauto.With(reg)
	return &ProducerMetrics{
		published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_producer_messages_published_total",
			Help: "Events written to Kafka.",
		}, []string{"topic"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_producer_publish_errors_total",
			Help: "Failed or rejected publishes, by reason.",
		}, []string{"topic", "reason"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kafka_producer_publish_duration_seconds",
			Help:    "Time spent writing one event.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		breakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "kafka_producer_breaker_state",
			Help: "Publish circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}
