package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
)

// ErrBreakerOpen is returned while the publish breaker rejects writes.
var ErrBreakerOpen = errors.New("kafka: publish circuit open")

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BreakerConfig tunes the publish circuit breaker.
type BreakerConfig struct {
	// Consecutive failures that open the breaker.
	MaxFailures uint32
	// How long the breaker stays open before a probe is let through.
	OpenTimeout time.Duration
}

// ProducerConfig configures the underlying kafka-go writer.
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	Breaker      BreakerConfig
}

func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		Breaker:      BreakerConfig{MaxFailures: 5, OpenTimeout: 30 * time.Second},
	}
}

// Producer publishes events synchronously. A circuit breaker stops hammering
// an unavailable cluster; while open, Publish fails fast with ErrBreakerOpen.
type Producer struct {
	writer  MessageWriter
	brokers []string
	breaker *gobreaker.CircuitBreaker[struct{}]
	metrics *ProducerMetrics
	logger  *slog.Logger
}

// NewProducer builds a producer backed by a kafka-go writer.
func NewProducer(cfg ProducerConfig, metrics *ProducerMetrics, logger *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return NewProducerWithWriter(w, cfg.Brokers, cfg.Breaker, metrics, logger)
}

// NewProducerWithWriter builds a producer on an existing writer.
func NewProducerWithWriter(w MessageWriter, brokers []string, bc BreakerConfig, metrics *ProducerMetrics, logger *slog.Logger) *Producer {
	if bc.MaxFailures == 0 {
		bc.MaxFailures = 5
	}
	p := &Producer{writer: w, brokers: brokers, metrics: metrics, logger: logger}

	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-producer",
		MaxRequests: 1,
		Timeout:     bc.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= bc.MaxFailures
		},
		// A canceled caller says nothing about broker health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if metrics != nil {
				metrics.breakerState.Set(breakerStateValue(to))
			}
		},
	})
	return p
}

// Publish writes event to topic keyed by its aggregate id, so all events of
// one order land on the same partition in order.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.AggregateID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}
	if event.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "correlation_id", Value: []byte(event.CorrelationID)})
	}
	otel.GetTextMapPropagator().Inject(ctx, NewHeaderCarrier(&msg.Headers))

	start := time.Now()
	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	})
	if p.metrics != nil {
		p.metrics.duration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		reason := "write"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			reason = "breaker_open"
			err = ErrBreakerOpen
		}
		if p.metrics != nil {
			p.metrics.errors.WithLabelValues(topic, reason).Inc()
		}
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish %s to %s: %w", event.EventType, topic, err)
	}

	if p.metrics != nil {
		p.metrics.published.WithLabelValues(topic).Inc()
	}
	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}

// BreakerState reports the publish breaker state.
func (p *Producer) BreakerState() gobreaker.State {
	return p.breaker.State()
}

// Ping checks that at least one broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	return PingBrokers(ctx, p.brokers)
}

// PingBrokers dials each broker in turn and asks for the broker list.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}

	var lastErr error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("kafka ping: all brokers unreachable: %w", lastErr)
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
