package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestProducer(w MessageWriter, maxFailures uint32) *Producer {
	return NewProducerWithWriter(w, []string{"localhost:9092"},
		BreakerConfig{MaxFailures: maxFailures, OpenTimeout: time.Minute},
		NewProducerMetrics(prometheus.NewRegistry()), quietLogger)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "ecommerce.order.created", Topic("order", "created"))
	assert.Equal(t, "ecommerce.order.status_changed", Topic("order", "status_changed"))
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("order.created", "o-1", "order", "order-service", map[string]string{"order_number": "ORD-1"})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, 1, ev.Version)
	assert.WithinDuration(t, time.Now().UTC(), ev.Timestamp, 2*time.Second)

	var payload map[string]string
	require.NoError(t, ev.UnmarshalData(&payload))
	assert.Equal(t, "ORD-1", payload["order_number"])

	_, err = NewEvent("bad", "x", "order", "svc", make(chan int))
	assert.Error(t, err)
}

func TestProducer_PublishWritesEnvelope(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w, 3)

	ev, err := NewEvent("order.cancelled", "o-9", "order", "order-service", map[string]int{"items": 2})
	require.NoError(t, err)
	ev.WithCorrelationID("corr-1")

	require.NoError(t, p.Publish(context.Background(), Topic("order", "cancelled"), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ecommerce.order.cancelled", msg.Topic)
	assert.Equal(t, []byte("o-9"), msg.Key)

	carrier := NewHeaderCarrier(&msg.Headers)
	assert.Equal(t, "order.cancelled", carrier.Get("event_type"))
	assert.Equal(t, "corr-1", carrier.Get("correlation_id"))

	decoded, err := UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID, decoded.EventID)
	assert.JSONEq(t, `{"items":2}`, string(decoded.Data))
}

func TestProducer_InjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &fakeWriter{}
	ev, _ := NewEvent("order.created", "o-1", "order", "svc", struct{}{})
	require.NoError(t, newTestProducer(w, 3).Publish(ctx, "t", ev))

	tp := NewHeaderCarrier(&w.msgs[0].Headers).Get("traceparent")
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", tp)
}

func TestProducer_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newTestProducer(w, 2)
	ev, _ := NewEvent("order.created", "o-1", "order", "svc", struct{}{})

	for i := 0; i < 2; i++ {
		err := p.Publish(context.Background(), "t", ev)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrBreakerOpen)
	}
	assert.Equal(t, gobreaker.StateOpen, p.BreakerState())

	w.err = nil
	err := p.Publish(context.Background(), "t", ev)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Empty(t, w.msgs, "open breaker must not reach the writer")
}

func TestProducer_CanceledContextDoesNotTrip(t *testing.T) {
	w := &fakeWriter{err: context.Canceled}
	p := newTestProducer(w, 1)
	ev, _ := NewEvent("order.created", "o-1", "order", "svc", struct{}{})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, p.Publish(context.Background(), "t", ev), context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, p.BreakerState())
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := NewHeaderCarrier(&headers)

	c.Set("a", "2")
	c.Set("b", "3")
	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
	assert.Len(t, headers, 2)
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}

func TestEventJSONShape(t *testing.T) {
	ev, _ := NewEvent("order.status_changed", "o-1", "order", "order-service", map[string]string{"to": "paid"})
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	for _, key := range []string{"event_id", "event_type", "aggregate_id", "timestamp", "data"} {
		assert.Contains(t, generic, key)
	}
	assert.NotContains(t, generic, "correlation_id")
}
