package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func TestTraceQuery_RecordsSpan(t *testing.T) {
	exporter := installRecorder(t)

	_, end := TraceQuery(context.Background(), "ReserveStock", "UPDATE products SET stock = stock - $1")
	end(nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "db.ReserveStock" {
		t.Errorf("span name = %q", span.Name)
	}

	attrs := map[string]string{}
	for _, a := range span.Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	if attrs["db.system"] != "postgresql" {
		t.Errorf("db.system = %q", attrs["db.system"])
	}
	if attrs["db.operation"] != "ReserveStock" {
		t.Errorf("db.operation = %q", attrs["db.operation"])
	}
	if span.Status.Code != codes.Unset {
		t.Errorf("status = %v, want Unset", span.Status.Code)
	}
}

func TestTraceQuery_RecordsError(t *testing.T) {
	exporter := installRecorder(t)

	_, end := TraceQuery(context.Background(), "DeleteOrder", "DELETE FROM orders WHERE id = $1")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Error("error event not recorded")
	}
}

func TestTraceQuery_ChildOfCallerSpan(t *testing.T) {
	exporter := installRecorder(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "create-order")
	_, end := TraceQuery(ctx, "InsertOrder", "INSERT INTO orders")
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	child := spans[0]
	if child.Parent.SpanID() != parent.SpanContext().SpanID() {
		t.Error("query span is not a child of the caller span")
	}
}

func TestSlowQueryLogging(t *testing.T) {
	installRecorder(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	tests := []struct {
		name      string
		threshold time.Duration
		err       error
		wantLog   bool
	}{
		{"over threshold", time.Nanosecond, nil, true},
		{"under threshold", time.Hour, nil, false},
		{"over threshold with error", time.Nanosecond, errors.New("unique violation"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetSlowQueryLogging(tt.threshold, slog.New(slog.NewJSONHandler(&buf, nil)))

			_, end := TraceQuery(context.Background(), "ListOrders", "SELECT id FROM orders")
			end(tt.err)

			out := buf.String()
			if got := strings.Contains(out, "slow query"); got != tt.wantLog {
				t.Fatalf("slow query logged = %v, want %v: %s", got, tt.wantLog, out)
			}
			if tt.wantLog && !strings.Contains(out, "ListOrders") {
				t.Errorf("operation missing from log: %s", out)
			}
			if tt.err != nil && !strings.Contains(out, tt.err.Error()) {
				t.Errorf("error missing from log: %s", out)
			}
		})
	}
}

func TestSlowQueryLogging_DisabledWithNilLogger(t *testing.T) {
	installRecorder(t)
	SetSlowQueryLogging(time.Nanosecond, nil)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "Ping", "SELECT 1")
	end(nil)
}
