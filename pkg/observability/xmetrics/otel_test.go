package xmetrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestObserver(t *testing.T) (Observer, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	obs, err := NewOTelObserver(
		WithInstrumentationName("xmetrics-test"),
		WithTracerProvider(tp),
		WithMeterProvider(mp),
	)
	require.NoError(t, err)
	return obs, exporter, reader
}

func collectCounter(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	got := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != MetricOperationTotal {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value(attribute.Key("operation"))
				st, _ := dp.Attributes.Value(attribute.Key("status"))
				got[op.AsString()+"/"+st.AsString()] += dp.Value
			}
		}
	}
	return got
}

func TestOTelObserver_RecordsSpanAndMetrics(t *testing.T) {
	obs, exporter, reader := newTestObserver(t)

	ctx, span := obs.Start(context.Background(), SpanOptions{
		Component: "xlock",
		Operation: "acquire",
		Kind:      KindClient,
		Attrs:     []Attr{String(AttrKey, "orders:1"), TTL(30 * time.Second)},
	})
	assert.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
	span.End(Result{Attrs: []Attr{Bool(AttrTwoStep, false)}})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "xlock.acquire", spans[0].Name)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.Int64(AttrTTLMillis, 30000))
	assert.Contains(t, spans[0].Attributes, attribute.String(AttrKey, "orders:1"))

	assert.Equal(t, map[string]int64{"acquire/ok": 1}, collectCounter(t, reader))
}

func TestOTelObserver_ErrorAndContended(t *testing.T) {
	obs, exporter, reader := newTestObserver(t)
	ctx := context.Background()

	_, span := obs.Start(ctx, SpanOptions{Component: "xkv", Operation: "set_if_absent"})
	span.End(Result{Err: errors.New("connection refused")})

	_, span = obs.Start(ctx, SpanOptions{Component: "xlock", Operation: "acquire"})
	span.End(Result{Status: StatusContended})

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "connection refused", spans[0].Status.Description)
	assert.Equal(t, codes.Ok, spans[1].Status.Code, "竞争不是错误")

	assert.Equal(t, map[string]int64{
		"set_if_absent/error": 1,
		"acquire/contended":   1,
	}, collectCounter(t, reader))
}

func TestOTelSpan_EndIdempotent(t *testing.T) {
	obs, _, reader := newTestObserver(t)

	_, span := obs.Start(context.Background(), SpanOptions{})
	span.End(Result{})
	span.End(Result{Err: errors.New("ignored")})

	assert.Equal(t, map[string]int64{"unknown/ok": 1}, collectCounter(t, reader))
}

func TestOTelSpan_CanceledContextStillRecords(t *testing.T) {
	obs, _, reader := newTestObserver(t)

	ctx, cancel := context.WithCancel(context.Background())
	_, span := obs.Start(ctx, SpanOptions{Operation: "release"})
	cancel()
	span.End(Result{})

	assert.Equal(t, map[string]int64{"release/ok": 1}, collectCounter(t, reader))
}

func TestNewOTelObserver_GlobalProviders(t *testing.T) {
	obs, err := NewOTelObserver(nil, WithTracerProvider(nil), WithMeterProvider(nil), WithInstrumentationName(""))
	require.NoError(t, err)

	_, span := obs.Start(nil, SpanOptions{}) //nolint:staticcheck // nil ctx 兜底
	span.End(Result{})
}

func TestToKeyValue(t *testing.T) {
	tests := []struct {
		attr Attr
		want attribute.KeyValue
	}{
		{String("s", "v"), attribute.String("s", "v")},
		{Bool("b", true), attribute.Bool("b", true)},
		{Attr{Key: "i", Value: 7}, attribute.Int("i", 7)},
		{Int64("i64", 8), attribute.Int64("i64", 8)},
		{Attr{Key: "f", Value: 1.5}, attribute.Float64("f", 1.5)},
		{Duration("d", time.Millisecond), attribute.Int64("d", int64(time.Millisecond))},
		{Attr{Key: "x", Value: []int{1}}, attribute.String("x", "[1]")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toKeyValue(tt.attr))
	}

	assert.Nil(t, attrsToOTel(nil))
	assert.Empty(t, attrsToOTel([]Attr{{Key: ""}, {Key: "nil"}}))
}
