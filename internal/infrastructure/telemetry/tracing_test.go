package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/clinic-ledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs a recording provider as the global one for the test
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "ledger", "approve_entry",
		telemetry.WithAttribute(telemetry.SpanAttrEntryKind, "expense"),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.approve_entry", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, "expense", attrMap(spans[0])[telemetry.SpanAttrEntryKind].AsString())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	entryID := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "attrs")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, entryID,
		telemetry.SpanAttrInstallmentCount, 3,
		42, "skipped non-string key",
		telemetry.SpanAttrAmount, 1000.5,
		"dangling",
	)
	telemetry.SetAttribute(span, telemetry.SpanAttrSplitCount, int64(2))
	span.End()

	attrs := attrMap(sr.Ended()[0])
	assert.Equal(t, entryID.String(), attrs[telemetry.SpanAttrEntryID].AsString())
	assert.Equal(t, int64(3), attrs[telemetry.SpanAttrInstallmentCount].AsInt64())
	assert.Equal(t, 1000.5, attrs[telemetry.SpanAttrAmount].AsFloat64())
	assert.Equal(t, int64(2), attrs[telemetry.SpanAttrSplitCount].AsInt64())
	assert.NotContains(t, attrs, attribute.Key("dangling"))
	assert.Len(t, attrs, 4)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "fails")
	telemetry.RecordError(span, errors.New("repository unavailable"))
	span.End()

	_, ok := telemetry.StartSpan(context.Background(), "nil error")
	telemetry.RecordError(ok, nil)
	ok.End()

	ended := sr.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "repository unavailable", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, codes.Unset, ended[1].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "tick")
	telemetry.AddEvent(span, "occurrence_materialized",
		telemetry.SpanAttrDefinitionID, "def-1",
		"occurrence", "2024-03-05",
	)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "occurrence_materialized", events[0].Name)
	assert.Len(t, events[0].Attributes, 2)
}

func TestHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.AddEvent(nil, "e")
	})
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}

func TestNestedServiceSpans(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "ledger", "recurrence_tick")
	_, child := telemetry.StartServiceSpan(ctx, "ledger", "materialize_definition")
	child.End()
	parent.End()

	ended := sr.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
	assert.Equal(t, ended[1].SpanContext().TraceID(), ended[0].SpanContext().TraceID())
}
