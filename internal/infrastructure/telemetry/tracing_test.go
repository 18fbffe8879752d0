package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/miescuela/backend/internal/infrastructure/telemetry"
)

// setupTestTracer installs a TracerProvider that records spans in memory
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(originalProvider)
		_ = tp.Shutdown(context.Background())
	})

	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "report_export", "export_entries",
		telemetry.WithAttribute(telemetry.SpanAttrEntries, 3),
		telemetry.WithSpanKind(trace.SpanKindInternal),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "report_export.export_entries", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Equal(t, int64(3), attrMap(spans[0].Attributes())[telemetry.SpanAttrEntries].AsInt64())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	exportID := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "report.layout")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrExportID, exportID,
		telemetry.SpanAttrPages, 4,
		telemetry.SpanAttrHeaderImage, true,
		"dangling",
	)
	telemetry.SetAttribute(span, telemetry.SpanAttrFilename, "Informe.pdf")
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, exportID.String(), attrs[telemetry.SpanAttrExportID].AsString())
	assert.Equal(t, int64(4), attrs[telemetry.SpanAttrPages].AsInt64())
	assert.True(t, attrs[telemetry.SpanAttrHeaderImage].AsBool())
	assert.Equal(t, "Informe.pdf", attrs[telemetry.SpanAttrFilename].AsString())
	assert.NotContains(t, attrs, "dangling")
}

func TestRecordErrorAndSetOK(t *testing.T) {
	sr := setupTestTracer(t)

	_, failed := telemetry.StartSpan(context.Background(), "report.store")
	telemetry.RecordError(failed, errors.New("disk full"))
	failed.End()

	_, ok := telemetry.StartSpan(context.Background(), "report.render")
	telemetry.RecordError(ok, nil)
	telemetry.SetOK(ok)
	ok.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "disk full", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, codes.Ok, spans[1].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "report.layout")
	telemetry.AddEvent(span, "header_image_unavailable", "error.code", "ASSET_LOAD_FAILED")
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "header_image_unavailable", events[0].Name)
	assert.Equal(t, "ASSET_LOAD_FAILED", attrMap(events[0].Attributes)["error.code"].AsString())
}

func TestSpanFromContext(t *testing.T) {
	setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "report.export")
	defer span.End()

	assert.Equal(t, span.SpanContext().SpanID(), telemetry.SpanFromContext(ctx).SpanContext().SpanID())
	assert.False(t, telemetry.SpanFromContext(context.Background()).SpanContext().IsValid())
}

func TestNestedSpans(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartSpan(context.Background(), "report_export.export_narrative")
	_, child := telemetry.StartSpan(ctx, "report.layout")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "report.layout", spans[0].Name())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestNilSpanHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetOK(nil)
		telemetry.AddEvent(nil, "e")
	})
}
