package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ReportMetrics records report export activity.
type ReportMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	exportsTotal       *Counter
	headerFailures     *Counter
	generationDuration *Histogram
	pagesPerDocument   *Histogram
	documentBytes      *Histogram
}

// ReportMetricsConfig holds configuration for report metrics.
type ReportMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// Export outcomes used as the result attribute
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// NewReportMetrics creates a new ReportMetrics instance.
func NewReportMetrics(cfg ReportMetricsConfig) (*ReportMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rm := &ReportMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error
	rm.exportsTotal, err = NewCounter(
		cfg.Meter,
		"miescuela_report_exports_total",
		"Total number of report exports by kind and result",
		"{exports}",
	)
	if err != nil {
		return nil, err
	}

	rm.headerFailures, err = NewCounter(
		cfg.Meter,
		"miescuela_report_header_image_failures_total",
		"Exports that continued without the header image",
		"{exports}",
	)
	if err != nil {
		return nil, err
	}

	rm.generationDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "miescuela_report_generation_duration_seconds",
		Description: "Time to lay out, render and store a report",
		Unit:        "s",
		Boundaries:  GenerationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	rm.pagesPerDocument, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "miescuela_report_pages",
		Description: "Pages per generated report",
		Unit:        "{pages}",
		Boundaries:  PageCountBuckets,
	})
	if err != nil {
		return nil, err
	}

	rm.documentBytes, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "miescuela_report_size_bytes",
		Description: "Size of generated reports",
		Unit:        "By",
	})
	if err != nil {
		return nil, err
	}

	return rm, nil
}

// RecordExport records one finished export attempt. Extra attributes, such
// as AttrErrorCode, are added to both the counter and the histogram.
func (rm *ReportMetrics) RecordExport(ctx context.Context, kind string, d time.Duration, err error, extra ...attribute.KeyValue) {
	if rm == nil {
		return
	}
	attrs := append([]attribute.KeyValue{AttrReportKind.String(kind)}, extra...)
	if err != nil {
		attrs = append(attrs, AttrResult.String(ResultFailure))
	} else {
		attrs = append(attrs, AttrResult.String(ResultSuccess))
	}
	rm.exportsTotal.Inc(ctx, attrs...)
	rm.generationDuration.RecordDuration(ctx, d, attrs...)
}

// RecordDocument records the shape of a generated document
func (rm *ReportMetrics) RecordDocument(ctx context.Context, kind string, pages int, size int64) {
	if rm == nil {
		return
	}
	attr := AttrReportKind.String(kind)
	rm.pagesPerDocument.Record(ctx, float64(pages), attr)
	rm.documentBytes.Record(ctx, float64(size), attr)
}

// RecordHeaderFailure records an export that continued without its header image
func (rm *ReportMetrics) RecordHeaderFailure(ctx context.Context, kind string) {
	if rm == nil {
		return
	}
	rm.headerFailures.Inc(ctx, AttrReportKind.String(kind))
	rm.logger.Debug("header image failure recorded", zap.String("kind", kind))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewReportMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
