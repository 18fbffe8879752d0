package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Providers bundles the tracer and meter providers of one process
type Providers struct {
	Tracer *TracerProvider
	Meter  *MeterProvider
}

// Setup creates both providers from cfg. With cfg.Enabled false nothing is
// exported and no collector connection is attempted.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (*Providers, error) {
	tp, err := NewTracerProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	mp, err := NewMeterProvider(ctx, cfg, logger)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	return &Providers{Tracer: tp, Meter: mp}, nil
}

// ReportMeter returns the meter report metrics are recorded with
func (p *Providers) ReportMeter() metric.Meter {
	name := p.Meter.GetConfig().ServiceName
	if name == "" {
		name = TracerName
	}
	return p.Meter.Meter(name)
}

// Enabled reports whether either provider exports to a collector
func (p *Providers) Enabled() bool {
	return p.Tracer.IsEnabled() || p.Meter.IsEnabled()
}

// Flush exports buffered spans and the current metric readings
func (p *Providers) Flush(ctx context.Context) error {
	return errors.Join(p.Tracer.ForceFlush(ctx), p.Meter.ForceFlush(ctx))
}

// Shutdown flushes and stops both providers, metrics first
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(p.Meter.Shutdown(ctx), p.Tracer.Shutdown(ctx))
}
