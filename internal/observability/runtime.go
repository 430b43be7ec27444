package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/pmstore/pmstore-api/internal/config"
)

// Runtime owns the OpenTelemetry providers installed for the process.
type Runtime struct {
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
	LoggerProvider *sdklog.LoggerProvider
}

// InitRuntime installs the global meter and tracer providers. lp is the
// logger provider returned by NewLogger and may be nil.
func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*Runtime, error) {
	rt := &Runtime{LoggerProvider: lp}
	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.MeterProvider = mp

	tp, err := InitTracing(ctx, cfg, logger)
	if err != nil {
		_ = rt.Shutdown(ctx)
		return nil, err
	}
	rt.TracerProvider = tp
	return rt, nil
}

// Shutdown flushes traces first, then metrics, and logs last so that
// failures of the other two can still be exported.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	type flusher struct {
		name string
		fn   func(context.Context) error
	}
	var steps []flusher
	if r.TracerProvider != nil {
		steps = append(steps, flusher{"tracer", r.TracerProvider.Shutdown})
	}
	if r.MeterProvider != nil {
		steps = append(steps, flusher{"meter", r.MeterProvider.Shutdown})
	}
	if r.LoggerProvider != nil {
		steps = append(steps, flusher{"logger", r.LoggerProvider.Shutdown})
	}

	var errs []error
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s provider: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
