package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pmstore/pmstore-api/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "pmstore-api"

type AppMetrics struct {
	authCounter       metric.Int64Counter
	sessionCounter    metric.Int64Counter
	csrfCounter       metric.Int64Counter
	repositoryCounter metric.Int64Counter
	rateLimitCounter  metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	setAppMetrics(m)

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	authCounter, err := meter.Int64Counter("auth.flow.events")
	if err != nil {
		return nil, err
	}
	sessionCounter, err := meter.Int64Counter("session.store.operations")
	if err != nil {
		return nil, err
	}
	csrfCounter, err := meter.Int64Counter("csrf.decisions")
	if err != nil {
		return nil, err
	}
	repositoryCounter, err := meter.Int64Counter("repository.operations")
	if err != nil {
		return nil, err
	}
	rateLimitCounter, err := meter.Int64Counter("http.rate_limit.decisions")
	if err != nil {
		return nil, err
	}
	return &AppMetrics{
		authCounter:       authCounter,
		sessionCounter:    sessionCounter,
		csrfCounter:       csrfCounter,
		repositoryCounter: repositoryCounter,
		rateLimitCounter:  rateLimitCounter,
	}, nil
}

func setAppMetrics(m *AppMetrics) {
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
}

func currentMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

// RecordAuthEvent counts register/login/logout outcomes.
func RecordAuthEvent(ctx context.Context, flow, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.authCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("outcome", outcome),
	))
}

func RecordSessionOperation(ctx context.Context, store, op, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.sessionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("store", store),
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func RecordCSRFDecision(ctx context.Context, outcome, pathGroup string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.csrfCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("path_group", pathGroup),
	))
}

func RecordRepositoryOperation(ctx context.Context, repo, op, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.repositoryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("repository", repo),
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, decision string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.rateLimitCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("decision", decision),
	))
}
