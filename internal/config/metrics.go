package config

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	loadCounterOnce sync.Once
	loadCounter     metric.Int64Counter
)

// recordLoadOutcome counts Load results on the global meter. It is a no-op
// until a meter provider is installed.
func recordLoadOutcome(ctx context.Context, env string, err error) {
	loadCounterOnce.Do(func() {
		c, cerr := otel.Meter("pmstore-api/config").Int64Counter(
			"config.load.events",
			metric.WithDescription("Configuration load attempts by outcome"),
		)
		if cerr == nil {
			loadCounter = c
		}
	})
	if loadCounter == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	loadCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("env", envLabel(env)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", loadErrorClass(err)),
	))
}

func envLabel(env string) string {
	switch v := strings.ToLower(strings.TrimSpace(env)); v {
	case EnvDevelopment, EnvProduction, EnvTest:
		return v
	case "":
		return "unset"
	default:
		return "other"
	}
}

// loadErrorClass prefers parse over validation since Validate never runs
// on a config that failed to parse.
func loadErrorClass(err error) string {
	var parseErr *ParseError
	var validationErr *ValidationError
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &validationErr):
		return "validation"
	default:
		return "load"
	}
}
