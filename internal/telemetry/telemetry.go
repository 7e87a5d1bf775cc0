// Package telemetry wires syscheck into OpenTelemetry. Init installs OTLP
// exporters for logs and metrics when an endpoint is configured; otherwise
// the global providers stay no-op and every Record* helper is free.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Environment variables that enable telemetry export.
const (
	// EnvMetricsURL is the OTLP/HTTP endpoint URL for metrics.
	EnvMetricsURL = "SYSCHECK_OTEL_METRICS_URL"
	// EnvLogsURL is the OTLP/HTTP endpoint URL for log events.
	EnvLogsURL = "SYSCHECK_OTEL_LOGS_URL"
)

// Enabled reports whether any telemetry endpoint is configured.
func Enabled() bool {
	return os.Getenv(EnvMetricsURL) != "" || os.Getenv(EnvLogsURL) != ""
}

// Init installs OTLP exporters for every configured endpoint and returns a
// shutdown function that flushes them. With no endpoint configured it does
// nothing and the returned shutdown is a no-op.
func Init(ctx context.Context, version string) (func(context.Context) error, error) {
	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}

	res := resource.NewSchemaless(resourceAttrs(version)...)

	if url := os.Getenv(EnvMetricsURL); url != "" {
		exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(url))
		if err != nil {
			return shutdown, fmt.Errorf("creating metric exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	if url := os.Getenv(EnvLogsURL); url != "" {
		exp, err := otlploghttp.New(ctx, otlploghttp.WithEndpointURL(url))
		if err != nil {
			return shutdown, fmt.Errorf("creating log exporter: %w", err)
		}
		lp := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
			sdklog.WithResource(res),
		)
		global.SetLoggerProvider(lp)
		shutdowns = append(shutdowns, lp.Shutdown)
	}

	// Re-bind instruments against the real provider.
	resetInstruments()
	return shutdown, nil
}

// resourceAttrs labels every exported record with the service identity and
// the host it ran on.
func resourceAttrs(version string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", "syscheck"),
		attribute.String("service.version", version),
	}
	if host, err := os.Hostname(); err == nil {
		attrs = append(attrs, attribute.String("host.name", host))
	}
	return attrs
}
