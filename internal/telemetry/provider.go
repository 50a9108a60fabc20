// Package telemetry wires OpenTelemetry tracing for the CLI commands.
package telemetry

import (
	"context"

	"github.com/caarlos0/env/v11"
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"golang.org/x/xerrors"
)

var log = logging.Logger("telemetry")

// ServiceName identifies this tool in exported traces.
const ServiceName = "next-drupal-interface-i18n"

// Settings are read from DRUPAL_I18N_OTEL_* variables.
type Settings struct {
	Endpoint string `env:"ENDPOINT"`
	Enabled  bool   `env:"ENABLED" envDefault:"true"`
}

// LoadSettings reads the tracing settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Prefix: "DRUPAL_I18N_OTEL_"}); err != nil {
		return Settings{}, xerrors.Errorf("parse otel env: %w", err)
	}
	return s, nil
}

// Setup initialises tracing for the given service.
//
// Tracing is opt-in: with no endpoint, or with DRUPAL_I18N_OTEL_ENABLED=false,
// Setup returns a no-op shutdown and leaves the global provider alone.
// The returned shutdown flushes pending spans and should be deferred.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	settings, err := LoadSettings()
	if err != nil {
		return noop, err
	}
	if !settings.Enabled || settings.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(settings.Endpoint))
	if err != nil {
		return noop, xerrors.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return noop, xerrors.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	log.Debugf("exporting traces to %s", settings.Endpoint)
	return tp.Shutdown, nil
}

// Run executes fn inside a root span named after the command, with tracing
// set up around it. Shutdown errors are appended to fn's error.
func Run(ctx context.Context, command string, fn func(context.Context) error) (err error) {
	shutdown, err := Setup(ctx, ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, shutdown(context.WithoutCancel(ctx)))
	}()

	ctx, span := otel.Tracer(ServiceName).Start(ctx, command, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
