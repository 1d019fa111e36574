package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/logger"
)

type Config struct {
	Enabled     bool
	ServiceName string            // e.g., "requirements-collector"
	Version     string            // reported by the otelzap bridge
	Exporter    string            // "stdout", "otlp" or "none"
	Endpoint    string            // OTLP endpoint, e.g., "localhost:4317" (required for "otlp")
	Protocol    string            // "grpc" or "http" (default "grpc" for "otlp")
	Insecure    bool              // Disable TLS for OTLP (development only)
	Headers     map[string]string // Custom headers for OTLP, e.g., for auth
	LogFile     string            // Path for JSON logs
	LogLevel    string            // "debug", "info", "warn", "error" (default "info")
}

// Shutdown flushes and stops every provider created by InitOTEL.
type Shutdown func(context.Context) error

// InitOTEL sets up providers, tracer and meter, and returns them with a logger
// bridged into OpenTelemetry logs. With telemetry disabled or exporter "none"
// it returns no-op providers and a plain file logger.
func InitOTEL(cfg Config) (trace.Tracer, metric.Meter, *zap.SugaredLogger, Shutdown, error) {
	if !cfg.Enabled || cfg.Exporter == "none" || cfg.Exporter == "" {
		tracer, meter, sugar, shutdown := Noop(logger.NewLogger(cfg.LogFile, cfg.LogLevel))
		return tracer, meter, sugar, shutdown, nil
	}
	if cfg.Exporter == "otlp" {
		if cfg.Endpoint == "" {
			return nil, nil, nil, nil, fmt.Errorf("OTLP endpoint required")
		}
		if cfg.Protocol == "" {
			cfg.Protocol = "grpc"
		}
		if cfg.Protocol != "grpc" && cfg.Protocol != "http" {
			return nil, nil, nil, nil, fmt.Errorf("invalid protocol: %s", cfg.Protocol)
		}
	}

	ctx := context.Background()
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName)),
	)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	traceExp, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("trace exporter: %w", err)
	}
	metricExp, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("metric exporter: %w", err)
	}
	logExp, err := newLogExporter(ctx, cfg)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("log exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
	)
	otel.SetMeterProvider(mp)

	lp := log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(logExp)),
		log.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	zapLogger := zap.New(zapcore.NewTee(logCores(cfg)...))

	shutdown := func(ctx context.Context) error {
		err := errors.Join(tp.Shutdown(ctx), lp.Shutdown(ctx), mp.Shutdown(ctx))
		_ = zapLogger.Sync()
		return err
	}
	return otel.Tracer(cfg.ServiceName), otel.Meter(cfg.ServiceName), zapLogger.Sugar(), shutdown, nil
}

// Noop wires no-op tracer and meter around the given logger. Used when export
// is off and by tests.
func Noop(l *zap.SugaredLogger) (trace.Tracer, metric.Meter, *zap.SugaredLogger, Shutdown) {
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	shutdown := func(context.Context) error {
		_ = l.Sync()
		return nil
	}
	return tracenoop.NewTracerProvider().Tracer(""), metricnoop.NewMeterProvider().Meter(""), l, shutdown
}

func logCores(cfg Config) []zapcore.Core {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.LogLevel))); err != nil {
			level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
	}
	var cores []zapcore.Core
	if cfg.LogFile != "" {
		jsonConfig := zap.NewProductionEncoderConfig()
		jsonConfig.TimeKey = "timestamp"
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 5,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), writer, level))
	}
	cores = append(cores, otelzap.NewCore(
		cfg.ServiceName,
		otelzap.WithLoggerProvider(global.GetLoggerProvider()),
		otelzap.WithVersion(cfg.Version),
	))
	return cores
}

// otlpOptions builds the option list shared by every OTLP exporter package.
func otlpOptions[O any](
	cfg Config,
	endpoint func(string) O,
	insecure func() O,
	headers func(map[string]string) O,
) []O {
	opts := []O{endpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, insecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, headers(cfg.Headers))
	}
	return opts
}

func newTraceExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		if cfg.Protocol == "http" {
			return otlptrace.New(ctx, otlptracehttp.NewClient(otlpOptions(cfg,
				otlptracehttp.WithEndpoint, otlptracehttp.WithInsecure, otlptracehttp.WithHeaders)...))
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(otlpOptions(cfg,
			otlptracegrpc.WithEndpoint, otlptracegrpc.WithInsecure, otlptracegrpc.WithHeaders)...))
	}
	return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
}

func newMetricExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	switch cfg.Exporter {
	case "stdout":
		return stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	case "otlp":
		if cfg.Protocol == "http" {
			return otlpmetrichttp.New(ctx, otlpOptions(cfg,
				otlpmetrichttp.WithEndpoint, otlpmetrichttp.WithInsecure, otlpmetrichttp.WithHeaders)...)
		}
		return otlpmetricgrpc.New(ctx, otlpOptions(cfg,
			otlpmetricgrpc.WithEndpoint, otlpmetricgrpc.WithInsecure, otlpmetricgrpc.WithHeaders)...)
	}
	return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
}

func newLogExporter(ctx context.Context, cfg Config) (log.Exporter, error) {
	switch cfg.Exporter {
	case "stdout":
		return stdoutlog.New()
	case "otlp":
		if cfg.Protocol == "http" {
			return otlploghttp.New(ctx, otlpOptions(cfg,
				otlploghttp.WithEndpoint, otlploghttp.WithInsecure, otlploghttp.WithHeaders)...)
		}
		return otlploggrpc.New(ctx, otlpOptions(cfg,
			otlploggrpc.WithEndpoint, otlploggrpc.WithInsecure, otlploggrpc.WithHeaders)...)
	}
	return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
}
