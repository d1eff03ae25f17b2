package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"

	"deliverystats/internal/config"
	"deliverystats/pkg/contracts"
)

const (
	ServiceVersion = contracts.Version
	MeterName      = "deliverystats"
)

// OTelProviders holds the OpenTelemetry providers and the Prometheus scrape
// handler backed by them.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Metrics        *Metrics
	MetricsHandler http.Handler
	logger         *slog.Logger
}

// InitializeOTel sets up metrics (always) and tracing (when enabled). Spans
// are written to stderr so they never mix with exported report data.
func InitializeOTel(cfg config.TracingConfig, logger *slog.Logger) (*OTelProviders, error) {
	return initializeOTel(cfg, logger, os.Stderr)
}

func initializeOTel(cfg config.TracingConfig, logger *slog.Logger, traceOut io.Writer) (*OTelProviders, error) {
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	)

	providers := &OTelProviders{logger: logger}

	if err := providers.initializeMetrics(res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if cfg.Enabled && cfg.Exporter != "none" {
		if err := providers.initializeTracing(res, cfg.SampleRatio, traceOut); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.Bool("tracing_enabled", providers.TracerProvider != nil))

	return providers, nil
}

func (p *OTelProviders) initializeTracing(res *resource.Resource, ratio float64, out io.Writer) error {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	p.TracerProvider = tp
	otel.SetTracerProvider(tp)
	return nil
}

// initializeMetrics wires a MeterProvider to a private Prometheus registry
func (p *OTelProviders) initializeMetrics(res *resource.Resource) error {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	metrics, err := NewMetrics(mp.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion)))
	if err != nil {
		return err
	}

	p.MeterProvider = mp
	p.Metrics = metrics
	p.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return nil
}

// Shutdown flushes and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("opentelemetry shutdown: %w", err)
	}

	p.logger.DebugContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// Metrics holds the application instruments
type Metrics struct {
	fetchRequests  metric.Int64Counter
	fetchDuration  metric.Float64Histogram
	fetchBytes     metric.Int64Counter
	reportRequests metric.Int64Counter
	reportRows     metric.Int64Counter
	httpRequests   metric.Int64Counter
	httpDuration   metric.Float64Histogram
}

// NewMetrics creates the instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.fetchRequests, err = meter.Int64Counter(
		"delivery_fetch_requests",
		metric.WithDescription("Exchange requests by exchange and outcome"),
	); err != nil {
		return nil, err
	}

	if m.fetchDuration, err = meter.Float64Histogram(
		"delivery_fetch_duration",
		metric.WithDescription("Exchange request duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.fetchBytes, err = meter.Int64Counter(
		"delivery_fetch_response_bytes",
		metric.WithDescription("Bytes received from the exchanges"),
	); err != nil {
		return nil, err
	}

	if m.reportRequests, err = meter.Int64Counter(
		"delivery_report_requests",
		metric.WithDescription("Report pipeline runs by report and outcome"),
	); err != nil {
		return nil, err
	}

	if m.reportRows, err = meter.Int64Counter(
		"delivery_report_rows",
		metric.WithDescription("Rows returned by report pipelines"),
	); err != nil {
		return nil, err
	}

	if m.httpRequests, err = meter.Int64Counter(
		"http_requests",
		metric.WithDescription("HTTP requests by route and status"),
	); err != nil {
		return nil, err
	}

	if m.httpDuration, err = meter.Float64Histogram(
		"http_request_duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// ObserveFetch records one exchange request
func (m *Metrics) ObserveFetch(exchange, outcome string, elapsed time.Duration, size int) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("exchange", exchange),
		attribute.String("outcome", outcome),
	)
	m.fetchRequests.Add(ctx, 1, attrs)
	m.fetchDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("exchange", exchange)))
	if size > 0 {
		m.fetchBytes.Add(ctx, int64(size), metric.WithAttributes(attribute.String("exchange", exchange)))
	}
}

// ObserveReport records one report pipeline run
func (m *Metrics) ObserveReport(report, outcome string, rows int) {
	ctx := context.Background()
	m.reportRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("report", report),
		attribute.String("outcome", outcome),
	))
	if rows > 0 {
		m.reportRows.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("report", report)))
	}
}

// ObserveHTTP records one served HTTP request
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	ctx := context.Background()
	m.httpRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	))
	m.httpDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}
