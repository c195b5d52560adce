package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/patientcare/backend"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount      metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	CacheHitCount     metric.Int64Counter
	CacheMissCount    metric.Int64Counter
	AppointmentsTotal metric.Int64Counter
	PaymentsVerified  metric.Int64Counter
	PushConnections   metric.Int64UpDownCounter
}

// Setup initializes OpenTelemetry tracing, metrics export and runtime metrics
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(15 * time.Second)); err != nil {
		GetLogger().Warn().Err(err).Msg("runtime metrics disabled")
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			meterProvider.Shutdown(ctx),
			tracerProvider.Shutdown(ctx),
		)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics against the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCount, err := meter.Int64Counter(
		"cache.hit.count",
		metric.WithDescription("Number of cache hits"),
	)
	if err != nil {
		return nil, err
	}

	cacheMissCount, err := meter.Int64Counter(
		"cache.miss.count",
		metric.WithDescription("Number of cache misses"),
	)
	if err != nil {
		return nil, err
	}

	appointmentsTotal, err := meter.Int64Counter(
		"appointments.created.count",
		metric.WithDescription("Number of appointments created, by payment mode"),
	)
	if err != nil {
		return nil, err
	}

	paymentsVerified, err := meter.Int64Counter(
		"payments.verification.count",
		metric.WithDescription("Number of payment verifications, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	pushConnections, err := meter.Int64UpDownCounter(
		"push.connections.active",
		metric.WithDescription("Open push-channel connections"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCount:      requestCount,
		RequestDuration:   requestDuration,
		CacheHitCount:     cacheHitCount,
		CacheMissCount:    cacheMissCount,
		AppointmentsTotal: appointmentsTotal,
		PaymentsVerified:  paymentsVerified,
		PushConnections:   pushConnections,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records an HTTP request
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	metrics.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordCacheResult records a cache hit or miss for a key family
func RecordCacheResult(ctx context.Context, metrics *Metrics, family string, hit bool) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("cache.family", family))
	if hit {
		metrics.CacheHitCount.Add(ctx, 1, attrs)
		return
	}
	metrics.CacheMissCount.Add(ctx, 1, attrs)
}

// RecordAppointmentCreated counts a created appointment
func RecordAppointmentCreated(ctx context.Context, metrics *Metrics, paymentMode string) {
	if metrics == nil {
		return
	}
	metrics.AppointmentsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("payment.mode", paymentMode)))
}

// RecordPaymentVerification counts a verification outcome
func RecordPaymentVerification(ctx context.Context, metrics *Metrics, verified bool) {
	if metrics == nil {
		return
	}
	metrics.PaymentsVerified.Add(ctx, 1, metric.WithAttributes(attribute.Bool("payment.verified", verified)))
}

// RecordPushConnection tracks push-channel connections opening (+1) and closing (-1)
func RecordPushConnection(ctx context.Context, metrics *Metrics, delta int64) {
	if metrics == nil {
		return
	}
	metrics.PushConnections.Add(ctx, delta)
}
