package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// QueueSource reports failed-delivery queue depth per webhook
type QueueSource interface {
	Lengths() map[string]int
}

// BacklogSource reports how many intake messages wait in the stream
type BacklogSource interface {
	Backlog(ctx context.Context) (int64, error)
}

// OTelExporter provides OpenTelemetry metrics export following OTel standards
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *prometheus.Registry
	collector     *Collector
	queue         QueueSource
	backlog       BacklogSource

	meter metric.Meter
}

type ExporterOption func(*OTelExporter)

// WithQueue adds the failed-delivery queue gauge
func WithQueue(q QueueSource) ExporterOption {
	return func(oe *OTelExporter) { oe.queue = q }
}

// WithBacklog adds the intake backlog gauge
func WithBacklog(b BacklogSource) ExporterOption {
	return func(oe *OTelExporter) { oe.backlog = b }
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
func NewOTelExporter(collector *Collector, opts ...ExporterOption) (*OTelExporter, error) {
	oe := &OTelExporter{
		registry:  prometheus.NewRegistry(),
		collector: collector,
	}
	for _, opt := range opts {
		opt(oe)
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(oe.registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	oe.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(oe.meterProvider)

	oe.meter = oe.meterProvider.Meter(
		"shipment-relay",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	attempts, err := oe.meter.Int64ObservableCounter(
		"delivery.attempts",
		metric.WithDescription("Delivery attempts by outcome"),
		metric.WithUnit("{attempts}"),
	)
	if err != nil {
		return fmt.Errorf("creating attempts counter: %w", err)
	}

	encodings, err := oe.meter.Int64ObservableCounter(
		"delivery.encoding",
		metric.WithDescription("Delivery attempts by encoding actually sent"),
		metric.WithUnit("{attempts}"),
	)
	if err != nil {
		return fmt.Errorf("creating encoding counter: %w", err)
	}

	degraded, err := oe.meter.Int64ObservableCounter(
		"delivery.degraded",
		metric.WithDescription("Attempts that wanted attachments but were sent plain"),
		metric.WithUnit("{attempts}"),
	)
	if err != nil {
		return fmt.Errorf("creating degraded counter: %w", err)
	}

	sent, err := oe.meter.Int64ObservableCounter(
		"delivery.bytes",
		metric.WithDescription("Body bytes sent"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("creating bytes counter: %w", err)
	}

	latency, err := oe.meter.Float64ObservableGauge(
		"delivery.response_time.average",
		metric.WithDescription("Mean attempt duration since the last reset"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("creating response time gauge: %w", err)
	}

	_, err = oe.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		st := oe.collector.Snapshot()

		o.ObserveInt64(attempts, st.SuccessfulRequests, metric.WithAttributes(attribute.String("delivery.outcome", "success")))
		o.ObserveInt64(attempts, st.FailedRequests, metric.WithAttributes(attribute.String("delivery.outcome", "failure")))
		o.ObserveInt64(encodings, st.PlainRequests, metric.WithAttributes(attribute.String("delivery.encoding", "plain")))
		o.ObserveInt64(encodings, st.MultipartRequests, metric.WithAttributes(attribute.String("delivery.encoding", "multipart")))
		o.ObserveInt64(degraded, st.DegradedRequests)
		o.ObserveInt64(sent, st.TotalBytes)
		o.ObserveFloat64(latency, float64(st.AverageResponseTime.Microseconds())/1000)
		return nil
	}, attempts, encodings, degraded, sent, latency)
	if err != nil {
		return fmt.Errorf("registering delivery callback: %w", err)
	}

	if oe.queue != nil {
		_, err = oe.meter.Int64ObservableGauge(
			"delivery.failed_queue.length",
			metric.WithDescription("Exhausted deliveries waiting for replay per webhook"),
			metric.WithUnit("{deliveries}"),
			metric.WithInt64Callback(oe.observeQueueLengths),
		)
		if err != nil {
			return fmt.Errorf("creating failed queue gauge: %w", err)
		}
	}

	if oe.backlog != nil {
		_, err = oe.meter.Int64ObservableGauge(
			"intake.backlog",
			metric.WithDescription("Shipment updates waiting in the intake stream"),
			metric.WithUnit("{messages}"),
			metric.WithInt64Callback(oe.observeBacklog),
		)
		if err != nil {
			return fmt.Errorf("creating backlog gauge: %w", err)
		}
	}

	return nil
}

// observeQueueLengths is a callback that reports failed queue depth
func (oe *OTelExporter) observeQueueLengths(_ context.Context, observer metric.Int64Observer) error {
	for name, length := range oe.queue.Lengths() {
		observer.Observe(int64(length), metric.WithAttributes(
			attribute.String("webhook.name", name),
		))
	}
	return nil
}

// observeBacklog is a callback that reports the intake stream length
func (oe *OTelExporter) observeBacklog(ctx context.Context, observer metric.Int64Observer) error {
	n, err := oe.backlog.Backlog(ctx)
	if err != nil {
		return err
	}
	observer.Observe(n)
	return nil
}

// ServeHTTP returns the Prometheus scrape handler for this exporter
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.HandlerFor(oe.registry, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
