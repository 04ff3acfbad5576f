package stream

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/replaystream/metric"
)

// Metrics holds prometheus metrics for one stream instance.
type Metrics struct {
	itemsSampled        prometheus.Counter
	samplesEmitted      prometheus.Counter
	timestepsEmitted    prometheus.Counter
	inFlightSamples     prometheus.Gauge
	batchSize           prometheus.Histogram
	sampleLatency       prometheus.Histogram
	rateLimiterTimeouts prometheus.Counter
}

// newMetrics creates and registers stream metrics. Returns nil when no
// registry is provided (nil input = nil feature).
func newMetrics(registry *metric.MetricsRegistry, table string) *Metrics {
	if registry == nil {
		return nil
	}

	labels := prometheus.Labels{"table": table}
	m := &Metrics{
		itemsSampled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "replaystream",
			Subsystem:   "stream",
			Name:        "items_sampled_total",
			Help:        "Total prioritized items fetched from the table",
			ConstLabels: labels,
		}),
		samplesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "replaystream",
			Subsystem:   "stream",
			Name:        "samples_emitted_total",
			Help:        "Total replay samples delivered to the consumer",
			ConstLabels: labels,
		}),
		timestepsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "replaystream",
			Subsystem:   "stream",
			Name:        "timesteps_emitted_total",
			Help:        "Total timesteps delivered across all emissions",
			ConstLabels: labels,
		}),
		inFlightSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "replaystream",
			Subsystem:   "stream",
			Name:        "in_flight_samples",
			Help:        "Sampled items requested but not yet fully emitted",
			ConstLabels: labels,
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "replaystream",
			Subsystem:   "stream",
			Name:        "batch_size",
			Help:        "Items returned per flexible-batch request",
			Buckets:     []float64{1, 2, 4, 8, 16, 32, 64, 128},
			ConstLabels: labels,
		}),
		sampleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "replaystream",
			Subsystem:   "stream",
			Name:        "sample_duration_seconds",
			Help:        "Latency of sampling requests",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			ConstLabels: labels,
		}),
		rateLimiterTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "replaystream",
			Subsystem:   "stream",
			Name:        "rate_limiter_timeouts_total",
			Help:        "Rate limiter timeouts observed (at most one ends the stream)",
			ConstLabels: labels,
		}),
	}

	serviceName := fmt.Sprintf("stream_%s", table)
	registry.RegisterCounter(serviceName, "items_sampled", m.itemsSampled)
	registry.RegisterCounter(serviceName, "samples_emitted", m.samplesEmitted)
	registry.RegisterCounter(serviceName, "timesteps_emitted", m.timestepsEmitted)
	registry.RegisterGauge(serviceName, "in_flight_samples", m.inFlightSamples)
	registry.RegisterHistogram(serviceName, "batch_size", m.batchSize)
	registry.RegisterHistogram(serviceName, "sample_latency", m.sampleLatency)
	registry.RegisterCounter(serviceName, "rate_limiter_timeouts", m.rateLimiterTimeouts)

	return m
}
