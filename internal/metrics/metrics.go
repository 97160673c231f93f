// Package metrics provides Prometheus metrics collection for quantkit.
// It defines counters and histograms for every computation the service
// exposes, labelled by method or error kind where that is useful.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for quantkit.
type Metrics struct {
	// Probability transforms
	TransformsTotal  *prometheus.CounterVec // Transforms computed, by method
	TransformLatency prometheus.Histogram   // Transform duration in seconds
	VectorLength     prometheus.Histogram   // Length of transformed score vectors

	// Sampling
	SelectionsTotal prometheus.Counter // Weighted draws
	SampledIndices  prometheus.Counter // Indices returned by the Bernoulli sampler
	SamplesTotal    prometheus.Counter // Bernoulli sampler calls

	// Confusion
	ConfusionEvaluations prometheus.Counter // Confusion evaluations performed
	ConfusionSamples     prometheus.Counter // Samples compared across all evaluations

	// Errors
	ErrorsTotal *prometheus.CounterVec // Failures, by operation and error kind
}

// NewWithRegistry creates all metrics and registers them with registerer.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		TransformsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quantkit_transforms_total",
			Help: "Total number of probability transforms computed",
		}, []string{"method"}),
		TransformLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quantkit_transform_latency_seconds",
			Help:    "Probability transform latency in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		VectorLength: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quantkit_vector_length",
			Help:    "Length of score vectors passed to the transform",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		SelectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantkit_selections_total",
			Help: "Total number of weighted draws",
		}),
		SampledIndices: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantkit_sampled_indices_total",
			Help: "Total number of indices selected by the Bernoulli sampler",
		}),
		SamplesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantkit_samples_total",
			Help: "Total number of Bernoulli sampler calls",
		}),
		ConfusionEvaluations: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantkit_confusion_evaluations_total",
			Help: "Total number of confusion evaluations performed",
		}),
		ConfusionSamples: factory.NewCounter(prometheus.CounterOpts{
			Name: "quantkit_confusion_samples_total",
			Help: "Total number of samples compared in confusion evaluations",
		}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quantkit_errors_total",
			Help: "Total number of failed operations, by operation and error kind",
		}, []string{"operation", "kind"}),
	}
}

// ObserveTransform records a successful transform.
func (m *Metrics) ObserveTransform(method string, n int, took time.Duration) {
	m.TransformsTotal.WithLabelValues(method).Inc()
	m.TransformLatency.Observe(took.Seconds())
	m.VectorLength.Observe(float64(n))
}

// ObserveSelection records a weighted draw.
func (m *Metrics) ObserveSelection() {
	m.SelectionsTotal.Inc()
}

// ObserveSample records a Bernoulli sampler call that returned k indices.
func (m *Metrics) ObserveSample(k int) {
	m.SamplesTotal.Inc()
	m.SampledIndices.Add(float64(k))
}

// ObserveConfusion records a confusion evaluation over n samples.
func (m *Metrics) ObserveConfusion(n int) {
	m.ConfusionEvaluations.Inc()
	m.ConfusionSamples.Add(float64(n))
}

// ObserveError records a failed operation.
func (m *Metrics) ObserveError(operation, kind string) {
	m.ErrorsTotal.WithLabelValues(operation, kind).Inc()
}
