// Package metrics exposes Prometheus collectors for the prediction service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/saferoute/internal/model"
)

const namespace = "saferoute"

// Metrics owns a private registry so tests and multiple servers in one
// process do not collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	predictions  *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	neighbors    prometheus.Histogram
	records      prometheus.Gauge
	trainSeconds prometheus.Gauge
	httpRequests *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions served, by method.",
		}, []string{"method"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_errors_total",
			Help:      "Failed predictions, by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Prediction latency, by method.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"method"}),
		neighbors: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_neighbors",
			Help:      "Historical records found within the search radius.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50, 100},
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Historical records loaded at startup.",
		}),
		trainSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_training_seconds",
			Help:      "Wall time spent fitting the fallback model.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.predictions,
		m.rejections,
		m.duration,
		m.neighbors,
		m.records,
		m.trainSeconds,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Predicted records a successful prediction.
func (m *Metrics) Predicted(method model.Method, neighbors int, elapsed time.Duration) {
	m.predictions.WithLabelValues(string(method)).Inc()
	m.duration.WithLabelValues(string(method)).Observe(elapsed.Seconds())
	m.neighbors.Observe(float64(neighbors))
}

// Rejected records a failed prediction.
func (m *Metrics) Rejected(kind string) {
	m.rejections.WithLabelValues(kind).Inc()
}

// Startup records the dataset size and the fallback training time.
func (m *Metrics) Startup(records int, training time.Duration) {
	m.records.Set(float64(records))
	m.trainSeconds.Set(training.Seconds())
}

// Request counts one HTTP response.
func (m *Metrics) Request(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
