package core

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "dossier"

type metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	uploadedFiles   *prometheus.CounterVec
	uploadedBytes   prometheus.Counter
	analysisTotal   *prometheus.CounterVec
}

// newMetrics registers the server's collectors on registry. A nil registry
// gets a fresh one that also exports Go runtime and process metrics.
func newMetrics(registry *prometheus.Registry) *metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	factory := promauto.With(registry)

	return &metrics{
		registry: registry,

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		uploadedFiles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "uploaded_files_total",
			Help:      "Uploaded file parts by outcome",
		}, []string{"outcome"}),

		uploadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "uploaded_bytes_total",
			Help:      "Total payload bytes of stored uploads",
		}),

		analysisTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "analysis_requests_total",
			Help:      "Company analysis requests by kind and outcome",
		}, []string{"kind", "outcome"}),
	}
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument records request counts and latency. It must wrap the ServeMux
// directly so the matched pattern is visible once the mux returns.
func (m *metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writer := ResponseWriterWrapper{ResponseWriter: w}

		start := time.Now()
		next.ServeHTTP(&writer, r)
		elapsed := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		status := writer.WrittenResponseCode
		if status == 0 {
			status = http.StatusOK
		}

		m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
	})
}

func (m *metrics) observeUpload(stored int, failed int, bytes int64) {
	m.uploadedFiles.WithLabelValues("stored").Add(float64(stored))
	m.uploadedFiles.WithLabelValues("failed").Add(float64(failed))
	m.uploadedBytes.Add(float64(bytes))
}

func (m *metrics) observeAnalysis(kind string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.analysisTotal.WithLabelValues(kind, outcome).Inc()
}
