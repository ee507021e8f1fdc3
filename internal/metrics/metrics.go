// Package metrics holds the Prometheus instruments of the extractor.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	documentsTotal   *prometheus.CounterVec
	pagesRoutedTotal *prometheus.CounterVec
	pagesRejected    *prometheus.CounterVec
	fieldErrorsTotal *prometheus.CounterVec
	ocrConfidence    *prometheus.HistogramVec

	// Backend metrics
	backendDuration *prometheus.HistogramVec
	backendTokens   *prometheus.CounterVec
}

// New registers all metrics on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,

		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mxdocs_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mxdocs_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method", "path"},
		),

		documentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mxdocs_documents_total",
				Help: "Documents processed by final job status",
			},
			[]string{"doc_type", "status"},
		),
		pagesRoutedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mxdocs_pages_routed_total",
				Help: "Pages routed to an extraction strategy",
			},
			[]string{"doc_type", "strategy"},
		),
		pagesRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mxdocs_pages_rejected_total",
				Help: "Pages rejected before extraction",
			},
			[]string{"doc_type"},
		),
		fieldErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mxdocs_field_errors_total",
				Help: "Extracted fields that failed validation",
			},
			[]string{"doc_type", "field"},
		),
		ocrConfidence: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mxdocs_ocr_confidence",
				Help:    "OCR confidence of processed pages (0-100)",
				Buckets: []float64{50, 60, 70, 80, 85, 90, 95, 98, 100},
			},
			[]string{"doc_type"},
		),

		backendDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mxdocs_backend_duration_seconds",
				Help:    "Extraction backend latency in seconds",
				Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 90},
			},
			[]string{"backend", "outcome"},
		),
		backendTokens: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mxdocs_backend_tokens_total",
				Help: "Tokens reported by extraction backends",
			},
			[]string{"backend", "kind"},
		),
	}
}

// RecordHTTP records one served request.
func (m *Metrics) RecordHTTP(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDocument records the final status of a processed document.
func (m *Metrics) RecordDocument(docType, status string) {
	if m == nil {
		return
	}
	m.documentsTotal.WithLabelValues(docType, status).Inc()
}

// RecordRouting records a routing decision; an empty strategy is a rejection.
func (m *Metrics) RecordRouting(docType, strategy string, confidence float64) {
	if m == nil {
		return
	}
	m.ocrConfidence.WithLabelValues(docType).Observe(confidence)
	if strategy == "" {
		m.pagesRejected.WithLabelValues(docType).Inc()
		return
	}
	m.pagesRoutedTotal.WithLabelValues(docType, strategy).Inc()
}

// RecordFieldErrors counts each invalid field of a validated page.
func (m *Metrics) RecordFieldErrors(docType string, fields []string) {
	if m == nil {
		return
	}
	for _, f := range fields {
		m.fieldErrorsTotal.WithLabelValues(docType, f).Inc()
	}
}

// RecordBackend records one extraction call and its token usage.
func (m *Metrics) RecordBackend(backend string, duration time.Duration, promptTokens, completionTokens int, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.backendDuration.WithLabelValues(backend, outcome).Observe(duration.Seconds())
	if err == nil {
		m.backendTokens.WithLabelValues(backend, "prompt").Add(float64(promptTokens))
		m.backendTokens.WithLabelValues(backend, "completion").Add(float64(completionTokens))
	}
}

// Handler exposes the registered metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// statusClass returns the HTTP status class (2xx, 3xx, 4xx, 5xx)
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status/100) + "xx"
}
