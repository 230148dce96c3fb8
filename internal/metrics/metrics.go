package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline tracks per-file ingestion outcomes for the /metrics endpoint.
type Pipeline struct {
	registry *prometheus.Registry

	filesTotal       *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	inFlight         prometheus.Gauge
	ocrPages         prometheus.Counter
}

func NewPipeline() *Pipeline {
	registry := prometheus.NewRegistry()

	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoicewatcher",
			Subsystem: "pipeline",
			Name:      "files_total",
			Help:      "Total files reaching a terminal pipeline outcome, by status.",
		},
		[]string{"status"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoicewatcher",
			Subsystem: "pipeline",
			Name:      "file_duration_seconds",
			Help:      "Per-file pipeline duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "invoicewatcher",
			Subsystem: "pipeline",
			Name:      "files_in_flight",
			Help:      "Number of files currently being processed.",
		},
	)
	ocrPages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "invoicewatcher",
			Subsystem: "pipeline",
			Name:      "ocr_pages_total",
			Help:      "Pages that required OCR fallback.",
		},
	)

	registry.MustRegister(filesTotal, pipelineDuration, inFlight, ocrPages)

	return &Pipeline{
		registry:         registry,
		filesTotal:       filesTotal,
		pipelineDuration: pipelineDuration,
		inFlight:         inFlight,
		ocrPages:         ocrPages,
	}
}

func (m *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Pipeline) StartFile() {
	m.inFlight.Inc()
}

func (m *Pipeline) FinishFile(duration time.Duration, err error) {
	m.inFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.filesTotal.WithLabelValues(status).Inc()
	m.pipelineDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Pipeline) ObserveOCRPage() {
	m.ocrPages.Inc()
}
