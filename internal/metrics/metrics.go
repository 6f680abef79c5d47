// Package metrics exposes conversion and preview counters on a private
// Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	conversions *prometheus.CounterVec   // databridge_conversions_total
	convBytes   *prometheus.HistogramVec // databridge_conversion_bytes
	previews    *prometheus.CounterVec   // databridge_previews_total
	exportRuns  *prometheus.CounterVec   // databridge_export_runs_total
	exportDur   *prometheus.HistogramVec // databridge_export_run_seconds
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	conversions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databridge_conversions_total",
			Help: "Conversions attempted, partitioned by mode and status.",
		},
		[]string{"mode", "status"},
	)
	convBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "databridge_conversion_bytes",
			Help:    "Size of generated conversion output in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"mode"},
	)
	previews := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databridge_previews_total",
			Help: "Source previews fetched, partitioned by source kind (sql, document) and status.",
		},
		[]string{"kind", "status"},
	)
	exportRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databridge_export_runs_total",
			Help: "Export job runs, partitioned by trigger and status.",
		},
		[]string{"trigger", "status"},
	)
	exportDur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "databridge_export_run_seconds",
			Help:    "Duration of export job runs in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)

	reg.MustRegister(conversions, convBytes, previews, exportRuns, exportDur)

	return &Metrics{
		reg:         reg,
		conversions: conversions,
		convBytes:   convBytes,
		previews:    previews,
		exportRuns:  exportRuns,
		exportDur:   exportDur,
	}
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusOK
}

// ObserveConversion counts one conversion. size is only recorded on success.
func (m *Metrics) ObserveConversion(mode string, size int, err error) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(mode, status(err)).Inc()
	if err == nil {
		m.convBytes.WithLabelValues(mode).Observe(float64(size))
	}
}

// ObservePreview counts one preview fetch.
func (m *Metrics) ObservePreview(kind string, err error) {
	if m == nil {
		return
	}
	m.previews.WithLabelValues(kind, status(err)).Inc()
}

// ObserveExportRun counts one export job run and its duration.
func (m *Metrics) ObserveExportRun(trigger string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.exportRuns.WithLabelValues(trigger, status(err)).Inc()
	m.exportDur.WithLabelValues(trigger).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
