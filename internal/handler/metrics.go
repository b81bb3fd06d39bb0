package handler

import (
	"net/http"

	"github.com/infomap/infomap/internal/metrics"
)

// MetricsHandler exposes the application counters.
type MetricsHandler struct {
	exposition  http.Handler
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler. A Prometheus recorder is
// served in exposition format; an in-memory recorder as a JSON snapshot.
func NewMetricsHandler(recorder metrics.Recorder) *MetricsHandler {
	h := &MetricsHandler{}
	switch r := recorder.(type) {
	case *metrics.PrometheusRecorder:
		h.exposition = r.Handler()
	case metrics.Snapshotter:
		h.snapshotter = r
	}
	return h
}

// Metrics handles GET /metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	switch {
	case h.exposition != nil:
		h.exposition.ServeHTTP(w, r)
	case h.snapshotter != nil:
		writeJSON(w, http.StatusOK, h.snapshotter.Snapshot())
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
	}
}
