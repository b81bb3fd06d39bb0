package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/infomap/infomap/internal/metrics"
)

func TestMetricsHandler_Prometheus(t *testing.T) {
	recorder := metrics.NewPrometheus()
	recorder.IncNewsCacheHit()

	rec := httptest.NewRecorder()
	NewMetricsHandler(recorder).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `infomap_news_cache_lookups_total{result="hit"} 1`) {
		t.Errorf("exposition missing cache hit counter:\n%s", rec.Body.String())
	}
}

func TestMetricsHandler_InMemory(t *testing.T) {
	recorder := metrics.NewInMemory()
	recorder.IncQuotaRejected()

	rec := httptest.NewRecorder()
	NewMetricsHandler(recorder).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), `"quota_rejected":1`) {
		t.Errorf("unexpected snapshot: %s", rec.Body.String())
	}
}

func TestMetricsHandler_Noop(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMetricsHandler(metrics.NewNoop()).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
