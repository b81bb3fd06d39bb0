package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "infomap"

// PrometheusRecorder exports metrics through a dedicated Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	newsCache        *prometheus.CounterVec
	quotaRejected    prometheus.Counter
	newsRecorded     prometheus.Counter
	recordFailed     prometheus.Counter
	upstreamDuration *prometheus.HistogramVec
	upstreamFailures *prometheus.CounterVec
}

// NewPrometheus creates a recorder with Go runtime and process collectors registered.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := &PrometheusRecorder{
		registry: reg,
		newsCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_cache_lookups_total",
			Help:      "News response cache lookups by result.",
		}, []string{"result"}),
		quotaRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejected_total",
			Help:      "News requests rejected because the daily quota was exhausted.",
		}),
		newsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_recorded_total",
			Help:      "News requests fetched upstream and recorded.",
		}),
		recordFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_record_failed_total",
			Help:      "News requests whose recording failed after a successful fetch.",
		}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of upstream calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"upstream"}),
		upstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Failed upstream calls by kind.",
		}, []string{"upstream", "kind"}),
	}

	reg.MustRegister(
		p.newsCache,
		p.quotaRejected,
		p.newsRecorded,
		p.recordFailed,
		p.upstreamDuration,
		p.upstreamFailures,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// IncNewsCacheHit increments the hit series.
func (p *PrometheusRecorder) IncNewsCacheHit() {
	p.newsCache.WithLabelValues("hit").Inc()
}

// IncNewsCacheMiss increments the miss series.
func (p *PrometheusRecorder) IncNewsCacheMiss() {
	p.newsCache.WithLabelValues("miss").Inc()
}

// IncQuotaRejected increments the quota rejection counter.
func (p *PrometheusRecorder) IncQuotaRejected() {
	p.quotaRejected.Inc()
}

// IncNewsRecorded increments the recorded counter.
func (p *PrometheusRecorder) IncNewsRecorded() {
	p.newsRecorded.Inc()
}

// IncRecordFailed increments the failed recording counter.
func (p *PrometheusRecorder) IncRecordFailed() {
	p.recordFailed.Inc()
}

// ObserveUpstreamDuration records an upstream call duration.
func (p *PrometheusRecorder) ObserveUpstreamDuration(upstream string, duration time.Duration) {
	p.upstreamDuration.WithLabelValues(upstream).Observe(duration.Seconds())
}

// IncUpstreamFailure increments the failure counter for upstream and kind.
func (p *PrometheusRecorder) IncUpstreamFailure(upstream, kind string) {
	p.upstreamFailures.WithLabelValues(upstream, kind).Inc()
}
