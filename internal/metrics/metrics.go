// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Upstream names used as metric labels.
const (
	UpstreamStats      = "stats"
	UpstreamCompletion = "completion"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// News gate metrics
	IncNewsCacheHit()
	IncNewsCacheMiss()
	IncQuotaRejected()
	IncNewsRecorded()
	IncRecordFailed() // recording failed and the cache write was rolled back

	// Upstream call metrics
	ObserveUpstreamDuration(upstream string, duration time.Duration)
	IncUpstreamFailure(upstream, kind string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
