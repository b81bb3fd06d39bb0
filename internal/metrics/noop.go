package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncNewsCacheHit is a no-op.
func (n *NoopRecorder) IncNewsCacheHit() {}

// IncNewsCacheMiss is a no-op.
func (n *NoopRecorder) IncNewsCacheMiss() {}

// IncQuotaRejected is a no-op.
func (n *NoopRecorder) IncQuotaRejected() {}

// IncNewsRecorded is a no-op.
func (n *NoopRecorder) IncNewsRecorded() {}

// IncRecordFailed is a no-op.
func (n *NoopRecorder) IncRecordFailed() {}

// ObserveUpstreamDuration is a no-op.
func (n *NoopRecorder) ObserveUpstreamDuration(upstream string, duration time.Duration) {}

// IncUpstreamFailure is a no-op.
func (n *NoopRecorder) IncUpstreamFailure(upstream, kind string) {}
