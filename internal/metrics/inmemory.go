package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	NewsCacheHits    uint64            `json:"news_cache_hits"`
	NewsCacheMisses  uint64            `json:"news_cache_misses"`
	QuotaRejected    uint64            `json:"quota_rejected"`
	NewsRecorded     uint64            `json:"news_recorded"`
	RecordFailed     uint64            `json:"record_failed"`
	UpstreamCalls    map[string]uint64 `json:"upstream_calls"`
	UpstreamFailures map[string]uint64 `json:"upstream_failures"` // keyed by "upstream:kind"
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	newsCacheHits   uint64
	newsCacheMisses uint64
	quotaRejected   uint64
	newsRecorded    uint64
	recordFailed    uint64

	mu               sync.Mutex
	upstreamCalls    map[string]uint64
	upstreamFailures map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		upstreamCalls:    make(map[string]uint64),
		upstreamFailures: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	calls := make(map[string]uint64, len(m.upstreamCalls))
	for k, v := range m.upstreamCalls {
		calls[k] = v
	}
	failures := make(map[string]uint64, len(m.upstreamFailures))
	for k, v := range m.upstreamFailures {
		failures[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		NewsCacheHits:    atomic.LoadUint64(&m.newsCacheHits),
		NewsCacheMisses:  atomic.LoadUint64(&m.newsCacheMisses),
		QuotaRejected:    atomic.LoadUint64(&m.quotaRejected),
		NewsRecorded:     atomic.LoadUint64(&m.newsRecorded),
		RecordFailed:     atomic.LoadUint64(&m.recordFailed),
		UpstreamCalls:    calls,
		UpstreamFailures: failures,
	}
}

// IncNewsCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncNewsCacheHit() {
	atomic.AddUint64(&m.newsCacheHits, 1)
}

// IncNewsCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncNewsCacheMiss() {
	atomic.AddUint64(&m.newsCacheMisses, 1)
}

// IncQuotaRejected increments quota rejection counter.
func (m *InMemoryRecorder) IncQuotaRejected() {
	atomic.AddUint64(&m.quotaRejected, 1)
}

// IncNewsRecorded increments recorded request counter.
func (m *InMemoryRecorder) IncNewsRecorded() {
	atomic.AddUint64(&m.newsRecorded, 1)
}

// IncRecordFailed increments failed recording counter.
func (m *InMemoryRecorder) IncRecordFailed() {
	atomic.AddUint64(&m.recordFailed, 1)
}

// ObserveUpstreamDuration counts an upstream call.
func (m *InMemoryRecorder) ObserveUpstreamDuration(upstream string, _ time.Duration) {
	m.mu.Lock()
	m.upstreamCalls[upstream]++
	m.mu.Unlock()
}

// IncUpstreamFailure increments upstream failure counter.
func (m *InMemoryRecorder) IncUpstreamFailure(upstream, kind string) {
	m.mu.Lock()
	m.upstreamFailures[upstream+":"+kind]++
	m.mu.Unlock()
}
