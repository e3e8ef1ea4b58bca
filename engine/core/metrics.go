package core

import (
	"sync/atomic"
	"time"
)

// AssetMetrics counts registry activity. All methods are safe for concurrent use.
type AssetMetrics struct {
	hits          atomic.Uint64
	misses        atomic.Uint64
	registrations atomic.Uint64
	loads         atomic.Uint64
	failures      atomic.Uint64
	loadNanos     atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of AssetMetrics.
type MetricsSnapshot struct {
	// Get calls answered from the cache.
	Hits uint64
	// Get calls for unknown handles.
	Misses uint64
	// Handles minted.
	Registrations uint64
	// Loader invocations, successful or not.
	Loads uint64
	// Loader invocations that produced no payload.
	Failures uint64
	// Total time spent inside loaders.
	LoadTime time.Duration
}

func NewAssetMetrics() *AssetMetrics {
	return &AssetMetrics{}
}

func (m *AssetMetrics) RecordHit() {
	m.hits.Add(1)
}

func (m *AssetMetrics) RecordMiss() {
	m.misses.Add(1)
}

func (m *AssetMetrics) RecordRegistration() {
	m.registrations.Add(1)
}

func (m *AssetMetrics) RecordLoad(elapsed time.Duration, err error) {
	m.loads.Add(1)
	m.loadNanos.Add(int64(elapsed))
	if err != nil {
		m.failures.Add(1)
	}
}

func (m *AssetMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Registrations: m.registrations.Load(),
		Loads:         m.loads.Load(),
		Failures:      m.failures.Load(),
		LoadTime:      time.Duration(m.loadNanos.Load()),
	}
}

// AverageLoadTime returns the mean loader duration, zero before the first load.
func (s MetricsSnapshot) AverageLoadTime() time.Duration {
	if s.Loads == 0 {
		return 0
	}
	return s.LoadTime / time.Duration(s.Loads)
}
