// Package metrics collects lightweight counters for refresh and
// purchase activity using atomics.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds application counters safe for concurrent recording.
type Metrics struct {
	loadsTotal      atomic.Int64
	loadErrors      atomic.Int64
	loadNanos       atomic.Int64
	staleDiscards   atomic.Int64
	tokensScanned   atomic.Int64
	tokensSkipped   atomic.Int64
	purchasesTotal  atomic.Int64
	purchaseErrors  atomic.Int64
	refreshRequests atomic.Int64
}

// Global is the process-wide metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordLoad records one state load with its duration and outcome.
func (m *Metrics) RecordLoad(duration time.Duration, err error) {
	m.loadsTotal.Add(1)
	m.loadNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.loadErrors.Add(1)
	}
}

// RecordStaleDiscard records a load result dropped because a newer
// result for the same slot already landed.
func (m *Metrics) RecordStaleDiscard() {
	m.staleDiscards.Add(1)
}

// RecordScan records the outcome of one ownership scan.
func (m *Metrics) RecordScan(scanned, skipped int) {
	m.tokensScanned.Add(int64(scanned))
	m.tokensSkipped.Add(int64(skipped))
}

// RecordPurchase records one purchase attempt.
func (m *Metrics) RecordPurchase(err error) {
	m.purchasesTotal.Add(1)
	if err != nil {
		m.purchaseErrors.Add(1)
	}
}

// RecordRefreshRequest records one refresh request seen on the bus.
func (m *Metrics) RecordRefreshRequest() {
	m.refreshRequests.Add(1)
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	LoadsTotal      int64
	LoadErrors      int64
	StaleDiscards   int64
	TokensScanned   int64
	TokensSkipped   int64
	PurchasesTotal  int64
	PurchaseErrors  int64
	RefreshRequests int64
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		LoadsTotal:      m.loadsTotal.Load(),
		LoadErrors:      m.loadErrors.Load(),
		StaleDiscards:   m.staleDiscards.Load(),
		TokensScanned:   m.tokensScanned.Load(),
		TokensSkipped:   m.tokensSkipped.Load(),
		PurchasesTotal:  m.purchasesTotal.Load(),
		PurchaseErrors:  m.purchaseErrors.Load(),
		RefreshRequests: m.refreshRequests.Load(),
	}
}

// LoadLatencyAvgMs returns the average load latency in milliseconds,
// or 0 when nothing has been recorded.
func (m *Metrics) LoadLatencyAvgMs() float64 {
	loads := m.loadsTotal.Load()
	if loads == 0 {
		return 0
	}
	return float64(m.loadNanos.Load()) / float64(loads) / 1e6
}

// Reset zeroes all counters. Useful for testing.
func (m *Metrics) Reset() {
	m.loadsTotal.Store(0)
	m.loadErrors.Store(0)
	m.loadNanos.Store(0)
	m.staleDiscards.Store(0)
	m.tokensScanned.Store(0)
	m.tokensSkipped.Store(0)
	m.purchasesTotal.Store(0)
	m.purchaseErrors.Store(0)
	m.refreshRequests.Store(0)
}
