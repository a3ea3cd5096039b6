package entity

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives the operational metrics of a manager.
// Implement it to export the metrics to a monitoring system; the
// contrib/metrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordAttach is called after n entities were attached.
	RecordAttach(n int)

	// RecordDetach is called after n entities were detached.
	RecordDetach(n int)

	// RecordQuery is called after each query. n is the number of merged
	// entities, err is nil if successful.
	RecordQuery(resource string, duration time.Duration, n int, err error)

	// RecordSave is called after each save of n entities.
	RecordSave(n int, duration time.Duration, err error)

	// RecordImport is called after n entities were imported.
	RecordImport(n int)

	// SetCached reports the number of cached entities.
	SetCached(n int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAttach(int)                              {}
func (NoopMetricsCollector) RecordDetach(int)                              {}
func (NoopMetricsCollector) RecordQuery(string, time.Duration, int, error) {}
func (NoopMetricsCollector) RecordSave(int, time.Duration, error)          {}
func (NoopMetricsCollector) RecordImport(int)                              {}
func (NoopMetricsCollector) SetCached(int)                                 {}

// BasicMetricsCollector keeps the metrics in memory.
type BasicMetricsCollector struct {
	Attached        atomic.Int64
	Detached        atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryEntities   atomic.Int64
	QueryTotalNanos atomic.Int64
	SaveCount       atomic.Int64
	SaveErrors      atomic.Int64
	SaveEntities    atomic.Int64
	SaveTotalNanos  atomic.Int64
	Imported        atomic.Int64
	Cached          atomic.Int64
}

// RecordAttach implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAttach(n int) {
	b.Attached.Add(int64(n))
}

// RecordDetach implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDetach(n int) {
	b.Detached.Add(int64(n))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_ string, duration time.Duration, n int, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	b.QueryEntities.Add(int64(n))
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(n int, duration time.Duration, err error) {
	b.SaveCount.Add(1)
	b.SaveTotalNanos.Add(duration.Nanoseconds())
	b.SaveEntities.Add(int64(n))
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordImport implements MetricsCollector.
func (b *BasicMetricsCollector) RecordImport(n int) {
	b.Imported.Add(int64(n))
}

// SetCached implements MetricsCollector.
func (b *BasicMetricsCollector) SetCached(n int) {
	b.Cached.Store(int64(n))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		Attached:      b.Attached.Load(),
		Detached:      b.Detached.Load(),
		QueryCount:    b.QueryCount.Load(),
		QueryErrors:   b.QueryErrors.Load(),
		QueryEntities: b.QueryEntities.Load(),
		QueryAvgNanos: avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		SaveCount:     b.SaveCount.Load(),
		SaveErrors:    b.SaveErrors.Load(),
		SaveEntities:  b.SaveEntities.Load(),
		SaveAvgNanos:  avg(b.SaveTotalNanos.Load(), b.SaveCount.Load()),
		Imported:      b.Imported.Load(),
		Cached:        b.Cached.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	Attached      int64
	Detached      int64
	QueryCount    int64
	QueryErrors   int64
	QueryEntities int64
	QueryAvgNanos int64
	SaveCount     int64
	SaveErrors    int64
	SaveEntities  int64
	SaveAvgNanos  int64
	Imported      int64
	Cached        int64
}
