package bucketgo

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/bucketgo/bucket"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus. Collectors are injected through options and scoped to the
// scan that carries them.
type MetricsCollector interface {
	// RecordAdd is called after each insert operation.
	// duration is the total time taken, err is nil if successful.
	RecordAdd(duration time.Duration, err error)

	// RecordBatchAdd is called after each batch insert operation.
	// count is the number of objects attempted, failed is the number that
	// failed, duration is the total time taken.
	RecordBatchAdd(count, failed int, duration time.Duration)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, err error)

	// RecordQuery is called after each query operation.
	// results is the number of objects the query added to its answer.
	RecordQuery(results int, duration time.Duration, err error)

	// RecordSplit is called after each split operation.
	// moved is the number of objects redistributed to target buckets.
	RecordSplit(moved int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)         {}
func (NoopMetricsCollector) RecordBatchAdd(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)      {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordSplit(int, time.Duration, error)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount        atomic.Int64
	AddErrors       atomic.Int64
	AddTotalNanos   atomic.Int64
	BatchAddCount   atomic.Int64
	BatchAddItems   atomic.Int64
	BatchAddFailed  atomic.Int64
	DeleteCount     atomic.Int64
	DeleteErrors    atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryResults    atomic.Int64
	QueryTotalNanos atomic.Int64
	SplitCount      atomic.Int64
	SplitErrors     atomic.Int64
	SplitMoved      atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordBatchAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchAdd(count, failed int, duration time.Duration) {
	b.BatchAddCount.Add(1)
	b.BatchAddItems.Add(int64(count))
	b.BatchAddFailed.Add(int64(failed))
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(results int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryResults.Add(int64(results))
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordSplit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSplit(moved int, duration time.Duration, err error) {
	b.SplitCount.Add(1)
	b.SplitMoved.Add(int64(moved))
	if err != nil {
		b.SplitErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:       b.AddCount.Load(),
		AddErrors:      b.AddErrors.Load(),
		AddAvgNanos:    b.getAvgAddNanos(),
		BatchAddCount:  b.BatchAddCount.Load(),
		BatchAddItems:  b.BatchAddItems.Load(),
		BatchAddFailed: b.BatchAddFailed.Load(),
		DeleteCount:    b.DeleteCount.Load(),
		DeleteErrors:   b.DeleteErrors.Load(),
		QueryCount:     b.QueryCount.Load(),
		QueryErrors:    b.QueryErrors.Load(),
		QueryResults:   b.QueryResults.Load(),
		QueryAvgNanos:  b.getAvgQueryNanos(),
		SplitCount:     b.SplitCount.Load(),
		SplitErrors:    b.SplitErrors.Load(),
		SplitMoved:     b.SplitMoved.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgAddNanos() int64 {
	count := b.AddCount.Load()
	if count == 0 {
		return 0
	}
	return b.AddTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount       int64
	AddErrors      int64
	AddAvgNanos    int64
	BatchAddCount  int64
	BatchAddItems  int64
	BatchAddFailed int64
	DeleteCount    int64
	DeleteErrors   int64
	QueryCount     int64
	QueryErrors    int64
	QueryResults   int64
	QueryAvgNanos  int64
	SplitCount     int64
	SplitErrors    int64
	SplitMoved     int64
}

// CollectorObserver adapts a MetricsCollector into a bucket.MetricsObserver
// so per-bucket events land in the same sink as scan-level metrics.
func CollectorObserver(mc MetricsCollector) bucket.MetricsObserver {
	return collectorObserver{mc: mc}
}

type collectorObserver struct {
	mc MetricsCollector
}

func (o collectorObserver) OnAdd(_ bucket.ID, duration time.Duration, err error) {
	o.mc.RecordAdd(duration, err)
}

func (o collectorObserver) OnDelete(_ bucket.ID, duration time.Duration, err error) {
	o.mc.RecordDelete(duration, err)
}

func (o collectorObserver) OnQuery(_ bucket.ID, results int, duration time.Duration, err error) {
	o.mc.RecordQuery(results, duration, err)
}

func (o collectorObserver) OnSplit(_ bucket.ID, moved int, duration time.Duration, err error) {
	o.mc.RecordSplit(moved, duration, err)
}

func (o collectorObserver) OnBucketCreated(bucket.ID) {}
func (o collectorObserver) OnBucketRemoved(bucket.ID) {}
