package bucketgo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/bucketgo/bucket"
	"github.com/hupe1980/bucketgo/model"
	"github.com/hupe1980/bucketgo/navigation"
	"github.com/hupe1980/bucketgo/resource"
	"github.com/hupe1980/bucketgo/storage"
)

// ParallelSequentialScan spreads objects over a fixed set of buckets.
//
// Inserts round-robin across the buckets; deletes broadcast to all of them
// up to a shared limit; searches clone the query once per bucket, run the
// clones concurrently on a worker pool and merge the answers back in bucket
// order, so duplicate elimination and best-k merging are reproducible. A
// failing bucket does not prevent the others from completing; the first
// failure is reported after all clones joined.
type ParallelSequentialScan struct {
	dispatcher *bucket.Dispatcher
	buckets    []*bucket.LocalBucket
	next       atomic.Uint64
	pool       *navigation.WorkerPool
	controller *resource.Controller
	logger     *Logger
	metrics    MetricsCollector
}

// NewParallelSequentialScan creates numBuckets buckets of the given storage
// kind under a fresh dispatcher. Bucket settings (capacity, accounting mode,
// filters) come from WithBucketOptions.
func NewParallelSequentialScan(numBuckets int, kind storage.Kind, params storage.Params, optFns ...Option) (*ParallelSequentialScan, error) {
	if numBuckets <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBucketCount, numBuckets)
	}

	opts := applyOptions(optFns)

	d, err := bucket.NewDispatcher(func(o *bucket.DispatcherOptions) {
		o.MaxBuckets = numBuckets
		o.Logger = opts.logger.Logger
	})
	if err != nil {
		return nil, translateError(err)
	}

	buckets := make([]*bucket.LocalBucket, numBuckets)
	for i := range numBuckets {
		b, err := d.CreateBucket(kind, params, opts.bucketOptFns...)
		if err != nil {
			_ = d.Destroy()
			return nil, translateError(err)
		}
		buckets[i] = b
	}

	return &ParallelSequentialScan{
		dispatcher: d,
		buckets:    buckets,
		pool:       navigation.NewWorkerPool(opts.poolSize),
		controller: opts.controller,
		logger:     opts.logger,
		metrics:    opts.metricsCollector,
	}, nil
}

// Dispatcher returns the dispatcher owning the scan's buckets.
func (p *ParallelSequentialScan) Dispatcher() *bucket.Dispatcher { return p.dispatcher }

// Buckets returns the scan's buckets in insertion round-robin order.
func (p *ParallelSequentialScan) Buckets() []*bucket.LocalBucket {
	return append([]*bucket.LocalBucket(nil), p.buckets...)
}

// Add inserts an object into the next bucket in round-robin order.
func (p *ParallelSequentialScan) Add(ctx context.Context, obj model.Object) error {
	start := time.Now()
	b := p.buckets[(p.next.Add(1)-1)%uint64(len(p.buckets))]
	err := translateError(b.AddObject(obj))
	p.metrics.RecordAdd(time.Since(start), err)
	p.logger.WithBucket(b.ID()).LogAdd(ctx, obj.ID(), obj.Size(), err)
	return err
}

// AddBatch inserts the objects, continuing round-robin placement across the
// buckets. Per-object failures are collected into a *bucket.BulkAddError.
func (p *ParallelSequentialScan) AddBatch(ctx context.Context, objects []model.Object) error {
	start := time.Now()

	bulk := &bucket.BulkAddError{}
	for _, obj := range objects {
		b := p.buckets[(p.next.Add(1)-1)%uint64(len(p.buckets))]
		if err := b.AddObject(obj); err != nil {
			bulk.Failed = append(bulk.Failed, storage.FailedObject{Object: obj, Err: err})
			continue
		}
		bulk.Inserted++
	}

	p.metrics.RecordBatchAdd(len(objects), len(bulk.Failed), time.Since(start))
	p.logger.LogBatchAdd(ctx, len(objects), len(bulk.Failed))

	if len(bulk.Failed) > 0 {
		return bulk
	}
	return nil
}

// Get retrieves an object by ID, probing the buckets in order.
func (p *ParallelSequentialScan) Get(id model.ObjectID) (model.Object, error) {
	for _, b := range p.buckets {
		obj, err := b.GetObject(id)
		if err == nil {
			return obj, nil
		}
		if !errors.Is(err, bucket.ErrNotFound) {
			return nil, translateError(err)
		}
	}
	return nil, ErrNotFound
}

// Delete removes the object with the given ID from whichever bucket holds
// it.
func (p *ParallelSequentialScan) Delete(ctx context.Context, id model.ObjectID) (model.Object, error) {
	start := time.Now()

	for _, b := range p.buckets {
		obj, err := b.DeleteObject(id)
		if err == nil {
			p.metrics.RecordDelete(time.Since(start), nil)
			p.logger.WithBucket(b.ID()).LogDelete(ctx, id, nil)
			return obj, nil
		}
		if !errors.Is(err, bucket.ErrNotFound) {
			err = translateError(err)
			p.metrics.RecordDelete(time.Since(start), err)
			p.logger.WithBucket(b.ID()).LogDelete(ctx, id, err)
			return nil, err
		}
	}

	p.metrics.RecordDelete(time.Since(start), ErrNotFound)
	p.logger.LogDelete(ctx, id, ErrNotFound)
	return nil, ErrNotFound
}

// DeleteMatching broadcasts the delete to all buckets, sharing the limit:
// once limit objects have been removed the remaining buckets are skipped.
// On failure it stops and reports how many deletions succeeded.
func (p *ParallelSequentialScan) DeleteMatching(ctx context.Context, match model.Object, limit int) (int, error) {
	start := time.Now()

	total := 0
	remaining := limit
	for _, b := range p.buckets {
		n, err := b.DeleteMatching(match, remaining)
		total += n
		if err != nil {
			err = translateError(err)
			p.metrics.RecordDelete(time.Since(start), err)
			p.logger.WithCount(total).LogDelete(ctx, match.ID(), err)
			return total, err
		}
		if limit > 0 {
			remaining -= n
			if remaining <= 0 {
				break
			}
		}
	}

	p.metrics.RecordDelete(time.Since(start), nil)
	p.logger.WithCount(total).LogDelete(ctx, match.ID(), nil)
	return total, nil
}

// Search evaluates the query against every bucket concurrently.
//
// Each bucket gets its own clone of the query, executed on the worker pool.
// After all clones joined, the partial answers are merged into q in bucket
// order and the total match count is returned. The first clone failure wins
// and is returned after the join; no partial answers are merged then.
func (p *ParallelSequentialScan) Search(ctx context.Context, q model.QueryOperation) (int, error) {
	start := time.Now()

	clones := make([]model.QueryOperation, len(p.buckets))
	counts := make([]int, len(p.buckets))

	// Plain errgroup, no derived context: a failing bucket must not cancel
	// the other clones.
	var g errgroup.Group
	for i, b := range p.buckets {
		c := q.Clone()
		clone, ok := c.(model.QueryOperation)
		if !ok {
			err := fmt.Errorf("bucketgo: query clone %T is not a QueryOperation", c)
			q.EndOperation(err)
			p.metrics.RecordQuery(0, time.Since(start), err)
			p.logger.LogQuery(ctx, len(p.buckets), 0, err)
			return 0, err
		}
		clones[i] = clone

		g.Go(func() error {
			if err := p.controller.AcquireBackground(ctx); err != nil {
				return err
			}
			defer p.controller.ReleaseBackground()

			done := make(chan struct{})
			var n int
			var qerr error
			if err := p.pool.Submit(ctx, func() {
				defer close(done)
				n, qerr = b.ProcessQuery(clone)
			}); err != nil {
				return err
			}
			<-done
			counts[i] = n
			return qerr
		})
	}

	if err := g.Wait(); err != nil {
		err = translateError(err)
		q.EndOperation(err)
		p.metrics.RecordQuery(0, time.Since(start), err)
		p.logger.LogQuery(ctx, len(p.buckets), 0, err)
		return 0, err
	}

	total := 0
	for i, clone := range clones {
		if err := q.UpdateFrom(clone); err != nil {
			q.EndOperation(err)
			p.metrics.RecordQuery(total, time.Since(start), err)
			p.logger.LogQuery(ctx, len(p.buckets), total, err)
			return total, err
		}
		total += counts[i]
	}

	q.EndOperation(nil)
	p.metrics.RecordQuery(total, time.Since(start), nil)
	p.logger.LogQuery(ctx, len(p.buckets), total, nil)
	return total, nil
}

// Occupation returns the summed occupation of all buckets.
func (p *ParallelSequentialScan) Occupation() int64 {
	var total int64
	for _, b := range p.buckets {
		total += b.Occupation()
	}
	return total
}

// Count returns the total number of stored objects.
func (p *ParallelSequentialScan) Count() int {
	total := 0
	for _, b := range p.buckets {
		total += b.Count()
	}
	return total
}

// Close stops the worker pool and closes every bucket; stored data
// survives. The first close failure is reported, remaining buckets are
// still closed.
func (p *ParallelSequentialScan) Close() error {
	p.pool.Close()

	var firstErr error
	for _, b := range p.buckets {
		if _, err := p.dispatcher.RemoveBucket(b.ID()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return translateError(firstErr)
}

// Destroy stops the worker pool and tears down the dispatcher with all
// buckets, removing stored data.
func (p *ParallelSequentialScan) Destroy() error {
	p.pool.Close()
	return translateError(p.dispatcher.Destroy())
}
