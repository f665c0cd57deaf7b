package bucketgo

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hupe1980/bucketgo/bucket"
	"github.com/hupe1980/bucketgo/model"
	"github.com/hupe1980/bucketgo/navigation"
)

// SequentialScan drives operations over a single bucket. It is the simplest
// algorithm composition: every insert, delete and query goes to the one
// bucket, and queries walk its objects in ID order.
type SequentialScan struct {
	bucket  *bucket.LocalBucket
	logger  *Logger
	metrics MetricsCollector
}

// NewSequentialScan wraps the given bucket. The scan takes over the bucket's
// lifecycle: Close and Destroy pass through.
func NewSequentialScan(b *bucket.LocalBucket, optFns ...Option) *SequentialScan {
	opts := applyOptions(optFns)

	return &SequentialScan{
		bucket:  b,
		logger:  opts.logger,
		metrics: opts.metricsCollector,
	}
}

// Bucket returns the underlying bucket.
func (s *SequentialScan) Bucket() *bucket.LocalBucket { return s.bucket }

// Add inserts an object into the bucket.
func (s *SequentialScan) Add(ctx context.Context, obj model.Object) error {
	start := time.Now()
	err := translateError(s.bucket.AddObject(obj))
	s.metrics.RecordAdd(time.Since(start), err)
	s.logger.LogAdd(ctx, obj.ID(), obj.Size(), err)
	return err
}

// AddCode is the non-throwing insert form.
func (s *SequentialScan) AddCode(ctx context.Context, obj model.Object) model.ErrorCode {
	start := time.Now()
	code := s.bucket.AddObjectErrCode(obj)
	var err error
	if !code.OK() {
		err = errors.New(code.String())
	}
	s.metrics.RecordAdd(time.Since(start), err)
	s.logger.LogAdd(ctx, obj.ID(), obj.Size(), err)
	return code
}

// AddBatch inserts multiple objects. Per-object failures are collected: on
// partial failure the returned error is a *bucket.BulkAddError listing the
// objects that failed and why, while the rest are stored.
func (s *SequentialScan) AddBatch(ctx context.Context, objects []model.Object) error {
	start := time.Now()
	err := s.bucket.AddObjects(objects)

	failed := 0
	var bulk *bucket.BulkAddError
	if errors.As(err, &bulk) {
		failed = len(bulk.Failed)
	} else if err != nil {
		failed = len(objects)
	}

	s.metrics.RecordBatchAdd(len(objects), failed, time.Since(start))
	s.logger.LogBatchAdd(ctx, len(objects), failed)
	return translateError(err)
}

// Get retrieves an object by ID.
func (s *SequentialScan) Get(id model.ObjectID) (model.Object, error) {
	obj, err := s.bucket.GetObject(id)
	return obj, translateError(err)
}

// GetByLocator retrieves an object by its locator.
func (s *SequentialScan) GetByLocator(locator string) (model.Object, error) {
	obj, err := s.bucket.GetObjectByLocator(locator)
	return obj, translateError(err)
}

// Delete removes and returns the object with the given ID.
func (s *SequentialScan) Delete(ctx context.Context, id model.ObjectID) (model.Object, error) {
	start := time.Now()
	obj, err := s.bucket.DeleteObject(id)
	err = translateError(err)
	s.metrics.RecordDelete(time.Since(start), err)
	s.logger.LogDelete(ctx, id, err)
	return obj, err
}

// DeleteMatching removes up to limit objects that are data-equal to match
// and returns how many were removed.
func (s *SequentialScan) DeleteMatching(ctx context.Context, match model.Object, limit int) (int, error) {
	start := time.Now()
	n, err := s.bucket.DeleteMatching(match, limit)
	err = translateError(err)
	s.metrics.RecordDelete(time.Since(start), err)
	s.logger.WithCount(n).LogDelete(ctx, match.ID(), err)
	return n, err
}

// Search evaluates the query against the bucket's objects and returns the
// number of objects added to the query's answer. The query is driven through
// a navigation processor, so step semantics (EndOperation on completion,
// cancellation via ctx) match the parallel scan.
func (s *SequentialScan) Search(ctx context.Context, q model.QueryOperation) (int, error) {
	start := time.Now()

	var results atomic.Int64
	proc := navigation.NewBounded(q, func(_ context.Context, op model.Operation, b *bucket.LocalBucket) error {
		n, err := b.ProcessQuery(op.(model.QueryOperation))
		if err != nil {
			return err
		}
		results.Add(int64(n))
		return nil
	}, []*bucket.LocalBucket{s.bucket})

	err := translateError(proc.ProcessAll(ctx))
	q.EndOperation(err)

	n := int(results.Load())
	s.metrics.RecordQuery(n, time.Since(start), err)
	s.logger.LogQuery(ctx, 1, n, err)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Split redistributes the bucket's objects per the policy. See
// bucket.LocalBucket.Split for the mid-split failure contract.
func (s *SequentialScan) Split(ctx context.Context, policy bucket.SplitPolicy, targets []bucket.Bucket, factory bucket.Factory, stayPartition int) (int, error) {
	start := time.Now()
	moved, err := s.bucket.Split(policy, targets, factory, stayPartition)
	err = translateError(err)
	s.metrics.RecordSplit(moved, time.Since(start), err)
	s.logger.LogSplit(ctx, s.bucket.ID(), moved, err)
	return moved, err
}

// Close releases the bucket's transient handles; stored data survives.
func (s *SequentialScan) Close() error {
	return translateError(s.bucket.Close())
}

// Destroy releases everything including stored data.
func (s *SequentialScan) Destroy() error {
	return translateError(s.bucket.Destroy())
}
