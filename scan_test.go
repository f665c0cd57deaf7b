package bucketgo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bucketgo/bucket"
	"github.com/hupe1980/bucketgo/model"
	"github.com/hupe1980/bucketgo/storage"
)

// prefixQuery collects the locators of objects whose payload starts with the
// prefix. Clones evaluate independently; UpdateFrom appends in merge order.
type prefixQuery struct {
	mu       sync.Mutex
	prefix   []byte
	matches  []string
	finished bool
	err      error
}

func newPrefixQuery(prefix string) *prefixQuery {
	return &prefixQuery{prefix: []byte(prefix)}
}

func (q *prefixQuery) Matches() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.matches...)
}

func (q *prefixQuery) Clone() model.Operation {
	return &prefixQuery{prefix: q.prefix}
}

func (q *prefixQuery) UpdateFrom(partial model.Operation) error {
	p, ok := partial.(*prefixQuery)
	if !ok {
		return fmt.Errorf("cannot update from %T", partial)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.matches = append(q.matches, p.matches...)
	return nil
}

func (q *prefixQuery) EndOperation(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = true
	q.err = err
}

func (q *prefixQuery) Finished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finished
}

func (q *prefixQuery) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

func (q *prefixQuery) Evaluate(objects iter.Seq[model.Object]) int {
	n := 0
	for obj := range objects {
		g, ok := obj.(*model.GenericObject)
		if !ok || !bytes.HasPrefix(g.Data(), q.prefix) {
			continue
		}
		q.mu.Lock()
		q.matches = append(q.matches, obj.Locator())
		q.mu.Unlock()
		n++
	}
	return n
}

func newMemoryBucket(t *testing.T, capacity int64) *bucket.LocalBucket {
	t.Helper()
	b, err := bucket.NewLocal(func(o *bucket.Options) {
		o.Capacity = capacity
	})
	require.NoError(t, err)
	return b
}

func TestSequentialScan_RoundTrip(t *testing.T) {
	ctx := context.Background()
	scan := NewSequentialScan(newMemoryBucket(t, 100))
	defer func() { _ = scan.Close() }()

	obj := model.NewGenericObject([]byte("hit: alpha"))
	require.NoError(t, scan.Add(ctx, obj))

	got, err := scan.Get(obj.ID())
	require.NoError(t, err)
	assert.Equal(t, obj.Locator(), got.Locator())

	got, err = scan.GetByLocator(obj.Locator())
	require.NoError(t, err)
	assert.Equal(t, obj.ID(), got.ID())

	deleted, err := scan.Delete(ctx, obj.ID())
	require.NoError(t, err)
	assert.Equal(t, obj.ID(), deleted.ID())

	_, err = scan.Get(obj.ID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSequentialScan_Search(t *testing.T) {
	ctx := context.Background()
	scan := NewSequentialScan(newMemoryBucket(t, 100))
	defer func() { _ = scan.Close() }()

	require.NoError(t, scan.Add(ctx, model.NewGenericObject([]byte("hit: one"))))
	require.NoError(t, scan.Add(ctx, model.NewGenericObject([]byte("miss: two"))))
	require.NoError(t, scan.Add(ctx, model.NewGenericObject([]byte("hit: three"))))

	q := newPrefixQuery("hit:")
	n, err := scan.Search(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, q.Matches(), 2)
	assert.True(t, q.Finished())
	assert.NoError(t, q.Err())
}

func TestSequentialScan_AddBatchCollectsFailures(t *testing.T) {
	ctx := context.Background()
	scan := NewSequentialScan(newMemoryBucket(t, 3))
	defer func() { _ = scan.Close() }()

	objects := []model.Object{
		model.NewGenericObject([]byte("a")),
		model.NewGenericObject([]byte("b")),
		model.NewGenericObject([]byte("c")),
		model.NewGenericObject([]byte("d")),
		model.NewGenericObject([]byte("e")),
	}

	err := scan.AddBatch(ctx, objects)
	var bulk *bucket.BulkAddError
	require.ErrorAs(t, err, &bulk)
	assert.Equal(t, 3, bulk.Inserted)
	assert.Len(t, bulk.Failed, 2)
	assert.Equal(t, 3, scan.Bucket().Count())
}

func TestSequentialScan_Metrics(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	scan := NewSequentialScan(newMemoryBucket(t, 100), WithMetricsCollector(metrics))
	defer func() { _ = scan.Close() }()

	obj := model.NewGenericObject([]byte("hit: metrics"))
	require.NoError(t, scan.Add(ctx, obj))
	_, err := scan.Search(ctx, newPrefixQuery("hit:"))
	require.NoError(t, err)
	_, err = scan.Delete(ctx, obj.ID())
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.AddCount)
	assert.Equal(t, int64(1), stats.QueryCount)
	assert.Equal(t, int64(1), stats.QueryResults)
	assert.Equal(t, int64(1), stats.DeleteCount)
	assert.Zero(t, stats.AddErrors)
}

func parallelScan(t *testing.T, numBuckets int, optFns ...Option) *ParallelSequentialScan {
	t.Helper()
	optFns = append([]Option{WithBucketOptions(func(o *bucket.Options) {
		o.Capacity = 1000
	})}, optFns...)
	p, err := NewParallelSequentialScan(numBuckets, storage.KindMemory, storage.Params{}, optFns...)
	require.NoError(t, err)
	return p
}

func TestParallelSequentialScan_RoundRobin(t *testing.T) {
	ctx := context.Background()
	p := parallelScan(t, 4)
	defer func() { _ = p.Destroy() }()

	for i := 0; i < 8; i++ {
		require.NoError(t, p.Add(ctx, model.NewGenericObject([]byte(fmt.Sprintf("obj-%d", i)))))
	}

	for _, b := range p.Buckets() {
		assert.Equal(t, 2, b.Count())
	}
	assert.Equal(t, 8, p.Count())
}

func TestParallelSequentialScan_SearchMergesInBucketOrder(t *testing.T) {
	ctx := context.Background()
	p := parallelScan(t, 3)
	defer func() { _ = p.Destroy() }()

	var want []string
	for i := 0; i < 9; i++ {
		obj := model.NewGenericObject([]byte(fmt.Sprintf("hit: %d", i)))
		require.NoError(t, p.Add(ctx, obj))
		want = append(want, obj.Locator())
	}

	q := newPrefixQuery("hit:")
	n, err := p.Search(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.ElementsMatch(t, want, q.Matches())
	assert.True(t, q.Finished())

	// Round-robin placed object i in bucket i%3; bucket-order merge makes
	// the aggregate answer deterministic.
	expected := []string{
		want[0], want[3], want[6],
		want[1], want[4], want[7],
		want[2], want[5], want[8],
	}
	assert.Equal(t, expected, q.Matches())
}

func TestParallelSequentialScan_SearchFirstErrorWins(t *testing.T) {
	ctx := context.Background()
	p := parallelScan(t, 2)
	defer func() { _ = p.Destroy() }()

	require.NoError(t, p.Add(ctx, model.NewGenericObject([]byte("hit: a"))))
	require.NoError(t, p.Add(ctx, model.NewGenericObject([]byte("hit: b"))))

	// Closing one bucket makes its clone fail while the other completes.
	require.NoError(t, p.Buckets()[0].Close())

	q := newPrefixQuery("hit:")
	_, err := p.Search(ctx, q)
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, q.Finished())
	assert.Error(t, q.Err())
	assert.Empty(t, q.Matches(), "no partial answers merged on failure")
}

func TestParallelSequentialScan_DeleteMatchingSharedLimit(t *testing.T) {
	ctx := context.Background()
	p := parallelScan(t, 3)
	defer func() { _ = p.Destroy() }()

	match := model.NewGenericObject([]byte("dup"))
	for i := 0; i < 6; i++ {
		require.NoError(t, p.Add(ctx, model.NewGenericObject([]byte("dup"))))
	}

	n, err := p.DeleteMatching(ctx, match, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, p.Count())
}

func TestParallelSequentialScan_DeleteByID(t *testing.T) {
	ctx := context.Background()
	p := parallelScan(t, 2)
	defer func() { _ = p.Destroy() }()

	obj := model.NewGenericObject([]byte("movable"))
	require.NoError(t, p.Add(ctx, obj))
	require.NoError(t, p.Add(ctx, model.NewGenericObject([]byte("other"))))

	deleted, err := p.Delete(ctx, obj.ID())
	require.NoError(t, err)
	assert.Equal(t, obj.ID(), deleted.ID())

	_, err = p.Delete(ctx, obj.ID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParallelSequentialScan_InvalidBucketCount(t *testing.T) {
	_, err := NewParallelSequentialScan(0, storage.KindMemory, storage.Params{})
	assert.ErrorIs(t, err, ErrInvalidBucketCount)
}

func TestCollectorObserver(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	b, err := bucket.NewLocal(func(o *bucket.Options) {
		o.Capacity = 10
		o.Metrics = CollectorObserver(metrics)
	})
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	obj := model.NewGenericObject([]byte("x"))
	require.NoError(t, b.AddObject(obj))
	_, err = b.DeleteObject(obj.ID())
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.AddCount)
	assert.Equal(t, int64(1), stats.DeleteCount)
}

func TestLocatorStorage(t *testing.T) {
	ctx := context.Background()
	ls := NewLocatorStorage(newMemoryBucket(t, 100))
	defer func() { _ = ls.Close() }()

	obj := model.NewGenericObjectWithLocator("doc://alpha", []byte("payload"))
	require.NoError(t, ls.Put(ctx, obj))
	assert.Equal(t, 1, ls.Len())

	got, err := ls.Get("doc://alpha")
	require.NoError(t, err)
	assert.Equal(t, obj.ID(), got.ID())

	err = ls.Put(ctx, model.NewGenericObjectWithLocator("doc://alpha", []byte("other")))
	assert.ErrorIs(t, err, bucket.ErrDuplicate)
	assert.Equal(t, 1, ls.Bucket().Count(), "duplicate locator leaves the bucket untouched")

	deleted, err := ls.Delete(ctx, "doc://alpha")
	require.NoError(t, err)
	assert.Equal(t, obj.ID(), deleted.ID())
	assert.Zero(t, ls.Len())

	_, err = ls.Get("doc://alpha")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.ErrorIs(t, translateError(bucket.ErrNotFound), ErrNotFound)
	assert.ErrorIs(t, translateError(bucket.ErrClosed), ErrClosed)

	sentinel := errors.New("untranslated")
	assert.ErrorIs(t, translateError(sentinel), sentinel)
}
