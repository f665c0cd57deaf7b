package bucket

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bucketgo/model"
)

func newTestBucket(t *testing.T, optFns ...func(o *Options)) *LocalBucket {
	t.Helper()

	b, err := NewLocal(append([]func(o *Options){func(o *Options) {
		o.Capacity = 1000
		o.OccupationAsBytes = true
	}}, optFns...)...)
	require.NoError(t, err)

	return b
}

func obj(t *testing.T, size int) *model.GenericObject {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	return model.NewGenericObject(data)
}

func TestLocalBucket_RoundTrip(t *testing.T) {
	b := newTestBucket(t)

	x := obj(t, 10)
	require.NoError(t, b.AddObject(x))

	got, err := b.GetObject(x.ID())
	require.NoError(t, err)
	assert.Equal(t, x.ID(), got.ID())

	removed, err := b.DeleteObject(x.ID())
	require.NoError(t, err)
	assert.Equal(t, x.ID(), removed.ID())

	it := b.AllObjects()
	assert.False(t, it.Next())
	assert.Equal(t, int64(0), b.Occupation())
	assert.Equal(t, 0, b.Count())
}

func TestLocalBucket_CapacityScenario(t *testing.T) {
	// capacity=100 bytes, soft=80, low=0, byte accounting.
	b, err := NewLocal(func(o *Options) {
		o.Capacity = 100
		o.SoftCapacity = 80
		o.OccupationAsBytes = true
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.AddObject(obj(t, 30)))
	}
	assert.Equal(t, int64(90), b.Occupation())
	assert.True(t, b.SoftCapacityExceeded(), "90 > 80")

	// Fourth insert of 20 bytes would reach 110 > 100.
	err = b.AddObject(obj(t, 20))
	var cf *ErrCapacityFull
	require.ErrorAs(t, err, &cf)
	assert.Equal(t, int64(90), b.Occupation(), "failed insert must not change occupation")
	assert.Equal(t, 3, b.Count())
}

func TestLocalBucket_AddObjectErrCode(t *testing.T) {
	b, err := NewLocal(func(o *Options) {
		o.Capacity = 100
		o.SoftCapacity = 50
		o.OccupationAsBytes = true
	})
	require.NoError(t, err)

	assert.Equal(t, model.ErrorCodeInserted, b.AddObjectErrCode(obj(t, 40)))
	assert.Equal(t, model.ErrorCodeSoftCapacity, b.AddObjectErrCode(obj(t, 40)))
	assert.Equal(t, model.ErrorCodeHardCapacity, b.AddObjectErrCode(obj(t, 40)))
}

func TestLocalBucket_AddObjectErrCode_CommitTimeOccupation(t *testing.T) {
	// The returned code reflects occupation at commit time: shrinking the
	// bucket after the insert has committed must not turn a soft-capacity
	// result into a plain insert.
	x := obj(t, 30)

	var b *LocalBucket
	obs := &addObserver{onAdd: func(ID, time.Duration, error) {
		// Fires between the insert committing and the code being read.
		_, err := b.DeleteObject(x.ID())
		require.NoError(t, err)
	}}

	b, err := NewLocal(func(o *Options) {
		o.Capacity = 100
		o.SoftCapacity = 10
		o.OccupationAsBytes = true
		o.Metrics = obs
	})
	require.NoError(t, err)

	assert.Equal(t, model.ErrorCodeSoftCapacity, b.AddObjectErrCode(x))
	assert.Equal(t, int64(0), b.Occupation())
}

type addObserver struct {
	NoopMetricsObserver
	onAdd func(ID, time.Duration, error)
}

func (o *addObserver) OnAdd(id ID, d time.Duration, err error) { o.onAdd(id, d, err) }

func TestLocalBucket_LowOccupation(t *testing.T) {
	b, err := NewLocal(func(o *Options) {
		o.Capacity = 10
		o.LowOccupation = 2
	})
	require.NoError(t, err)

	a := obj(t, 1)
	c := obj(t, 1)
	d := obj(t, 1)
	require.NoError(t, b.AddObjects([]model.Object{a, c, d}))

	_, err = b.DeleteObject(a.ID())
	require.NoError(t, err)

	_, err = b.DeleteObject(c.ID())
	var low *ErrOccupationLow
	require.ErrorAs(t, err, &low)
	assert.Equal(t, int64(2), b.Occupation(), "refused delete must not change occupation")
	assert.Equal(t, 2, b.Count())
}

type vetoFilter struct {
	reason   string
	afterAdd int
}

func (f *vetoFilter) BeforeAdd(model.Object, Bucket) error {
	return NewFilterReject(f.reason)
}

func (f *vetoFilter) AfterAdd(model.Object, Bucket) { f.afterAdd++ }

func TestLocalBucket_FilterVetoIsTransactional(t *testing.T) {
	b := newTestBucket(t)
	require.NoError(t, b.AddObject(obj(t, 5)))

	veto := &vetoFilter{reason: "region mismatch"}
	b.RegisterFilter(veto)

	before := b.Occupation()
	beforeCount := b.Count()

	err := b.AddObject(obj(t, 5))
	var fr *ErrFilterReject
	require.ErrorAs(t, err, &fr)
	assert.Equal(t, "region mismatch", fr.Reason)

	assert.Equal(t, before, b.Occupation())
	assert.Equal(t, beforeCount, b.Count())
	assert.Zero(t, veto.afterAdd, "AfterAdd must not fire on veto")

	// Deregistered filters no longer veto.
	b.DeregisterFilter(veto)
	assert.NoError(t, b.AddObject(obj(t, 5)))
}

func TestLocalBucket_FilterOrderAndAfterHooks(t *testing.T) {
	b := newTestBucket(t)

	var order []string
	b.RegisterFilter(recordingFilter{name: "first", order: &order})
	b.RegisterFilter(recordingFilter{name: "second", order: &order})

	x := obj(t, 4)
	require.NoError(t, b.AddObject(x))
	assert.Equal(t, []string{"before/first", "before/second", "after/first", "after/second"}, order)

	order = order[:0]
	_, err := b.DeleteObject(x.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"rm-before/first", "rm-before/second", "rm-after/first", "rm-after/second"}, order)
}

// recordingFilter records hook firing order.
type recordingFilter struct {
	name  string
	order *[]string
}

func (f recordingFilter) BeforeAdd(model.Object, Bucket) error {
	*f.order = append(*f.order, "before/"+f.name)
	return nil
}

func (f recordingFilter) AfterAdd(obj model.Object, _ Bucket) {
	*f.order = append(*f.order, "after/"+f.name)
}

func (f recordingFilter) BeforeRemove(model.Object, Bucket) error {
	*f.order = append(*f.order, "rm-before/"+f.name)
	return nil
}

func (f recordingFilter) AfterRemove(model.Object, Bucket) {
	*f.order = append(*f.order, "rm-after/"+f.name)
}

func TestLocalBucket_DeleteMatching(t *testing.T) {
	b := newTestBucket(t)

	dup := []byte("same-bytes")
	var dups []*model.GenericObject
	for i := 0; i < 3; i++ {
		d := model.NewGenericObject(dup)
		dups = append(dups, d)
		require.NoError(t, b.AddObject(d))
	}
	other := model.NewGenericObject([]byte("different"))
	require.NoError(t, b.AddObject(other))

	n, err := b.DeleteMatching(dups[0], 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, b.Count())

	// limit 0 = unlimited.
	n, err = b.DeleteMatching(dups[0], 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = b.GetObject(other.ID())
	assert.NoError(t, err, "non-matching object must survive")
}

func TestLocalBucket_DeleteMatching_StopsOnFloor(t *testing.T) {
	b, err := NewLocal(func(o *Options) {
		o.Capacity = 10
		o.LowOccupation = 2
	})
	require.NoError(t, err)

	dup := []byte("x")
	for i := 0; i < 4; i++ {
		require.NoError(t, b.AddObject(model.NewGenericObject(dup)))
	}

	n, err := b.DeleteMatching(model.NewGenericObject(dup), 0)
	var low *ErrOccupationLow
	require.ErrorAs(t, err, &low)
	assert.Equal(t, 2, n, "two deletes succeed before the floor blocks")
	assert.Equal(t, int64(2), b.Occupation())
}

func TestLocalBucket_GetObjectByLocator(t *testing.T) {
	b := newTestBucket(t)

	x := model.NewGenericObjectWithLocator("urn:x", []byte("x"))
	require.NoError(t, b.AddObject(x))

	got, err := b.GetObjectByLocator("urn:x")
	require.NoError(t, err)
	assert.Equal(t, x.ID(), got.ID())

	_, err = b.GetObjectByLocator("urn:missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBucket_NotFound(t *testing.T) {
	b := newTestBucket(t)

	_, err := b.GetObject(model.NextObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = b.DeleteObject(model.NextObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBucket_IteratorRemoveGoesThroughFilters(t *testing.T) {
	b := newTestBucket(t)
	counter := &CounterFilter{}
	b.RegisterFilter(counter)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.AddObject(obj(t, 1)))
	}

	it := b.AllObjects()
	require.True(t, it.Next())
	_, err := it.Remove()
	require.NoError(t, err)

	assert.Equal(t, int64(1), counter.Removed.Load())
	assert.Equal(t, 2, b.Count())
	assert.Equal(t, int64(2), b.Occupation())
}

func TestLocalBucket_Closed(t *testing.T) {
	b := newTestBucket(t)
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.AddObject(obj(t, 1)), ErrClosed)
	_, err := b.GetObject(model.NextObjectID())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, b.Close(), "closing twice is a no-op")
}

func TestDedupFilter(t *testing.T) {
	b := newTestBucket(t)
	b.RegisterFilter(NewDedupFilter())

	x := model.NewGenericObject([]byte("payload"))
	require.NoError(t, b.AddObject(x))

	dup := model.NewGenericObject([]byte("payload"))
	err := b.AddObject(dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, model.ErrorCodeDuplicate, b.AddObjectErrCode(dup))

	// After deleting the original, the same payload is insertable again.
	_, err = b.DeleteObject(x.ID())
	require.NoError(t, err)
	assert.NoError(t, b.AddObject(dup))
}

func TestLocalBucket_AddObjects_CollectsFailures(t *testing.T) {
	b, err := NewLocal(func(o *Options) {
		o.Capacity = 2
	})
	require.NoError(t, err)

	objects := []model.Object{obj(t, 1), obj(t, 1), obj(t, 1)}
	err = b.AddObjects(objects)

	var bulk *BulkAddError
	require.ErrorAs(t, err, &bulk)
	assert.Equal(t, 2, bulk.Inserted)
	require.Len(t, bulk.Failed, 1)

	var cf *ErrCapacityFull
	assert.ErrorAs(t, bulk.Failed[0].Err, &cf)
}

func TestLocalBucket_InvalidOptions(t *testing.T) {
	_, err := NewLocal()
	assert.Error(t, err, "capacity is required")

	_, err = NewLocal(func(o *Options) {
		o.Capacity = 10
		o.SoftCapacity = 20
	})
	assert.Error(t, err, "soft capacity above capacity")

	_, err = NewLocal(func(o *Options) {
		o.Capacity = 10
		o.LowOccupation = 20
	})
	assert.Error(t, err, "low occupation above capacity")
}

func TestErrorsAreTyped(t *testing.T) {
	var cf error = &ErrCapacityFull{Capacity: 1, Occupation: 1, Size: 1}
	assert.Contains(t, cf.Error(), "capacity full")

	fr := asFilterReject(errors.New("bad region"))
	var typed *ErrFilterReject
	require.ErrorAs(t, fr, &typed)
	assert.Equal(t, "bad region", typed.Reason)
}
