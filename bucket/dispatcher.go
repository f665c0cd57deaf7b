package bucket

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/bucketgo/storage"
)

// dispatcherSerial provides the fixed global order for cross-dispatcher
// locking.
var dispatcherSerial atomic.Uint64

// DispatcherOptions configure a Dispatcher.
type DispatcherOptions struct {
	// MaxBuckets is the maximum number of buckets the dispatcher may hold.
	// Required, > 0.
	MaxBuckets int

	// DefaultBucket seeds the Options of every bucket the dispatcher
	// creates; per-create option functions are applied on top.
	DefaultBucket Options

	// AutoFilters are factories invoked for every created or adopted
	// bucket; each produced filter is registered on the new bucket. Filter
	// state is therefore per-bucket, not shared.
	AutoFilters []func() Filter

	// Logger receives structured dispatcher events. Defaults to a
	// discarding logger.
	Logger *slog.Logger

	// Metrics receives bucket lifecycle events, scoped to this dispatcher.
	Metrics MetricsObserver
}

// Dispatcher owns a bounded set of buckets, assigns their IDs and supports
// moving buckets between dispatchers.
type Dispatcher struct {
	mu      sync.Mutex
	serial  uint64
	opts    DispatcherOptions
	buckets map[ID]*LocalBucket
	nextID  ID
	logger  *slog.Logger
	metrics MetricsObserver
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(optFns ...func(o *DispatcherOptions)) (*Dispatcher, error) {
	opts := DispatcherOptions{
		Metrics: NoopMetricsObserver{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxBuckets <= 0 {
		return nil, fmt.Errorf("bucket: dispatcher max buckets must be positive, got %d", opts.MaxBuckets)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsObserver{}
	}

	return &Dispatcher{
		serial:  dispatcherSerial.Add(1),
		opts:    opts,
		buckets: make(map[ID]*LocalBucket),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Count returns the number of owned buckets.
func (d *Dispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buckets)
}

// MaxBuckets returns the bucket ceiling.
func (d *Dispatcher) MaxBuckets() int { return d.opts.MaxBuckets }

// CreateBucket creates a bucket backed by a storage of the given kind,
// assigns it the next unique ID and registers the dispatcher's auto
// filters. It fails with ErrDispatcherFull when the dispatcher already
// holds MaxBuckets buckets.
func (d *Dispatcher) CreateBucket(kind storage.Kind, params storage.Params, optFns ...func(o *Options)) (*LocalBucket, error) {
	st, err := storage.New(kind, params)
	if err != nil {
		return nil, err
	}

	opts := d.opts.DefaultBucket
	b, err := NewLocal(func(o *Options) {
		*o = opts
		o.Storage = st
		o.Logger = d.logger
		o.Metrics = d.metrics
		for _, fn := range optFns {
			fn(o)
		}
	})
	if err != nil {
		_ = st.Destroy()
		return nil, err
	}

	if err := d.adopt(b); err != nil {
		_ = st.Destroy()
		return nil, err
	}

	return b, nil
}

// AddBucket re-homes a standalone bucket into this dispatcher. Adding a
// bucket that already belongs to this dispatcher is a no-op; adding one
// owned by a different dispatcher fails with ErrAlreadyHomed.
func (d *Dispatcher) AddBucket(b *LocalBucket) error {
	switch owner := b.getOwner(); owner {
	case nil:
	case d:
		return nil
	default:
		return ErrAlreadyHomed
	}

	return d.adopt(b)
}

// adopt assigns an ID, registers auto filters and records the bucket. The
// ownership claim happens under the bucket's lock so that two dispatchers
// racing over the same standalone bucket cannot both adopt it.
func (d *Dispatcher) adopt(b *LocalBucket) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.buckets) >= d.opts.MaxBuckets {
		return ErrDispatcherFull
	}

	id := d.nextID + 1
	claimed, err := b.claimOwner(d, id)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	d.nextID = id
	d.buckets[id] = b

	for _, newFilter := range d.opts.AutoFilters {
		b.RegisterFilter(newFilter())
	}

	d.metrics.OnBucketCreated(id)
	d.logger.Info("bucket adopted", "bucket", id, "buckets", len(d.buckets))

	return nil
}

// GetBucket returns the bucket with the given ID, or ErrUnknownBucket.
func (d *Dispatcher) GetBucket(id ID) (*LocalBucket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buckets[id]
	if !ok {
		return nil, ErrUnknownBucket
	}
	return b, nil
}

// Buckets returns the owned buckets in unspecified order.
func (d *Dispatcher) Buckets() []*LocalBucket {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*LocalBucket, 0, len(d.buckets))
	for _, b := range d.buckets {
		out = append(out, b)
	}
	return out
}

// RemoveBucket detaches the bucket, resets its ID to the sentinel and
// finalizes its transient resources; stored data in a persistent storage is
// kept. The detached bucket is returned.
func (d *Dispatcher) RemoveBucket(id ID) (*LocalBucket, error) {
	d.mu.Lock()
	b, ok := d.buckets[id]
	if !ok {
		d.mu.Unlock()
		return nil, ErrUnknownBucket
	}
	delete(d.buckets, id)
	d.mu.Unlock()

	b.setOwner(nil, UnassignedID)
	d.metrics.OnBucketRemoved(id)
	d.logger.Info("bucket removed", "bucket", id)

	if err := b.Close(); err != nil {
		return b, err
	}

	return b, nil
}

// detach removes the bucket from the bookkeeping without finalizing it.
// Caller holds d.mu.
func (d *Dispatcher) detach(id ID) (*LocalBucket, error) {
	b, ok := d.buckets[id]
	if !ok {
		return nil, ErrUnknownBucket
	}
	delete(d.buckets, id)
	d.metrics.OnBucketRemoved(id)
	return b, nil
}

// MoveBucket atomically re-homes the bucket into target. Both dispatcher
// locks are taken in creation-serial order so that two concurrent moves in
// opposite directions cannot deadlock.
func (d *Dispatcher) MoveBucket(id ID, target *Dispatcher) (*LocalBucket, error) {
	if target == d {
		return d.GetBucket(id)
	}

	first, second := d, target
	if second.serial < first.serial {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if len(target.buckets) >= target.opts.MaxBuckets {
		return nil, ErrDispatcherFull
	}

	b, err := d.detach(id)
	if err != nil {
		return nil, err
	}

	target.nextID++
	newID := target.nextID
	b.setOwner(target, newID)
	target.buckets[newID] = b

	for _, newFilter := range target.opts.AutoFilters {
		b.RegisterFilter(newFilter())
	}

	target.metrics.OnBucketCreated(newID)
	d.logger.Info("bucket moved", "bucket", id, "new_bucket", newID)

	return b, nil
}

// Destroy tears down the dispatcher and destroys every owned bucket,
// including persisted storage data. The first failure is reported but the
// teardown continues.
func (d *Dispatcher) Destroy() error {
	d.mu.Lock()
	buckets := d.buckets
	d.buckets = make(map[ID]*LocalBucket)
	d.mu.Unlock()

	var firstErr error
	for id, b := range buckets {
		b.setOwner(nil, UnassignedID)
		if err := b.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.metrics.OnBucketRemoved(id)
	}

	return firstErr
}
