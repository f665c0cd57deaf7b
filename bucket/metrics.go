package bucket

import "time"

// MetricsObserver receives bucket-level events. It replaces process-global
// statistic registries: an observer is injected per dispatcher (or per
// standalone bucket) and its lifecycle is scoped to the owner.
type MetricsObserver interface {
	// OnAdd is called after each insert attempt.
	OnAdd(bucketID ID, duration time.Duration, err error)

	// OnDelete is called after each delete attempt.
	OnDelete(bucketID ID, duration time.Duration, err error)

	// OnQuery is called after each query evaluation with the number of
	// answer objects contributed.
	OnQuery(bucketID ID, answers int, duration time.Duration, err error)

	// OnSplit is called after a split attempt with the number of objects
	// moved out.
	OnSplit(bucketID ID, moved int, duration time.Duration, err error)

	// OnBucketCreated is called when a dispatcher creates or adopts a
	// bucket.
	OnBucketCreated(bucketID ID)

	// OnBucketRemoved is called when a dispatcher releases a bucket.
	OnBucketRemoved(bucketID ID)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnAdd(ID, time.Duration, error)           {}
func (NoopMetricsObserver) OnDelete(ID, time.Duration, error)        {}
func (NoopMetricsObserver) OnQuery(ID, int, time.Duration, error)    {}
func (NoopMetricsObserver) OnSplit(ID, int, time.Duration, error)    {}
func (NoopMetricsObserver) OnBucketCreated(ID)                       {}
func (NoopMetricsObserver) OnBucketRemoved(ID)                       {}
