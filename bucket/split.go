package bucket

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/hupe1980/bucketgo/model"
)

// Split implements Bucket.
//
// For every stored object the policy decides a partition; objects matching
// stayPartition remain, all others are moved into targets[partition],
// lazily created through factory when nil. Each move is remove-then-add.
//
// A capacity or occupation violation aborts the split with
// *ErrSplitInterrupted: the source bucket is internally consistent but only
// partially split, and the interrupted split must not be resumed without
// reinitializing. No automatic rollback is attempted.
func (b *LocalBucket) Split(policy SplitPolicy, targets []Bucket, factory Factory, stayPartition int) (int, error) {
	start := time.Now()
	moved, err := b.split(policy, targets, factory, stayPartition)
	b.metrics.OnSplit(b.ID(), moved, time.Since(start), err)
	return moved, err
}

func (b *LocalBucket) split(policy SplitPolicy, targets []Bucket, factory Factory, stayPartition int) (int, error) {
	if len(targets) < policy.Partitions() {
		return 0, fmt.Errorf("bucket: split needs %d target slots, got %d", policy.Partitions(), len(targets))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	moved := 0
	it := b.idx.All()
	for it.Next() {
		obj := it.Object()

		partition, err := policy.Match(obj)
		if err != nil {
			return moved, &ErrSplitInterrupted{Moved: moved, cause: err}
		}
		if partition < 0 || partition >= policy.Partitions() {
			return moved, &ErrSplitInterrupted{Moved: moved,
				cause: fmt.Errorf("policy returned partition %d outside [0,%d)", partition, policy.Partitions())}
		}
		if partition == stayPartition {
			continue
		}

		if targets[partition] == nil {
			target, err := factory(partition)
			if err != nil {
				return moved, &ErrSplitInterrupted{Moved: moved, cause: err}
			}
			targets[partition] = target
		}

		removed, err := b.removeCurrent(it)
		if err != nil {
			return moved, &ErrSplitInterrupted{Moved: moved, cause: err}
		}
		if err := targets[partition].AddObject(removed); err != nil {
			// The object is already out of this bucket; the split contract
			// documents this as a hazard rather than rolling back.
			return moved, &ErrSplitInterrupted{Moved: moved, cause: err}
		}
		moved++
	}
	if err := it.Err(); err != nil {
		return moved, &ErrSplitInterrupted{Moved: moved, cause: err}
	}

	b.logger.Info("bucket split", "bucket", b.id, "moved", moved, "partitions", policy.Partitions())

	return moved, nil
}

// LocatorHashPolicy partitions objects by the xxhash of their locator,
// modulo the partition count. It distributes uniformly and is stable for a
// given locator.
type LocatorHashPolicy struct {
	NumPartitions int
}

var _ SplitPolicy = (*LocatorHashPolicy)(nil)

// Match implements SplitPolicy.
func (p *LocatorHashPolicy) Match(obj model.Object) (int, error) {
	if p.NumPartitions <= 0 {
		return 0, fmt.Errorf("bucket: locator hash policy needs at least one partition, got %d", p.NumPartitions)
	}
	return int(xxhash.Sum64String(obj.Locator()) % uint64(p.NumPartitions)), nil
}

// Partitions implements SplitPolicy.
func (p *LocatorHashPolicy) Partitions() int { return p.NumPartitions }
