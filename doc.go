// Package bucketgo provides an embeddable bucket storage core for
// similarity-search engines.
//
// The core partitions stored objects into capacity-bounded buckets and
// drives operations over them:
//
//   - Buckets with hard/soft capacity ceilings, an occupation floor and
//     byte- or count-based accounting
//   - Filter chains with before/after hooks that can observe or veto
//     insertions and deletions
//   - A dispatcher that owns buckets, assigns their IDs and moves buckets
//     between dispatchers without deadlocking
//   - Split policies that redistribute a bucket's objects across partitions
//   - Navigation processors pairing one operation with a queue of
//     processing items, driven step by step, synchronously or on a worker
//     pool
//   - Pluggable storage substrates: in-memory with address reuse, and an
//     optionally compressed disk file
//
// # Quick start
//
// Create a bucket and scan it sequentially:
//
//	b, err := bucket.NewLocal(func(o *bucket.Options) {
//	    o.Capacity = 1 << 20
//	    o.OccupationAsBytes = true
//	})
//	if err != nil {
//	    panic(err)
//	}
//
//	scan := bucketgo.NewSequentialScan(b)
//	defer scan.Close()
//
//	err = scan.Add(ctx, model.NewGenericObject([]byte("payload")))
//
// Spread objects over several buckets and search them in parallel:
//
//	scan, err := bucketgo.NewParallelSequentialScan(4, storage.KindMemory, storage.Params{},
//	    bucketgo.WithBucketOptions(func(o *bucket.Options) {
//	        o.Capacity = 10000
//	    }),
//	)
//	if err != nil {
//	    panic(err)
//	}
//	defer scan.Close()
//
//	n, err := scan.Search(ctx, query) // query is a model.QueryOperation
//
// The package model defines the object and operation contracts, storage the
// addressed substrates, index the ordered view a bucket maintains, bucket
// the container and dispatcher layer, navigation the step-driven processor
// and resource the background concurrency and IO limits.
package bucketgo
