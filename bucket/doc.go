// Package bucket implements the capacity-bounded storage partitions that
// similarity-search algorithms operate over.
//
// A bucket holds opaque stored objects, enforces hard/soft capacity ceilings
// and a low-occupation floor, and runs a chain of before/after hooks around
// every insert and delete. Buckets are created and owned by a Dispatcher,
// which assigns process-unique bucket IDs and can re-home buckets between
// dispatchers. Split redistributes a bucket's objects across partitions
// according to a pluggable policy.
//
// # Concurrency
//
// Every mutating bucket method runs under a single per-bucket critical
// section, so occupation accounting, filter firing and physical storage
// mutation appear atomic to other goroutines. Dispatcher bookkeeping is
// serialized separately; cross-dispatcher moves acquire both dispatcher
// locks in a fixed global order to avoid deadlock.
package bucket
