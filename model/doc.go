// Package model defines the leaf data contracts shared by all bucketgo
// packages: the stored object interface, process-scoped object identifiers,
// and the operation contracts consumed by the navigation and algorithm
// layers.
//
// The package deliberately has no dependency on the rest of the module so
// that storage, index, bucket and navigation can all import it without
// cycles.
package model
