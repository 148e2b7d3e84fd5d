// Package dag holds a small concurrency-safe directed graph keyed by string
// IDs. The package reader uses it to record dependency edges between
// packages and to reject cyclic dependency declarations before levels are
// computed.
package dag
