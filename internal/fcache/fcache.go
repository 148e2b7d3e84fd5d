// Package fcache memoizes per-file results across builds. An entry is only
// returned while the file's modification time and size are unchanged, and
// the watcher invalidates entries explicitly when it sees a change.
package fcache

import (
	"io/fs"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/assetgrid/internal/metrics"
)

// DefaultSize is the number of files kept when no size is configured.
const DefaultSize = 4096

// Stamp identifies one version of a file.
type Stamp struct {
	ModTime time.Time
	Size    int64
}

// StampOf returns the stamp of info.
func StampOf(info fs.FileInfo) Stamp {
	return Stamp{ModTime: info.ModTime(), Size: info.Size()}
}

type entry[V any] struct {
	stamp Stamp
	value V
}

// Cache is a size-bounded LRU of per-path values. It is safe for
// concurrent use.
type Cache[V any] struct {
	lru *lru.Cache[string, entry[V]]
}

// New returns a cache holding at most size paths.
func New[V any](size int) (*Cache[V], error) {
	if size <= 0 {
		size = DefaultSize
	}
	l, err := lru.New[string, entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: l}, nil
}

// Get returns the value for path if it was stored under the same stamp.
func (c *Cache[V]) Get(path string, stamp Stamp) (V, bool) {
	e, ok := c.lru.Get(path)
	if !ok || !e.stamp.ModTime.Equal(stamp.ModTime) || e.stamp.Size != stamp.Size {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		var zero V
		return zero, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return e.value, true
}

// Add stores v for path under stamp.
func (c *Cache[V]) Add(path string, stamp Stamp, v V) {
	c.lru.Add(path, entry[V]{stamp: stamp, value: v})
}

// Invalidate drops the given paths.
func (c *Cache[V]) Invalidate(paths ...string) {
	for _, p := range paths {
		c.lru.Remove(p)
	}
}

// Purge drops everything.
func (c *Cache[V]) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached paths.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}
