// Package hashcache is the in-process (path)->(fingerprint, mtime, size)
// cache for re-scans. db/kv.go caches only catalog-side hashes; wired
// here instead to dgraph-io/ristretto, an otherwise-unused dependency in
// the reference stack — a cost-aware concurrent cache is exactly what a
// path-keyed revalidated hash cache needs. Persistence across restarts
// is an open question, left to the caller; this cache is process-memory
// only.
package hashcache

import (
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/romvault/romvault/types"
)

// Record is one cached fingerprint, valid only while the file at its key
// path still has the recorded ModTime/Size.
type Record struct {
	Fingerprint types.Fingerprint
	ModTime     time.Time
	Size        int64
}

// Cache is a concurrent, revalidated path -> Record cache.
type Cache struct {
	store *ristretto.Cache
}

// New constructs a Cache sized for maxEntries-ish working sets; ristretto
// takes a counter budget roughly 10x the expected number of keys.
func New(maxEntries int64) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{store: store}, nil
}

// Put records a fingerprint for path, idempotently overwriting any
// prior entry for the same key.
func (c *Cache) Put(path string, rec Record) {
	c.store.Set(path, rec, 1)
	c.store.Wait()
}

// Get revalidates path's mtime/size against the stored record; on
// mismatch (or miss) the record is evicted and ok is false.
func (c *Cache) Get(path string, currentModTime time.Time, currentSize int64) (Record, bool) {
	v, found := c.store.Get(path)
	if !found {
		return Record{}, false
	}
	rec := v.(Record)
	if !rec.ModTime.Equal(currentModTime) || rec.Size != currentSize {
		c.store.Del(path)
		return Record{}, false
	}
	return rec, true
}

// Peek returns path's cached record, if any, without revalidating it
// against a current mtime/size. Used by callers that need to tell a
// brand-new path apart from one whose record went stale, which a
// validating Get can't distinguish since it evicts on mismatch either way.
func (c *Cache) Peek(path string) (Record, bool) {
	v, found := c.store.Get(path)
	if !found {
		return Record{}, false
	}
	return v.(Record), true
}

// Evict forcibly removes path's entry, used when a hash job is
// recomputed or a file is known to have changed out from under a watch.
func (c *Cache) Evict(path string) {
	c.store.Del(path)
}

// Close releases ristretto's background goroutines.
func (c *Cache) Close() {
	c.store.Close()
}
