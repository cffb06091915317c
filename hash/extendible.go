// Package hash implements the extendible hash table used as the
// buffer pool's page table: a concurrent map from page id to frame
// index, sized for the expected high write-turnover of page lookups
// without ever requiring a full-table rehash (spec section 4.1).
package hash

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Key is anything the table can hash. The buffer pool keys this table
// by page.ID; bucket_size-boundary tests key it by plain ints, so the
// table is generic over any comparable key with a stable byte
// encoding supplied by the caller.
type Key interface {
	comparable
}

const defaultBucketSize = 4

type entry[K Key, V any] struct {
	key K
	val V
}

type bucket[K Key, V any] struct {
	localDepth int
	entries    []entry[K, V]
}

func newBucket[K Key, V any](localDepth, capacity int) *bucket[K, V] {
	return &bucket[K, V]{localDepth: localDepth, entries: make([]entry[K, V], 0, capacity)}
}

func (b *bucket[K, V]) find(k K) (V, bool) {
	for _, e := range b.entries {
		if e.key == k {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

func (b *bucket[K, V]) upsert(k K, v V) bool {
	for i, e := range b.entries {
		if e.key == k {
			b.entries[i].val = v
			return true
		}
	}
	b.entries = append(b.entries, entry[K, V]{k, v})
	return true
}

func (b *bucket[K, V]) remove(k K) bool {
	for i, e := range b.entries {
		if e.key == k {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Table is a generic extendible hash table keyed by K with values V.
// A single exclusive lock serializes every operation, matching the
// teaching-simplicity design note in spec section 4.1 — the abstract
// key->value contract is what callers (and the finer-grained
// production alternative the spec mentions) must preserve.
type Table[K Key, V any] struct {
	mu          sync.Mutex
	globalDepth int
	bucketSize  int
	hash        func(K) uint64
	directory   []*bucket[K, V]
}

// New creates an extendible hash table whose buckets hold up to
// bucketSize entries each, starting at global depth 0 (a single
// bucket). hashFn lets callers supply their own stable byte encoding
// for K; NewInt32Keyed below wires the common case.
func New[K Key, V any](bucketSize int, hashFn func(K) uint64) *Table[K, V] {
	if bucketSize < 1 {
		bucketSize = defaultBucketSize
	}
	t := &Table[K, V]{
		bucketSize: bucketSize,
		hash:       hashFn,
		directory:  make([]*bucket[K, V], 1),
	}
	t.directory[0] = newBucket[K, V](0, bucketSize)
	return t
}

// NewInt32Keyed builds a table keyed by any key whose underlying type
// is a 32-bit integer (page.ID, plain int32), hashed via xxhash over
// its little-endian byte encoding — grounded in xxhash already being a
// teacher dependency (see DESIGN.md).
func NewInt32Keyed[K ~int32, V any](bucketSize int) *Table[K, V] {
	return New[K, V](bucketSize, func(k K) uint64 {
		var buf [4]byte
		u := uint32(k)
		buf[0] = byte(u)
		buf[1] = byte(u >> 8)
		buf[2] = byte(u >> 16)
		buf[3] = byte(u >> 24)
		return xxhash.Sum64(buf[:])
	})
}

func (t *Table[K, V]) indexOf(k K) int {
	mask := uint64(1)<<uint(t.globalDepth) - 1
	return int(t.hash(k) & mask)
}

// Find returns the value mapped to k, if any.
func (t *Table[K, V]) Find(k K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.directory[t.indexOf(k)].find(k)
}

// Insert upserts (k, value), splitting and possibly doubling the
// directory as many times as needed to make room (spec 4.1).
func (t *Table[K, V]) Insert(k K, value V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertLocked(k, value)
}

func (t *Table[K, V]) insertLocked(k K, value V) {
	for {
		idx := t.indexOf(k)
		b := t.directory[idx]

		if _, exists := b.find(k); exists {
			b.upsert(k, value)
			return
		}
		if len(b.entries) < t.bucketSize {
			b.upsert(k, value)
			return
		}

		t.splitBucket(idx)
		// Loop: re-resolve idx against the (possibly doubled)
		// directory and try again. Guards against the pathological
		// case where a split doesn't relieve the target bucket
		// (spec 4.1's "if insertion still fails, iterate").
	}
}

// splitBucket grows the directory (if needed) and splits the bucket
// at directory slot idx into two buckets at local depth+1.
func (t *Table[K, V]) splitBucket(idx int) {
	old := t.directory[idx]

	if old.localDepth == t.globalDepth {
		t.doubleDirectory()
	}

	newLocalDepth := old.localDepth + 1
	newBkt := newBucket[K, V](newLocalDepth, t.bucketSize)
	old.localDepth = newLocalDepth

	// The high bit that distinguishes the split halves.
	splitBit := uint64(1) << uint(newLocalDepth-1)

	// Every directory slot whose low newLocalDepth bits address this
	// bucket gets rewired: the half with the split bit set points at
	// the new bucket, the other half keeps the old one.
	for i := range t.directory {
		if t.directory[i] != old {
			continue
		}
		if uint64(i)&splitBit != 0 {
			t.directory[i] = newBkt
		}
	}

	// Rehash old's entries between old and newBkt using the low
	// newLocalDepth bits of each key's hash.
	moved := old.entries
	old.entries = old.entries[:0]
	for _, e := range moved {
		if t.hash(e.key)&splitBit != 0 {
			newBkt.entries = append(newBkt.entries, e)
		} else {
			old.entries = append(old.entries, e)
		}
	}
}

// doubleDirectory doubles the directory size and increments
// globalDepth; each new slot i+2^oldDepth points at the same bucket
// as old slot i (spec 4.1).
func (t *Table[K, V]) doubleDirectory() {
	old := t.directory
	t.directory = make([]*bucket[K, V], len(old)*2)
	copy(t.directory, old)
	copy(t.directory[len(old):], old)
	t.globalDepth++
}

// Remove deletes k if present, reporting whether it was found. Bucket
// merging is not implemented (spec 4.1: "not required").
func (t *Table[K, V]) Remove(k K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.directory[t.indexOf(k)].remove(k)
}

// GlobalDepth exposes the directory's address width, for tests.
func (t *Table[K, V]) GlobalDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalDepth
}

// NumBuckets returns the number of distinct buckets currently
// referenced by the directory (several slots may share one bucket).
func (t *Table[K, V]) NumBuckets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := make(map[*bucket[K, V]]struct{})
	for _, b := range t.directory {
		seen[b] = struct{}{}
	}
	return len(seen)
}

// LocalDepth returns the local depth of the bucket addressed by
// directory slot i, for tests.
func (t *Table[K, V]) LocalDepth(i int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.directory[i%len(t.directory)].localDepth
}
