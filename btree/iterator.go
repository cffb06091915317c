package btree

import (
	"github.com/pkg/errors"

	"emberdb/page"
)

// Iterator walks an index's entries in key order starting from a
// given lower bound, following leaf sibling pointers rather than
// re-descending from the root for each step.
type Iterator struct {
	idx    *Index
	leafID page.ID
	p      *page.Page
	pos    int
	done   bool
}

// SeekGE returns an iterator positioned at the first entry with key
// >= start. An empty tree yields a done iterator.
func (idx *Index) SeekGE(start Key) (*Iterator, error) {
	idx.rootMu.RLock()
	defer idx.rootMu.RUnlock()

	root := idx.header.RootID(idx.name)
	if root == page.InvalidID {
		return &Iterator{done: true}, nil
	}

	cur := root
	for {
		p, err := idx.pool.FetchPage(cur)
		if err != nil {
			return nil, errors.Wrap(err, "btree: seek")
		}
		if isLeaf(p) {
			l := asLeaf(p)
			pos, _ := l.Find(start)
			it := &Iterator{idx: idx, leafID: cur, p: p, pos: pos}
			it.skipToValid()
			return it, nil
		}
		n := asInternal(p)
		child := n.ChildAt(n.ChildIndexForKey(start))
		idx.pool.UnpinPage(cur, false)
		cur = child
	}
}

// skipToValid advances across empty/exhausted leaves until pos points
// at a real entry or the chain ends.
func (it *Iterator) skipToValid() {
	for {
		if it.p == nil {
			it.done = true
			return
		}
		l := asLeaf(it.p)
		if it.pos < l.Size() {
			return
		}
		next := l.Next()
		it.idx.pool.UnpinPage(it.leafID, false)
		if next == page.InvalidID {
			it.p = nil
			it.done = true
			return
		}
		p, err := it.idx.pool.FetchPage(next)
		if err != nil {
			it.p = nil
			it.done = true
			return
		}
		it.leafID = next
		it.p = p
		it.pos = 0
	}
}

// Valid reports whether Key/Value may be called.
func (it *Iterator) Valid() bool { return !it.done }

// Key returns the current entry's key.
func (it *Iterator) Key() Key { return asLeaf(it.p).KeyAt(it.pos) }

// Value returns the current entry's RID.
func (it *Iterator) Value() RID { return asLeaf(it.p).RIDAt(it.pos) }

// Next advances to the following entry.
func (it *Iterator) Next() {
	if it.done {
		return
	}
	it.pos++
	it.skipToValid()
}

// Close releases the iterator's pinned leaf, if any. Callers that
// exhaust the iterator via repeated Next need not call Close, since
// skipToValid already unpins each leaf as it moves off it; Close only
// matters for an iterator abandoned mid-scan.
func (it *Iterator) Close() {
	if it.p != nil {
		it.idx.pool.UnpinPage(it.leafID, false)
		it.p = nil
		it.done = true
	}
}
