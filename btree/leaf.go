package btree

import "emberdb/page"

// leafView is a typed accessor over a page buffer holding a leaf
// node's bytes: sorted (key, rid) pairs plus a pointer to the next
// leaf in key order, all addressed directly in the underlying page
// buffer (no decode-to-struct round trip).
type leafView struct{ p *page.Page }

func asLeaf(p *page.Page) leafView { return leafView{p} }

func initLeaf(p *page.Page, id, parent page.ID, max int) leafView {
	p.Reset()
	setPageType(p, page.TypeLeaf)
	setSize(p, 0)
	setMaxSize(p, max)
	setSelfID(p, id)
	setParentID(p, parent)
	l := leafView{p}
	l.setNext(page.InvalidID)
	return l
}

func (l leafView) pairOffset(i int) int { return page.LeafHeaderSize + i*leafPairSize }

func (l leafView) Size() int       { return size(l.p) }
func (l leafView) MaxSize() int    { return maxSize(l.p) }
func (l leafView) SelfID() page.ID { return selfID(l.p) }

func (l leafView) ParentID() page.ID        { return parentID(l.p) }
func (l leafView) SetParentID(id page.ID)   { setParentID(l.p, id) }

func (l leafView) Next() page.ID {
	return getPageID(l.p.Data()[offNextID:])
}

func (l leafView) setNext(id page.ID) {
	putPageID(l.p.Data()[offNextID:], id)
}

func (l leafView) KeyAt(i int) Key {
	off := l.pairOffset(i)
	return getKey(l.p.Data()[off:])
}

func (l leafView) RIDAt(i int) RID {
	off := l.pairOffset(i) + keySize
	return getRID(l.p.Data()[off:])
}

func (l leafView) setPair(i int, k Key, r RID) {
	off := l.pairOffset(i)
	buf := l.p.Data()
	putKey(buf[off:], k)
	putRID(buf[off+keySize:], r)
}

// Find returns the index of key within the leaf via binary search,
// and whether it is present.
func (l leafView) Find(key Key) (int, bool) {
	n := l.Size()
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if l.KeyAt(mid) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < n && l.KeyAt(lo) == key {
		return lo, true
	}
	return lo, false
}

// IsFull reports whether the leaf has reached capacity and must split
// before (or immediately after, depending on caller convention) one
// more insertion.
func (l leafView) IsFull() bool { return l.Size() >= l.MaxSize() }

// IsUnderflow reports whether the leaf holds fewer entries than the
// minimum occupancy a non-root leaf must maintain (floor(MaxSize/2),
// unlike an internal node's ceiling).
func (l leafView) IsUnderflow() bool { return l.Size() < leafMinOccupancy(l.MaxSize()) }

// Insert places (key, rid) in sorted position, shifting later pairs
// right by one slot.
func (l leafView) Insert(key Key, rid RID) {
	idx, _ := l.Find(key)
	n := l.Size()
	for i := n; i > idx; i-- {
		l.setPair(i, l.KeyAt(i-1), l.RIDAt(i-1))
	}
	l.setPair(idx, key, rid)
	setSize(l.p, n+1)
}

// RemoveAt deletes the pair at index i, shifting later pairs left.
func (l leafView) RemoveAt(i int) {
	n := l.Size()
	for j := i; j < n-1; j++ {
		l.setPair(j, l.KeyAt(j+1), l.RIDAt(j+1))
	}
	setSize(l.p, n-1)
}

// MoveRightHalfTo appends this leaf's upper half to dst, shrinking
// this leaf to its lower half, and relinks dst into the sibling chain
// after this leaf. Used for splits.
func (l leafView) MoveRightHalfTo(dst leafView) {
	n := l.Size()
	mid := n / 2
	for i := mid; i < n; i++ {
		dst.setPair(i-mid, l.KeyAt(i), l.RIDAt(i))
	}
	setSize(dst.p, n-mid)
	setSize(l.p, mid)
	dst.setNext(l.Next())
	l.setNext(dst.SelfID())
}

// MergeFrom appends src's entries after this leaf's own and absorbs
// src's next-pointer. Used when a sibling underflows and merges left.
func (l leafView) MergeFrom(src leafView) {
	base := l.Size()
	for i := 0; i < src.Size(); i++ {
		l.setPair(base+i, src.KeyAt(i), src.RIDAt(i))
	}
	setSize(l.p, base+src.Size())
	l.setNext(src.Next())
}

// BorrowFromLeft moves sibling's last entry to the front of this leaf
// (redistribution during underflow, left sibling donates).
func (l leafView) BorrowFromLeft(sibling leafView) {
	n := sibling.Size()
	k, r := sibling.KeyAt(n-1), sibling.RIDAt(n-1)
	sibling.RemoveAt(n - 1)
	l.Insert(k, r)
}

// BorrowFromRight moves sibling's first entry to the end of this leaf.
func (l leafView) BorrowFromRight(sibling leafView) {
	k, r := sibling.KeyAt(0), sibling.RIDAt(0)
	sibling.RemoveAt(0)
	l.Insert(k, r)
}
