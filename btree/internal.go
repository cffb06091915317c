package btree

import "emberdb/page"

// internalView is a typed accessor over an internal node: size
// children and size-1 real separator keys, stored as size (key,
// child) pairs with slot 0's key left unused (ChildAt(0) is the
// subtree for "less than KeyAt(1)").
type internalView struct{ p *page.Page }

func asInternal(p *page.Page) internalView { return internalView{p} }

func initInternal(p *page.Page, id, parent page.ID, max int) internalView {
	p.Reset()
	setPageType(p, page.TypeInternal)
	setSize(p, 0)
	setMaxSize(p, max)
	setSelfID(p, id)
	setParentID(p, parent)
	return internalView{p}
}

func (n internalView) pairOffset(i int) int { return page.HeaderSize + i*internalPairSize }

func (n internalView) Size() int       { return size(n.p) }
func (n internalView) MaxSize() int    { return maxSize(n.p) }
func (n internalView) SelfID() page.ID { return selfID(n.p) }

func (n internalView) ParentID() page.ID      { return parentID(n.p) }
func (n internalView) SetParentID(id page.ID) { setParentID(n.p, id) }

func (n internalView) KeyAt(i int) Key {
	return getKey(n.p.Data()[n.pairOffset(i):])
}

func (n internalView) ChildAt(i int) page.ID {
	return getPageID(n.p.Data()[n.pairOffset(i)+keySize:])
}

func (n internalView) setPair(i int, k Key, child page.ID) {
	off := n.pairOffset(i)
	buf := n.p.Data()
	putKey(buf[off:], k)
	putPageID(buf[off+keySize:], child)
}

// IsFull reports whether the node has reached capacity and must split
// on the next insertion.
func (n internalView) IsFull() bool { return n.Size() >= n.MaxSize() }

// IsUnderflow reports whether the node holds fewer children than the
// minimum a non-root internal node must maintain.
func (n internalView) IsUnderflow() bool { return n.Size() < (n.MaxSize()+1)/2 }

// ChildIndexForKey returns the index of the child subtree that must
// contain key: the largest i such that KeyAt(i) <= key (KeyAt(0) is
// treated as -infinity).
func (n internalView) ChildIndexForKey(key Key) int {
	lo, hi := 1, n.Size()
	for lo < hi {
		mid := (lo + hi) / 2
		if n.KeyAt(mid) <= key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

// IndexOfChild returns the slot holding child, or -1 if absent.
func (n internalView) IndexOfChild(child page.ID) int {
	for i := 0; i < n.Size(); i++ {
		if n.ChildAt(i) == child {
			return i
		}
	}
	return -1
}

// InitRoot installs the two-child layout created the first time a
// leaf splits: child0 for keys < sepKey, child1 for keys >= sepKey.
func (n internalView) InitRoot(child0 page.ID, sepKey Key, child1 page.ID) {
	n.setPair(0, 0, child0)
	n.setPair(1, sepKey, child1)
	setSize(n.p, 2)
}

// InsertAfter inserts (sepKey, rightChild) immediately after
// leftChild's slot, shifting later pairs right by one.
func (n internalView) InsertAfter(leftChild page.ID, sepKey Key, rightChild page.ID) {
	idx := n.IndexOfChild(leftChild)
	sz := n.Size()
	for i := sz; i > idx+1; i-- {
		n.setPair(i, n.KeyAt(i-1), n.ChildAt(i-1))
	}
	n.setPair(idx+1, sepKey, rightChild)
	setSize(n.p, sz+1)
}

// RemoveAt deletes the pair at index i, shifting later pairs left.
func (n internalView) RemoveAt(i int) {
	sz := n.Size()
	for j := i; j < sz-1; j++ {
		n.setPair(j, n.KeyAt(j+1), n.ChildAt(j+1))
	}
	setSize(n.p, sz-1)
}

// MoveRightHalfTo moves this node's upper half (including the
// promoted middle key, returned separately) to dst. The caller is
// responsible for installing the returned key as the new separator in
// the parent; it is NOT kept in either node (spec 4.5: internal splits
// promote a key rather than copying it).
func (n internalView) MoveRightHalfTo(dst internalView) Key {
	sz := n.Size()
	mid := sz / 2
	promoted := n.KeyAt(mid)
	for i := mid; i < sz; i++ {
		k := n.KeyAt(i)
		if i == mid {
			k = 0 // becomes dst's unused slot-0 key
		}
		dst.setPair(i-mid, k, n.ChildAt(i))
	}
	setSize(dst.p, sz-mid)
	setSize(n.p, mid)
	return promoted
}

// MergeFrom appends src's children after this node's own, inserting
// sepKey as the separator before src's first (formerly slot-0,
// unused-key) child.
func (n internalView) MergeFrom(sepKey Key, src internalView) {
	base := n.Size()
	for i := 0; i < src.Size(); i++ {
		k := src.KeyAt(i)
		if i == 0 {
			k = sepKey
		}
		n.setPair(base+i, k, src.ChildAt(i))
	}
	setSize(n.p, base+src.Size())
}

// BorrowFromLeft moves sibling's last child to the front of this
// node, with parentSepKey becoming this node's new slot-1 key (the old
// slot-0-successor) and the sibling's last key promoted to the
// parent's separator above this node (handled by the caller).
func (n internalView) BorrowFromLeft(sibling internalView, parentSepKey Key) Key {
	last := sibling.Size() - 1
	movedChild := sibling.ChildAt(last)
	newParentSep := sibling.KeyAt(last)
	sibling.RemoveAt(last)

	sz := n.Size()
	for i := sz; i > 0; i-- {
		n.setPair(i, n.KeyAt(i-1), n.ChildAt(i-1))
	}
	n.setPair(0, 0, movedChild)
	n.setPair(1, parentSepKey, n.ChildAt(1))
	setSize(n.p, sz+1)
	return newParentSep
}

// BorrowFromRight moves sibling's first child to the end of this
// node. Returns the sibling's new first separator, which the caller
// installs as the parent's updated separator key.
func (n internalView) BorrowFromRight(sibling internalView, parentSepKey Key) Key {
	movedChild := sibling.ChildAt(0)
	newParentSep := sibling.KeyAt(1)
	sibling.RemoveAt(0)

	sz := n.Size()
	n.setPair(sz, parentSepKey, movedChild)
	setSize(n.p, sz+1)
	return newParentSep
}
