package btree

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"emberdb/page"
)

// minOccupancy is the minimum child count a non-root internal node
// must maintain (ceiling of MaxSize/2).
func minOccupancy(maxSize int) int { return (maxSize + 1) / 2 }

// leafMinOccupancy is the minimum entry count a non-root leaf must
// maintain (floor of MaxSize/2, not the internal node's ceiling).
func leafMinOccupancy(maxSize int) int { return maxSize / 2 }

// Remove deletes key, reporting ErrKeyNotFound if it is absent.
func (idx *Index) Remove(key Key) error {
	idx.rootMu.Lock()
	defer idx.rootMu.Unlock()

	root := idx.header.RootID(idx.name)
	if root == page.InvalidID {
		return ErrKeyNotFound
	}

	var stack []ancestor
	cur := root
	for {
		p, err := idx.pool.FetchPage(cur)
		if err != nil {
			idx.releaseAncestorsDirty(stack, false)
			return errors.Wrap(err, "btree: remove")
		}
		p.Lock()

		isRoot := len(stack) == 0 && cur == root
		if isLeaf(p) {
			l := asLeaf(p)
			if isRoot || l.Size()-1 >= leafMinOccupancy(l.MaxSize()) {
				stack = idx.releaseAncestors(stack)
			}
			stack = append(stack, ancestor{cur, p})
			break
		}

		n := asInternal(p)
		if isRoot || n.Size()-1 >= minOccupancy(n.MaxSize()) {
			stack = idx.releaseAncestors(stack)
		}
		stack = append(stack, ancestor{cur, p})
		cur = n.ChildAt(n.ChildIndexForKey(key))
	}

	leafFrame := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	l := asLeaf(leafFrame.p)

	i, ok := l.Find(key)
	if !ok {
		leafFrame.p.Unlock()
		idx.pool.UnpinPage(leafFrame.id, false)
		idx.releaseAncestorsDirty(stack, false)
		return ErrKeyNotFound
	}
	l.RemoveAt(i)

	if len(stack) == 0 {
		// Leaf is the root, or was safe for removal so its ancestors
		// were already released: no minimum occupancy to enforce. An
		// emptied root leaf stays as an empty tree rather than being
		// torn down, matching the header cell's "root id or invalid"
		// contract without a special empty-root sentinel page.
		leafFrame.p.Unlock()
		idx.pool.UnpinPage(leafFrame.id, true)
		return nil
	}

	if !l.IsUnderflow() {
		leafFrame.p.Unlock()
		idx.pool.UnpinPage(leafFrame.id, true)
		idx.releaseAncestorsDirty(stack, false)
		return nil
	}

	return idx.fixLeafUnderflow(l, leafFrame, stack)
}

// fixLeafUnderflow resolves an underflowing leaf by borrowing a pair
// from a sibling if one has enough spare entries, otherwise merging
// with a sibling and propagating the resulting child removal upward.
func (idx *Index) fixLeafUnderflow(l leafView, leafFrame ancestor, stack []ancestor) error {
	parentFrame := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	parent := asInternal(parentFrame.p)
	myIdx := parent.IndexOfChild(leafFrame.id)

	if myIdx > 0 {
		leftID := parent.ChildAt(myIdx - 1)
		leftPage, err := idx.pool.FetchPage(leftID)
		if err != nil {
			return idx.abortRemove(err, leafFrame, parentFrame, stack)
		}
		leftPage.Lock()
		left := asLeaf(leftPage)
		if left.Size()-1 >= leafMinOccupancy(left.MaxSize()) {
			l.BorrowFromLeft(left)
			parent.setPair(myIdx, l.KeyAt(0), leafFrame.id)
			leftPage.Unlock()
			idx.pool.UnpinPage(leftID, true)
			idx.finishRemove(leafFrame, parentFrame, stack, true)
			return nil
		}
		leftPage.Unlock()
		idx.pool.UnpinPage(leftID, false)
	}

	if myIdx < parent.Size()-1 {
		rightID := parent.ChildAt(myIdx + 1)
		rightPage, err := idx.pool.FetchPage(rightID)
		if err != nil {
			return idx.abortRemove(err, leafFrame, parentFrame, stack)
		}
		rightPage.Lock()
		right := asLeaf(rightPage)
		if right.Size()-1 >= leafMinOccupancy(right.MaxSize()) {
			l.BorrowFromRight(right)
			parent.setPair(myIdx+1, right.KeyAt(0), rightID)
			rightPage.Unlock()
			idx.pool.UnpinPage(rightID, true)
			idx.finishRemove(leafFrame, parentFrame, stack, true)
			return nil
		}
		rightPage.Unlock()
		idx.pool.UnpinPage(rightID, false)
	}

	// No sibling can donate: merge. Prefer absorbing into the left
	// sibling; otherwise pull the right sibling into this leaf.
	if myIdx > 0 {
		leftID := parent.ChildAt(myIdx - 1)
		leftPage, err := idx.pool.FetchPage(leftID)
		if err != nil {
			return idx.abortRemove(err, leafFrame, parentFrame, stack)
		}
		leftPage.Lock()
		left := asLeaf(leftPage)
		left.MergeFrom(l)
		leftPage.Unlock()
		idx.pool.UnpinPage(leftID, true)
		leafFrame.p.Unlock()
		idx.pool.UnpinPage(leafFrame.id, false)
		idx.pool.DeletePage(leafFrame.id)
		parent.RemoveAt(myIdx)
		idx.log.Debug("merge leaf", zap.String("index", idx.name),
			zap.Int32("survivor", int32(leftID)), zap.Int32("removed", int32(leafFrame.id)))
		return idx.propagateRemoval(parentFrame, stack)
	}

	rightID := parent.ChildAt(myIdx + 1)
	rightPage, err := idx.pool.FetchPage(rightID)
	if err != nil {
		return idx.abortRemove(err, leafFrame, parentFrame, stack)
	}
	rightPage.Lock()
	right := asLeaf(rightPage)
	l.MergeFrom(right)
	rightPage.Unlock()
	idx.pool.UnpinPage(rightID, false)
	idx.pool.DeletePage(rightID)
	leafFrame.p.Unlock()
	idx.pool.UnpinPage(leafFrame.id, true)
	parent.RemoveAt(myIdx + 1)
	return idx.propagateRemoval(parentFrame, stack)
}

func (idx *Index) finishRemove(leafFrame, parentFrame ancestor, stack []ancestor, parentDirty bool) {
	leafFrame.p.Unlock()
	idx.pool.UnpinPage(leafFrame.id, true)
	parentFrame.p.Unlock()
	idx.pool.UnpinPage(parentFrame.id, parentDirty)
	idx.releaseAncestorsDirty(stack, false)
}

func (idx *Index) abortRemove(err error, leafFrame, parentFrame ancestor, stack []ancestor) error {
	leafFrame.p.Unlock()
	idx.pool.UnpinPage(leafFrame.id, false)
	parentFrame.p.Unlock()
	idx.pool.UnpinPage(parentFrame.id, false)
	idx.releaseAncestorsDirty(stack, false)
	return errors.Wrap(err, "btree: remove")
}

// propagateRemoval handles an internal node (nodeFrame) that just lost
// one child+key: if it's the root, collapse it away if only one child
// remains; if it underflows, borrow from or merge with a sibling via
// its own parent (next on stack), recursing upward as needed.
func (idx *Index) propagateRemoval(nodeFrame ancestor, stack []ancestor) error {
	n := asInternal(nodeFrame.p)

	if len(stack) == 0 {
		// nodeFrame is the root.
		if n.Size() == 1 {
			newRoot := n.ChildAt(0)
			nodeFrame.p.Unlock()
			idx.pool.UnpinPage(nodeFrame.id, true)
			idx.pool.DeletePage(nodeFrame.id)
			if err := idx.setParentOf(newRoot, page.InvalidID); err != nil {
				return errors.Wrap(err, "btree: collapse root")
			}
			idx.log.Debug("collapse root", zap.String("index", idx.name),
				zap.Int32("old_root", int32(nodeFrame.id)), zap.Int32("new_root", int32(newRoot)))
			return idx.header.SetRootID(idx.name, newRoot)
		}
		nodeFrame.p.Unlock()
		idx.pool.UnpinPage(nodeFrame.id, true)
		return nil
	}

	if !n.IsUnderflow() {
		nodeFrame.p.Unlock()
		idx.pool.UnpinPage(nodeFrame.id, true)
		idx.releaseAncestorsDirty(stack, false)
		return nil
	}

	return idx.fixInternalUnderflow(n, nodeFrame, stack)
}

func (idx *Index) fixInternalUnderflow(n internalView, nodeFrame ancestor, stack []ancestor) error {
	parentFrame := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	parent := asInternal(parentFrame.p)
	myIdx := parent.IndexOfChild(nodeFrame.id)

	if myIdx > 0 {
		leftID := parent.ChildAt(myIdx - 1)
		leftPage, err := idx.pool.FetchPage(leftID)
		if err != nil {
			return idx.abortRemove(err, nodeFrame, parentFrame, stack)
		}
		leftPage.Lock()
		left := asInternal(leftPage)
		if left.Size()-1 >= minOccupancy(left.MaxSize()) {
			sep := parent.KeyAt(myIdx)
			newSep := n.BorrowFromLeft(left, sep)
			if err := idx.setParentOf(n.ChildAt(0), nodeFrame.id); err != nil {
				return idx.abortRemove(err, nodeFrame, parentFrame, stack)
			}
			parent.setPair(myIdx, newSep, nodeFrame.id)
			leftPage.Unlock()
			idx.pool.UnpinPage(leftID, true)
			idx.finishRemove(nodeFrame, parentFrame, stack, true)
			return nil
		}
		leftPage.Unlock()
		idx.pool.UnpinPage(leftID, false)
	}

	if myIdx < parent.Size()-1 {
		rightID := parent.ChildAt(myIdx + 1)
		rightPage, err := idx.pool.FetchPage(rightID)
		if err != nil {
			return idx.abortRemove(err, nodeFrame, parentFrame, stack)
		}
		rightPage.Lock()
		right := asInternal(rightPage)
		if right.Size()-1 >= minOccupancy(right.MaxSize()) {
			sep := parent.KeyAt(myIdx + 1)
			newSep := n.BorrowFromRight(right, sep)
			movedChild := n.ChildAt(n.Size() - 1)
			if err := idx.setParentOf(movedChild, nodeFrame.id); err != nil {
				return idx.abortRemove(err, nodeFrame, parentFrame, stack)
			}
			parent.setPair(myIdx+1, newSep, rightID)
			rightPage.Unlock()
			idx.pool.UnpinPage(rightID, true)
			idx.finishRemove(nodeFrame, parentFrame, stack, true)
			return nil
		}
		rightPage.Unlock()
		idx.pool.UnpinPage(rightID, false)
	}

	if myIdx > 0 {
		leftID := parent.ChildAt(myIdx - 1)
		leftPage, err := idx.pool.FetchPage(leftID)
		if err != nil {
			return idx.abortRemove(err, nodeFrame, parentFrame, stack)
		}
		leftPage.Lock()
		left := asInternal(leftPage)
		sep := parent.KeyAt(myIdx)
		movedCount := n.Size()
		left.MergeFrom(sep, n)
		for i := left.Size() - movedCount; i < left.Size(); i++ {
			if err := idx.setParentOf(left.ChildAt(i), leftID); err != nil {
				leftPage.Unlock()
				idx.pool.UnpinPage(leftID, true)
				return idx.abortRemove(err, nodeFrame, parentFrame, stack)
			}
		}
		leftPage.Unlock()
		idx.pool.UnpinPage(leftID, true)
		nodeFrame.p.Unlock()
		idx.pool.UnpinPage(nodeFrame.id, false)
		idx.pool.DeletePage(nodeFrame.id)
		parent.RemoveAt(myIdx)
		return idx.propagateRemoval(parentFrame, stack)
	}

	rightID := parent.ChildAt(myIdx + 1)
	rightPage, err := idx.pool.FetchPage(rightID)
	if err != nil {
		return idx.abortRemove(err, nodeFrame, parentFrame, stack)
	}
	rightPage.Lock()
	right := asInternal(rightPage)
	sep := parent.KeyAt(myIdx + 1)
	base := n.Size()
	n.MergeFrom(sep, right)
	for i := base; i < n.Size(); i++ {
		if err := idx.setParentOf(n.ChildAt(i), nodeFrame.id); err != nil {
			rightPage.Unlock()
			idx.pool.UnpinPage(rightID, false)
			return idx.abortRemove(err, nodeFrame, parentFrame, stack)
		}
	}
	rightPage.Unlock()
	idx.pool.UnpinPage(rightID, false)
	idx.pool.DeletePage(rightID)
	nodeFrame.p.Unlock()
	idx.pool.UnpinPage(nodeFrame.id, true)
	parent.RemoveAt(myIdx + 1)
	return idx.propagateRemoval(parentFrame, stack)
}
