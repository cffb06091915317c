package btree

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"emberdb/page"
)

// setParentOf updates the parent-page-id field stored in id's own
// header. Every node keeps this back-pointer up to date across splits
// and merges; deletion itself finds parents and siblings through the
// stack of pages latched on the way down, not through this field.
func (idx *Index) setParentOf(id page.ID, parent page.ID) error {
	p, err := idx.pool.FetchPage(id)
	if err != nil {
		return errors.Wrapf(err, "btree: set parent of page %d", id)
	}
	setParentID(p, parent)
	return idx.pool.UnpinPage(id, true)
}

// splitLeaf moves l's upper half into a freshly allocated right
// sibling and links the two into the leaf chain. The caller has
// already inserted its pending pair, so l holds MaxSize entries here;
// the right sibling's first key is copied up as the separator (spec
// 4.5's "copy up" leaf-split rule).
func (idx *Index) splitLeaf(l leafView, leftID page.ID) (page.ID, error) {
	rightID, rp, err := idx.pool.NewPage()
	if err != nil {
		return page.InvalidID, errors.Wrap(err, "btree: split leaf")
	}
	right := initLeaf(rp, rightID, l.ParentID(), l.MaxSize())
	l.MoveRightHalfTo(right)
	if err := idx.pool.UnpinPage(rightID, true); err != nil {
		return page.InvalidID, err
	}
	idx.log.Debug("split leaf", zap.String("index", idx.name),
		zap.Int32("left", int32(leftID)), zap.Int32("right", int32(rightID)))
	return rightID, nil
}

// splitInternal moves n's upper half (minus the promoted middle key)
// into a freshly allocated right sibling and reparents every child
// that moved, per spec 4.5's "push up" internal-split rule.
func (idx *Index) splitInternal(n internalView, leftID page.ID) (page.ID, Key, error) {
	rightID, rp, err := idx.pool.NewPage()
	if err != nil {
		return page.InvalidID, 0, errors.Wrap(err, "btree: split internal")
	}
	right := initInternal(rp, rightID, n.ParentID(), n.MaxSize())
	promoteKey := n.MoveRightHalfTo(right)

	for i := 0; i < right.Size(); i++ {
		if err := idx.setParentOf(right.ChildAt(i), rightID); err != nil {
			idx.pool.UnpinPage(rightID, true)
			return page.InvalidID, 0, err
		}
	}
	if err := idx.pool.UnpinPage(rightID, true); err != nil {
		return page.InvalidID, 0, err
	}
	idx.log.Debug("split internal", zap.String("index", idx.name),
		zap.Int32("left", int32(leftID)), zap.Int32("right", int32(rightID)), zap.Int64("promoted", promoteKey))
	return rightID, promoteKey, nil
}
