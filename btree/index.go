package btree

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"emberdb/buffer"
	"emberdb/disk"
	"emberdb/page"
)

// Config bounds node fan-out. Real capacity is additionally bounded by
// how many pairs actually fit in a page.Size buffer; NewIndex rejects
// a Config that doesn't fit.
type Config struct {
	LeafMaxSize     int
	InternalMaxSize int
}

// DefaultConfig sizes nodes to fill a page, matching how a production
// B+tree chooses fan-out: as large as the fixed-size page allows.
func DefaultConfig() Config {
	return Config{
		LeafMaxSize:     (page.Size - page.LeafHeaderSize) / leafPairSize,
		InternalMaxSize: (page.Size - page.HeaderSize) / internalPairSize,
	}
}

// Index is a single named B+tree sharing a buffer pool and header
// catalog with any number of sibling indexes over the same file.
//
// rootMu is the root-id cell latch (spec 4.6): every operation
// acquires it before touching the tree, a reader lock for Search and
// a writer lock for Insert/Remove, so a reader can never observe a
// root pointer mid-update and two structural operations can never
// race to install a new root.
type Index struct {
	name   string
	pool   *buffer.Pool
	header *disk.Header
	cfg    Config
	log    *zap.Logger

	rootMu sync.RWMutex
}

// NewIndex opens (or creates, if name has no catalog entry yet) a
// B+tree index named name over pool's backing file.
func NewIndex(name string, pool *buffer.Pool, header *disk.Header, cfg Config) (*Index, error) {
	if cfg.LeafMaxSize < 3 {
		return nil, errors.Errorf("btree: leaf max size must be >= 3, got %d", cfg.LeafMaxSize)
	}
	if cfg.InternalMaxSize < 3 {
		return nil, errors.Errorf("btree: internal max size must be >= 3, got %d", cfg.InternalMaxSize)
	}
	if cfg.LeafMaxSize*leafPairSize+page.LeafHeaderSize > page.Size {
		return nil, errors.Errorf("btree: leaf max size %d does not fit in a page", cfg.LeafMaxSize)
	}
	if cfg.InternalMaxSize*internalPairSize+page.HeaderSize > page.Size {
		return nil, errors.Errorf("btree: internal max size %d does not fit in a page", cfg.InternalMaxSize)
	}
	return &Index{name: name, pool: pool, header: header, cfg: cfg, log: zap.NewNop()}, nil
}

// SetLogger attaches a structured logger for split/merge/root-change
// events. A freshly constructed Index logs nowhere until this is
// called.
func (idx *Index) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	idx.log = log
}

// IsEmpty reports whether the index currently has no root page.
func (idx *Index) IsEmpty() bool {
	idx.rootMu.RLock()
	defer idx.rootMu.RUnlock()
	return idx.header.RootID(idx.name) == page.InvalidID
}

// RootID exposes the current root page id, InvalidID if none, mainly
// for tests and the inspection CLI.
func (idx *Index) RootID() page.ID {
	idx.rootMu.RLock()
	defer idx.rootMu.RUnlock()
	return idx.header.RootID(idx.name)
}

// Search returns the RID stored under key, if present.
func (idx *Index) Search(key Key) (RID, bool, error) {
	idx.rootMu.RLock()
	defer idx.rootMu.RUnlock()

	root := idx.header.RootID(idx.name)
	if root == page.InvalidID {
		return RID{}, false, nil
	}

	cur := root
	for {
		p, err := idx.pool.FetchPage(cur)
		if err != nil {
			return RID{}, false, errors.Wrap(err, "btree: search")
		}
		p.RLock()

		if isLeaf(p) {
			l := asLeaf(p)
			i, ok := l.Find(key)
			var rid RID
			if ok {
				rid = l.RIDAt(i)
			}
			p.RUnlock()
			idx.pool.UnpinPage(cur, false)
			return rid, ok, nil
		}

		n := asInternal(p)
		child := n.ChildAt(n.ChildIndexForKey(key))
		p.RUnlock()
		idx.pool.UnpinPage(cur, false)
		cur = child
	}
}

// ancestor is one locked, pinned page on the path from the root to the
// node currently being examined, kept so its latch/pin can be released
// once the algorithm proves it will not need to modify that ancestor
// (the "safe node" crabbing optimization, spec 4.7).
type ancestor struct {
	id page.ID
	p  *page.Page
}

func (idx *Index) releaseAncestors(stack []ancestor) []ancestor {
	for _, a := range stack {
		a.p.Unlock()
		idx.pool.UnpinPage(a.id, false)
	}
	return stack[:0]
}

func (idx *Index) releaseAncestorsDirty(stack []ancestor, dirty bool) {
	for _, a := range stack {
		a.p.Unlock()
		idx.pool.UnpinPage(a.id, dirty)
	}
}

// Insert adds (key, rid). It reports ErrDuplicateKey if key is already
// present.
func (idx *Index) Insert(key Key, rid RID) error {
	idx.rootMu.Lock()
	defer idx.rootMu.Unlock()

	root := idx.header.RootID(idx.name)
	if root == page.InvalidID {
		id, p, err := idx.pool.NewPage()
		if err != nil {
			return errors.Wrap(err, "btree: insert")
		}
		leaf := initLeaf(p, id, page.InvalidID, idx.cfg.LeafMaxSize)
		leaf.Insert(key, rid)
		idx.pool.UnpinPage(id, true)
		return idx.header.SetRootID(idx.name, id)
	}

	var stack []ancestor
	cur := root
	for {
		p, err := idx.pool.FetchPage(cur)
		if err != nil {
			idx.releaseAncestorsDirty(stack, false)
			return errors.Wrap(err, "btree: insert")
		}
		p.Lock()

		if isLeaf(p) {
			l := asLeaf(p)
			if l.Size() < l.MaxSize()-1 {
				stack = idx.releaseAncestors(stack)
			}
			stack = append(stack, ancestor{cur, p})
			break
		}

		n := asInternal(p)
		if n.Size() < n.MaxSize() {
			stack = idx.releaseAncestors(stack)
		}
		stack = append(stack, ancestor{cur, p})
		cur = n.ChildAt(n.ChildIndexForKey(key))
	}

	leafFrame := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	l := asLeaf(leafFrame.p)

	if _, exists := l.Find(key); exists {
		leafFrame.p.Unlock()
		idx.pool.UnpinPage(leafFrame.id, false)
		idx.releaseAncestorsDirty(stack, false)
		return ErrDuplicateKey
	}

	l.Insert(key, rid)
	if l.Size() < l.MaxSize() {
		leafFrame.p.Unlock()
		idx.pool.UnpinPage(leafFrame.id, true)
		idx.releaseAncestorsDirty(stack, false)
		return nil
	}

	// l has just reached MaxSize: split it so that no leaf holds
	// MaxSize entries once the insert completes.
	rightID, err := idx.splitLeaf(l, leafFrame.id)
	if err != nil {
		leafFrame.p.Unlock()
		idx.pool.UnpinPage(leafFrame.id, true)
		idx.releaseAncestorsDirty(stack, false)
		return errors.Wrap(err, "btree: insert")
	}
	rp, err := idx.pool.FetchPage(rightID)
	if err != nil {
		leafFrame.p.Unlock()
		idx.pool.UnpinPage(leafFrame.id, true)
		idx.releaseAncestorsDirty(stack, false)
		return errors.Wrap(err, "btree: insert")
	}
	rp.Lock()
	right := asLeaf(rp)
	promoteKey := right.KeyAt(0)
	rp.Unlock()
	idx.pool.UnpinPage(rightID, true)

	leftID := leafFrame.id
	leafFrame.p.Unlock()
	idx.pool.UnpinPage(leftID, true)

	return idx.propagateSplit(stack, leftID, promoteKey, rightID)
}

// propagateSplit installs (leftID, promoteKey, rightID) into the
// parent named by the top of stack, splitting that parent too if it
// overflows, all the way up to a new root if necessary.
func (idx *Index) propagateSplit(stack []ancestor, leftID page.ID, promoteKey Key, rightID page.ID) error {
	if len(stack) == 0 {
		id, p, err := idx.pool.NewPage()
		if err != nil {
			return errors.Wrap(err, "btree: propagate split")
		}
		root := initInternal(p, id, page.InvalidID, idx.cfg.InternalMaxSize)
		root.InitRoot(leftID, promoteKey, rightID)
		idx.pool.UnpinPage(id, true)
		if err := idx.setParentOf(leftID, id); err != nil {
			return err
		}
		if err := idx.setParentOf(rightID, id); err != nil {
			return err
		}
		idx.log.Debug("new root", zap.String("index", idx.name), zap.Int32("root", int32(id)),
			zap.Int32("left", int32(leftID)), zap.Int32("right", int32(rightID)))
		return idx.header.SetRootID(idx.name, id)
	}

	parent := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	n := asInternal(parent.p)

	if n.Size() < n.MaxSize() {
		n.InsertAfter(leftID, promoteKey, rightID)
		if err := idx.setParentOf(rightID, parent.id); err != nil {
			parent.p.Unlock()
			idx.pool.UnpinPage(parent.id, true)
			idx.releaseAncestorsDirty(stack, false)
			return err
		}
		parent.p.Unlock()
		idx.pool.UnpinPage(parent.id, true)
		idx.releaseAncestorsDirty(stack, false)
		return nil
	}

	// n is already at capacity: split it on its current contents
	// first, then install (leftID, promoteKey, rightID) into whichever
	// resulting half still holds leftID as a child, so the page buffer
	// never has to hold more than MaxSize pairs.
	newRightID, newPromoteKey, err := idx.splitInternal(n, parent.id)
	if err != nil {
		parent.p.Unlock()
		idx.pool.UnpinPage(parent.id, true)
		idx.releaseAncestorsDirty(stack, false)
		return errors.Wrap(err, "btree: propagate split")
	}

	if n.IndexOfChild(leftID) >= 0 {
		n.InsertAfter(leftID, promoteKey, rightID)
		if err := idx.setParentOf(rightID, parent.id); err != nil {
			parent.p.Unlock()
			idx.pool.UnpinPage(parent.id, true)
			idx.releaseAncestorsDirty(stack, false)
			return err
		}
		parent.p.Unlock()
		idx.pool.UnpinPage(parent.id, true)
	} else {
		rp, err := idx.pool.FetchPage(newRightID)
		if err != nil {
			parent.p.Unlock()
			idx.pool.UnpinPage(parent.id, true)
			idx.releaseAncestorsDirty(stack, false)
			return errors.Wrap(err, "btree: propagate split")
		}
		rp.Lock()
		right := asInternal(rp)
		right.InsertAfter(leftID, promoteKey, rightID)
		if err := idx.setParentOf(rightID, newRightID); err != nil {
			rp.Unlock()
			idx.pool.UnpinPage(newRightID, true)
			parent.p.Unlock()
			idx.pool.UnpinPage(parent.id, true)
			idx.releaseAncestorsDirty(stack, false)
			return err
		}
		// With an odd MaxSize the left half keeps MaxSize/2 children,
		// one short of the minimum: rotate right's first child over.
		if n.IsUnderflow() {
			newPromoteKey = n.BorrowFromRight(right, newPromoteKey)
			if err := idx.setParentOf(n.ChildAt(n.Size()-1), parent.id); err != nil {
				rp.Unlock()
				idx.pool.UnpinPage(newRightID, true)
				parent.p.Unlock()
				idx.pool.UnpinPage(parent.id, true)
				idx.releaseAncestorsDirty(stack, false)
				return err
			}
		}
		rp.Unlock()
		idx.pool.UnpinPage(newRightID, true)
		parent.p.Unlock()
		idx.pool.UnpinPage(parent.id, true)
	}

	return idx.propagateSplit(stack, parent.id, newPromoteKey, newRightID)
}
