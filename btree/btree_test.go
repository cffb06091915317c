package btree

import (
	"path/filepath"
	"testing"

	"emberdb/buffer"
	"emberdb/disk"
	"emberdb/page"
)

func openIndex(t *testing.T, leafMax, internalMax int) *Index {
	t.Helper()
	d, err := disk.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("disk.Open() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })

	h, err := disk.LoadHeader(d)
	if err != nil {
		t.Fatalf("disk.LoadHeader() error = %v", err)
	}
	pool := buffer.New(64, 2, d, nil)
	idx, err := NewIndex("test", pool, h, Config{LeafMaxSize: leafMax, InternalMaxSize: internalMax})
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	return idx
}

func TestInsertThenSearchSingleKey(t *testing.T) {
	idx := openIndex(t, 4, 4)

	if err := idx.Insert(1, RID{PageID: 10, SlotNum: 0}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	rid, ok, err := idx.Search(1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !ok || rid.PageID != 10 {
		t.Fatalf("Search(1) = (%v, %v), want RID{PageID:10}, true", rid, ok)
	}
}

func TestSearchMissingKeyReturnsNotFound(t *testing.T) {
	idx := openIndex(t, 4, 4)
	idx.Insert(1, RID{PageID: 1})

	_, ok, err := idx.Search(99)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if ok {
		t.Fatalf("Search(99) on a tree without 99 should report not-found")
	}
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	idx := openIndex(t, 4, 4)
	if err := idx.Insert(1, RID{PageID: 1}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := idx.Insert(1, RID{PageID: 2}); err != ErrDuplicateKey {
		t.Fatalf("second Insert(1) error = %v, want ErrDuplicateKey", err)
	}
}

func TestInsertManyKeysPreservesOrderAndSplits(t *testing.T) {
	idx := openIndex(t, 3, 3)

	const n = 200
	for i := int64(0); i < n; i++ {
		// Insert out of order so the tree actually has to split
		// internal nodes, not just append to one ever-growing leaf.
		k := (i * 37) % n
		if err := idx.Insert(k, RID{PageID: page.ID(k), SlotNum: uint32(k)}); err != nil {
			t.Fatalf("Insert(%d) error = %v", k, err)
		}
	}

	for i := int64(0); i < n; i++ {
		rid, ok, err := idx.Search(i)
		if err != nil {
			t.Fatalf("Search(%d) error = %v", i, err)
		}
		if !ok || rid.PageID != page.ID(i) {
			t.Fatalf("Search(%d) = (%v, %v), want (PageID=%d, true)", i, rid, ok, i)
		}
	}

	it, err := idx.SeekGE(0)
	if err != nil {
		t.Fatalf("SeekGE() error = %v", err)
	}
	defer it.Close()
	var got []Key
	for it.Valid() {
		got = append(got, it.Key())
		it.Next()
	}
	if len(got) != n {
		t.Fatalf("iterator produced %d keys, want %d", len(got), n)
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("iterator not sorted at index %d: %d <= %d", i, got[i], got[i-1])
		}
	}
}

func TestInsertThenDeleteAllKeysEmptiesTree(t *testing.T) {
	idx := openIndex(t, 3, 3)

	const n = 100
	for i := int64(0); i < n; i++ {
		if err := idx.Insert(i, RID{PageID: page.ID(i)}); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}
	for i := int64(0); i < n; i++ {
		if err := idx.Remove(i); err != nil {
			t.Fatalf("Remove(%d) error = %v", i, err)
		}
	}
	for i := int64(0); i < n; i++ {
		if _, ok, _ := idx.Search(i); ok {
			t.Fatalf("Search(%d) found a key after it was removed", i)
		}
	}
}

func TestRemoveMissingKeyReturnsNotFound(t *testing.T) {
	idx := openIndex(t, 4, 4)
	idx.Insert(1, RID{PageID: 1})

	if err := idx.Remove(99); err != ErrKeyNotFound {
		t.Fatalf("Remove(99) error = %v, want ErrKeyNotFound", err)
	}
}

func TestRemoveEveryThirdKeyKeepsRemainderSearchable(t *testing.T) {
	idx := openIndex(t, 3, 3)

	const n = 60
	for i := int64(0); i < n; i++ {
		idx.Insert(i, RID{PageID: page.ID(i)})
	}
	// Remove every third key.
	removed := make(map[int64]bool)
	for i := int64(0); i < n; i += 3 {
		if err := idx.Remove(i); err != nil {
			t.Fatalf("Remove(%d) error = %v", i, err)
		}
		removed[i] = true
	}

	for i := int64(0); i < n; i++ {
		_, ok, err := idx.Search(i)
		if err != nil {
			t.Fatalf("Search(%d) error = %v", i, err)
		}
		if removed[i] && ok {
			t.Fatalf("Search(%d) found a removed key", i)
		}
		if !removed[i] && !ok {
			t.Fatalf("Search(%d) did not find a surviving key", i)
		}
	}
}

func TestIndexIsEmptyBeforeFirstInsert(t *testing.T) {
	idx := openIndex(t, 4, 4)
	if !idx.IsEmpty() {
		t.Fatalf("IsEmpty() on a fresh index should be true")
	}
	idx.Insert(1, RID{PageID: 1})
	if idx.IsEmpty() {
		t.Fatalf("IsEmpty() after an insert should be false")
	}
}
