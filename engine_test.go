package emberdb

import (
	"path/filepath"
	"testing"

	"emberdb/btree"
)

func TestEngineOpenInsertCloseReopenSurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.db")
	cfg := DefaultConfig(path)
	cfg.PoolSize = 8
	cfg.Leaf = 4
	cfg.Internal = 4

	eng, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	idx, err := eng.Index("orders")
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	for i := int64(0); i < 50; i++ {
		if err := idx.Insert(i, btree.RID{PageID: 0, SlotNum: uint32(i)}); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	eng2, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("reopen Open() error = %v", err)
	}
	defer eng2.Close()
	idx2, err := eng2.Index("orders")
	if err != nil {
		t.Fatalf("reopen Index() error = %v", err)
	}
	for i := int64(0); i < 50; i++ {
		rid, ok, err := idx2.Search(i)
		if err != nil {
			t.Fatalf("Search(%d) error = %v", i, err)
		}
		if !ok || rid.SlotNum != uint32(i) {
			t.Fatalf("Search(%d) = (%v, %v), want (SlotNum=%d, true)", i, rid, ok, i)
		}
	}
}

func TestEngineTwoIndexesOverSameFileAreIndependent(t *testing.T) {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "ember.db"))
	cfg.Leaf, cfg.Internal = 4, 4

	eng, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer eng.Close()

	a, _ := eng.Index("a")
	b, _ := eng.Index("b")
	a.Insert(1, btree.RID{PageID: 1})
	if _, ok, _ := b.Search(1); ok {
		t.Fatalf("index b should not see index a's keys")
	}
}
