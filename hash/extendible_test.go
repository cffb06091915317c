package hash

import "testing"

func TestTableInsertFindRemove(t *testing.T) {
	tbl := NewInt32Keyed[int32, string](2)

	tbl.Insert(1, "a")
	tbl.Insert(2, "b")

	if v, ok := tbl.Find(1); !ok || v != "a" {
		t.Fatalf("Find(1) = (%q, %v), want (a, true)", v, ok)
	}
	if v, ok := tbl.Find(2); !ok || v != "b" {
		t.Fatalf("Find(2) = (%q, %v), want (b, true)", v, ok)
	}
	if _, ok := tbl.Find(3); ok {
		t.Fatalf("Find(3) should report not-found")
	}

	if !tbl.Remove(1) {
		t.Fatalf("Remove(1) should report found")
	}
	if _, ok := tbl.Find(1); ok {
		t.Fatalf("Find(1) after Remove should report not-found")
	}
}

func TestTableGrowsDirectoryUnderLoad(t *testing.T) {
	tbl := NewInt32Keyed[int32, int](2)

	const n = 1000
	prevDepth := tbl.GlobalDepth()
	for i := int32(0); i < n; i++ {
		tbl.Insert(i, int(i))
		if d := tbl.GlobalDepth(); d < prevDepth {
			t.Fatalf("GlobalDepth() dropped from %d to %d after inserting key %d, want monotonic growth", prevDepth, d, i)
		} else {
			prevDepth = d
		}
	}

	for i := int32(0); i < n; i++ {
		v, ok := tbl.Find(i)
		if !ok || v != int(i) {
			t.Fatalf("Find(%d) = (%d, %v), want (%d, true)", i, v, ok, i)
		}
	}

	if tbl.GlobalDepth() == 0 {
		t.Fatalf("GlobalDepth() = 0 after inserting %d keys, want > 0", n)
	}
	if got := tbl.NumBuckets(); got < n/2 {
		t.Fatalf("NumBuckets() = %d, want at least %d for bucket size 2", got, n/2)
	}
}

func TestTableUpsertOverwritesExistingKey(t *testing.T) {
	tbl := NewInt32Keyed[int32, string](4)
	tbl.Insert(1, "first")
	tbl.Insert(1, "second")

	v, ok := tbl.Find(1)
	if !ok || v != "second" {
		t.Fatalf("Find(1) = (%q, %v), want (second, true)", v, ok)
	}
}
