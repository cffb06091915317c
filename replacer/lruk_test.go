package replacer

import "testing"

func TestLRUKEvictsInfiniteDistanceFirst(t *testing.T) {
	r := New(2)

	for _, f := range []int{1, 2, 3, 1, 2, 1} {
		r.RecordAccess(f)
	}
	for _, f := range []int{1, 2, 3} {
		r.SetEvictable(f, true)
	}

	frame, ok := r.Evict()
	if !ok || frame != 3 {
		t.Fatalf("Evict() = (%d, %v), want (3, true)", frame, ok)
	}

	frame, ok = r.Evict()
	if !ok || frame != 2 {
		t.Fatalf("Evict() = (%d, %v), want (2, true)", frame, ok)
	}
}

func TestLRUKSkipsNonEvictable(t *testing.T) {
	r := New(1)
	r.RecordAccess(1)
	r.RecordAccess(2)
	r.SetEvictable(1, false)
	r.SetEvictable(2, true)

	frame, ok := r.Evict()
	if !ok || frame != 2 {
		t.Fatalf("Evict() = (%d, %v), want (2, true)", frame, ok)
	}

	if _, ok := r.Evict(); ok {
		t.Fatalf("Evict() on an all-non-evictable replacer should report ok=false")
	}
}

func TestLRUKSizeCountsOnlyEvictable(t *testing.T) {
	r := New(2)
	r.RecordAccess(1)
	r.RecordAccess(2)
	r.SetEvictable(1, true)

	if got := r.Size(); got != 1 {
		t.Fatalf("Size() = %d, want 1", got)
	}
	r.SetEvictable(2, true)
	if got := r.Size(); got != 2 {
		t.Fatalf("Size() = %d, want 2", got)
	}
}

func TestLRUKRemoveNonEvictablePanics(t *testing.T) {
	r := New(1)
	r.RecordAccess(1)

	defer func() {
		if recover() == nil {
			t.Fatalf("Remove on a non-evictable frame should panic")
		}
	}()
	r.Remove(1)
}

func TestNewRejectsZeroK(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("New(0) should panic")
		}
	}()
	New(0)
}
