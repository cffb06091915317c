package disk

import (
	"path/filepath"
	"testing"

	"emberdb/page"
)

func openTemp(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestAllocateStartsAfterHeaderPage(t *testing.T) {
	m := openTemp(t)
	if got := m.Allocate(); got != 1 {
		t.Fatalf("first Allocate() = %d, want 1 (page 0 reserved for header)", got)
	}
	if got := m.Allocate(); got != 2 {
		t.Fatalf("second Allocate() = %d, want 2", got)
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	m := openTemp(t)
	id := m.Allocate()

	want := make([]byte, page.Size)
	for i := range want {
		want[i] = byte(i % 251)
	}
	if err := m.WritePage(id, want); err != nil {
		t.Fatalf("WritePage() error = %v", err)
	}

	got := make([]byte, page.Size)
	if err := m.ReadPage(id, got); err != nil {
		t.Fatalf("ReadPage() error = %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("ReadPage() returned different bytes than WritePage() wrote")
	}
}

func TestReadPageNeverWrittenYieldsZeroes(t *testing.T) {
	m := openTemp(t)
	id := m.Allocate()

	got := make([]byte, page.Size)
	for i := range got {
		got[i] = 0xFF
	}
	if err := m.ReadPage(id, got); err != nil {
		t.Fatalf("ReadPage() error = %v", err)
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("ReadPage() byte %d = %x, want 0 for a never-written page", i, b)
		}
	}
}

func TestReadPageRejectsWrongBufferSize(t *testing.T) {
	m := openTemp(t)
	if err := m.ReadPage(1, make([]byte, 10)); err == nil {
		t.Fatalf("ReadPage() with undersized buffer should error")
	}
}
