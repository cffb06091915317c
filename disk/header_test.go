package disk

import (
	"path/filepath"
	"testing"

	"emberdb/page"
)

func TestHeaderRootIDRoundTripsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	h, err := LoadHeader(m)
	if err != nil {
		t.Fatalf("LoadHeader() error = %v", err)
	}
	if got := h.RootID("orders"); got != page.InvalidID {
		t.Fatalf("RootID() on unknown index = %d, want InvalidID", got)
	}
	if err := h.SetRootID("orders", 42); err != nil {
		t.Fatalf("SetRootID() error = %v", err)
	}
	m.Close()

	m2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen Open() error = %v", err)
	}
	defer m2.Close()
	h2, err := LoadHeader(m2)
	if err != nil {
		t.Fatalf("reopen LoadHeader() error = %v", err)
	}
	if got := h2.RootID("orders"); got != 42 {
		t.Fatalf("RootID() after reload = %d, want 42", got)
	}
}

func TestHeaderRejectsOversizedName(t *testing.T) {
	m, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer m.Close()
	h, err := LoadHeader(m)
	if err != nil {
		t.Fatalf("LoadHeader() error = %v", err)
	}

	long := make([]byte, maxNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := h.SetRootID(string(long), 1); err == nil {
		t.Fatalf("SetRootID() with an oversized name should error")
	}
}
