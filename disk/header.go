package disk

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"

	"emberdb/page"
)

// headerEntrySize is the on-page layout for one (index name, root
// page id) record: a 2-byte name length, up to maxNameLen bytes of
// name, and a 4-byte root page id.
const (
	maxNameLen      = 60
	headerEntrySize = 2 + maxNameLen + 4
	headerCountSize = 4
)

// Header is the persisted catalog living on page 0: a small map from
// index name to that index's root page id, used so a process restart
// (or a second tree sharing the same file) can recover where the tree
// starts. It is read/written directly through the disk manager,
// bypassing the buffer pool — callers update it at most once per
// structural root change, and there's only ever one copy.
type Header struct {
	mu      sync.Mutex
	disk    *Manager
	entries map[string]page.ID
}

// LoadHeader reads the catalog from page 0 of m's backing file.
func LoadHeader(m *Manager) (*Header, error) {
	buf := make([]byte, page.Size)
	if err := m.ReadPage(0, buf); err != nil {
		return nil, errors.Wrap(err, "header: read page 0")
	}
	h := &Header{disk: m, entries: make(map[string]page.ID)}
	count := binary.LittleEndian.Uint32(buf[0:headerCountSize])
	off := headerCountSize
	for i := uint32(0); i < count; i++ {
		if off+headerEntrySize > page.Size {
			return nil, errors.Errorf("header: corrupt catalog, entry %d overflows page", i)
		}
		nameLen := int(binary.LittleEndian.Uint16(buf[off:]))
		off += 2
		if nameLen > maxNameLen {
			return nil, errors.Errorf("header: corrupt catalog, name length %d exceeds max", nameLen)
		}
		name := string(buf[off : off+nameLen])
		off += maxNameLen
		root := page.ID(int32(binary.LittleEndian.Uint32(buf[off:])))
		off += 4
		h.entries[name] = root
	}
	return h, nil
}

// RootID returns the persisted root page id for name, or InvalidID if
// the catalog has no entry (a brand-new, empty index).
func (h *Header) RootID(name string) page.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id, ok := h.entries[name]; ok {
		return id
	}
	return page.InvalidID
}

// SetRootID records name's new root and persists the whole catalog.
// Called by the B+tree on every operation that installs a new root.
func (h *Header) SetRootID(name string, root page.ID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(name) > maxNameLen {
		return errors.Errorf("header: index name %q exceeds %d bytes", name, maxNameLen)
	}
	h.entries[name] = root
	return h.flushLocked()
}

func (h *Header) flushLocked() error {
	buf := make([]byte, page.Size)
	binary.LittleEndian.PutUint32(buf[0:headerCountSize], uint32(len(h.entries)))
	off := headerCountSize
	for name, root := range h.entries {
		if off+headerEntrySize > page.Size {
			return errors.Errorf("header: catalog exceeds page capacity")
		}
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(name)))
		off += 2
		copy(buf[off:off+maxNameLen], name)
		off += maxNameLen
		binary.LittleEndian.PutUint32(buf[off:], uint32(int32(root)))
		off += 4
	}
	return errors.Wrap(h.disk.WritePage(0, buf), "header: flush")
}
