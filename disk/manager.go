// Package disk implements the disk manager consumed by the buffer
// pool: deterministic, page-id-addressed reads and writes against a
// single backing file, plus the allocation counter the buffer pool
// draws new page ids from.
package disk

import (
	"os"
	"sync"

	"github.com/pkg/errors"

	"emberdb/page"
)

// Manager owns one backing file and the page-id space over it. It
// models no WAL and no recovery: writes land directly at their page's
// offset, reads are direct ReadAt calls. I/O errors are fatal in this
// core (wrapped and returned; the caller decides whether to abort).
type Manager struct {
	mu       sync.Mutex
	file     *os.File
	nextID   page.ID
	deallocd map[page.ID]struct{} // freed ids, kept only for bookkeeping/debug
}

// Open opens (creating if necessary) the file backing path. If the
// file already holds whole pages, the allocator resumes after the
// last one; otherwise it starts at page 0, the reserved header page.
func Open(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "disk: open %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "disk: stat %s", path)
	}
	m := &Manager{
		file:     f,
		nextID:   page.ID(info.Size() / page.Size),
		deallocd: make(map[page.ID]struct{}),
	}
	if m.nextID == 0 {
		// Reserve page 0 for the header/catalog page.
		if err := m.writeAt(0, make([]byte, page.Size)); err != nil {
			f.Close()
			return nil, err
		}
		m.nextID = 1
	}
	return m, nil
}

// Allocate reserves the next page id. It does not touch disk; the
// buffer pool writes the page's contents on an explicit flush, or on
// eviction once the page has been unpinned dirty.
func (m *Manager) Allocate() page.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	return id
}

// Deallocate marks id as free. This core does not reuse freed ids
// within a session (matching spec's "no WAL/recovery" scope); the
// bookkeeping exists so tests can observe which ids were released.
func (m *Manager) Deallocate(id page.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deallocd[id] = struct{}{}
}

// ReadPage reads id's bytes into buf, which must be exactly page.Size
// long. Reading an id past the end of the file (never written) yields
// a zeroed page, matching a freshly allocated page's contents.
func (m *Manager) ReadPage(id page.ID, buf []byte) error {
	if len(buf) != page.Size {
		return errors.Errorf("disk: read buffer must be %d bytes, got %d", page.Size, len(buf))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.file.ReadAt(buf, int64(id)*page.Size)
	if err != nil {
		if n == 0 {
			for i := range buf {
				buf[i] = 0
			}
			return nil
		}
		return errors.Wrapf(err, "disk: read page %d", id)
	}
	return nil
}

// WritePage writes buf (exactly page.Size bytes) to id's offset.
func (m *Manager) WritePage(id page.ID, buf []byte) error {
	if len(buf) != page.Size {
		return errors.Errorf("disk: write buffer must be %d bytes, got %d", page.Size, len(buf))
	}
	return m.writeAt(id, buf)
}

func (m *Manager) writeAt(id page.ID, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.file.WriteAt(buf, int64(id)*page.Size); err != nil {
		return errors.Wrapf(err, "disk: write page %d", id)
	}
	return nil
}

// Sync flushes the backing file to stable storage.
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.file.Sync(); err != nil {
		return errors.Wrap(err, "disk: sync")
	}
	return nil
}

// Close syncs and closes the backing file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.file.Sync(); err != nil {
		m.file.Close()
		return errors.Wrap(err, "disk: sync before close")
	}
	return errors.Wrap(m.file.Close(), "disk: close")
}
