// Package buffer implements the buffer pool manager: the fixed-size
// cache of page frames that every higher layer (the B+tree) reads and
// writes through instead of touching disk directly.
package buffer

import (
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"emberdb/disk"
	"emberdb/hash"
	"emberdb/page"
	"emberdb/replacer"
)

// Pool is the buffer pool manager. It owns a fixed array of frames, a
// free list of frames holding no page, a page table mapping resident
// page ids to frame indexes, a replacer that picks an eviction victim
// among unpinned frames, and the disk manager backing every frame that
// has to be read in or flushed out.
type Pool struct {
	mu       sync.Mutex
	frames   []*page.Frame
	freeList []int
	table    *hash.Table[page.ID, int]
	replacer replacer.Replacer
	disk     *disk.Manager
	log      *zap.Logger

	hits   uint64
	misses uint64
}

// New creates a pool of poolSize frames backed by d, evicting via an
// LRU-K(k) policy. A nil logger falls back to zap's no-op logger.
func New(poolSize int, k int, d *disk.Manager, log *zap.Logger) *Pool {
	if poolSize < 1 {
		panic(errors.Errorf("buffer: pool size must be >= 1, got %d", poolSize))
	}
	if log == nil {
		log = zap.NewNop()
	}
	frames := make([]*page.Frame, poolSize)
	free := make([]int, poolSize)
	for i := range frames {
		frames[i] = page.NewFrame(i)
		free[i] = i
	}
	return &Pool{
		frames:   frames,
		freeList: free,
		table:    hash.NewInt32Keyed[page.ID, int](4),
		replacer: replacer.New(k),
		disk:     d,
		log:      log,
	}
}

// victimLocked finds a frame to host a new residency: prefer the free
// list, fall back to asking the replacer for an evictable frame. The
// caller holds p.mu.
func (p *Pool) victimLocked() (*page.Frame, error) {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return p.frames[idx], nil
	}

	idx, ok := p.replacer.Evict()
	if !ok {
		return nil, errors.New("buffer: no free frame and no evictable frame, pool exhausted")
	}
	victim := p.frames[idx]
	if victim.Dirty {
		if err := p.flushFrameLocked(victim); err != nil {
			return nil, err
		}
	}
	p.table.Remove(victim.PageID)
	victim.Reset()
	return victim, nil
}

// FetchPage pins and returns the page currently at id, reading it in
// from disk on a page-table miss.
func (p *Pool) FetchPage(id page.ID) (*page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.table.Find(id); ok {
		f := p.frames[idx]
		f.PinCount++
		p.replacer.RecordAccess(idx)
		p.replacer.SetEvictable(idx, false)
		p.hits++
		return f.Page, nil
	}

	p.misses++
	f, err := p.victimLocked()
	if err != nil {
		return nil, errors.Wrapf(err, "buffer: fetch page %d", id)
	}
	if err := p.disk.ReadPage(id, f.Page.Data()); err != nil {
		p.freeList = append(p.freeList, f.Index)
		return nil, errors.Wrapf(err, "buffer: fetch page %d", id)
	}
	f.PageID = id
	f.PinCount = 1
	p.table.Insert(id, f.Index)
	p.replacer.RecordAccess(f.Index)
	p.replacer.SetEvictable(f.Index, false)
	p.log.Debug("buffer miss", zap.Int32("page", int32(id)), zap.Int("frame", f.Index))
	return f.Page, nil
}

// NewPage allocates a brand-new page id from the disk manager, pins a
// clean frame for it, and returns its id and buffer.
func (p *Pool) NewPage() (page.ID, *page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := p.victimLocked()
	if err != nil {
		return page.InvalidID, nil, errors.Wrap(err, "buffer: new page")
	}
	id := p.disk.Allocate()
	f.PageID = id
	f.PinCount = 1
	f.Dirty = false
	p.table.Insert(id, f.Index)
	p.replacer.RecordAccess(f.Index)
	p.replacer.SetEvictable(f.Index, false)
	p.log.Debug("buffer new page", zap.Int32("page", int32(id)), zap.Int("frame", f.Index))
	return id, f.Page, nil
}

// UnpinPage releases one pin on id's frame. dirty, if true, marks the
// frame dirty (the flag is sticky: once dirty, it stays dirty until
// flushed). When the pin count drops to zero the frame becomes
// evictable.
func (p *Pool) UnpinPage(id page.ID, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.table.Find(id)
	if !ok {
		return errors.Errorf("buffer: unpin page %d not resident", id)
	}
	f := p.frames[idx]
	if f.PinCount == 0 {
		return errors.Errorf("buffer: unpin page %d with pin count already zero", id)
	}
	if dirty {
		f.Dirty = true
	}
	f.PinCount--
	if f.PinCount == 0 {
		p.replacer.SetEvictable(idx, true)
	}
	return nil
}

// FlushPage writes id's frame to disk regardless of pin count, then
// clears its dirty bit.
func (p *Pool) FlushPage(id page.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.table.Find(id)
	if !ok {
		return errors.Errorf("buffer: flush page %d not resident", id)
	}
	return p.flushFrameLocked(p.frames[idx])
}

func (p *Pool) flushFrameLocked(f *page.Frame) error {
	if err := p.disk.WritePage(f.PageID, f.Page.Data()); err != nil {
		return errors.Wrapf(err, "buffer: flush page %d", f.PageID)
	}
	f.Dirty = false
	return nil
}

// FlushAllPages writes every resident dirty frame to disk.
func (p *Pool) FlushAllPages() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range p.frames {
		if f.PageID == page.InvalidID || !f.Dirty {
			continue
		}
		if err := p.flushFrameLocked(f); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage removes id from the pool. It fails if the page is
// currently pinned; an absent page is a no-op success.
func (p *Pool) DeletePage(id page.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.table.Find(id)
	if !ok {
		return nil
	}
	f := p.frames[idx]
	if f.PinCount > 0 {
		return errors.Errorf("buffer: delete page %d still pinned (count=%d)", id, f.PinCount)
	}
	p.table.Remove(id)
	p.replacer.Remove(idx)
	f.Reset()
	p.disk.Deallocate(id)
	p.freeList = append(p.freeList, idx)
	return nil
}

// Stats summarizes hit/miss behavior for diagnostics.
type Stats struct {
	Hits, Misses uint64
}

// String renders stats the way emberctl prints them.
func (s Stats) String() string {
	total := s.Hits + s.Misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(s.Hits) / float64(total)
	}
	return "hits=" + humanize.Comma(int64(s.Hits)) +
		" misses=" + humanize.Comma(int64(s.Misses)) +
		" ratio=" + humanize.FormatFloat("#.###", ratio)
}

// Stats reports cumulative hit/miss counters since the pool was
// created.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Hits: p.hits, Misses: p.misses}
}

// Size returns the number of frames currently holding a page.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, f := range p.frames {
		if f.PageID != page.InvalidID {
			n++
		}
	}
	return n
}

// Capacity returns the pool's fixed frame count.
func (p *Pool) Capacity() int { return len(p.frames) }
