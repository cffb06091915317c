// Package replacer implements the eviction policy consulted by the
// buffer pool when it needs to free a frame. Replacer is kept as an
// interface so the pool depends on a policy contract rather than one
// concrete implementation — mirroring the pack's own pluggable-replacer
// shape (see DESIGN.md).
package replacer

import (
	"sync"

	"github.com/pkg/errors"
)

// Replacer selects a frame to evict among the frames the owner has
// marked evictable, and tracks per-frame access history for that
// selection. Frame identity is opaque to the replacer — it only ever
// sees the integer index the owner assigns.
type Replacer interface {
	RecordAccess(frame int)
	SetEvictable(frame int, evictable bool)
	Evict() (frame int, ok bool)
	Remove(frame int)
	Size() int
}

// frameHistory is a frame's access timestamps, newest appended last,
// capped at k entries — the sliding window the K-distance rule reads.
type frameHistory struct {
	timestamps []int64
	evictable  bool
}

// LRUK implements the K-distance eviction rule (spec 4.2): the
// evictable frame with the largest distance from now to its K-th most
// recent access is evicted first; frames with fewer than K accesses
// have infinite K-distance and are broken by earliest-first-access
// among themselves (classic LRU).
type LRUK struct {
	mu      sync.Mutex
	k       int
	clock   int64
	history map[int]*frameHistory
}

// New returns an LRU-K replacer with history depth k (k must be >= 1).
func New(k int) *LRUK {
	if k < 1 {
		panic(errors.Errorf("replacer: k must be >= 1, got %d", k))
	}
	return &LRUK{k: k, history: make(map[int]*frameHistory)}
}

// RecordAccess appends the current logical timestamp to frame's
// history, advancing the replacer's clock. Called by the buffer pool
// on every fetch/new that touches the frame, whether or not it is
// currently evictable.
func (r *LRUK) RecordAccess(frame int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock++
	h, ok := r.history[frame]
	if !ok {
		h = &frameHistory{}
		r.history[frame] = h
	}
	h.timestamps = append(h.timestamps, r.clock)
	if len(h.timestamps) > r.k {
		h.timestamps = h.timestamps[1:]
	}
}

// SetEvictable adds or removes frame from the evictable set. The
// buffer pool calls this whenever a frame's pin count crosses zero in
// either direction.
func (r *LRUK) SetEvictable(frame int, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.history[frame]
	if !ok {
		h = &frameHistory{}
		r.history[frame] = h
	}
	h.evictable = evictable
}

// Evict picks the evictable frame with the largest K-distance,
// breaking ties among infinite-K-distance frames by earliest first
// access. It reports ok=false if no frame is currently evictable.
func (r *LRUK) Evict() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	best := -1
	bestDist := int64(-1)
	bestFirstAccess := int64(-1)
	bestIsInf := false

	for frame, h := range r.history {
		if !h.evictable || len(h.timestamps) == 0 {
			continue
		}
		isInf := len(h.timestamps) < r.k
		var dist int64
		var firstAccess int64
		if isInf {
			dist = -1 // placeholder; infinite distances are compared via isInf below
			firstAccess = h.timestamps[0]
		} else {
			kth := h.timestamps[len(h.timestamps)-r.k]
			dist = r.clock - kth
		}

		switch {
		case best == -1:
			best, bestDist, bestFirstAccess, bestIsInf = frame, dist, firstAccess, isInf
		case isInf && !bestIsInf:
			// Infinite K-distance always beats a finite one.
			best, bestDist, bestFirstAccess, bestIsInf = frame, dist, firstAccess, isInf
		case isInf && bestIsInf:
			if firstAccess < bestFirstAccess {
				best, bestDist, bestFirstAccess, bestIsInf = frame, dist, firstAccess, isInf
			}
		case !isInf && !bestIsInf:
			if dist > bestDist {
				best, bestDist, bestFirstAccess, bestIsInf = frame, dist, firstAccess, isInf
			}
		// !isInf && bestIsInf: current best (infinite) always wins, do nothing.
		}
	}

	if best == -1 {
		return 0, false
	}
	delete(r.history, best)
	return best, true
}

// Remove erases frame's history. The buffer pool calls this only on a
// frame it is about to repurpose; calling it on a frame that is not
// currently evictable is a caller bug (the spec names this fatal).
func (r *LRUK) Remove(frame int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.history[frame]
	if !ok {
		return
	}
	if !h.evictable {
		panic(errors.Errorf("replacer: Remove called on non-evictable frame %d", frame))
	}
	delete(r.history, frame)
}

// Size returns the number of frames currently marked evictable.
func (r *LRUK) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, h := range r.history {
		if h.evictable {
			n++
		}
	}
	return n
}
