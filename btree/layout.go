// Package btree implements a concurrent, disk-backed B+tree index over
// the buffer pool: internal and leaf pages with a fixed binary layout,
// search/insert/remove under the index's root-id latch, and a forward
// iterator over leaf chains (spec sections 4.4-4.9). Insert and remove
// latch-couple down the tree; search holds one page latch at a time,
// releasing the parent's before latching the child.
package btree

import (
	"encoding/binary"

	"emberdb/page"
)

// Key is the ordered search key stored in every node. Index entries
// compare keys with plain integer ordering, matching the teaching
// scope in spec section 4.4 (no pluggable comparator).
type Key = int64

// RID identifies a row: the heap page holding it and its slot within
// that page. The B+tree only ever stores and returns RIDs; it has no
// notion of what they point at.
type RID struct {
	PageID  page.ID
	SlotNum uint32
}

const (
	keySize = 8 // int64
	ridSize = 8 // page.ID(4) + SlotNum(4)
	intSize = 4 // page.ID child pointer

	internalPairSize = keySize + intSize
	leafPairSize      = keySize + ridSize
)

func putKey(buf []byte, k Key)    { binary.LittleEndian.PutUint64(buf, uint64(k)) }
func getKey(buf []byte) Key       { return Key(binary.LittleEndian.Uint64(buf)) }
func putPageID(buf []byte, id page.ID) { binary.LittleEndian.PutUint32(buf, uint32(int32(id))) }
func getPageID(buf []byte) page.ID     { return page.ID(int32(binary.LittleEndian.Uint32(buf))) }
func putRID(buf []byte, r RID) {
	putPageID(buf, r.PageID)
	binary.LittleEndian.PutUint32(buf[4:], r.SlotNum)
}
func getRID(buf []byte) RID {
	return RID{PageID: getPageID(buf), SlotNum: binary.LittleEndian.Uint32(buf[4:])}
}

// header fields shared by internal and leaf pages, occupying the first
// page.HeaderSize bytes of every node page.
//
//	offset  size  field
//	0       4     page type (1=leaf, 2=internal)
//	4       4     lsn (unused outside WAL scope, kept for layout parity)
//	8       4     size (current key/entry count)
//	12      4     max size (capacity before a split is required)
//	16      4     parent page id (InvalidID for the root)
//	20      4     this page's own id
//	24      4     next_page_id (leaf only; absent on internal pages)
const (
	offPageType   = 0
	offLSN        = 4
	offSize       = 8
	offMaxSize    = 12
	offParentID   = 16
	offSelfID     = 20
	offNextID     = page.HeaderSize // leaf-only
)

func pageType(p *page.Page) page.Type {
	return page.Type(binary.LittleEndian.Uint32(p.Data()[offPageType:]))
}

func setPageType(p *page.Page, t page.Type) {
	binary.LittleEndian.PutUint32(p.Data()[offPageType:], uint32(t))
}

func size(p *page.Page) int { return int(binary.LittleEndian.Uint32(p.Data()[offSize:])) }
func setSize(p *page.Page, n int) {
	binary.LittleEndian.PutUint32(p.Data()[offSize:], uint32(n))
}

func maxSize(p *page.Page) int { return int(binary.LittleEndian.Uint32(p.Data()[offMaxSize:])) }
func setMaxSize(p *page.Page, n int) {
	binary.LittleEndian.PutUint32(p.Data()[offMaxSize:], uint32(n))
}

func parentID(p *page.Page) page.ID  { return getPageID(p.Data()[offParentID:]) }
func setParentID(p *page.Page, id page.ID) { putPageID(p.Data()[offParentID:], id) }

func selfID(p *page.Page) page.ID  { return getPageID(p.Data()[offSelfID:]) }
func setSelfID(p *page.Page, id page.ID) { putPageID(p.Data()[offSelfID:], id) }

func isLeaf(p *page.Page) bool { return pageType(p) == page.TypeLeaf }
