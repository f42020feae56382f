// Package tlb implements the direct-mapped translation lookaside buffer of
// §4.10: a fixed TLBEntries-slot cache, tag = va >> OffsetBits, slot =
// tag mod TLBEntries.
package tlb

import "github.com/rofs/rufs/vm/table"

// Entries is the fixed number of direct-mapped TLB slots.
const Entries = 512

type slot struct {
	tag   uint32
	pa    uint32
	valid bool
}

// TLB is a direct-mapped virtual-to-physical address cache with hit/miss
// counters for print_TLB_missrate's report.
type TLB struct {
	slots   [Entries]slot
	lookups uint64
	misses  uint64
}

// New returns an empty TLB.
func New() *TLB {
	return &TLB{}
}

func index(va uint32) (tag uint32, idx uint32) {
	tag = va >> table.OffsetBits
	idx = tag % Entries
	return tag, idx
}

// Lookup checks the cache for va's translation, counting the access as a
// hit or miss.
func (t *TLB) Lookup(va uint32) (pa uint32, ok bool) {
	t.lookups++
	tag, idx := index(va)
	s := t.slots[idx]
	if s.valid && s.tag == tag {
		return s.pa, true
	}
	t.misses++
	return 0, false
}

// Insert installs or overwrites va's cached translation.
func (t *TLB) Insert(va, pa uint32) {
	tag, idx := index(va)
	t.slots[idx] = slot{tag: tag, pa: pa, valid: true}
}

// Invalidate clears va's slot if it currently caches va's tag. Called on
// both t_free and page remap (§9).
func (t *TLB) Invalidate(va uint32) {
	tag, idx := index(va)
	if t.slots[idx].valid && t.slots[idx].tag == tag {
		t.slots[idx].valid = false
	}
}

// MissRate returns misses/lookups, or 0 if the TLB has never been probed.
func (t *TLB) MissRate() float64 {
	if t.lookups == 0 {
		return 0
	}
	return float64(t.misses) / float64(t.lookups)
}
