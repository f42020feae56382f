// Package table implements the two-level page directory/page table of
// §4.9-§4.10. PDE and PTE entries are plain uint32 words with shift/mask
// accessors rather than C-style bitfields (design note, §9): bit 0 is the
// valid flag, the remaining 31 bits hold a frame index.
package table

import (
	"encoding/binary"

	"github.com/rofs/rufs/vm/arena"
	"github.com/rofs/rufs/vm/rvmerr"
)

const (
	// AddressBits is the width of a virtual address.
	AddressBits = 32
	// OffsetBits is log2(arena.PageSize).
	OffsetBits = 12
	// entrySize is the on-frame width of one PDE/PTE, in bytes.
	entrySize = 4
	// entriesPerPage is how many PDE/PTE slots fit in one page frame.
	entriesPerPage = arena.PageSize / entrySize
	// DirBits and TableBits split the remaining 20 bits evenly, matching
	// set_physical_mem's log2(PGSIZE/sizeof(entry)) computation.
	DirBits   = 10
	TableBits = AddressBits - OffsetBits - DirBits

	validBit = 1
)

// MakeEntry packs a frame index and its valid bit into one PDE/PTE word.
func MakeEntry(frame uint32) uint32 { return frame<<1 | validBit }

// EntryValid reports whether e's valid bit is set.
func EntryValid(e uint32) bool { return e&validBit != 0 }

// EntryFrame extracts the frame index packed into e.
func EntryFrame(e uint32) uint32 { return e >> 1 }

// Split decomposes a virtual address into its page-directory index,
// page-table index, and in-page offset, per §4.9's three-way address
// split.
func Split(va uint32) (dirIdx, tblIdx, offset uint32) {
	dirIdx = va >> (OffsetBits + TableBits)
	tblIdx = (va >> OffsetBits) & (1<<TableBits - 1)
	offset = va & (1<<OffsetBits - 1)
	return dirIdx, tblIdx, offset
}

// Directory is the root page directory: one arena frame holding
// entriesPerPage PDEs, each of which (once valid) points at a second-level
// page table frame.
type Directory struct {
	ar    *arena.Arena
	frame int
}

// New allocates and zeroes the root page directory's frame.
func New(ar *arena.Arena) (*Directory, error) {
	f, err := ar.AllocFrame()
	if err != nil {
		return nil, err
	}
	buf := ar.Frame(f)
	for i := range buf {
		buf[i] = 0
	}
	return &Directory{ar: ar, frame: f}, nil
}

func (d *Directory) pde(idx uint32) uint32 {
	if idx >= entriesPerPage {
		panic("table: directory index out of range")
	}
	buf := d.ar.Frame(d.frame)
	return binary.LittleEndian.Uint32(buf[idx*entrySize:])
}

func (d *Directory) setPDE(idx uint32, v uint32) {
	buf := d.ar.Frame(d.frame)
	binary.LittleEndian.PutUint32(buf[idx*entrySize:], v)
}

func pte(ar *arena.Arena, ptFrame, idx uint32) uint32 {
	if idx >= entriesPerPage {
		panic("table: page table index out of range")
	}
	buf := ar.Frame(int(ptFrame))
	return binary.LittleEndian.Uint32(buf[idx*entrySize:])
}

func setPTE(ar *arena.Arena, ptFrame, idx uint32, v uint32) {
	buf := ar.Frame(int(ptFrame))
	binary.LittleEndian.PutUint32(buf[idx*entrySize:], v)
}

// Translate walks the two-level table for va and returns the matching
// physical address, or a TranslationFault if either level is unmapped.
func (d *Directory) Translate(va uint32) (uint32, error) {
	dirIdx, tblIdx, offset := Split(va)

	dirEnt := d.pde(dirIdx)
	if !EntryValid(dirEnt) {
		return 0, rvmerr.Errorf(rvmerr.TranslationFault, "table: unmapped page directory entry %d (va %#x)", dirIdx, va)
	}
	ptFrame := EntryFrame(dirEnt)

	tblEnt := pte(d.ar, ptFrame, tblIdx)
	if !EntryValid(tblEnt) {
		return 0, rvmerr.Errorf(rvmerr.TranslationFault, "table: unmapped page table entry %d (va %#x)", tblIdx, va)
	}
	frame := EntryFrame(tblEnt)

	return frame*arena.PageSize + offset, nil
}

// PageMap installs a va -> frame mapping, allocating a second-level page
// table on first use of va's directory entry. The mapping is installed
// either way, but if va already had a valid PTE, PageMap returns an
// AlreadyMapped error instead of silently overwriting it (§4.10: the
// reference implementation treats a remap as a silent no-op; this port
// surfaces it so callers can invalidate any stale TLB entry for va,
// which the reference never does on remap).
func (d *Directory) PageMap(va uint32, frame uint32) error {
	dirIdx, tblIdx, _ := Split(va)

	dirEnt := d.pde(dirIdx)
	var ptFrame uint32
	if !EntryValid(dirEnt) {
		f, err := d.ar.AllocFrame()
		if err != nil {
			return err
		}
		buf := d.ar.Frame(f)
		for i := range buf {
			buf[i] = 0
		}
		ptFrame = uint32(f)
		d.setPDE(dirIdx, MakeEntry(ptFrame))
	} else {
		ptFrame = EntryFrame(dirEnt)
	}

	existing := pte(d.ar, ptFrame, tblIdx)
	setPTE(d.ar, ptFrame, tblIdx, MakeEntry(frame))
	if EntryValid(existing) {
		return rvmerr.Errorf(rvmerr.AlreadyMapped, "table: va %#x remapped frame %d -> %d", va, EntryFrame(existing), frame)
	}
	return nil
}

// Unmap clears va's page table entry, if any.
func (d *Directory) Unmap(va uint32) {
	dirIdx, tblIdx, _ := Split(va)
	dirEnt := d.pde(dirIdx)
	if !EntryValid(dirEnt) {
		return
	}
	setPTE(d.ar, EntryFrame(dirEnt), tblIdx, 0)
}
