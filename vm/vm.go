// Package vm implements the VM-CORE user API (§4.13): t_malloc, t_free,
// put_value, get_value, mat_mult and print_TLB_missrate, bundled behind a
// Handle that owns the physical arena, page directory, TLB and virtual
// page bitmap and serializes every operation behind one mutex, the way
// the reference implementation's general_lock guards the whole subsystem.
package vm

import (
	"log"
	"sync"

	"github.com/rofs/rufs/fs/bitmap"
	"github.com/rofs/rufs/vm/alloc"
	"github.com/rofs/rufs/vm/arena"
	"github.com/rofs/rufs/vm/bench"
	"github.com/rofs/rufs/vm/rvmerr"
	"github.com/rofs/rufs/vm/table"
	"github.com/rofs/rufs/vm/tlb"
	"github.com/rofs/rufs/vm/xfer"
)

// AddressSpaceBits is the virtual address width (§4.9, ADDRESS_SPACE).
const AddressSpaceBits = 32

// DefaultPhysMemSize is the size of the flat physical arena (§4.9,
// MEMSIZE). Tests construct smaller handles directly via New.
const DefaultPhysMemSize = 1 << 30

// NumVirtualPages is the number of page-granular slots the virtual bitmap
// tracks across the full 32-bit address space.
const NumVirtualPages = 1 << (AddressSpaceBits - table.OffsetBits)

// Handle is the live state of one VM-CORE instance.
type Handle struct {
	mu  sync.Mutex
	ar  *arena.Arena
	dir *table.Directory
	tlb *tlb.TLB
	vbm *bitmap.Bitmap
}

// New creates a Handle with a physical arena of physMemSize bytes,
// reserving virtual page 0 the way set_physical_mem reserves bit 0 of
// both bitmaps.
func New(physMemSize int) (*Handle, error) {
	ar, err := arena.New(physMemSize)
	if err != nil {
		return nil, err
	}
	dir, err := table.New(ar)
	if err != nil {
		return nil, err
	}
	vbm := bitmap.New(NumVirtualPages)
	vbm.Set(0)
	return &Handle{
		ar:  ar,
		dir: dir,
		tlb: tlb.New(),
		vbm: vbm,
	}, nil
}

// Close releases the physical arena.
func (h *Handle) Close() error {
	return h.ar.Close()
}

// translator adapts Handle to xfer.Translator without re-entering its
// mutex, for use by methods that already hold it.
type translator struct{ h *Handle }

func (t translator) Translate(va uint32) (uint32, error) { return t.h.translateLocked(va) }

func (h *Handle) translateLocked(va uint32) (uint32, error) {
	if pa, ok := h.tlb.Lookup(va); ok {
		// The cached address may carry the offset of another va in the
		// same page; keep its frame base and apply va's own offset.
		return pa&^(arena.PageSize-1) | va&(arena.PageSize-1), nil
	}
	pa, err := h.dir.Translate(va)
	if err != nil {
		return 0, err
	}
	h.tlb.Insert(va, pa)
	return pa, nil
}

// Translate resolves va to a physical address, consulting the TLB first.
func (h *Handle) Translate(va uint32) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.translateLocked(va)
}

// TMalloc reserves the lowest run of free virtual pages covering numBytes
// and maps each to a freshly allocated physical frame.
func (h *Handle) TMalloc(numBytes uint32) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	numPages := alloc.PagesForBytes(numBytes)
	start, ok := alloc.GetNextAvail(h.vbm, numPages)
	if !ok {
		return 0, rvmerr.Errorf(rvmerr.OutOfMemory, "vm: no run of %d free virtual pages", numPages)
	}

	for i := 0; i < numPages; i++ {
		page := start + i
		frame, err := h.ar.AllocFrame()
		if err != nil {
			return 0, err
		}
		h.vbm.Set(page)
		va := uint32(page) * arena.PageSize
		if err := h.dir.PageMap(va, uint32(frame)); err != nil {
			if !rvmerr.Is(err, rvmerr.AlreadyMapped) {
				return 0, err
			}
			h.tlb.Invalidate(va)
		}
	}
	return uint32(start) * arena.PageSize, nil
}

// TFree releases the numPages pages (computed the same way TMalloc
// computed them) starting at va.
func (h *Handle) TFree(va uint32, size uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	numPages := alloc.PagesForBytes(size)
	startPage := int(va / arena.PageSize)

	for i := 0; i < numPages; i++ {
		curVA := uint32(startPage+i) * arena.PageSize
		if pa, err := h.dir.Translate(curVA); err == nil {
			h.ar.FreeFrame(int(pa / arena.PageSize))
		}
		h.dir.Unmap(curVA)
		h.tlb.Invalidate(curVA)
		h.vbm.Clear(startPage + i)
	}
	return nil
}

// PutValue copies src into the pages starting at va.
func (h *Handle) PutValue(va uint32, src []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return xfer.PutValue(h.ar, translator{h}, va, src)
}

// GetValue copies len(dst) bytes starting at va into dst.
func (h *Handle) GetValue(va uint32, dst []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return xfer.GetValue(h.ar, translator{h}, va, dst)
}

// MatMult multiplies two size x size int32 matrices already resident at
// mat1/mat2, writing the result to answer, entirely through PutValue and
// GetValue.
func (h *Handle) MatMult(mat1, mat2, answer uint32, size int) error {
	return bench.MatMult(h, mat1, mat2, answer, size)
}

// PrintTLBMissrate reports the running TLB miss rate, the way
// print_TLB_missrate reports to stderr.
func (h *Handle) PrintTLBMissrate() {
	log.Printf("TLB miss rate %f", h.tlb.MissRate())
}
