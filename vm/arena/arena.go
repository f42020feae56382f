// Package arena implements the flat physical memory region of §4.9 as an
// anonymous mmap, grounded on golang.org/x/sys/unix's Mmap wrapper the way
// the teacher pack's lower-level packages call into x/sys/unix directly
// rather than reimplementing syscalls by hand.
package arena

import (
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/rofs/rufs/fs/bitmap"
	"github.com/rofs/rufs/vm/rvmerr"
)

// PageSize is the fixed page granularity of the whole VM-CORE subsystem.
const PageSize = 4096

// Arena is a flat, page-granular physical memory region backed by an
// anonymous mmap, with a bitmap tracking which frames are in use. Frame 0
// is reserved on construction, matching set_physical_mem's eager
// set_bit(physical_bitmap, 0) so the zero physical address is never handed
// out as a real frame.
type Arena struct {
	mem    []byte
	frames *bitmap.Bitmap
}

// New mmaps a physical region of the given size (rounded down to a whole
// number of pages) and reserves frame 0.
func New(size int) (*Arena, error) {
	numFrames := size / PageSize
	if numFrames <= 0 {
		return nil, xerrors.Errorf("arena: size %d is smaller than one page", size)
	}
	mem, err := unix.Mmap(-1, 0, numFrames*PageSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, xerrors.Errorf("arena: mmap %d bytes: %w", numFrames*PageSize, err)
	}
	a := &Arena{
		mem:    mem,
		frames: bitmap.New(numFrames),
	}
	a.frames.Set(0)
	return a, nil
}

// NumFrames reports the total number of page frames in the arena.
func (a *Arena) NumFrames() int { return a.frames.Len() }

// AllocFrame reserves and returns the lowest-indexed free frame.
func (a *Arena) AllocFrame() (int, error) {
	f := a.frames.FirstFree()
	if f < 0 {
		return 0, rvmerr.Errorf(rvmerr.OutOfMemory, "arena: no free physical frames")
	}
	a.frames.Set(f)
	return f, nil
}

// FreeFrame releases frame f back to the pool.
func (a *Arena) FreeFrame(f int) {
	a.frames.Clear(f)
}

// Frame returns a PageSize-byte slice view of frame f, backed directly by
// the mmap'd region: writes through it are writes to physical memory.
func (a *Arena) Frame(f int) []byte {
	off := f * PageSize
	return a.mem[off : off+PageSize]
}

// Close unmaps the physical region. Arena is not usable afterwards.
func (a *Arena) Close() error {
	if err := unix.Munmap(a.mem); err != nil {
		return xerrors.Errorf("arena: munmap: %w", err)
	}
	return nil
}
