// Package alloc implements the virtual page allocator of §4.11: finding a
// run of free pages in the virtual bitmap and converting a byte count to a
// page count for t_malloc/t_free.
package alloc

import (
	"github.com/rofs/rufs/fs/bitmap"
	"github.com/rofs/rufs/vm/arena"
)

// PagesForBytes converts a byte count to a page count using the reference
// implementation's (num_bytes/PGSIZE)+1 formula. This always rounds up by
// one whole page even when num_bytes is an exact multiple of PageSize; it
// is preserved rather than "fixed" because t_free uses the identical
// formula to compute how many pages to release, so the two stay
// consistent (§4.11, §9).
func PagesForBytes(numBytes uint32) int {
	return int(numBytes/arena.PageSize) + 1
}

// GetNextAvail scans bm, skipping reserved bit 0, for the lowest-indexed
// run of numPages consecutive free bits and returns its starting page
// index. It reports false if no such run exists.
func GetNextAvail(bm *bitmap.Bitmap, numPages int) (start int, ok bool) {
	if numPages <= 0 {
		return 0, false
	}
	run := 0
	for i := 1; i < bm.Len(); i++ {
		if bm.Get(i) {
			run = 0
			continue
		}
		if run == 0 {
			start = i
		}
		run++
		if run == numPages {
			return start, true
		}
	}
	return 0, false
}
