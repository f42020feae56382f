// Package bitmap implements the byte-array occupancy vector shared by the
// inode/data-block allocators in fs and the physical/virtual frame
// allocators in vm.
package bitmap

import "fmt"

// Bitmap is a packed, LSB-first occupancy vector of a fixed logical bit
// length. The zero value is not usable; construct one with New.
type Bitmap struct {
	bits []byte
	n    int
}

// New allocates a Bitmap with n logical bits, all initially clear.
func New(n int) *Bitmap {
	if n < 0 {
		panic("bitmap: negative length")
	}
	return &Bitmap{
		bits: make([]byte, (n+7)/8),
		n:    n,
	}
}

// Wrap adapts an existing byte slice (e.g. one just read off disk) as a
// Bitmap of n logical bits. len(raw) must be at least ceil(n/8).
func Wrap(raw []byte, n int) *Bitmap {
	if len(raw) < (n+7)/8 {
		panic("bitmap: backing slice too small")
	}
	return &Bitmap{bits: raw, n: n}
}

// Bytes returns the packed backing array, suitable for persisting to a
// disk block.
func (b *Bitmap) Bytes() []byte { return b.bits }

// Len reports the number of logical bits.
func (b *Bitmap) Len() int { return b.n }

func (b *Bitmap) check(i int) {
	if i < 0 || i >= b.n {
		panic(fmt.Sprintf("bitmap: index %d out of range [0,%d)", i, b.n))
	}
}

// Set marks bit i as allocated. Panics (FATAL per the error model) if i is
// out of range.
func (b *Bitmap) Set(i int) {
	b.check(i)
	b.bits[i/8] |= 1 << uint(i%8)
}

// Clear marks bit i as free.
func (b *Bitmap) Clear(i int) {
	b.check(i)
	b.bits[i/8] &^= 1 << uint(i%8)
}

// Get reports whether bit i is set.
func (b *Bitmap) Get(i int) bool {
	b.check(i)
	return b.bits[i/8]&(1<<uint(i%8)) != 0
}

// FirstFree returns the lowest-indexed clear bit, or -1 if the bitmap is
// fully occupied.
func (b *Bitmap) FirstFree() int {
	for i := 0; i < b.n; i++ {
		if !b.Get(i) {
			return i
		}
	}
	return -1
}
