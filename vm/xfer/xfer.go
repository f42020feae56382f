// Package xfer implements put_value/get_value (§4.12): copying a byte
// range to or from virtual memory, one physical page at a time.
package xfer

import "github.com/rofs/rufs/vm/arena"

// Translator resolves a virtual address to a physical one, the same
// contract table.Directory.Translate satisfies; callers typically pass a
// TLB-checking wrapper instead of the bare Directory so every access
// benefits from caching (§4.10).
type Translator interface {
	Translate(va uint32) (uint32, error)
}

// PutValue copies src into the pages starting at va, walking page
// boundaries as needed.
func PutValue(ar *arena.Arena, tr Translator, va uint32, src []byte) error {
	remaining := len(src)
	curVA := va
	off := 0
	for remaining > 0 {
		pa, err := tr.Translate(curVA)
		if err != nil {
			return err
		}
		frame := int(pa / arena.PageSize)
		pageOff := int(pa % arena.PageSize)
		n := arena.PageSize - pageOff
		if n > remaining {
			n = remaining
		}
		copy(ar.Frame(frame)[pageOff:pageOff+n], src[off:off+n])
		curVA += uint32(n)
		off += n
		remaining -= n
	}
	return nil
}

// GetValue copies len(dst) bytes starting at va into dst, walking page
// boundaries as needed.
func GetValue(ar *arena.Arena, tr Translator, va uint32, dst []byte) error {
	remaining := len(dst)
	curVA := va
	off := 0
	for remaining > 0 {
		pa, err := tr.Translate(curVA)
		if err != nil {
			return err
		}
		frame := int(pa / arena.PageSize)
		pageOff := int(pa % arena.PageSize)
		n := arena.PageSize - pageOff
		if n > remaining {
			n = remaining
		}
		copy(dst[off:off+n], ar.Frame(frame)[pageOff:pageOff+n])
		curVA += uint32(n)
		off += n
		remaining -= n
	}
	return nil
}
