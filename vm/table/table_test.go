package table

import (
	"testing"

	"github.com/rofs/rufs/vm/arena"
	"github.com/rofs/rufs/vm/rvmerr"
)

func TestTranslateRoundTrip(t *testing.T) {
	ar, err := arena.New(arena.PageSize * 16)
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}
	defer ar.Close()

	dir, err := New(ar)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	frame, err := ar.AllocFrame()
	if err != nil {
		t.Fatalf("AllocFrame: %v", err)
	}
	va := uint32(0x00401000)
	if err := dir.PageMap(va, uint32(frame)); err != nil {
		t.Fatalf("PageMap: %v", err)
	}

	pa, err := dir.Translate(va + 0x10)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	wantPA := uint32(frame)*arena.PageSize + 0x10
	if pa != wantPA {
		t.Errorf("Translate = %#x, want %#x", pa, wantPA)
	}
}

func TestTranslateUnmappedDirectory(t *testing.T) {
	ar, _ := arena.New(arena.PageSize * 4)
	defer ar.Close()
	dir, _ := New(ar)

	if _, err := dir.Translate(0x12345678); err == nil {
		t.Error("Translate(unmapped) succeeded, want error")
	}
}

func TestPageMapReportsRemap(t *testing.T) {
	ar, _ := arena.New(arena.PageSize * 16)
	defer ar.Close()
	dir, _ := New(ar)

	f1, _ := ar.AllocFrame()
	if err := dir.PageMap(0x1000, uint32(f1)); err != nil {
		t.Fatalf("PageMap: %v", err)
	}

	f2, _ := ar.AllocFrame()
	err := dir.PageMap(0x1000, uint32(f2))
	if err == nil {
		t.Fatal("second PageMap of the same va did not report an error")
	}
	if !rvmerr.Is(err, rvmerr.AlreadyMapped) {
		t.Errorf("PageMap (remap) error = %v, want AlreadyMapped", err)
	}

	pa, err := dir.Translate(0x1000)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	wantPA := uint32(f2) * arena.PageSize
	if pa != wantPA {
		t.Errorf("Translate after remap = %#x, want %#x", pa, wantPA)
	}
}

func TestSplitRecombines(t *testing.T) {
	va := uint32(0xDEADB000)
	dirIdx, tblIdx, offset := Split(va)
	got := dirIdx<<(OffsetBits+TableBits) | tblIdx<<OffsetBits | offset
	if got != va {
		t.Errorf("Split/recombine mismatch: got %#x, want %#x", got, va)
	}
}
