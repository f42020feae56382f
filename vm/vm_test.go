package vm

import (
	"bytes"
	"testing"

	"github.com/rofs/rufs/vm/arena"
)

func newTestHandle(t *testing.T) *Handle {
	t.Helper()
	h, err := New(arena.PageSize * 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestTMallocMonotonic(t *testing.T) {
	h := newTestHandle(t)

	var prev uint32
	for i := 0; i < 4; i++ {
		va, err := h.TMalloc(arena.PageSize)
		if err != nil {
			t.Fatalf("TMalloc(%d): %v", i, err)
		}
		if i > 0 && va <= prev {
			t.Errorf("TMalloc returned non-increasing address: %#x after %#x", va, prev)
		}
		prev = va
	}
}

func TestPutGetRoundTripAcrossPageBoundary(t *testing.T) {
	h := newTestHandle(t)

	va, err := h.TMalloc(arena.PageSize * 2)
	if err != nil {
		t.Fatalf("TMalloc: %v", err)
	}

	// Straddle the page boundary deliberately.
	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}
	writeAt := va + arena.PageSize - 64

	if err := h.PutValue(writeAt, payload); err != nil {
		t.Fatalf("PutValue: %v", err)
	}
	got := make([]byte, len(payload))
	if err := h.GetValue(writeAt, got); err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("round trip mismatch: got %v, want %v", got, payload)
	}
}

func TestTranslateUnmappedFails(t *testing.T) {
	h := newTestHandle(t)
	if _, err := h.Translate(0x1000); err == nil {
		t.Fatal("Translate(unmapped) succeeded, want error")
	}
}

func TestTLBHitAfterFirstTranslate(t *testing.T) {
	h := newTestHandle(t)
	va, err := h.TMalloc(arena.PageSize)
	if err != nil {
		t.Fatalf("TMalloc: %v", err)
	}

	pa1, err := h.Translate(va)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got, ok := h.tlb.Lookup(va); !ok || got != pa1 {
		t.Errorf("expected a cached TLB hit for %#x with pa %#x, got ok=%v pa=%#x", va, pa1, ok, got)
	}
}

func TestTFreeThenTMallocReusesPage(t *testing.T) {
	h := newTestHandle(t)

	va, err := h.TMalloc(arena.PageSize)
	if err != nil {
		t.Fatalf("TMalloc: %v", err)
	}
	if err := h.TFree(va, arena.PageSize); err != nil {
		t.Fatalf("TFree: %v", err)
	}
	if _, err := h.Translate(va); err == nil {
		t.Error("Translate succeeded after TFree, want translation fault")
	}

	va2, err := h.TMalloc(arena.PageSize)
	if err != nil {
		t.Fatalf("TMalloc after free: %v", err)
	}
	if va2 != va {
		t.Errorf("expected freed page %#x to be reused, got %#x", va, va2)
	}
}
