package bitmap

import "testing"

func TestSetClearGet(t *testing.T) {
	b := New(20)
	if b.Get(5) {
		t.Fatalf("bit 5 should start clear")
	}
	b.Set(5)
	if !b.Get(5) {
		t.Fatalf("bit 5 should be set")
	}
	b.Clear(5)
	if b.Get(5) {
		t.Fatalf("bit 5 should be clear again")
	}
}

func TestFirstFree(t *testing.T) {
	b := New(10)
	b.Set(0)
	b.Set(1)
	b.Set(2)
	if got, want := b.FirstFree(), 3; got != want {
		t.Fatalf("FirstFree() = %d, want %d", got, want)
	}
	for i := 0; i < 10; i++ {
		b.Set(i)
	}
	if got := b.FirstFree(); got != -1 {
		t.Fatalf("FirstFree() = %d, want -1 when full", got)
	}
}

func TestOutOfRangePanics(t *testing.T) {
	b := New(4)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on out-of-range access")
		}
	}()
	b.Set(4)
}

func TestWrapSharesStorage(t *testing.T) {
	raw := make([]byte, 1)
	b := Wrap(raw, 8)
	b.Set(3)
	if raw[0] != 1<<3 {
		t.Fatalf("Wrap should alias the backing slice, got %08b", raw[0])
	}
}
