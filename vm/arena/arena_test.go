package arena

import "testing"

func TestFrameZeroReserved(t *testing.T) {
	a, err := New(PageSize * 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	f, err := a.AllocFrame()
	if err != nil {
		t.Fatalf("AllocFrame: %v", err)
	}
	if f == 0 {
		t.Error("AllocFrame returned reserved frame 0")
	}
}

func TestFrameViewsAreIndependentAndWritable(t *testing.T) {
	a, err := New(PageSize * 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	f1, _ := a.AllocFrame()
	f2, _ := a.AllocFrame()

	buf1 := a.Frame(f1)
	buf1[0] = 0xAB
	buf2 := a.Frame(f2)
	if buf2[0] == 0xAB {
		t.Error("writing frame 1 leaked into frame 2")
	}
}

func TestAllocFrameExhaustion(t *testing.T) {
	a, err := New(PageSize * 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, err := a.AllocFrame(); err != nil {
		t.Fatalf("first AllocFrame: %v", err)
	}
	if _, err := a.AllocFrame(); err == nil {
		t.Error("AllocFrame succeeded past capacity")
	}
}
