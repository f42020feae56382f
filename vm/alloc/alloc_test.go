package alloc

import (
	"testing"

	"github.com/rofs/rufs/fs/bitmap"
)

func TestPagesForBytesRoundsUpByOne(t *testing.T) {
	cases := []struct {
		bytes uint32
		want  int
	}{
		{0, 1},
		{1, 1},
		{4095, 1},
		{4096, 2}, // exact multiple still rounds up, per the reference formula
		{4097, 2},
	}
	for _, c := range cases {
		if got := PagesForBytes(c.bytes); got != c.want {
			t.Errorf("PagesForBytes(%d) = %d, want %d", c.bytes, got, c.want)
		}
	}
}

func TestGetNextAvailFindsFirstRun(t *testing.T) {
	bm := bitmap.New(32)
	bm.Set(0) // reserved
	bm.Set(3)
	bm.Set(4)

	start, ok := GetNextAvail(bm, 2)
	if !ok {
		t.Fatal("GetNextAvail reported no run")
	}
	if start != 1 {
		t.Errorf("start = %d, want 1", start)
	}
}

func TestGetNextAvailSkipsFragmentedRegion(t *testing.T) {
	bm := bitmap.New(16)
	bm.Set(0)
	bm.Set(2)
	bm.Set(4)
	bm.Set(6)

	// No run of 3 consecutive free bits exists until after bit 7.
	start, ok := GetNextAvail(bm, 3)
	if !ok {
		t.Fatal("GetNextAvail reported no run")
	}
	if start < 7 {
		t.Errorf("start = %d, expected a run beginning at or after bit 7", start)
	}
}

func TestGetNextAvailExhausted(t *testing.T) {
	bm := bitmap.New(4)
	for i := 0; i < 4; i++ {
		bm.Set(i)
	}
	if _, ok := GetNextAvail(bm, 1); ok {
		t.Error("GetNextAvail succeeded on a fully occupied bitmap")
	}
}
