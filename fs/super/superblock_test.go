package super

import (
	"testing"

	"github.com/rofs/rufs/fs/diskio"
)

func TestLayoutDefaults(t *testing.T) {
	sb := Layout(Config{})
	if sb.MaxInum != 1024 || sb.MaxDnum != 1024 {
		t.Errorf("defaults = (%d, %d), want (1024, 1024)", sb.MaxInum, sb.MaxDnum)
	}
	if sb.IBitmapBlk != 1 || sb.DBitmapBlk != 2 || sb.IStartBlk != 3 {
		t.Errorf("unexpected fixed offsets: %+v", sb)
	}
	if sb.DStartBlk <= sb.IStartBlk {
		t.Errorf("DStartBlk %d must be after IStartBlk %d", sb.DStartBlk, sb.IStartBlk)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	cfg := Config{MaxInum: 8, MaxDnum: 8}
	dev := diskio.NewMemDevice(cfg.TotalBlocks())
	sb := Layout(cfg)
	if err := sb.Write(dev); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(dev)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if *got != sb {
		t.Errorf("round trip mismatch: got %+v, want %+v", *got, sb)
	}
}

func TestReadBadMagicPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Read with bad magic did not panic")
		}
	}()
	dev := diskio.NewMemDevice(1)
	Read(dev) // block 0 is all zero, magic mismatch
}

func TestBitmapRoundTrip(t *testing.T) {
	cfg := Config{MaxInum: 20, MaxDnum: 20}
	dev := diskio.NewMemDevice(cfg.TotalBlocks())
	sb := Layout(cfg)

	bm, err := ReadBitmap(dev, sb.IBitmapBlk, int(sb.MaxInum))
	if err != nil {
		t.Fatalf("ReadBitmap: %v", err)
	}
	bm.Set(3)
	bm.Set(19)
	if err := WriteBitmap(dev, sb.IBitmapBlk, bm); err != nil {
		t.Fatalf("WriteBitmap: %v", err)
	}

	reloaded, err := ReadBitmap(dev, sb.IBitmapBlk, int(sb.MaxInum))
	if err != nil {
		t.Fatalf("ReadBitmap (reload): %v", err)
	}
	if !reloaded.Get(3) || !reloaded.Get(19) {
		t.Error("bitmap did not survive a write/read round trip")
	}
	if reloaded.Get(4) {
		t.Error("unexpected bit set after round trip")
	}
}

func TestTotalBlocksGrowsWithInodeCount(t *testing.T) {
	small := Config{MaxInum: 32, MaxDnum: 32}.TotalBlocks()
	large := Config{MaxInum: 100000, MaxDnum: 32}.TotalBlocks()
	if large <= small {
		t.Errorf("TotalBlocks did not grow with MaxInum: small=%d large=%d", small, large)
	}
}
