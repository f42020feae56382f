package mkfs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rofs/rufs/fs/diskio"
	"github.com/rofs/rufs/fs/inode"
	"github.com/rofs/rufs/fs/path"
	"github.com/rofs/rufs/fs/super"
)

func TestBuildThenLoadMatchesDirectBuild(t *testing.T) {
	cfg := super.Config{MaxInum: 64, MaxDnum: 64}

	dev1 := diskio.NewMemDevice(cfg.TotalBlocks())
	sb1, err := Build(dev1, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	dev2 := diskio.NewMemDevice(cfg.TotalBlocks())
	sb2, err := Build(dev2, cfg)
	if err != nil {
		t.Fatalf("Build (second): %v", err)
	}

	if diff := cmp.Diff(sb1, sb2); diff != "" {
		t.Fatalf("mkfs is not idempotent (-first +second):\n%s", diff)
	}

	loaded, err := super.Read(dev1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(sb1, loaded); diff != "" {
		t.Fatalf("loaded superblock differs from the one mkfs returned:\n%s", diff)
	}
}

func TestRootDirectoryAttributes(t *testing.T) {
	cfg := super.Config{MaxInum: 64, MaxDnum: 64}
	dev := diskio.NewMemDevice(cfg.TotalBlocks())
	sb, err := Build(dev, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	root, err := inode.ReadI(dev, sb, path.RootIno)
	if err != nil {
		t.Fatalf("ReadI(root): %v", err)
	}
	if root.Type != inode.Dir {
		t.Errorf("root type = %v, want Dir", root.Type)
	}
	if root.Stat.Nlink != 2 {
		t.Errorf("root nlink = %d, want 2", root.Stat.Nlink)
	}
	if root.Stat.Mode&inode.SIFDIR == 0 {
		t.Errorf("root mode %o missing S_IFDIR", root.Stat.Mode)
	}
}

func TestGetattrRoot(t *testing.T) {
	cfg := super.Config{}
	dev := diskio.NewMemDevice(cfg.TotalBlocks())
	sb, err := Build(dev, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := path.Resolve(dev, sb, "/")
	if err != nil {
		t.Fatalf("Resolve(/): %v", err)
	}
	if got.Ino != 0 {
		t.Errorf("root ino = %d, want 0", got.Ino)
	}
}
