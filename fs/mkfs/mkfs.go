// Package mkfs builds a fresh filesystem image per §4.2: it writes the
// superblock, both bitmaps, and the root directory's first data block to
// a diskio.Device, then (for a file-backed device) hands the flattened
// image to github.com/google/renameio so a crash mid-write never leaves a
// torn DISKFILE behind — the same atomic-rename idiom
// internal/build/build.go and internal/install/install.go use for
// installing packages.
package mkfs

import (
	"time"

	"github.com/google/renameio"
	"github.com/rofs/rufs/fs/bitmap"
	"github.com/rofs/rufs/fs/diskio"
	"github.com/rofs/rufs/fs/dirent"
	"github.com/rofs/rufs/fs/inode"
	"github.com/rofs/rufs/fs/super"
	"golang.org/x/xerrors"
)

// Build writes the fresh-image layout of §4.2 to dev and returns the
// resulting superblock.
func Build(dev diskio.Device, cfg super.Config) (*super.Superblock, error) {
	layout := super.Layout(cfg)
	sb := &layout

	ibm := bitmap.New(int(sb.MaxInum))
	dbm := bitmap.New(int(sb.MaxDnum))
	ibm.Set(0) // root inode
	dbm.Set(0) // root directory's first data block

	if err := super.WriteBitmap(dev, sb.IBitmapBlk, ibm); err != nil {
		return nil, err
	}
	if err := super.WriteBitmap(dev, sb.DBitmapBlk, dbm); err != nil {
		return nil, err
	}

	root := inode.NewDir(0, sb.DStartBlk, 0755, time.Now())
	root.Stat.Size = 2 * 64 // two dirents; see fs/dirent.recordSize
	root.Size = root.Stat.Size
	if err := inode.WriteI(dev, sb, &root); err != nil {
		return nil, err
	}
	if err := dirent.InitDir(dev, sb.DStartBlk, 0, 0); err != nil {
		return nil, err
	}

	if err := sb.Write(dev); err != nil {
		return nil, err
	}
	return sb, nil
}

// BuildFile creates a brand-new disk image at path: it stages the full
// layout in memory, then commits it to disk with a single atomic rename.
func BuildFile(path string, cfg super.Config) (*super.Superblock, error) {
	total := cfg.TotalBlocks()
	mem := diskio.NewMemDevice(total)
	sb, err := Build(mem, cfg)
	if err != nil {
		return nil, err
	}

	image := make([]byte, 0, int(total)*diskio.BlockSize)
	buf := make([]byte, diskio.BlockSize)
	for i := uint32(0); i < total; i++ {
		if err := mem.ReadBlock(i, buf); err != nil {
			return nil, err
		}
		image = append(image, buf...)
	}
	if err := renameio.WriteFile(path, image, 0644); err != nil {
		return nil, xerrors.Errorf("mkfs: commit %s: %w", path, err)
	}
	return sb, nil
}
