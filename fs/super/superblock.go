// Package super implements the on-disk Superblock and the mkfs layout of
// §4.2, grounded on internal/squashfs's superblock struct and its
// binary.Read/binary.Write, binary.LittleEndian idiom.
package super

import (
	"bytes"
	"encoding/binary"

	"github.com/rofs/rufs/fs/bitmap"
	"github.com/rofs/rufs/fs/diskio"
	"golang.org/x/xerrors"
)

// Magic identifies a disk image as a rufs filesystem.
const Magic uint32 = 0x52554653 // "RUFS"

// Superblock is the fixed-size record persisted at block 0.
type Superblock struct {
	Magic       uint32
	MaxInum     uint32
	MaxDnum     uint32
	IBitmapBlk  uint32
	DBitmapBlk  uint32
	IStartBlk   uint32
	DStartBlk   uint32
	// pad keeps the on-disk record a round number of bytes; it carries no
	// meaning and is always zero.
	_ [4]byte
}

const onDiskSize = 32

// Config parameterizes Mkfs. MaxInum and MaxDnum default to 1024 each when
// zero, matching the reference implementation's MAX_INUM/MAX_DNUM.
type Config struct {
	MaxInum uint32
	MaxDnum uint32
}

func (c Config) withDefaults() Config {
	if c.MaxInum == 0 {
		c.MaxInum = 1024
	}
	if c.MaxDnum == 0 {
		c.MaxDnum = 1024
	}
	return c
}

// InodeRecordSize is the fixed on-disk size of one inode record; fs/inode
// defines the struct, but the layout math below needs the size before
// that package can even be constructed, so it is a shared constant.
const InodeRecordSize = 160

// MaxInodesPerBlock is the number of inode records packed into one block.
const MaxInodesPerBlock = diskio.BlockSize / InodeRecordSize

// layout computes the fixed block offsets of §4.2's table from a Config:
//
//	block 0           superblock
//	block 1           inode bitmap
//	block 2           data bitmap
//	block 3..d_start-1 inode table
//	d_start_blk..      data region
func Layout(cfg Config) Superblock {
	cfg = cfg.withDefaults()
	return layout(cfg)
}

func layout(cfg Config) Superblock {
	inodeBlocks := (cfg.MaxInum + MaxInodesPerBlock - 1) / MaxInodesPerBlock
	return Superblock{
		Magic:      Magic,
		MaxInum:    cfg.MaxInum,
		MaxDnum:    cfg.MaxDnum,
		IBitmapBlk: 1,
		DBitmapBlk: 2,
		IStartBlk:  3,
		DStartBlk:  3 + inodeBlocks,
	}
}

// TotalBlocks returns the number of blocks a fresh image of this Config
// needs: the metadata blocks plus the full data region of MaxDnum blocks.
func (cfg Config) TotalBlocks() uint32 {
	sb := Layout(cfg)
	return sb.DStartBlk + sb.MaxDnum
}

// Read loads the superblock from block 0 and validates its magic.
func Read(dev diskio.Device) (*Superblock, error) {
	buf := make([]byte, diskio.BlockSize)
	if err := dev.ReadBlock(0, buf); err != nil {
		return nil, xerrors.Errorf("super: read superblock: %w", err)
	}
	var sb Superblock
	if err := binary.Read(bytes.NewReader(buf[:onDiskSize]), binary.LittleEndian, &sb); err != nil {
		return nil, xerrors.Errorf("super: decode superblock: %w", err)
	}
	if sb.Magic != Magic {
		// A bad magic means the disk image is not ours at all: fatal, per §7.
		panic(xerrors.Errorf("super: bad magic %#x (not a rufs image?)", sb.Magic))
	}
	return &sb, nil
}

// Write persists the superblock to block 0.
func (sb *Superblock) Write(dev diskio.Device) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, sb); err != nil {
		return xerrors.Errorf("super: encode superblock: %w", err)
	}
	block := make([]byte, diskio.BlockSize)
	copy(block, buf.Bytes())
	if err := dev.WriteBlock(0, block); err != nil {
		return xerrors.Errorf("super: write superblock: %w", err)
	}
	return nil
}

// ReadBitmap loads one of the persisted bitmaps (inode or data) from its
// fixed block.
func ReadBitmap(dev diskio.Device, blk uint32, n int) (*bitmap.Bitmap, error) {
	raw := make([]byte, diskio.BlockSize)
	if err := dev.ReadBlock(blk, raw); err != nil {
		return nil, xerrors.Errorf("super: read bitmap block %d: %w", blk, err)
	}
	need := (n + 7) / 8
	return bitmap.Wrap(raw[:need:need], n), nil
}

// WriteBitmap persists a bitmap to its fixed block.
func WriteBitmap(dev diskio.Device, blk uint32, bm *bitmap.Bitmap) error {
	block := make([]byte, diskio.BlockSize)
	copy(block, bm.Bytes())
	if err := dev.WriteBlock(blk, block); err != nil {
		return xerrors.Errorf("super: write bitmap block %d: %w", blk, err)
	}
	return nil
}
