// Package inode implements the fixed-size inode record and the
// ReadI/WriteI protocol of §4.3, grounded on internal/squashfs's
// binary.Read/binary.Write inode headers.
package inode

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/rofs/rufs/fs/diskio"
	"github.com/rofs/rufs/fs/super"
	"golang.org/x/xerrors"
)

// Type classifies an inode as a directory or a regular file.
type Type uint8

const (
	Free Type = iota
	Dir
	Reg
)

// DirectPtrs is the number of direct data-block pointers an inode carries.
// There is no indirect-block support (§1 Non-goals).
const DirectPtrs = 16

// mode bits mirroring the POSIX S_IFDIR/S_IFREG constants used by
// getattr's embedded stat (§4.6).
const (
	SIFDIR uint32 = 0040000
	SIFREG uint32 = 0100000
)

// Stat mirrors the subset of struct stat that getattr needs to hand back.
type Stat struct {
	Mode   uint32
	Nlink  uint32
	Size   uint64
	Blocks uint32
	Atime  int64
	Mtime  int64
	Ctime  int64
	Uid    uint32
	Gid    uint32
}

// Inode is the fixed-size on-disk inode record of §3.
type Inode struct {
	Ino        uint32
	Valid      uint8
	Type       Type
	_          uint16 // padding to keep Link 4-byte aligned
	Link       uint32
	Size       uint64
	DirectPtr  [DirectPtrs]uint32
	Stat       Stat
}

// diskLayout is the wire-format twin of Inode: identical field order, but
// with no Go padding so binary.Read/Write round-trip a fixed 136 bytes
// regardless of compiler alignment choices. Each record occupies a
// super.InodeRecordSize-byte slot; the rest of the slot is unused.
type diskLayout struct {
	Ino       uint32
	Valid     uint8
	Type      uint8
	_         uint16
	Link      uint32
	Size      uint64
	DirectPtr [DirectPtrs]uint32
	Mode      uint32
	Nlink     uint32
	StSize    uint64
	Blocks    uint32
	Atime     int64
	Mtime     int64
	Ctime     int64
	Uid       uint32
	Gid       uint32
}

func toDisk(in *Inode) diskLayout {
	return diskLayout{
		Ino:       in.Ino,
		Valid:     in.Valid,
		Type:      uint8(in.Type),
		Link:      in.Link,
		Size:      in.Size,
		DirectPtr: in.DirectPtr,
		Mode:      in.Stat.Mode,
		Nlink:     in.Stat.Nlink,
		StSize:    in.Stat.Size,
		Blocks:    in.Stat.Blocks,
		Atime:     in.Stat.Atime,
		Mtime:     in.Stat.Mtime,
		Ctime:     in.Stat.Ctime,
		Uid:       in.Stat.Uid,
		Gid:       in.Stat.Gid,
	}
}

func fromDisk(d diskLayout) Inode {
	return Inode{
		Ino:       d.Ino,
		Valid:     d.Valid,
		Type:      Type(d.Type),
		Link:      d.Link,
		Size:      d.Size,
		DirectPtr: d.DirectPtr,
		Stat: Stat{
			Mode:   d.Mode,
			Nlink:  d.Nlink,
			Size:   d.StSize,
			Blocks: d.Blocks,
			Atime:  d.Atime,
			Mtime:  d.Mtime,
			Ctime:  d.Ctime,
			Uid:    d.Uid,
			Gid:    d.Gid,
		},
	}
}

// location returns the block index and within-block slot for ino, per the
// addressing formula of §4.3.
func location(sb *super.Superblock, ino uint32) (block uint32, slot uint32) {
	block = sb.IStartBlk + ino/super.MaxInodesPerBlock
	slot = ino % super.MaxInodesPerBlock
	return block, slot
}

// ReadI reads inode ino's record off disk.
func ReadI(dev diskio.Device, sb *super.Superblock, ino uint32) (*Inode, error) {
	block, slot := location(sb, ino)
	buf := make([]byte, diskio.BlockSize)
	if err := dev.ReadBlock(block, buf); err != nil {
		return nil, xerrors.Errorf("inode: readi(%d): %w", ino, err)
	}
	off := slot * super.InodeRecordSize
	var d diskLayout
	if err := binary.Read(bytes.NewReader(buf[off:off+super.InodeRecordSize]), binary.LittleEndian, &d); err != nil {
		return nil, xerrors.Errorf("inode: decode ino %d: %w", ino, err)
	}
	in := fromDisk(d)
	return &in, nil
}

// WriteI is the read-modify-write dual of ReadI.
func WriteI(dev diskio.Device, sb *super.Superblock, in *Inode) error {
	block, slot := location(sb, in.Ino)
	buf := make([]byte, diskio.BlockSize)
	if err := dev.ReadBlock(block, buf); err != nil {
		return xerrors.Errorf("inode: writei(%d): %w", in.Ino, err)
	}
	var rec bytes.Buffer
	if err := binary.Write(&rec, binary.LittleEndian, toDisk(in)); err != nil {
		return xerrors.Errorf("inode: encode ino %d: %w", in.Ino, err)
	}
	off := slot * super.InodeRecordSize
	copy(buf[off:off+super.InodeRecordSize], rec.Bytes())
	if err := dev.WriteBlock(block, buf); err != nil {
		return xerrors.Errorf("inode: writei(%d): %w", in.Ino, err)
	}
	return nil
}

// NewDir builds a fresh DIR inode with link count 2, the shape mkdir and
// mkfs's root both start from (§4.2, §4.6).
func NewDir(ino uint32, dataBlk uint32, mode uint32, now time.Time) Inode {
	var in Inode
	in.Ino = ino
	in.Valid = 1
	in.Type = Dir
	in.Link = 2
	in.DirectPtr[0] = dataBlk
	in.Stat = Stat{
		Mode:   SIFDIR | mode,
		Nlink:  2,
		Blocks: 1,
		Atime:  now.Unix(),
		Mtime:  now.Unix(),
		Ctime:  now.Unix(),
	}
	return in
}

// NewReg builds a fresh, empty REG inode (§4.6 create).
func NewReg(ino uint32, mode uint32, now time.Time) Inode {
	var in Inode
	in.Ino = ino
	in.Valid = 1
	in.Type = Reg
	in.Link = 1
	in.Stat = Stat{
		Mode:  SIFREG | mode,
		Nlink: 1,
		Atime: now.Unix(),
		Mtime: now.Unix(),
		Ctime: now.Unix(),
	}
	return in
}
