// Package dirent implements the directory service of §4.4: lookup,
// insertion, and iteration of name->inode entries inside a directory
// inode's direct-pointer data blocks.
package dirent

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/rofs/rufs/fs/bitmap"
	"github.com/rofs/rufs/fs/diskio"
	"github.com/rofs/rufs/fs/inode"
	"github.com/rofs/rufs/fs/rufserr"
	"github.com/rofs/rufs/fs/super"
)

// NameMax bounds a directory entry's name, matching the fixed bounded
// buffer of §3.
const NameMax = 56

// recordSize is the fixed on-disk size of one directory entry.
const recordSize = 64

// MaxDirentsPerBlock is how many dirent records are packed into one data
// block.
const MaxDirentsPerBlock = diskio.BlockSize / recordSize

// Dirent is one packed directory entry.
type Dirent struct {
	Valid uint8
	Ino   uint32
	Name  string
}

type diskDirent struct {
	Valid   uint8
	NameLen uint8
	_       [2]byte
	Ino     uint32
	Name    [NameMax]byte
}

func encode(d Dirent) diskDirent {
	var rec diskDirent
	rec.Valid = d.Valid
	rec.Ino = d.Ino
	n := copy(rec.Name[:], d.Name)
	rec.NameLen = uint8(n)
	return rec
}

func decode(rec diskDirent) Dirent {
	return Dirent{
		Valid: rec.Valid,
		Ino:   rec.Ino,
		Name:  string(rec.Name[:rec.NameLen]),
	}
}

func readBlockDirents(dev diskio.Device, blk uint32) ([]Dirent, error) {
	raw := make([]byte, diskio.BlockSize)
	if err := dev.ReadBlock(blk, raw); err != nil {
		return nil, err
	}
	out := make([]Dirent, MaxDirentsPerBlock)
	for i := range out {
		off := i * recordSize
		var rec diskDirent
		if err := binary.Read(bytes.NewReader(raw[off:off+recordSize]), binary.LittleEndian, &rec); err != nil {
			return nil, err
		}
		out[i] = decode(rec)
	}
	return out, nil
}

func writeBlockDirents(dev diskio.Device, blk uint32, ents []Dirent) error {
	raw := make([]byte, diskio.BlockSize)
	for i, d := range ents {
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, encode(d)); err != nil {
			return err
		}
		copy(raw[i*recordSize:(i+1)*recordSize], buf.Bytes())
	}
	return dev.WriteBlock(blk, raw)
}

// DirFind scans every data block dirIno's direct pointers reference (in
// index order, stopping at the first zero pointer) for name, returning the
// first valid match. It returns a rufserr.NotFound error otherwise — the
// reference implementation's "-ENONET" is a typo for ENOENT (§9); this
// port uses the semantic NotFound kind directly.
func DirFind(dev diskio.Device, sb *super.Superblock, dirIno *inode.Inode, name string) (Dirent, error) {
	for _, blk := range dirIno.DirectPtr {
		if blk == 0 {
			break
		}
		ents, err := readBlockDirents(dev, blk)
		if err != nil {
			return Dirent{}, err
		}
		for _, d := range ents {
			if d.Valid == 1 && d.Name == name {
				return d, nil
			}
		}
	}
	return Dirent{}, rufserr.Errorf(rufserr.NotFound, "dirent: %q not found", name)
}

// DirAdd inserts a (childIno, name) entry into dirIno, allocating a fresh
// data block from dataBitmap when every existing direct pointer's block is
// full, per the procedure in §4.4.
func DirAdd(dev diskio.Device, sb *super.Superblock, dirIno *inode.Inode, dataBitmapBlk uint32, dataBitmap *bitmap.Bitmap, childIno uint32, name string) error {
	if len(name) > NameMax {
		return rufserr.Errorf(rufserr.NoSpace, "dirent: name %q exceeds %d bytes", name, NameMax)
	}
	if _, err := DirFind(dev, sb, dirIno, name); err == nil {
		return rufserr.Errorf(rufserr.AlreadyExists, "dirent: %q already exists", name)
	}

	for i := range dirIno.DirectPtr {
		blk := dirIno.DirectPtr[i]
		if blk == 0 {
			free := dataBitmap.FirstFree()
			if free < 0 {
				return rufserr.Errorf(rufserr.NoSpace, "dirent: data bitmap exhausted")
			}
			dataBitmap.Set(free)
			if err := super.WriteBitmap(dev, dataBitmapBlk, dataBitmap); err != nil {
				return err
			}
			blk = sb.DStartBlk + uint32(free)
			dirIno.DirectPtr[i] = blk
			dirIno.Stat.Blocks++
			if err := writeBlockDirents(dev, blk, make([]Dirent, MaxDirentsPerBlock)); err != nil {
				return err
			}
		}

		ents, err := readBlockDirents(dev, blk)
		if err != nil {
			return err
		}
		for j := range ents {
			if ents[j].Valid == 1 {
				continue
			}
			ents[j] = Dirent{Valid: 1, Ino: childIno, Name: name}
			if err := writeBlockDirents(dev, blk, ents); err != nil {
				return err
			}
			dirIno.Size += recordSize
			dirIno.Stat.Size += recordSize
			dirIno.Stat.Mtime = time.Now().Unix()
			return inode.WriteI(dev, sb, dirIno)
		}
	}
	return rufserr.Errorf(rufserr.NoSpace, "dirent: no free slot across all direct pointers")
}

// ForEach walks every valid entry across dirIno's direct-pointer blocks, in
// direct-pointer then in-block order, calling fn for each.
func ForEach(dev diskio.Device, dirIno *inode.Inode, fn func(Dirent) error) error {
	for _, blk := range dirIno.DirectPtr {
		if blk == 0 {
			break
		}
		ents, err := readBlockDirents(dev, blk)
		if err != nil {
			return err
		}
		for _, d := range ents {
			if d.Valid != 1 {
				continue
			}
			if err := fn(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// InitDir writes the "." and ".." entries into ino's first data block, the
// way mkfs seeds the root directory and mkdir seeds every new directory
// (§4.2, §4.6).
func InitDir(dev diskio.Device, blk uint32, selfIno, parentIno uint32) error {
	ents := make([]Dirent, MaxDirentsPerBlock)
	ents[0] = Dirent{Valid: 1, Ino: selfIno, Name: "."}
	ents[1] = Dirent{Valid: 1, Ino: parentIno, Name: ".."}
	return writeBlockDirents(dev, blk, ents)
}
