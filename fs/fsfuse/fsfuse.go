// Package fsfuse implements the Filesystem Operations Facade of §4.6 as a
// fuseops.FileSystem, grounded on internal/fuse/fuse.go's fuseFS: the same
// single sync.Mutex guarding the whole receiver, the same
// fuseutil.WriteDirent/fuseops.DirOffset readdir loop, and the same
// fuse.ENOENT/fuse.EIO/fuse.ENOSYS error mapping.
package fsfuse

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"golang.org/x/xerrors"

	"github.com/rofs/rufs/fs/bitmap"
	"github.com/rofs/rufs/fs/diskio"
	"github.com/rofs/rufs/fs/dirent"
	"github.com/rofs/rufs/fs/inode"
	"github.com/rofs/rufs/fs/rufserr"
	"github.com/rofs/rufs/fs/super"
)

// FS is the mounted filesystem's fuseops.FileSystem implementation. The
// on-disk inode numbering starts at 0 (the root), but FUSE reserves inode 1
// for the root and never hands out 0, so fuseIno/diskIno translate between
// the two spaces with a +1/-1 offset.
type FS struct {
	fuseutil.NotImplementedFileSystem

	mu  sync.Mutex
	dev diskio.Device
	sb  *super.Superblock

	ibm *bitmap.Bitmap
	dbm *bitmap.Bitmap

	handleCnt fuseops.HandleID
}

func fuseIno(diskIno uint32) fuseops.InodeID { return fuseops.InodeID(diskIno) + 1 }
func diskIno(i fuseops.InodeID) uint32       { return uint32(i - 1) }

// New opens fsfuse atop an already-formatted device.
func New(dev diskio.Device, sb *super.Superblock) (*FS, error) {
	ibm, err := super.ReadBitmap(dev, sb.IBitmapBlk, int(sb.MaxInum))
	if err != nil {
		return nil, err
	}
	dbm, err := super.ReadBitmap(dev, sb.DBitmapBlk, int(sb.MaxDnum))
	if err != nil {
		return nil, err
	}
	fs := &FS{
		dev: dev,
		sb:  sb,
		ibm: ibm,
		dbm: dbm,
	}
	return fs, nil
}

func (fs *FS) allocInode() (uint32, error) {
	free := fs.ibm.FirstFree()
	if free < 0 {
		return 0, rufserr.Errorf(rufserr.NoSpace, "fsfuse: inode bitmap exhausted")
	}
	fs.ibm.Set(free)
	if err := super.WriteBitmap(fs.dev, fs.sb.IBitmapBlk, fs.ibm); err != nil {
		return 0, err
	}
	return uint32(free), nil
}

func (fs *FS) allocDataBlock() (uint32, error) {
	free := fs.dbm.FirstFree()
	if free < 0 {
		return 0, rufserr.Errorf(rufserr.NoSpace, "fsfuse: data bitmap exhausted")
	}
	fs.dbm.Set(free)
	if err := super.WriteBitmap(fs.dev, fs.sb.DBitmapBlk, fs.dbm); err != nil {
		return 0, err
	}
	return fs.sb.DStartBlk + uint32(free), nil
}

func attrsFromStat(st inode.Stat) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  st.Size,
		Nlink: st.Nlink,
		Mode:  os.FileMode(st.Mode & 0777).Perm() | modeBits(st.Mode),
		Atime: time.Unix(st.Atime, 0),
		Mtime: time.Unix(st.Mtime, 0),
		Ctime: time.Unix(st.Ctime, 0),
		Uid:   st.Uid,
		Gid:   st.Gid,
	}
}

func modeBits(m uint32) os.FileMode {
	if m&inode.SIFDIR != 0 {
		return os.ModeDir
	}
	return 0
}

// StatFS reports coarse, mostly static filesystem stats, the way
// internal/fuse/fuse.go's StatFS does for its read-only image.
func (fs *FS) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	op.BlockSize = diskio.BlockSize
	op.Blocks = uint64(fs.sb.DStartBlk) + uint64(fs.sb.MaxDnum)
	op.BlocksFree = 0
	op.BlocksAvailable = 0
	op.IoSize = diskio.BlockSize
	return nil
}

func (fs *FS) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, err := inode.ReadI(fs.dev, fs.sb, diskIno(op.Parent))
	if err != nil {
		return fuse.EIO
	}
	d, err := dirent.DirFind(fs.dev, fs.sb, parent, op.Name)
	if err != nil {
		if rufserr.Is(err, rufserr.NotFound) {
			return fuse.ENOENT
		}
		return fuse.EIO
	}
	child, err := inode.ReadI(fs.dev, fs.sb, d.Ino)
	if err != nil {
		return fuse.EIO
	}
	op.Entry.Child = fuseIno(d.Ino)
	op.Entry.Attributes = attrsFromStat(child.Stat)
	return nil
}

func (fs *FS) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in, err := inode.ReadI(fs.dev, fs.sb, diskIno(op.Inode))
	if err != nil {
		return fuse.ENOENT
	}
	op.Attributes = attrsFromStat(in.Stat)
	return nil
}

func (fs *FS) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in, err := inode.ReadI(fs.dev, fs.sb, diskIno(op.Inode))
	if err != nil {
		return fuse.ENOENT
	}
	if op.Mode != nil {
		in.Stat.Mode = in.Stat.Mode&^0777 | uint32(op.Mode.Perm())
	}
	if op.Size != nil {
		if *op.Size != 0 {
			return fuse.ENOSYS
		}
		in.Stat.Size = *op.Size
		in.Size = *op.Size
	}
	if op.Mtime != nil {
		in.Stat.Mtime = op.Mtime.Unix()
	}
	if err := inode.WriteI(fs.dev, fs.sb, in); err != nil {
		return fuse.EIO
	}
	op.Attributes = attrsFromStat(in.Stat)
	return nil
}

func (fs *FS) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	in, err := inode.ReadI(fs.dev, fs.sb, diskIno(op.Inode))
	if err != nil {
		return fuse.ENOENT
	}
	if in.Type != inode.Dir {
		return fuse.EIO
	}
	fs.handleCnt++
	op.Handle = fs.handleCnt
	return nil
}

func (fs *FS) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	return nil
}

func (fs *FS) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dirIno, err := inode.ReadI(fs.dev, fs.sb, diskIno(op.Inode))
	if err != nil {
		return fuse.EIO
	}

	var entries []fuseutil.Dirent
	err = dirent.ForEach(fs.dev, dirIno, func(d dirent.Dirent) error {
		child, err := inode.ReadI(fs.dev, fs.sb, d.Ino)
		if err != nil {
			return err
		}
		typ := fuseutil.DT_File
		if child.Type == inode.Dir {
			typ = fuseutil.DT_Directory
		}
		entries = append(entries, fuseutil.Dirent{
			Offset: fuseops.DirOffset(len(entries) + 1),
			Inode:  fuseIno(d.Ino),
			Name:   d.Name,
			Type:   typ,
		})
		return nil
	})
	if err != nil {
		return fuse.EIO
	}

	if op.Offset > fuseops.DirOffset(len(entries)) {
		return fuse.EIO
	}
	for _, e := range entries[op.Offset:] {
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], e)
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (fs *FS) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, err := inode.ReadI(fs.dev, fs.sb, diskIno(op.Parent))
	if err != nil {
		return fuse.EIO
	}
	if _, err := dirent.DirFind(fs.dev, fs.sb, parent, op.Name); err == nil {
		return fuse.EEXIST
	}

	childIno, err := fs.allocInode()
	if err != nil {
		return fuse.ENOSPC
	}
	blk, err := fs.allocDataBlock()
	if err != nil {
		return fuse.ENOSPC
	}

	child := inode.NewDir(childIno, blk, uint32(op.Mode.Perm()), time.Now())
	child.Stat.Size = 2 * 64
	child.Size = child.Stat.Size
	if err := inode.WriteI(fs.dev, fs.sb, &child); err != nil {
		return fuse.EIO
	}
	if err := dirent.InitDir(fs.dev, blk, childIno, diskIno(op.Parent)); err != nil {
		return fuse.EIO
	}

	dataBitmapBlk := fs.sb.DBitmapBlk
	if err := dirent.DirAdd(fs.dev, fs.sb, parent, dataBitmapBlk, fs.dbm, childIno, op.Name); err != nil {
		return fuse.EIO
	}
	parent.Stat.Nlink++ // child's ".." points back at parent
	if err := inode.WriteI(fs.dev, fs.sb, parent); err != nil {
		return fuse.EIO
	}

	op.Entry.Child = fuseIno(childIno)
	op.Entry.Attributes = attrsFromStat(child.Stat)
	return nil
}

func (fs *FS) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, err := inode.ReadI(fs.dev, fs.sb, diskIno(op.Parent))
	if err != nil {
		return fuse.EIO
	}
	if _, err := dirent.DirFind(fs.dev, fs.sb, parent, op.Name); err == nil {
		return fuse.EEXIST
	}

	childIno, err := fs.allocInode()
	if err != nil {
		return fuse.ENOSPC
	}
	child := inode.NewReg(childIno, uint32(op.Mode.Perm()), time.Now())
	if err := inode.WriteI(fs.dev, fs.sb, &child); err != nil {
		return fuse.EIO
	}

	if err := dirent.DirAdd(fs.dev, fs.sb, parent, fs.sb.DBitmapBlk, fs.dbm, childIno, op.Name); err != nil {
		return fuse.EIO
	}

	op.Entry.Child = fuseIno(childIno)
	op.Entry.Attributes = attrsFromStat(child.Stat)
	return nil
}

func (fs *FS) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, err := inode.ReadI(fs.dev, fs.sb, diskIno(op.Inode)); err != nil {
		return fuse.ENOENT
	}
	fs.handleCnt++
	op.Handle = fs.handleCnt
	return nil
}

func (fs *FS) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	return nil
}

func (fs *FS) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	return nil
}

// Read, Write, RmDir, Unlink and Truncate are out of scope (§1 Non-goals:
// no data-block read/write path, no deletion); truncation arrives through
// SetInodeAttributes above, which accepts only a new size of zero and
// returns fuse.ENOSYS otherwise. The rest return fuse.ENOSYS, matching the way
// internal/fuse/fuse.go returns fuse.ENOSYS for operations its read-only
// view never implements.
func (fs *FS) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error { return fuse.ENOSYS }
func (fs *FS) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	return fuse.ENOSYS
}
func (fs *FS) RmDir(ctx context.Context, op *fuseops.RmDirOp) error { return fuse.ENOSYS }
func (fs *FS) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	return fuse.ENOSYS
}

func (fs *FS) Destroy() {
	if err := fs.dev.Close(); err != nil {
		panic(xerrors.Errorf("fsfuse: close device: %w", err))
	}
}

// RootInodeID is the fixed FUSE inode number of the filesystem root
// (diskIno 0), exported so cmd/rufs can sanity-check fuse.MountConfig
// wiring without reaching into fuseops itself.
const RootInodeID = fuseops.RootInodeID
