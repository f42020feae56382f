// Package diskio provides the fixed-size block read/write primitive the
// rest of fs is built on. The bio_read/bio_write/dev_init/dev_open/dev_close
// primitives are out of scope per the design (§1); this package gives them
// a concrete, minimal shape so fs/super, fs/inode and fs/dirent have
// something to call, grounded on internal/squashfs.Reader's io.ReaderAt
// block access and io/fs-style error wrapping.
package diskio

import (
	"io"
	"os"

	"golang.org/x/xerrors"
)

// BlockSize is the fixed size of a disk block in bytes. Changing it
// invalidates any existing disk image.
const BlockSize = 4096

// Device is a fixed-size block device: block index in, BlockSize-byte
// buffer out.
type Device interface {
	ReadBlock(idx uint32, buf []byte) error
	WriteBlock(idx uint32, buf []byte) error
	Close() error
}

// FileDevice backs a Device with a regular file, the way a FUSE-mounted
// filesystem backs its image with ./DISKFILE per §6.
type FileDevice struct {
	f *os.File
}

// OpenFile opens an existing disk image for block I/O.
func OpenFile(path string) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, xerrors.Errorf("diskio: open %s: %w", path, err)
	}
	return &FileDevice{f: f}, nil
}

// CreateFile creates a fresh disk image of the given block count,
// truncated to size, the way rufs_mkfs calls dev_init.
func CreateFile(path string, blocks uint32) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, xerrors.Errorf("diskio: create %s: %w", path, err)
	}
	if err := f.Truncate(int64(blocks) * BlockSize); err != nil {
		f.Close()
		return nil, xerrors.Errorf("diskio: truncate %s: %w", path, err)
	}
	return &FileDevice{f: f}, nil
}

// ReadBlock reads block idx into buf, which must be at least BlockSize
// bytes.
func (d *FileDevice) ReadBlock(idx uint32, buf []byte) error {
	n, err := d.f.ReadAt(buf[:BlockSize], int64(idx)*BlockSize)
	if err != nil && !(err == io.EOF && n == BlockSize) {
		return xerrors.Errorf("diskio: read block %d: %w", idx, err)
	}
	return nil
}

// WriteBlock writes buf (at least BlockSize bytes) to block idx.
func (d *FileDevice) WriteBlock(idx uint32, buf []byte) error {
	if _, err := d.f.WriteAt(buf[:BlockSize], int64(idx)*BlockSize); err != nil {
		return xerrors.Errorf("diskio: write block %d: %w", idx, err)
	}
	return nil
}

// Close closes the backing file.
func (d *FileDevice) Close() error { return d.f.Close() }

// MemDevice is an in-memory Device used by tests, standing in for a real
// disk image the way internal/squashfs's tests wrap a bytes.Buffer
// instead of a file.
type MemDevice struct {
	blocks [][]byte
}

// NewMemDevice allocates an in-memory device with the given block count,
// all zeroed.
func NewMemDevice(blocks uint32) *MemDevice {
	d := &MemDevice{blocks: make([][]byte, blocks)}
	for i := range d.blocks {
		d.blocks[i] = make([]byte, BlockSize)
	}
	return d
}

func (d *MemDevice) ReadBlock(idx uint32, buf []byte) error {
	if int(idx) >= len(d.blocks) {
		return xerrors.Errorf("diskio: read block %d: out of range (%d blocks)", idx, len(d.blocks))
	}
	copy(buf[:BlockSize], d.blocks[idx])
	return nil
}

func (d *MemDevice) WriteBlock(idx uint32, buf []byte) error {
	if int(idx) >= len(d.blocks) {
		return xerrors.Errorf("diskio: write block %d: out of range (%d blocks)", idx, len(d.blocks))
	}
	copy(d.blocks[idx], buf[:BlockSize])
	return nil
}

func (d *MemDevice) Close() error { return nil }
