// Package path implements the path resolver of §4.5: splitting
// /a/b/c and walking it from the root inode.
//
// The reference get_node_by_path initializes its running dirent with
// ino=0 and never updates it from dir_find's result, which would resolve
// every multi-segment path against the root. This port fixes that (§4.5
// open question, §9): the running inode is updated after each successful
// DirFind.
package path

import (
	"strings"

	"github.com/rofs/rufs/fs/diskio"
	"github.com/rofs/rufs/fs/dirent"
	"github.com/rofs/rufs/fs/inode"
	"github.com/rofs/rufs/fs/rufserr"
	"github.com/rofs/rufs/fs/super"
)

// RootIno is the inode number of the filesystem root.
const RootIno = 0

// Resolve walks path from the root inode and returns the inode it names.
func Resolve(dev diskio.Device, sb *super.Superblock, path string) (*inode.Inode, error) {
	if path == "/" {
		return inode.ReadI(dev, sb, RootIno)
	}

	cur := uint32(RootIno)
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		dirIno, err := inode.ReadI(dev, sb, cur)
		if err != nil {
			return nil, err
		}
		d, err := dirent.DirFind(dev, sb, dirIno, seg)
		if err != nil {
			return nil, rufserr.Errorf(rufserr.NotFound, "path: %q: %w", path, err)
		}
		cur = d.Ino
	}
	return inode.ReadI(dev, sb, cur)
}

// Split separates path into its parent directory and leaf name, using
// standard dirname/basename semantics (§4.6).
func Split(path string) (parent, leaf string) {
	trimmed := strings.TrimRight(path, "/")
	i := strings.LastIndexByte(trimmed, '/')
	if i < 0 {
		return "/", trimmed
	}
	if i == 0 {
		return "/", trimmed[1:]
	}
	return trimmed[:i], trimmed[i+1:]
}
