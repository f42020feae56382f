package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	isatty "github.com/mattn/go-isatty"

	"github.com/rofs/rufs/fs/diskio"
	"github.com/rofs/rufs/fs/dirent"
	"github.com/rofs/rufs/fs/inode"
	"github.com/rofs/rufs/fs/path"
	"github.com/rofs/rufs/fs/super"
)

const fsckHelp = `rufs fsck <diskfile>

Check a rufs disk image's bitmap/inode/directory consistency.
`

// fsckReporter colorizes PASS/FAIL lines when stdout is a terminal, the
// same capability check cmd/vorteil/run.go uses go-isatty for.
type fsckReporter struct {
	color bool
	fail  bool
}

func (r *fsckReporter) pass(format string, args ...interface{}) {
	r.line("PASS", "32", format, args...)
}

func (r *fsckReporter) failf(format string, args ...interface{}) {
	r.fail = true
	r.line("FAIL", "31", format, args...)
}

func (r *fsckReporter) line(label, ansiColor, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if r.color {
		fmt.Printf("\x1b[%sm%s\x1b[0m %s\n", ansiColor, label, msg)
		return
	}
	fmt.Printf("%s %s\n", label, msg)
}

func cmdFsck(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("fsck", flag.ExitOnError)
	fset.Usage = func() {
		fmt.Fprint(os.Stderr, fsckHelp)
		fset.PrintDefaults()
	}
	fset.Parse(args)
	if fset.NArg() != 1 {
		return fmt.Errorf("syntax: fsck <diskfile>")
	}

	dev, err := diskio.OpenFile(fset.Arg(0))
	if err != nil {
		return err
	}
	defer dev.Close()

	sb, err := super.Read(dev)
	if err != nil {
		return err
	}
	ibm, err := super.ReadBitmap(dev, sb.IBitmapBlk, int(sb.MaxInum))
	if err != nil {
		return err
	}
	dbm, err := super.ReadBitmap(dev, sb.DBitmapBlk, int(sb.MaxDnum))
	if err != nil {
		return err
	}

	r := &fsckReporter{color: isatty.IsTerminal(os.Stdout.Fd())}

	// Inode bitmap vs. on-disk Valid flag.
	for ino := uint32(0); ino < sb.MaxInum; ino++ {
		in, err := inode.ReadI(dev, sb, ino)
		if err != nil {
			r.failf("inode %d: %v", ino, err)
			continue
		}
		bitSet := ibm.Get(int(ino))
		valid := in.Valid == 1
		if bitSet != valid {
			r.failf("inode %d: bitmap bit = %v, but Valid = %v", ino, bitSet, valid)
		}
	}
	r.pass("inode bitmap scan complete (%d inodes)", sb.MaxInum)

	// Data blocks reachable from the root must be marked in-use.
	visited := map[uint32]bool{sb.DStartBlk: true}
	var walk func(ino uint32) error
	walk = func(ino uint32) error {
		in, err := inode.ReadI(dev, sb, ino)
		if err != nil {
			return err
		}
		if in.Type != inode.Dir {
			return nil
		}
		for _, blk := range in.DirectPtr {
			if blk == 0 {
				break
			}
			visited[blk] = true
		}
		return dirent.ForEach(dev, in, func(d dirent.Dirent) error {
			if d.Name == "." || d.Name == ".." {
				return nil
			}
			return walk(d.Ino)
		})
	}
	if err := walk(path.RootIno); err != nil {
		r.failf("directory walk: %v", err)
	} else {
		r.pass("directory tree walk complete (%d data blocks visited)", len(visited))
	}

	for blk := range visited {
		slot := int(blk - sb.DStartBlk)
		if slot < 0 || slot >= int(sb.MaxDnum) {
			r.failf("data block %d is outside the data region", blk)
			continue
		}
		if !dbm.Get(slot) {
			r.failf("data block %d is referenced but not marked allocated", blk)
		}
	}
	r.pass("data bitmap cross-check complete")

	if r.fail {
		return fmt.Errorf("fsck found inconsistencies")
	}
	return nil
}
