package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"golang.org/x/xerrors"

	"github.com/rofs/rufs/fs/diskio"
	"github.com/rofs/rufs/fs/fsfuse"
	"github.com/rofs/rufs/fs/super"
)

func fuseServer(fs *fsfuse.FS) fuse.Server {
	return fuseutil.NewFileSystemServer(fs)
}

const fuseHelp = `rufs fuse [-flags] <diskfile> <mountpoint>

Mount a rufs disk image at mountpoint.
`

func cmdFuse(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("fuse", flag.ExitOnError)
	fset.Usage = func() {
		fmt.Fprint(os.Stderr, fuseHelp)
		fset.PrintDefaults()
	}
	fset.Parse(args)
	if fset.NArg() != 2 {
		return fmt.Errorf("syntax: fuse <diskfile> <mountpoint>")
	}
	diskfile, mountpoint := fset.Arg(0), fset.Arg(1)

	dev, err := diskio.OpenFile(diskfile)
	if err != nil {
		return err
	}
	sb, err := super.Read(dev)
	if err != nil {
		return err
	}
	fs, err := fsfuse.New(dev, sb)
	if err != nil {
		return err
	}

	mfs, err := fuse.Mount(mountpoint, fuseServer(fs), &fuse.MountConfig{
		FSName:   "rufs",
		ReadOnly: false,
	})
	if err != nil {
		return xerrors.Errorf("fuse.Mount: %w", err)
	}
	return mfs.Join(ctx)
}
