package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rofs/rufs/fs/mkfs"
	"github.com/rofs/rufs/fs/super"
)

const mkfsHelp = `rufs mkfs [-flags] <diskfile>

Format a fresh rufs disk image.
`

func cmdMkfs(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("mkfs", flag.ExitOnError)
	maxInodes := fset.Uint("max-inodes", 1024, "maximum number of inodes the image supports")
	maxBlocks := fset.Uint("max-blocks", 1024, "maximum number of data blocks the image supports")
	fset.Usage = func() {
		fmt.Fprint(os.Stderr, mkfsHelp)
		fset.PrintDefaults()
	}
	fset.Parse(args)
	if fset.NArg() != 1 {
		return fmt.Errorf("syntax: mkfs <diskfile>")
	}

	sb, err := mkfs.BuildFile(fset.Arg(0), super.Config{
		MaxInum: uint32(*maxInodes),
		MaxDnum: uint32(*maxBlocks),
	})
	if err != nil {
		return err
	}
	fmt.Printf("formatted %s: %d inodes, %d data blocks\n", fset.Arg(0), sb.MaxInum, sb.MaxDnum)
	return nil
}
