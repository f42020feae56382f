// Command rufs is the CLI front-end for FS-CORE and VM-CORE: it can format
// a disk image, mount it over FUSE, run a consistency check against it, or
// exercise the in-process virtual memory manager.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

var debug = flag.Bool("debug", false, "enable debug mode: format error messages with additional detail")

type cmd struct {
	fn func(ctx context.Context, args []string) error
}

func funcmain() error {
	flag.Parse()

	verbs := map[string]cmd{
		"mkfs":    {cmdMkfs},
		"fuse":    {cmdFuse},
		"fsck":    {cmdFsck},
		"vmbench": {cmdVMBench},
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "syntax: rufs <command> [options]")
		fmt.Fprintln(os.Stderr, "commands: mkfs, fuse, fsck, vmbench")
		os.Exit(2)
	}
	verb, rest := args[0], args[1:]

	v, ok := verbs[verb]
	if !ok {
		return fmt.Errorf("unknown command %q", verb)
	}
	if err := v.fn(context.Background(), rest); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
