package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/rofs/rufs/vm"
)

const vmbenchHelp = `rufs vmbench [-flags]

Exercise the virtual memory manager with concurrent allocations and a
matrix multiplication, then report the TLB miss rate.
`

func cmdVMBench(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("vmbench", flag.ExitOnError)
	workers := fset.Int("workers", 4, "number of concurrent allocator goroutines")
	matSize := fset.Int("matsize", 8, "NxN size of the matrix multiplication")
	physMem := fset.Int("physmem", 64<<20, "size in bytes of the simulated physical arena")
	fset.Usage = func() {
		fmt.Fprint(os.Stderr, vmbenchHelp)
		fset.PrintDefaults()
	}
	fset.Parse(args)

	h, err := vm.New(*physMem)
	if err != nil {
		return err
	}
	defer h.Close()

	var eg errgroup.Group
	for w := 0; w < *workers; w++ {
		eg.Go(func() error {
			va, err := h.TMalloc(4096)
			if err != nil {
				return err
			}
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(va))
			if err := h.PutValue(va, buf[:]); err != nil {
				return err
			}
			var back [8]byte
			if err := h.GetValue(va, back[:]); err != nil {
				return err
			}
			return h.TFree(va, 4096)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	size := *matSize
	elemBytes := 4
	matBytes := uint32(size * size * elemBytes)
	mat1, err := h.TMalloc(matBytes)
	if err != nil {
		return err
	}
	mat2, err := h.TMalloc(matBytes)
	if err != nil {
		return err
	}
	answer, err := h.TMalloc(matBytes)
	if err != nil {
		return err
	}
	for i := 0; i < size*size; i++ {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(i%7))
		if err := h.PutValue(mat1+uint32(i*elemBytes), buf[:]); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(buf[:], uint32(i%5))
		if err := h.PutValue(mat2+uint32(i*elemBytes), buf[:]); err != nil {
			return err
		}
	}
	if err := h.MatMult(mat1, mat2, answer, size); err != nil {
		return err
	}

	h.PrintTLBMissrate()
	return nil
}
