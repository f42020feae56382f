// Package bench implements mat_mult (§4.13): a naive O(n^3) matrix
// multiplication expressed entirely in terms of the virtual memory user
// API, the way the reference benchmark exercises t_malloc/put_value/
// get_value instead of touching host memory directly.
package bench

import "encoding/binary"

const intSize = 4

// ValueStore is the subset of the VM-CORE user API mat_mult needs.
type ValueStore interface {
	PutValue(va uint32, src []byte) error
	GetValue(va uint32, dst []byte) error
}

func getInt(vs ValueStore, va uint32) (int32, error) {
	var buf [intSize]byte
	if err := vs.GetValue(va, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func putInt(vs ValueStore, va uint32, v int32) error {
	var buf [intSize]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	return vs.PutValue(va, buf[:])
}

// MatMult multiplies the size x size, row-major int32 matrices stored at
// mat1 and mat2, writing the size x size result to answer, exactly the
// addressing scheme of the reference mat_mult.
func MatMult(vs ValueStore, mat1, mat2, answer uint32, size int) error {
	row := uint32(size * intSize)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			var acc int32
			for k := 0; k < size; k++ {
				a, err := getInt(vs, mat1+uint32(i)*row+uint32(k)*intSize)
				if err != nil {
					return err
				}
				b, err := getInt(vs, mat2+uint32(k)*row+uint32(j)*intSize)
				if err != nil {
					return err
				}
				acc += a * b
			}
			if err := putInt(vs, answer+uint32(i)*row+uint32(j)*intSize, acc); err != nil {
				return err
			}
		}
	}
	return nil
}
