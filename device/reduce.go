package device

import (
	"fmt"
	"math/bits"
)

// Sum writes the sum of src into dst[0].
//
// The input is copied into a scratch buffer padded with zeros to the next
// power of two N, then reduced with log2(N) up-sweep rounds.  Round d
// launches N/2^(d+1) tasks; each adds the lower element of its pair into the
// higher one, so after the last round the total sits at index N-1.
func (d *Device) Sum(dst, src *Buffer) error {
	d.own(dst, src)
	if dst.Len() != 1 {
		panic("sum destination must have length 1")
	}

	n := src.Len()
	size := nextPowerOfTwo(n)

	scratch, err := d.Alloc(size)
	if err != nil {
		return fmt.Errorf("while allocating reduction scratch: %w", err)
	}
	defer scratch.Free()

	s, in := scratch.data, src.data
	d.Launch(size, func(i int) {
		if i < n {
			s[i] = in[i]
		} else {
			s[i] = 0
		}
	})

	for stride := 2; stride <= size; stride *= 2 {
		half := stride / 2
		d.Launch(size/stride, func(i int) {
			hi := (i+1)*stride - 1
			s[hi] += s[hi-half]
		})
	}

	out := dst.data
	d.Launch(1, func(int) {
		out[0] = s[size-1]
	})

	return nil
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
