package device

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// BLAS is a handle to the dense linear algebra routines of a device.
type BLAS struct {
	dev    *Device
	closed bool
}

func (d *Device) NewBLAS() *BLAS {
	return &BLAS{dev: d}
}

// MatMul computes c = a·b for row-major a (m×k), b (k×n) and c (m×n).
func (h *BLAS) MatMul(m, k, n int, a, b, c *Buffer) {
	if h.closed {
		panic("use of closed BLAS handle")
	}
	h.dev.own(a, b, c)
	if a.Len() != m*k || b.Len() != k*n || c.Len() != m*n {
		panic(fmt.Sprintf("dimension mismatch: a=%d b=%d c=%d for (%dx%d)·(%dx%d)", a.Len(), b.Len(), c.Len(), m, k, k, n))
	}

	ga := blas32.General{Rows: m, Cols: k, Stride: k, Data: a.data}
	gb := blas32.General{Rows: k, Cols: n, Stride: n, Data: b.data}
	gc := blas32.General{Rows: m, Cols: n, Stride: n, Data: c.data}

	h.dev.exec(func() {
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, ga, gb, 0, gc)
	})
}

func (h *BLAS) Close() error {
	if h.closed {
		return fmt.Errorf("BLAS handle already closed")
	}
	h.closed = true
	return nil
}
