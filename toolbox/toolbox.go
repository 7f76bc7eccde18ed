package toolbox

import (
	"fmt"

	"github.com/chewxy/math32"
)

// AF32 is a dense, row-major float32 array held in host memory.
type AF32 struct {
	V     []float32
	Shape []int
}

func MakeAF32(shape ...int) *AF32 {
	for _, s := range shape {
		if s <= 0 {
			panic(fmt.Sprintf("invalid shape: %v", shape))
		}
	}
	size := 1
	for _, s := range shape {
		size *= s
	}

	return &AF32{
		V:     make([]float32, size),
		Shape: shape,
	}
}

// AF32Reshape reshapes the input tensor.  The overall number of elements must
// be the same.  The returned tensor shares storage with the input tensor (no
// data is copied).
func AF32Reshape(a *AF32, shape ...int) *AF32 {
	newSize := 1
	for _, s := range shape {
		if s <= 0 {
			panic(fmt.Sprintf("invalid shape: %v", shape))
		}
		newSize *= s
	}

	if newSize != len(a.V) {
		panic("invalid reshape")
	}

	return &AF32{
		V:     a.V,
		Shape: shape,
	}
}

func (a *AF32) At2(idx0, idx1 int) float32 {
	if len(a.Shape) != 2 {
		panic("At2() invalid for len(shape) != 2")
	}
	return a.V[idx0*a.Shape[1]+idx1]
}

func (a *AF32) Set2(idx0, idx1 int, v float32) {
	if len(a.Shape) != 2 {
		panic("Set2() invalid for len(shape) != 2")
	}
	a.V[idx0*a.Shape[1]+idx1] = v
}

// Row returns row k of a 2-D array.  The slice shares storage with a.
func (a *AF32) Row(k int) []float32 {
	if len(a.Shape) != 2 {
		panic("Row() invalid for len(shape) != 2")
	}
	cols := a.Shape[1]
	return a.V[k*cols : k*cols+cols]
}

// ArgMax returns the index and value of the largest element of v.  NaNs are
// never selected; an all-NaN input yields index 0.
func ArgMax(v []float32) (int, float32) {
	idx := 0
	best := math32.Inf(-1)
	for i, x := range v {
		if x > best {
			idx = i
			best = x
		}
	}
	if len(v) > 0 && math32.IsInf(best, -1) {
		best = v[idx]
	}
	return idx, best
}

// OneHot expands class indices into a (len(classes), numClasses) array.
func OneHot(classes []int, numClasses int) (*AF32, error) {
	out := MakeAF32(len(classes), numClasses)
	for k, c := range classes {
		if c < 0 || c >= numClasses {
			return nil, fmt.Errorf("label %d at row %d outside [0, %d)", c, k, numClasses)
		}
		out.Set2(k, c, 1)
	}
	return out, nil
}
