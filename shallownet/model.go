// Package shallownet trains a single-hidden-layer classifier
//
//	input → sigmoid(input·W_IH) → softmax(hidden·W_HO)
//
// with plain stochastic gradient descent, keeping weights, gradients,
// activations and the loss on device buffers for the whole training loop.
package shallownet

import (
	"fmt"
	"log"
	"math/rand"
	"sync"

	"github.com/ahmedtd/shallownet/device"
	"github.com/ahmedtd/shallownet/toolbox"
)

// Sizes are the layer widths of the network.
type Sizes struct {
	Input  int
	Hidden int
	Output int
}

func (s Sizes) validate() error {
	if s.Input <= 0 || s.Hidden <= 0 || s.Output <= 0 {
		return fmt.Errorf("invalid layer sizes %+v", s)
	}
	return nil
}

// HiddenGradient selects the factor applied to the backpropagated hidden
// error.
type HiddenGradient int

const (
	// SigmoidDerivative scales by a*(1-a), the derivative of the sigmoid.
	SigmoidDerivative HiddenGradient = iota

	// ActivationScaled scales by the activation a itself.  This is how
	// models trained by earlier versions of this tool were produced.
	ActivationScaled
)

// LinearAlgebra is the dense matrix multiply provider used by the passes.
type LinearAlgebra interface {
	// MatMul computes c = a·b for row-major a (m×k), b (k×n), c (m×n).
	MatMul(m, k, n int, a, b, c *device.Buffer)
	Close() error
}

type Options struct {
	// Seed for the uniform [-1, 1] weight initialization.
	Seed int64

	HiddenGradient HiddenGradient

	// LinearAlgebra defaults to the device's BLAS handle.  The Model takes
	// ownership and closes it.
	LinearAlgebra LinearAlgebra

	// Logger receives per-epoch and per-instance reports.  Defaults to
	// log.Default().
	Logger *log.Logger
}

// Model owns every device buffer of the network.  Its methods are safe for
// concurrent use, but run one at a time: the activation buffers hold a
// single in-flight instance.
type Model struct {
	mu sync.Mutex

	dev    *device.Device
	la     LinearAlgebra
	sizes  Sizes
	hgrad  HiddenGradient
	logger *log.Logger

	wIH, wHO       *device.Buffer // (Input, Hidden), (Hidden, Output)
	gradIH, gradHO *device.Buffer

	hidden, hiddenActivated  *device.Buffer
	output, outputNormalized *device.Buffer

	deltaOut, deltaHiddenRaw, hiddenDerivative, deltaHidden *device.Buffer
	lossTerms                                               *device.Buffer

	total, instanceLoss, epochLoss *device.Buffer

	buffers []*device.Buffer
	closed  bool
}

// New allocates every buffer of the model on dev and initializes both weight
// matrices uniformly in [-1, 1] from opts.Seed.  On failure nothing stays
// allocated.
func New(dev *device.Device, sizes Sizes, opts Options) (_ *Model, err error) {
	if err := sizes.validate(); err != nil {
		return nil, err
	}

	m := &Model{
		dev:    dev,
		la:     opts.LinearAlgebra,
		sizes:  sizes,
		hgrad:  opts.HiddenGradient,
		logger: opts.Logger,
	}
	if m.la == nil {
		m.la = dev.NewBLAS()
	}
	if m.logger == nil {
		m.logger = log.Default()
	}

	defer func() {
		if err != nil {
			m.release()
		}
	}()

	in, hid, out := sizes.Input, sizes.Hidden, sizes.Output
	for _, a := range []struct {
		name string
		dst  **device.Buffer
		n    int
	}{
		{"W_IH", &m.wIH, in * hid},
		{"W_HO", &m.wHO, hid * out},
		{"grad_IH", &m.gradIH, in * hid},
		{"grad_HO", &m.gradHO, hid * out},
		{"hidden", &m.hidden, hid},
		{"hiddenActivated", &m.hiddenActivated, hid},
		{"output", &m.output, out},
		{"outputNormalized", &m.outputNormalized, out},
		{"deltaOut", &m.deltaOut, out},
		{"deltaHiddenRaw", &m.deltaHiddenRaw, hid},
		{"hiddenDerivative", &m.hiddenDerivative, hid},
		{"deltaHidden", &m.deltaHidden, hid},
		{"lossTerms", &m.lossTerms, out},
		{"total", &m.total, 1},
		{"instanceLoss", &m.instanceLoss, 1},
		{"epochLoss", &m.epochLoss, 1},
	} {
		b, err := dev.Alloc(a.n)
		if err != nil {
			return nil, fmt.Errorf("while allocating %s: %w", a.name, err)
		}
		*a.dst = b
		m.buffers = append(m.buffers, b)
	}

	r := rand.New(rand.NewSource(opts.Seed))
	m.wIH.CopyFromHost(uniformWeights(r, in*hid))
	m.wHO.CopyFromHost(uniformWeights(r, hid*out))

	return m, nil
}

func uniformWeights(r *rand.Rand, n int) []float32 {
	w := make([]float32, n)
	for i := range w {
		w[i] = r.Float32()*2 - 1
	}
	return w
}

// Close releases every device buffer and the linear algebra handle.  It is
// safe to call more than once.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	return m.release()
}

func (m *Model) release() error {
	m.closed = true
	for _, b := range m.buffers {
		b.Free()
	}
	m.buffers = nil
	if err := m.la.Close(); err != nil {
		return fmt.Errorf("while closing linear algebra handle: %w", err)
	}
	return nil
}

func (m *Model) Sizes() Sizes {
	return m.sizes
}

func (m *Model) checkOpen() {
	if m.closed {
		panic("use of closed model")
	}
}

// Weights downloads copies of W_IH (Input, Hidden) and W_HO (Hidden, Output).
func (m *Model) Weights() (wIH, wHO *toolbox.AF32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()

	wIH = toolbox.MakeAF32(m.sizes.Input, m.sizes.Hidden)
	wHO = toolbox.MakeAF32(m.sizes.Hidden, m.sizes.Output)
	m.wIH.CopyToHost(wIH.V)
	m.wHO.CopyToHost(wHO.V)
	return wIH, wHO
}

// SetWeights uploads both weight matrices.
func (m *Model) SetWeights(wIH, wHO *toolbox.AF32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()
	return m.setWeights(wIH, wHO)
}

func (m *Model) setWeights(wIH, wHO *toolbox.AF32) error {
	if err := checkShape(wIH, m.sizes.Input, m.sizes.Hidden); err != nil {
		return fmt.Errorf("W_IH: %w", err)
	}
	if err := checkShape(wHO, m.sizes.Hidden, m.sizes.Output); err != nil {
		return fmt.Errorf("W_HO: %w", err)
	}
	m.wIH.CopyFromHost(wIH.V)
	m.wHO.CopyFromHost(wHO.V)
	return nil
}

func checkShape(a *toolbox.AF32, rows, cols int) error {
	if len(a.Shape) != 2 || a.Shape[0] != rows || a.Shape[1] != cols {
		return fmt.Errorf("wrong shape; got %v want [%d %d]", a.Shape, rows, cols)
	}
	return nil
}
