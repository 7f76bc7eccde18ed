package shallownet

import (
	"fmt"

	"github.com/ahmedtd/shallownet/device"
)

// Forward computes the class distribution for one input row x (length
// Sizes.Input, typically a view into an uploaded instance matrix) and leaves
// it in the model's output buffer.
//
// The softmax is not stabilized: large logits overflow exp and the
// distribution becomes NaN.
func (m *Model) Forward(x *device.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()
	return m.forward(x)
}

func (m *Model) forward(x *device.Buffer) error {
	in, hid, out := m.sizes.Input, m.sizes.Hidden, m.sizes.Output
	if x.Len() != in {
		panic(fmt.Sprintf("input has length %d, want %d", x.Len(), in))
	}

	m.la.MatMul(1, in, hid, x, m.wIH, m.hidden)
	m.dev.Sigmoid(m.hiddenActivated, m.hidden)
	m.la.MatMul(1, hid, out, m.hiddenActivated, m.wHO, m.output)

	m.dev.Exp(m.outputNormalized, m.output)
	if err := m.dev.Sum(m.total, m.outputNormalized); err != nil {
		return fmt.Errorf("while normalizing output: %w", err)
	}
	m.dev.DivScalar(m.outputNormalized, m.outputNormalized, m.total)

	return nil
}

// Backward backpropagates the error of the preceding Forward call on the same
// x against the target distribution y, then takes one gradient descent step
// on both weight matrices in place.
func (m *Model) Backward(x, y *device.Buffer, learningRate float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()
	m.backward(x, y, learningRate)
}

func (m *Model) backward(x, y *device.Buffer, learningRate float32) {
	in, hid, out := m.sizes.Input, m.sizes.Hidden, m.sizes.Output
	if x.Len() != in {
		panic(fmt.Sprintf("input has length %d, want %d", x.Len(), in))
	}
	if y.Len() != out {
		panic(fmt.Sprintf("target has length %d, want %d", y.Len(), out))
	}

	// Gradient of softmax + cross-entropy wrt the output logits.
	m.dev.Sub(m.deltaOut, m.outputNormalized, y)

	// Row vectors transpose into column vectors without moving data, so the
	// outer products are plain (k=1) multiplies.
	m.la.MatMul(hid, 1, out, m.hiddenActivated, m.deltaOut, m.gradHO)
	m.la.MatMul(hid, out, 1, m.wHO, m.deltaOut, m.deltaHiddenRaw)

	switch m.hgrad {
	case SigmoidDerivative:
		m.dev.SigmoidDerivative(m.hiddenDerivative, m.hiddenActivated)
		m.dev.Mul(m.deltaHidden, m.deltaHiddenRaw, m.hiddenDerivative)
	case ActivationScaled:
		m.dev.Mul(m.deltaHidden, m.deltaHiddenRaw, m.hiddenActivated)
	default:
		panic("unhandled hidden gradient mode")
	}

	m.la.MatMul(in, 1, hid, x, m.deltaHidden, m.gradIH)

	m.dev.Axpy(m.wIH, -learningRate, m.gradIH)
	m.dev.Axpy(m.wHO, -learningRate, m.gradHO)
}

// AccumulateLoss adds the cross-entropy of the current output against y to
// the running epoch loss.
func (m *Model) AccumulateLoss(y *device.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()
	return m.accumulateLoss(y)
}

func (m *Model) accumulateLoss(y *device.Buffer) error {
	if y.Len() != m.sizes.Output {
		panic(fmt.Sprintf("target has length %d, want %d", y.Len(), m.sizes.Output))
	}

	m.dev.CrossEntropyTerms(m.lossTerms, y, m.outputNormalized)
	if err := m.dev.Sum(m.instanceLoss, m.lossTerms); err != nil {
		return fmt.Errorf("while reducing loss: %w", err)
	}
	m.dev.Add(m.epochLoss, m.epochLoss, m.instanceLoss)
	return nil
}

// ResetLoss zeroes the running epoch loss.
func (m *Model) ResetLoss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()
	m.dev.Fill(m.epochLoss, 0)
}

// AccumulatedLoss downloads the running epoch loss.
func (m *Model) AccumulatedLoss() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()
	return m.epochLoss.Host()[0]
}

// Probabilities downloads the class distribution of the last Forward call.
func (m *Model) Probabilities() []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()
	return m.outputNormalized.Host()
}

// HiddenActivations downloads the sigmoid layer of the last Forward call.
func (m *Model) HiddenActivations() []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()
	return m.hiddenActivated.Host()
}

// Predict uploads one feature vector, runs Forward on it and returns the
// class distribution.
func (m *Model) Predict(features []float32) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()

	if len(features) != m.sizes.Input {
		return nil, fmt.Errorf("got %d features, want %d", len(features), m.sizes.Input)
	}

	x, err := m.dev.Upload(features)
	if err != nil {
		return nil, fmt.Errorf("while uploading features: %w", err)
	}
	defer x.Free()

	if err := m.forward(x); err != nil {
		return nil, err
	}
	return m.outputNormalized.Host(), nil
}
