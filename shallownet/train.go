package shallownet

import (
	"fmt"
	"time"

	"github.com/ahmedtd/shallownet/device"
	"github.com/ahmedtd/shallownet/toolbox"
	"github.com/chewxy/math32"
)

type TrainConfig struct {
	Epochs       int
	LearningRate float32

	// ModelPrefix, when set, saves the trained weights to
	// <prefix>_w1.txt and <prefix>_w2.txt after the last epoch.
	ModelPrefix string
}

type EpochStats struct {
	Epoch    int
	MeanLoss float32

	// Degenerate is set when the mean loss is NaN or infinite, which happens
	// once the unstabilized softmax overflows or a target class gets zero
	// probability.
	Degenerate bool

	Timings StepTimings
}

// StepTimings accumulates wall time spent in each stage of the training
// loop.
type StepTimings struct {
	Overall  time.Duration
	Forward  time.Duration
	Backward time.Duration
	Loss     time.Duration
}

func (t *StepTimings) Reset() {
	t.Overall = 0 * time.Second
	t.Forward = 0 * time.Second
	t.Backward = 0 * time.Second
	t.Loss = 0 * time.Second
}

// Train runs plain stochastic gradient descent: for every epoch, every
// instance k in order gets a forward pass on row k of x, a backward pass and
// weight update against row k of y, and its loss added to the epoch total.
//
// x has shape (n, Input) and y has shape (n, Output).  Both are uploaded to
// the device once and released before Train returns.
func (m *Model) Train(x, y *toolbox.AF32, cfg TrainConfig) ([]EpochStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()

	if cfg.Epochs < 0 {
		return nil, fmt.Errorf("invalid epoch count %d", cfg.Epochs)
	}

	n, err := m.checkInstances(x, y)
	if err != nil {
		return nil, err
	}
	dx, err := m.upload("features", x)
	if err != nil {
		return nil, err
	}
	defer dx.Free()
	dy, err := m.upload("labels", y)
	if err != nil {
		return nil, err
	}
	defer dy.Free()

	in, out := m.sizes.Input, m.sizes.Output

	stats := make([]EpochStats, 0, cfg.Epochs)
	var timings StepTimings
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		epochStart := time.Now()
		m.dev.Fill(m.epochLoss, 0)

		for k := 0; k < n; k++ {
			xk := dx.View(k*in, in)
			yk := dy.View(k*out, out)

			forwardStart := time.Now()
			if err := m.forward(xk); err != nil {
				return stats, fmt.Errorf("epoch %d instance %d: %w", epoch, k, err)
			}
			timings.Forward += time.Since(forwardStart)

			backwardStart := time.Now()
			m.backward(xk, yk, cfg.LearningRate)
			timings.Backward += time.Since(backwardStart)

			lossStart := time.Now()
			if err := m.accumulateLoss(yk); err != nil {
				return stats, fmt.Errorf("epoch %d instance %d: %w", epoch, k, err)
			}
			timings.Loss += time.Since(lossStart)
		}

		timings.Overall += time.Since(epochStart)

		mean := m.epochLoss.Host()[0] / float32(n)
		s := EpochStats{
			Epoch:      epoch,
			MeanLoss:   mean,
			Degenerate: math32.IsNaN(mean) || math32.IsInf(mean, 0),
			Timings:    timings,
		}
		stats = append(stats, s)

		m.logger.Printf("epoch %d loss=%f", epoch, mean)
		m.logger.Printf("epoch %d timings overall=%.3f forward=%.3f backward=%.3f loss=%.3f",
			epoch,
			timings.Overall.Seconds(),
			timings.Forward.Seconds(),
			timings.Backward.Seconds(),
			timings.Loss.Seconds(),
		)
		if s.Degenerate {
			m.logger.Printf("epoch %d warning: loss is not finite; the output distribution has overflowed or underflowed", epoch)
		}
		timings.Reset()
	}

	if cfg.ModelPrefix != "" {
		if err := m.saveText(cfg.ModelPrefix); err != nil {
			return stats, fmt.Errorf("while saving model: %w", err)
		}
	}

	return stats, nil
}

// checkInstances validates the instance matrices against the model sizes
// and returns the instance count.
func (m *Model) checkInstances(x, y *toolbox.AF32) (int, error) {
	if len(x.Shape) != 2 || x.Shape[1] != m.sizes.Input {
		return 0, fmt.Errorf("features: wrong shape; got %v want [n %d]", x.Shape, m.sizes.Input)
	}
	n := x.Shape[0]
	if err := checkShape(y, n, m.sizes.Output); err != nil {
		return 0, fmt.Errorf("labels: %w", err)
	}
	return n, nil
}

func (m *Model) upload(name string, a *toolbox.AF32) (*device.Buffer, error) {
	b, err := m.dev.Upload(a.V)
	if err != nil {
		return nil, fmt.Errorf("while uploading %s: %w", name, err)
	}
	return b, nil
}
