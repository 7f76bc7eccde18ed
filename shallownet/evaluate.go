package shallownet

import (
	"fmt"
	"math/rand"

	"github.com/ahmedtd/shallownet/toolbox"
)

// Prediction is the outcome of classifying one instance.
type Prediction struct {
	Instance   int
	Target     int
	Predicted  int
	Confidence float32
}

// Evaluate runs a forward pass over every instance of x, in an order shuffled
// by seed, and reports the most likely class with its probability next to
// the target class (the arg-max of the matching row of y).  One line per
// instance goes to the model's logger.
func (m *Model) Evaluate(x, y *toolbox.AF32, seed int64) ([]Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()

	n, err := m.checkInstances(x, y)
	if err != nil {
		return nil, err
	}
	// Targets stay on the host; only the features are uploaded.
	dx, err := m.upload("features", x)
	if err != nil {
		return nil, err
	}
	defer dx.Free()

	in := m.sizes.Input
	probs := make([]float32, m.sizes.Output)

	r := rand.New(rand.NewSource(seed))
	preds := make([]Prediction, 0, n)
	for _, k := range r.Perm(n) {
		if err := m.forward(dx.View(k*in, in)); err != nil {
			return preds, fmt.Errorf("instance %d: %w", k, err)
		}
		m.outputNormalized.CopyToHost(probs)

		predicted, confidence := toolbox.ArgMax(probs)
		target, _ := toolbox.ArgMax(y.Row(k))

		p := Prediction{
			Instance:   k,
			Target:     target,
			Predicted:  predicted,
			Confidence: confidence,
		}
		preds = append(preds, p)

		m.logger.Printf("target=%d predicted=%d confidence=%f", p.Target, p.Predicted, p.Confidence)
	}

	return preds, nil
}
