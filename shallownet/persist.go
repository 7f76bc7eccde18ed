package shallownet

import (
	"fmt"
	"os"

	"github.com/ahmedtd/shallownet/toolbox"
)

// WeightFiles returns the paths of the W_IH and W_HO text files for prefix.
func WeightFiles(prefix string) (w1, w2 string) {
	return prefix + "_w1.txt", prefix + "_w2.txt"
}

// SaveText writes W_IH to <prefix>_w1.txt and W_HO to <prefix>_w2.txt, one
// tab-separated matrix row per line.
func (m *Model) SaveText(prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()
	return m.saveText(prefix)
}

func (m *Model) saveText(prefix string) error {
	wIH := toolbox.MakeAF32(m.sizes.Input, m.sizes.Hidden)
	wHO := toolbox.MakeAF32(m.sizes.Hidden, m.sizes.Output)
	m.wIH.CopyToHost(wIH.V)
	m.wHO.CopyToHost(wHO.V)

	w1, w2 := WeightFiles(prefix)
	if err := writeMatrixFile(w1, wIH); err != nil {
		return err
	}
	if err := writeMatrixFile(w2, wHO); err != nil {
		return err
	}
	return nil
}

func writeMatrixFile(path string, a *toolbox.AF32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating weight file: %w", err)
	}
	defer f.Close()

	if err := toolbox.WriteDelimited(f, a); err != nil {
		return fmt.Errorf("while writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing %s: %w", path, err)
	}
	return nil
}

// LoadText replaces both weight matrices with the contents of files written by
// SaveText.  The files carry no shape, so they are parsed against the
// model's Sizes.
func (m *Model) LoadText(prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOpen()

	w1, w2 := WeightFiles(prefix)
	wIH, err := readMatrixFile(w1, m.sizes.Input, m.sizes.Hidden)
	if err != nil {
		return err
	}
	wHO, err := readMatrixFile(w2, m.sizes.Hidden, m.sizes.Output)
	if err != nil {
		return err
	}
	return m.setWeights(wIH, wHO)
}

func readMatrixFile(path string, rows, cols int) (*toolbox.AF32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening weight file: %w", err)
	}
	defer f.Close()

	a, err := toolbox.ReadDelimited(f, rows, cols)
	if err != nil {
		return nil, fmt.Errorf("while reading %s: %w", path, err)
	}
	return a, nil
}
