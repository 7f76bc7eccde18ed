package toolbox

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sbinet/npyio/npz"
	"gonum.org/v1/gonum/mat"
)

func writeNPZ(t *testing.T, values map[string]any) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.npz")
	w, err := npz.Create(path)
	if err != nil {
		t.Fatalf("npz.Create: %v", err)
	}
	for name, v := range values {
		if err := w.Write(name, v); err != nil {
			t.Fatalf("while writing %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("while closing npz: %v", err)
	}
	return path
}

func TestLoadNPZClassIndices(t *testing.T) {
	path := writeNPZ(t, map[string]any{
		"x.npy": mat.NewDense(3, 2, []float64{
			0, 0,
			0.5, 1,
			1, 0.25,
		}),
		"y.npy": []int64{0, 2, 1},
	})

	x, y, err := LoadNPZ(path, "x.npy", "y.npy", 0)
	if err != nil {
		t.Fatalf("LoadNPZ: %v", err)
	}

	wantX := &AF32{V: []float32{0, 0, 0.5, 1, 1, 0.25}, Shape: []int{3, 2}}
	if diff := cmp.Diff(x, wantX); diff != "" {
		t.Errorf("Wrong features; diff (-got +want)\n%s", diff)
	}

	wantY := &AF32{
		V: []float32{
			1, 0, 0,
			0, 0, 1,
			0, 1, 0,
		},
		Shape: []int{3, 3},
	}
	if diff := cmp.Diff(y, wantY); diff != "" {
		t.Errorf("Wrong labels; diff (-got +want)\n%s", diff)
	}
}

func TestLoadNPZOneHotLabels(t *testing.T) {
	path := writeNPZ(t, map[string]any{
		"x.npy": mat.NewDense(2, 1, []float64{1, 2}),
		"y.npy": mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
	})

	_, y, err := LoadNPZ(path, "x.npy", "y.npy", 2)
	if err != nil {
		t.Fatalf("LoadNPZ: %v", err)
	}
	if diff := cmp.Diff(y.Shape, []int{2, 2}); diff != "" {
		t.Errorf("Wrong label shape; diff (-got +want)\n%s", diff)
	}

	if _, _, err := LoadNPZ(path, "x.npy", "y.npy", 3); err == nil {
		t.Errorf("LoadNPZ accepted labels with the wrong class count")
	}
}

func TestLoadNPZMissingArray(t *testing.T) {
	path := writeNPZ(t, map[string]any{
		"x.npy": mat.NewDense(1, 1, []float64{1}),
	})

	if _, _, err := LoadNPZ(path, "x.npy", "y.npy", 0); err == nil {
		t.Errorf("LoadNPZ succeeded without a labels array")
	}
}
