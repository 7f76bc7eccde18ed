package toolbox

import (
	"fmt"

	"github.com/sbinet/npyio/npz"
)

// LoadNPZ reads a labeled dataset from a NumPy .npz archive.
//
// The features array must have at least two dimensions; trailing dimensions
// are flattened, so images of shape (n, 28, 28) become (n, 784).  uint8
// features are scaled into [0, 1].
//
// The labels array is either a 1-D array of class indices, which is expanded
// to one-hot rows of width numClasses (or max label + 1 when numClasses is
// zero), or a 2-D array of per-class targets used as-is.
func LoadNPZ(path, featuresKey, labelsKey string, numClasses int) (x, y *AF32, err error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("while opening dataset file: %w", err)
	}
	defer r.Close()

	x, err = loadFeatures(r, featuresKey)
	if err != nil {
		return nil, nil, fmt.Errorf("while reading %s: %w", featuresKey, err)
	}

	y, err = loadLabels(r, labelsKey, numClasses)
	if err != nil {
		return nil, nil, fmt.Errorf("while reading %s: %w", labelsKey, err)
	}

	if x.Shape[0] != y.Shape[0] {
		return nil, nil, fmt.Errorf("%d feature rows but %d label rows", x.Shape[0], y.Shape[0])
	}

	return x, y, nil
}

func loadFeatures(r *npz.Reader, name string) (*AF32, error) {
	vals, shape, dtype, err := readArray(r, name)
	if err != nil {
		return nil, err
	}
	if len(shape) < 2 {
		return nil, fmt.Errorf("features must have at least 2 dimensions, got shape %v", shape)
	}

	cols := 1
	for _, s := range shape[1:] {
		cols *= s
	}
	out := MakeAF32(shape[0], cols)
	copy(out.V, vals)
	if dtype == "u1" {
		for i := range out.V {
			out.V[i] /= float32(255)
		}
	}
	return out, nil
}

func loadLabels(r *npz.Reader, name string, numClasses int) (*AF32, error) {
	vals, shape, _, err := readArray(r, name)
	if err != nil {
		return nil, err
	}

	switch len(shape) {
	case 1:
		classes := make([]int, len(vals))
		maxClass := 0
		for k, v := range vals {
			classes[k] = int(v)
			maxClass = max(maxClass, classes[k])
		}
		if numClasses <= 0 {
			numClasses = maxClass + 1
		}
		return OneHot(classes, numClasses)
	case 2:
		if numClasses > 0 && shape[1] != numClasses {
			return nil, fmt.Errorf("labels have %d columns, want %d classes", shape[1], numClasses)
		}
		out := MakeAF32(shape[0], shape[1])
		copy(out.V, vals)
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported label shape %v", shape)
	}
}

// readArray reads the named array as float32 values, whatever its stored
// element type.  The returned dtype has its byte-order mark stripped.
func readArray(r *npz.Reader, name string) (vals []float32, shape []int, dtype string, err error) {
	header := r.Header(name)
	if header == nil {
		return nil, nil, "", fmt.Errorf("no array named %q", name)
	}
	if header.Descr.Fortran {
		return nil, nil, "", fmt.Errorf("fortran-ordered arrays are not supported")
	}

	shape = header.Descr.Shape
	for _, s := range shape {
		if s <= 0 {
			return nil, nil, "", fmt.Errorf("bad shape %v", shape)
		}
	}

	dtype = header.Descr.Type
	if len(dtype) > 1 {
		// Drop the byte-order mark ('<', '>', '|' or '=').
		dtype = dtype[1:]
	}

	switch dtype {
	case "f4":
		if err := r.Read(name, &vals); err != nil {
			return nil, nil, "", fmt.Errorf("while reading float32 array: %w", err)
		}
	case "f8":
		var raw []float64
		if err := r.Read(name, &raw); err != nil {
			return nil, nil, "", fmt.Errorf("while reading float64 array: %w", err)
		}
		vals = make([]float32, len(raw))
		for i, v := range raw {
			vals[i] = float32(v)
		}
	case "u1":
		var raw []uint8
		if err := r.Read(name, &raw); err != nil {
			return nil, nil, "", fmt.Errorf("while reading uint8 array: %w", err)
		}
		vals = make([]float32, len(raw))
		for i, v := range raw {
			vals[i] = float32(v)
		}
	case "i4":
		var raw []int32
		if err := r.Read(name, &raw); err != nil {
			return nil, nil, "", fmt.Errorf("while reading int32 array: %w", err)
		}
		vals = make([]float32, len(raw))
		for i, v := range raw {
			vals[i] = float32(v)
		}
	case "i8":
		var raw []int64
		if err := r.Read(name, &raw); err != nil {
			return nil, nil, "", fmt.Errorf("while reading int64 array: %w", err)
		}
		vals = make([]float32, len(raw))
		for i, v := range raw {
			vals[i] = float32(v)
		}
	default:
		return nil, nil, "", fmt.Errorf("unsupported dtype %s", header.Descr.Type)
	}

	return vals, shape, dtype, nil
}
