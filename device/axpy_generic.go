//go:build !(amd64 && avx2kernels)

package device

func axpy(alpha float32, x, y []float32) {
	if len(x) != len(y) {
		panic("mismatched length")
	}
	for i := 0; i < len(x); i++ {
		y[i] += alpha * x[i]
	}
}
