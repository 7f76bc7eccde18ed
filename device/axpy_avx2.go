//go:build amd64 && avx2kernels

package device

// Build with -tags avx2kernels after regenerating the assembly:
//
//   go generate ./device/

//go:generate go run ./asm-generators/axpy -out axpy_amd64.s -stubs axpy_stub_amd64.go

func axpy(alpha float32, x, y []float32) {
	if len(x) != len(y) {
		panic("mismatched length")
	}
	axpyKernel(alpha, x, y)
}
