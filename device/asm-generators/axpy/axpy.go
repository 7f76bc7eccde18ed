// Command axpy generates the AVX2 weight-update kernel used by the
// avx2kernels build of package device.
package main

import (
	. "github.com/mmcloughlin/avo/build"
	. "github.com/mmcloughlin/avo/operand"
	. "github.com/mmcloughlin/avo/reg"
)

var unroll = 4

func main() {
	ConstraintExpr("amd64 && avx2kernels")

	TEXT("axpyKernel", NOSPLIT, "func(alpha float32, x []float32, y []float32)")
	Doc("axpyKernel computes y += alpha*x over len(x) elements.")

	alpha := Load(Param("alpha"), XMM())
	xPtr := Load(Param("x").Base(), GP64())
	yPtr := Load(Param("y").Base(), GP64())
	n := Load(Param("x").Len(), GP64())

	alphaVec := YMM()
	VBROADCASTSS(alpha, alphaVec)

	blockitems := 8 * unroll
	blocksize := 4 * blockitems

	Label("blockloop")
	CMPQ(n, U32(blockitems))
	JL(LabelRef("tail"))

	ys := make([]VecVirtual, unroll)
	for i := 0; i < unroll; i++ {
		ys[i] = YMM()
	}
	for i := 0; i < unroll; i++ {
		VMOVUPS(Mem{Base: yPtr}.Offset(32*i), ys[i])
	}
	Comment("y += alpha * x")
	for i := 0; i < unroll; i++ {
		VFMADD231PS(Mem{Base: xPtr}.Offset(32*i), alphaVec, ys[i])
	}
	for i := 0; i < unroll; i++ {
		VMOVUPS(ys[i], Mem{Base: yPtr}.Offset(32*i))
	}

	ADDQ(U32(blocksize), xPtr)
	ADDQ(U32(blocksize), yPtr)
	SUBQ(U32(blockitems), n)
	JMP(LabelRef("blockloop"))

	Comment("Process any trailing entries one at a time.")
	Label("tail")
	CMPQ(n, U32(0))
	JE(LabelRef("done"))

	xs := XMM()
	y := XMM()
	VMOVSS(Mem{Base: xPtr}, xs)
	VMOVSS(Mem{Base: yPtr}, y)
	VFMADD231SS(xs, alpha, y)
	VMOVSS(y, Mem{Base: yPtr})

	ADDQ(U32(4), xPtr)
	ADDQ(U32(4), yPtr)
	DECQ(n)
	JMP(LabelRef("tail"))

	Label("done")
	VZEROUPPER()
	RET()

	Generate()
}
