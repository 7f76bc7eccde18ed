package device

import (
	"math"

	"github.com/chewxy/math32"
)

var (
	sigmoidLow  float32 = math.SmallestNonzeroFloat32
	sigmoidHigh         = math.Nextafter32(1, 0)
)

func (d *Device) own(bufs ...*Buffer) {
	sameDevice(bufs...)
	if bufs[0].dev != d {
		panic("buffer belongs to a different device")
	}
}

// Sigmoid writes 1/(1+exp(-src)) into dst.  Saturated values are clamped into
// the open interval (0, 1).
func (d *Device) Sigmoid(dst, src *Buffer) {
	d.own(dst, src)
	sameLen(dst, src)
	out, in := dst.data, src.data
	d.Launch(len(out), func(i int) {
		a := 1 / (1 + math32.Exp(-in[i]))
		if a < sigmoidLow {
			a = sigmoidLow
		}
		if a > sigmoidHigh {
			a = sigmoidHigh
		}
		out[i] = a
	})
}

// SigmoidDerivative writes a*(1-a) into dst, where a = activated is the
// sigmoid output.
func (d *Device) SigmoidDerivative(dst, activated *Buffer) {
	d.own(dst, activated)
	sameLen(dst, activated)
	out, a := dst.data, activated.data
	d.Launch(len(out), func(i int) {
		out[i] = a[i] * (1 - a[i])
	})
}

func (d *Device) Exp(dst, src *Buffer) {
	d.own(dst, src)
	sameLen(dst, src)
	out, in := dst.data, src.data
	d.Launch(len(out), func(i int) {
		out[i] = math32.Exp(in[i])
	})
}

// Add writes a+b into dst.
func (d *Device) Add(dst, a, b *Buffer) {
	d.own(dst, a, b)
	sameLen(dst, a, b)
	out, x, y := dst.data, a.data, b.data
	d.Launch(len(out), func(i int) {
		out[i] = x[i] + y[i]
	})
}

// Sub writes a-b into dst.
func (d *Device) Sub(dst, a, b *Buffer) {
	d.own(dst, a, b)
	sameLen(dst, a, b)
	out, x, y := dst.data, a.data, b.data
	d.Launch(len(out), func(i int) {
		out[i] = x[i] - y[i]
	})
}

// Mul writes the elementwise product of a and b into dst.
func (d *Device) Mul(dst, a, b *Buffer) {
	d.own(dst, a, b)
	sameLen(dst, a, b)
	out, x, y := dst.data, a.data, b.data
	d.Launch(len(out), func(i int) {
		out[i] = x[i] * y[i]
	})
}

// DivScalar writes src/scalar[0] into dst.  scalar must have length 1.
func (d *Device) DivScalar(dst, src, scalar *Buffer) {
	d.own(dst, src, scalar)
	sameLen(dst, src)
	if scalar.Len() != 1 {
		panic("scalar buffer must have length 1")
	}
	out, in, s := dst.data, src.data, scalar.data
	d.Launch(len(out), func(i int) {
		out[i] = in[i] / s[0]
	})
}

// Axpy computes y += alpha*x in place.
func (d *Device) Axpy(y *Buffer, alpha float32, x *Buffer) {
	d.own(y, x)
	sameLen(y, x)
	ys, xs := y.data, x.data
	d.LaunchRange(len(ys), func(start, end int) {
		axpy(alpha, xs[start:end], ys[start:end])
	})
}

// CrossEntropyTerms writes -label*log(pred) into dst, and exactly zero
// wherever label is zero.
func (d *Device) CrossEntropyTerms(dst, label, pred *Buffer) {
	d.own(dst, label, pred)
	sameLen(dst, label, pred)
	out, y, p := dst.data, label.data, pred.data
	d.Launch(len(out), func(i int) {
		if y[i] == 0 {
			out[i] = 0
			return
		}
		out[i] = -y[i] * math32.Log(p[i])
	})
}

func (d *Device) Fill(dst *Buffer, v float32) {
	d.own(dst)
	out := dst.data
	d.Launch(len(out), func(i int) {
		out[i] = v
	})
}
