package device

import (
	"errors"
	"math/rand"
	"strconv"
	"testing"

	"github.com/chewxy/math32"
)

func TestSumAgreesWithSequential(t *testing.T) {
	r := rand.New(rand.NewSource(12345))

	for _, n := range []int{1, 2, 3, 5, 8, 127, 128, 129, 1000, 4096} {
		t.Run("n="+strconv.Itoa(n), func(t *testing.T) {
			d := New(Config{Workers: 4, MinChunkSize: 8})

			host := make([]float32, n)
			var want float64
			for i := range host {
				host[i] = r.Float32()*2 - 1
				want += float64(host[i])
			}

			src, err := d.Upload(host)
			if err != nil {
				t.Fatalf("Upload: %v", err)
			}
			defer src.Free()
			dst, err := d.Alloc(1)
			if err != nil {
				t.Fatalf("Alloc: %v", err)
			}
			defer dst.Free()

			if err := d.Sum(dst, src); err != nil {
				t.Fatalf("Sum: %v", err)
			}

			got := dst.Host()[0]
			if math32.Abs(got-float32(want)) > 1e-4*float32(n) {
				t.Errorf("Wrong sum; got %v want %v", got, want)
			}
		})
	}
}

func TestSumExactOnIntegers(t *testing.T) {
	d := New(DefaultConfig())

	n := 1000
	host := make([]float32, n)
	for i := range host {
		host[i] = float32(i + 1)
	}
	src, err := d.Upload(host)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	defer src.Free()
	dst, err := d.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer dst.Free()

	if err := d.Sum(dst, src); err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if got, want := dst.Host()[0], float32(n*(n+1)/2); got != want {
		t.Errorf("Wrong sum; got %v want %v", got, want)
	}
}

func TestSumLaunchesLogRounds(t *testing.T) {
	d := New(DefaultConfig())

	src, err := d.Alloc(5)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer src.Free()
	dst, err := d.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer dst.Free()

	before := d.Launches()
	if err := d.Sum(dst, src); err != nil {
		t.Fatalf("Sum: %v", err)
	}

	// Padding copy, log2(8) = 3 rounds, and the final write-out.
	if got := d.Launches() - before; got != 5 {
		t.Errorf("Wrong launch count; got %d want 5", got)
	}
}

func TestSumScratchAllocationFailure(t *testing.T) {
	// src (5 floats) + dst (1 float) leave no room for an 8-element scratch.
	d := New(Config{Workers: 1, MinChunkSize: 1, MemoryLimit: 6 * 4})

	src, err := d.Upload([]float32{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	defer src.Free()
	dst, err := d.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer dst.Free()

	if err := d.Sum(dst, src); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("got err=%v, want ErrOutOfMemory", err)
	}
	if d.Live() != 2 {
		t.Errorf("Wrong live buffer count after failed sum; got %d want 2", d.Live())
	}
}

func TestSumReleasesScratch(t *testing.T) {
	d := New(DefaultConfig())

	src, err := d.Alloc(100)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer src.Free()
	dst, err := d.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer dst.Free()

	for i := 0; i < 10; i++ {
		if err := d.Sum(dst, src); err != nil {
			t.Fatalf("Sum: %v", err)
		}
	}
	if d.Live() != 2 {
		t.Errorf("Sum leaked scratch buffers; live=%d", d.Live())
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	for n, want := range map[int]int{1: 1, 2: 2, 3: 4, 5: 8, 128: 128, 129: 256, 1000: 1024} {
		if got := nextPowerOfTwo(n); got != want {
			t.Errorf("nextPowerOfTwo(%d); got %d want %d", n, got, want)
		}
	}
}

func BenchmarkSum(b *testing.B) {
	for i := 8; i < 16; i += 2 {
		b.Run("size="+strconv.Itoa(2<<i), func(b *testing.B) {
			d := New(DefaultConfig())
			host := make([]float32, 2<<i)
			for j := range host {
				host[j] = rand.Float32()
			}
			src, err := d.Upload(host)
			if err != nil {
				b.Fatalf("Upload: %v", err)
			}
			defer src.Free()
			dst, err := d.Alloc(1)
			if err != nil {
				b.Fatalf("Alloc: %v", err)
			}
			defer dst.Free()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := d.Sum(dst, src); err != nil {
					b.Fatalf("Sum: %v", err)
				}
			}
		})
	}
}
