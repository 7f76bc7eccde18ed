package device

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLaunchCoversEveryTask(t *testing.T) {
	for _, cfg := range []Config{
		DefaultConfig(),
		{Workers: 1, MinChunkSize: 1},
		{Workers: 7, MinChunkSize: 3},
	} {
		d := New(cfg)

		n := 1000
		hits := make([]int32, n)
		d.Launch(n, func(i int) {
			atomic.AddInt32(&hits[i], 1)
		})

		for i, h := range hits {
			if h != 1 {
				t.Fatalf("cfg=%+v task %d ran %d times", cfg, i, h)
			}
		}
	}
}

func TestLaunchZeroTasks(t *testing.T) {
	d := New(DefaultConfig())
	d.Launch(0, func(int) {
		t.Fatalf("kernel ran for an empty launch")
	})
}

func TestUploadDownload(t *testing.T) {
	d := New(DefaultConfig())

	want := []float32{1, 2, 3, 4, 5}
	b, err := d.Upload(want)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	defer b.Free()

	if diff := cmp.Diff(b.Host(), want); diff != "" {
		t.Fatalf("Wrong download; diff (-got +want)\n%s", diff)
	}
}

func TestViewSharesStorage(t *testing.T) {
	d := New(DefaultConfig())

	b, err := d.Upload([]float32{0, 1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	defer b.Free()

	v := b.View(2, 3)
	if diff := cmp.Diff(v.Host(), []float32{2, 3, 4}); diff != "" {
		t.Fatalf("Wrong view contents; diff (-got +want)\n%s", diff)
	}

	d.Fill(v, 9)
	if diff := cmp.Diff(b.Host(), []float32{0, 1, 9, 9, 9, 5}); diff != "" {
		t.Fatalf("Fill through view did not reach parent; diff (-got +want)\n%s", diff)
	}

	// Views of views stay anchored to the root buffer.
	vv := v.View(1, 1)
	vv.Free()
	if d.Live() != 1 {
		t.Errorf("Freeing a view released memory; live=%d", d.Live())
	}
}

func TestViewOutOfRangePanics(t *testing.T) {
	d := New(DefaultConfig())
	b, err := d.Alloc(4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer b.Free()

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	b.View(2, 3)
}

func TestMemoryLimit(t *testing.T) {
	d := New(Config{Workers: 1, MinChunkSize: 1, MemoryLimit: 40})

	a, err := d.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if _, err := d.Alloc(3); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("Alloc beyond limit; got err=%v, want ErrOutOfMemory", err)
	}

	b, err := d.Alloc(2)
	if err != nil {
		t.Fatalf("Alloc within limit: %v", err)
	}

	if got := d.UsedBytes(); got != 40 {
		t.Errorf("UsedBytes; got %d want 40", got)
	}

	a.Free()
	b.Free()

	if d.Live() != 0 || d.UsedBytes() != 0 {
		t.Errorf("Leaked buffers; live=%d used=%d", d.Live(), d.UsedBytes())
	}
}

func TestDoubleFreePanics(t *testing.T) {
	d := New(DefaultConfig())
	b, err := d.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	b.Free()

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	b.Free()
}

func TestUseAfterFreePanics(t *testing.T) {
	d := New(DefaultConfig())
	b, err := d.Alloc(4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	v := b.View(0, 2)
	b.Free()

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	v.Host()
}

func BenchmarkLaunch(b *testing.B) {
	d := New(DefaultConfig())
	buf, err := d.Alloc(1 << 16)
	if err != nil {
		b.Fatalf("Alloc: %v", err)
	}
	defer buf.Free()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Fill(buf, 1)
	}
}
