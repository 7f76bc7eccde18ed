// Package device implements a CPU-backed accelerator: an arena of float32
// buffers that host code can only reach through explicit uploads and
// downloads, and an in-order launch queue that fans each kernel out over a
// pool of goroutines.
package device

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrOutOfMemory is returned when a buffer request exceeds the device's
// memory budget.
var ErrOutOfMemory = errors.New("device out of memory")

// Config controls how kernels are scheduled and how much memory the device
// will hand out.
type Config struct {
	Workers      int   // Goroutines used for one kernel launch.
	MinChunkSize int   // Minimum tasks per goroutine; smaller launches run inline.
	MemoryLimit  int64 // Bytes available for buffers.  Zero means unlimited.
}

// DefaultConfig returns a config sized to the host CPU count.
func DefaultConfig() Config {
	return Config{
		Workers:      runtime.NumCPU(),
		MinChunkSize: 64,
	}
}

type Device struct {
	cfg Config

	// queue serializes launches, giving every caller in-order semantics.
	queue sync.Mutex

	mu        sync.Mutex
	usedBytes int64
	live      int
	launches  int64
}

func New(cfg Config) *Device {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MinChunkSize < 1 {
		cfg.MinChunkSize = 1
	}
	return &Device{cfg: cfg}
}

// Alloc reserves a zero-filled buffer of n float32 elements.
func (d *Device) Alloc(n int) (*Buffer, error) {
	if n <= 0 {
		panic(fmt.Sprintf("invalid buffer length: %d", n))
	}
	size := int64(n) * 4

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.MemoryLimit > 0 && d.usedBytes+size > d.cfg.MemoryLimit {
		return nil, fmt.Errorf("%w: requested %d bytes with %d of %d in use", ErrOutOfMemory, size, d.usedBytes, d.cfg.MemoryLimit)
	}
	d.usedBytes += size
	d.live++

	return &Buffer{
		dev:  d,
		data: make([]float32, n),
	}, nil
}

// Upload allocates a buffer and copies host into it.
func (d *Device) Upload(host []float32) (*Buffer, error) {
	b, err := d.Alloc(len(host))
	if err != nil {
		return nil, err
	}
	b.CopyFromHost(host)
	return b, nil
}

func (d *Device) release(b *Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.usedBytes -= int64(len(b.data)) * 4
	d.live--
}

// Live reports the number of allocated, not yet freed buffers.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// UsedBytes reports the bytes held by live buffers.
func (d *Device) UsedBytes() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.usedBytes
}

// Launches reports how many kernels have been launched on the device.
func (d *Device) Launches() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.launches
}

// Launch runs kernel(i) for every i in [0, n) and returns once all tasks have
// finished.  Launches from any goroutine are executed one at a time in the
// order they acquire the queue.
func (d *Device) Launch(n int, kernel func(i int)) {
	d.LaunchRange(n, func(start, end int) {
		for i := start; i < end; i++ {
			kernel(i)
		}
	})
}

// LaunchRange is Launch for kernels that process a contiguous run of tasks
// [start, end) per call.
func (d *Device) LaunchRange(n int, kernel func(start, end int)) {
	d.exec(func() {
		d.fanOut(n, kernel)
	})
}

// exec runs f as a single queued operation.
func (d *Device) exec(f func()) {
	d.queue.Lock()
	defer d.queue.Unlock()

	d.mu.Lock()
	d.launches++
	d.mu.Unlock()

	f()
}

func (d *Device) fanOut(n int, kernel func(start, end int)) {
	if n <= 0 {
		return
	}
	if d.cfg.Workers == 1 || n < d.cfg.MinChunkSize {
		kernel(0, n)
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+d.cfg.Workers-1)/d.cfg.Workers, d.cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			kernel(s, e)
		}(start, end)
	}
	wg.Wait()
}
