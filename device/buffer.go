package device

import "fmt"

// Buffer is device-resident float32 storage.  Host code moves data in and out
// with CopyFromHost and CopyToHost; kernels in this package operate on the
// storage directly.
type Buffer struct {
	dev  *Device
	data []float32

	// parent is set for views, which share storage and are never freed.
	parent *Buffer
	freed  bool
}

func (b *Buffer) Len() int {
	return len(b.data)
}

// Device returns the device that owns the buffer.
func (b *Buffer) Device() *Device {
	return b.dev
}

// View returns a zero-copy window of n elements starting at offset.  The view
// stays valid as long as the buffer it was taken from.
func (b *Buffer) View(offset, n int) *Buffer {
	b.check()
	if offset < 0 || n <= 0 || offset+n > len(b.data) {
		panic(fmt.Sprintf("view [%d, %d) out of range for buffer of length %d", offset, offset+n, len(b.data)))
	}
	root := b
	if b.parent != nil {
		root = b.parent
	}
	return &Buffer{
		dev:    b.dev,
		data:   b.data[offset : offset+n : offset+n],
		parent: root,
	}
}

// Free returns the buffer's memory to the device.  Freeing a view is a no-op;
// freeing twice panics.
func (b *Buffer) Free() {
	if b == nil || b.parent != nil {
		return
	}
	if b.freed {
		panic("double free of device buffer")
	}
	b.freed = true
	b.dev.release(b)
}

// CopyFromHost uploads host into the buffer.  Lengths must match.
func (b *Buffer) CopyFromHost(host []float32) {
	b.check()
	if len(host) != len(b.data) {
		panic(fmt.Sprintf("upload length mismatch: host %d, device %d", len(host), len(b.data)))
	}
	b.dev.exec(func() {
		copy(b.data, host)
	})
}

// CopyToHost downloads the buffer into host.  Lengths must match.
func (b *Buffer) CopyToHost(host []float32) {
	b.check()
	if len(host) != len(b.data) {
		panic(fmt.Sprintf("download length mismatch: host %d, device %d", len(host), len(b.data)))
	}
	b.dev.exec(func() {
		copy(host, b.data)
	})
}

// Host returns a freshly allocated host copy of the buffer.
func (b *Buffer) Host() []float32 {
	out := make([]float32, b.Len())
	b.CopyToHost(out)
	return out
}

func (b *Buffer) check() {
	if b.freed || (b.parent != nil && b.parent.freed) {
		panic("use of freed device buffer")
	}
}

func sameDevice(bufs ...*Buffer) {
	for _, b := range bufs {
		b.check()
		if b.dev != bufs[0].dev {
			panic("buffers belong to different devices")
		}
	}
}

func sameLen(bufs ...*Buffer) {
	for _, b := range bufs {
		if len(b.data) != len(bufs[0].data) {
			panic("dimension mismatch")
		}
	}
}
