package cpu

import (
	"fmt"

	"github.com/born-ml/denoise/internal/core"
)

// hostBuffer is a buffer backed by host-addressable memory: a heap
// allocation, caller-owned memory, or an imported external mapping.
type hostBuffer struct {
	core.BufferBase

	engine *Engine
	data   []byte
	mapped map[*byte]int

	// unbind releases an imported external mapping. It runs exactly once,
	// from Destroy.
	unbind func() error
}

func newHostBuffer(e *Engine, data []byte, storage core.Storage) *hostBuffer {
	b := &hostBuffer{engine: e, data: data}
	b.InitBuffer(e, len(data), storage)
	return b
}

// Data implements core.Buffer.
func (b *hostBuffer) Data() []byte {
	return b.data
}

// Map returns a zero-copy window onto the buffer once all queued work has
// completed. A zero size maps to the end of the buffer.
func (b *hostBuffer) Map(byteOffset, byteSize int, access core.Access) ([]byte, error) {
	if !access.Valid() {
		return nil, core.Errorf(core.InvalidArgument, "invalid access mode")
	}
	if byteSize == 0 {
		byteSize = b.ByteSize() - byteOffset
	}
	if err := b.CheckRange(byteOffset, byteSize); err != nil {
		return nil, err
	}
	if err := b.engine.Wait(); err != nil {
		return nil, err
	}

	region := b.data[byteOffset : byteOffset+byteSize : byteOffset+byteSize]
	if len(region) > 0 {
		if b.mapped == nil {
			b.mapped = make(map[*byte]int)
		}
		b.mapped[&region[0]]++
	}
	return region, nil
}

// Unmap releases a region returned by Map.
func (b *hostBuffer) Unmap(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	key := &region[0]
	n, ok := b.mapped[key]
	if !ok {
		return core.Errorf(core.InvalidArgument, "invalid mapped region")
	}
	if n <= 1 {
		delete(b.mapped, key)
	} else {
		b.mapped[key] = n - 1
	}
	return nil
}

// Read copies bytes starting at byteOffset into dst.
func (b *hostBuffer) Read(byteOffset int, dst []byte, mode core.SyncMode) error {
	if err := b.CheckRange(byteOffset, len(dst)); err != nil {
		return err
	}
	return b.engine.Submit(func() error {
		copy(dst, b.data[byteOffset:])
		return nil
	}, mode)
}

// Write copies src into the buffer starting at byteOffset.
func (b *hostBuffer) Write(byteOffset int, src []byte, mode core.SyncMode) error {
	if err := b.CheckRange(byteOffset, len(src)); err != nil {
		return err
	}
	return b.engine.Submit(func() error {
		copy(b.data[byteOffset:], src)
		return nil
	}, mode)
}

// Destroy implements core.Object.
func (b *hostBuffer) Destroy() error {
	b.mapped = nil
	b.data = nil
	if b.unbind == nil {
		return nil
	}
	unbind := b.unbind
	b.unbind = nil
	if err := unbind(); err != nil {
		return fmt.Errorf("unbinding external memory: %w", err)
	}
	return nil
}

// scratchBuffer is a host buffer whose storage can be reallocated.
type scratchBuffer struct {
	*hostBuffer
}

// Realloc resizes the buffer, keeping the common prefix, and re-points all
// attached views.
func (b *scratchBuffer) Realloc(byteSize int) error {
	data, err := alloc(byteSize)
	if err != nil {
		return err
	}
	copy(data, b.data)
	b.data = data
	b.SetByteSize(byteSize)
	return b.PostRealloc()
}
