//go:build windows

package webgpu

import (
	"github.com/born-ml/denoise/internal/core"
	"github.com/go-webgpu/webgpu/wgpu"
)

type mapping struct {
	byteOffset int
	access     core.Access
}

// gpuBuffer is a device-local storage buffer. Host access goes through
// staging buffers.
type gpuBuffer struct {
	core.BufferBase

	engine    *Engine
	buffer    *wgpu.Buffer
	allocSize uint64
	mapped    map[*byte]mapping
}

// Data returns nil: the storage is not host-addressable.
func (b *gpuBuffer) Data() []byte {
	return nil
}

// Map copies the region into host memory. The copy is written back by
// Unmap unless it was mapped read-only.
func (b *gpuBuffer) Map(byteOffset, byteSize int, access core.Access) ([]byte, error) {
	if !access.Valid() {
		return nil, core.Errorf(core.InvalidArgument, "invalid access mode")
	}
	if byteSize == 0 {
		byteSize = b.ByteSize() - byteOffset
	}
	if err := b.CheckRange(byteOffset, byteSize); err != nil {
		return nil, err
	}

	region := make([]byte, byteSize)
	if byteSize == 0 {
		return region, nil
	}
	if access != core.AccessWriteDiscard {
		if err := b.Read(byteOffset, region, core.Sync); err != nil {
			return nil, err
		}
	}
	if b.mapped == nil {
		b.mapped = make(map[*byte]mapping)
	}
	b.mapped[&region[0]] = mapping{byteOffset: byteOffset, access: access}
	return region, nil
}

// Unmap writes a mapped region back and forgets it.
func (b *gpuBuffer) Unmap(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	m, ok := b.mapped[&region[0]]
	if !ok {
		return core.Errorf(core.InvalidArgument, "invalid mapped region")
	}
	delete(b.mapped, &region[0])
	if m.access == core.AccessRead {
		return nil
	}
	return b.Write(m.byteOffset, region, core.Sync)
}

// Read copies bytes starting at byteOffset into dst. Async reads complete
// on the next Wait.
func (b *gpuBuffer) Read(byteOffset int, dst []byte, mode core.SyncMode) error {
	if err := b.CheckRange(byteOffset, len(dst)); err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}

	//nolint:gosec // G115: range checked above
	lo, hi := alignDown(uint64(byteOffset)), alignUp(uint64(byteOffset+len(dst)))
	//nolint:gosec // G115: lo <= byteOffset
	r := b.engine.download(b.buffer, lo, hi-lo, byteOffset-int(lo), dst)
	if mode == core.Sync {
		return b.engine.readNow(r)
	}
	b.engine.deferRead(r)
	return nil
}

// Write copies src into the buffer at byteOffset. Unaligned edges are
// merged with the current contents first.
func (b *gpuBuffer) Write(byteOffset int, src []byte, mode core.SyncMode) error {
	if err := b.CheckRange(byteOffset, len(src)); err != nil {
		return err
	}
	if len(src) == 0 {
		return nil
	}

	//nolint:gosec // G115: range checked above
	off, end := uint64(byteOffset), uint64(byteOffset+len(src))
	lo, hi := alignDown(off), alignUp(end)

	data := src
	if lo != off || hi != end {
		data = make([]byte, hi-lo)
		if err := b.engine.readNow(b.engine.download(b.buffer, lo, hi-lo, 0, data)); err != nil {
			return err
		}
		copy(data[off-lo:], src)
	}

	if err := b.engine.upload(b.buffer, lo, data); err != nil {
		return err
	}
	if mode == core.Sync {
		return b.engine.Wait()
	}
	return nil
}

// Destroy implements core.Object.
func (b *gpuBuffer) Destroy() error {
	b.mapped = nil
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
	return nil
}
