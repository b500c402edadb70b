//go:build opencl

package opencl

import (
	"github.com/born-ml/denoise/internal/core"
	"github.com/passkeyra/go-opencl/opencl"
)

type mapping struct {
	byteOffset int
	access     core.Access
}

// clBuffer is an OpenCL memory object. Transfers always start at offset
// zero, so ranged access moves the [0, end) prefix.
type clBuffer struct {
	core.BufferBase

	engine *Engine
	mem    opencl.Buffer
	mapped map[*byte]mapping
}

// Data returns nil: the storage is not host-addressable.
func (b *clBuffer) Data() []byte {
	return nil
}

// Map copies the region into host memory; Unmap writes it back unless it
// was mapped read-only.
func (b *clBuffer) Map(byteOffset, byteSize int, access core.Access) ([]byte, error) {
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

// Unmap implements core.Buffer.
func (b *clBuffer) Unmap(region []byte) error {
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

// Read copies bytes starting at byteOffset into dst.
func (b *clBuffer) Read(byteOffset int, dst []byte, _ core.SyncMode) error {
	if err := b.CheckRange(byteOffset, len(dst)); err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}
	prefix, err := b.readPrefix(byteOffset + len(dst))
	if err != nil {
		return err
	}
	copy(dst, prefix[byteOffset:])
	return nil
}

// Write copies src into the buffer at byteOffset.
func (b *clBuffer) Write(byteOffset int, src []byte, _ core.SyncMode) error {
	if err := b.CheckRange(byteOffset, len(src)); err != nil {
		return err
	}
	if len(src) == 0 {
		return nil
	}

	data := src
	if byteOffset > 0 {
		prefix, err := b.readPrefix(byteOffset + len(src))
		if err != nil {
			return err
		}
		copy(prefix[byteOffset:], src)
		data = prefix
	}

	if err := b.engine.device.commandQueue.EnqueueWriteBuffer(b.mem, true, data); err != nil {
		return &clError{op: "write buffer", err: err}
	}
	return nil
}

func (b *clBuffer) readPrefix(n int) ([]byte, error) {
	prefix := make([]byte, n)
	if err := b.engine.device.commandQueue.EnqueueReadBuffer(b.mem, true, prefix); err != nil {
		return nil, &clError{op: "read buffer", err: err}
	}
	return prefix, nil
}

// Destroy implements core.Object.
func (b *clBuffer) Destroy() error {
	b.mapped = nil
	b.mem.Release()
	return nil
}
