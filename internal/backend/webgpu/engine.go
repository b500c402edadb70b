//go:build windows

package webgpu

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/born-ml/denoise/internal/core"
	"github.com/go-webgpu/webgpu/wgpu"
)

// copyAlignment is the required alignment of buffer copy offsets and sizes.
const copyAlignment = 4

const (
	storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	readUsage    = wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
	writeUsage   = wgpu.BufferUsageMapWrite | wgpu.BufferUsageCopySrc
)

// pendingRead copies a staged readback into host memory once the commands
// filling the staging buffer have been submitted.
type pendingRead struct {
	staging *wgpu.Buffer
	size    uint64
	skip    int
	dst     []byte
}

// Engine allocates WebGPU buffers and batches transfers.
type Engine struct {
	device *Device
	pool   *BufferPool

	// Command batching: transfers are accumulated and submitted together
	// before any readback or on Wait.
	pendingMu       sync.Mutex
	pendingCommands []*wgpu.CommandBuffer
	pendingReads    []pendingRead
	inflight        []pooledBuffer
}

func newEngine(d *Device) *Engine {
	return &Engine{
		device: d,
		pool:   NewBufferPool(d.device),
	}
}

// Device implements core.Engine.
func (e *Engine) Device() core.Device {
	return e.device
}

// NewBuffer allocates a device-local storage buffer.
func (e *Engine) NewBuffer(byteSize int, storage core.Storage) (core.Buffer, error) {
	if storage == core.StorageUndefined || storage > core.StorageManaged || storage < 0 {
		return nil, core.Errorf(core.InvalidArgument, "invalid storage mode")
	}
	if byteSize < 0 {
		return nil, core.Errorf(core.InvalidArgument, "invalid buffer size")
	}
	return e.newGPUBuffer(byteSize, storage)
}

// NewSharedBuffer is not supported: WebGPU cannot adopt host memory.
func (e *Engine) NewSharedBuffer([]byte) (core.Buffer, error) {
	return nil, core.Errorf(core.UnsupportedHardware, "shared buffers are not supported by the WebGPU device")
}

// NewExternalBufferFromFD is not supported.
func (e *Engine) NewExternalBufferFromFD(core.ExternalMemoryTypeFlags, int, int) (core.Buffer, error) {
	return nil, core.Errorf(core.UnsupportedHardware, "external memory is not supported by the WebGPU device")
}

// NewExternalBufferFromWin32Handle is not supported.
func (e *Engine) NewExternalBufferFromWin32Handle(core.ExternalMemoryTypeFlags, uintptr, string, int) (core.Buffer, error) {
	return nil, core.Errorf(core.UnsupportedHardware, "external memory is not supported by the WebGPU device")
}

func (e *Engine) newGPUBuffer(byteSize int, storage core.Storage) (b *gpuBuffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = &gpuError{op: "create buffer", err: errors.New("allocation failed"), oom: true}
		}
	}()

	//nolint:gosec // G115: byteSize is non-negative
	allocSize := alignUp(uint64(byteSize))
	if allocSize == 0 {
		allocSize = copyAlignment
	}
	buf := e.device.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: storageUsage,
		Size:  allocSize,
	})
	if buf == nil {
		return nil, &gpuError{op: "create buffer", err: errors.New("allocation failed"), oom: true}
	}

	b = &gpuBuffer{engine: e, buffer: buf, allocSize: allocSize}
	b.InitBuffer(e, byteSize, storage)
	core.Logger().Debug("allocated buffer", "bytes", byteSize, "storage", storage.String())
	return b, nil
}

// queueCommand adds a command buffer to the pending batch.
func (e *Engine) queueCommand(cmd *wgpu.CommandBuffer) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	e.pendingCommands = append(e.pendingCommands, cmd)
}

// flushLocked submits all pending command buffers (must hold pendingMu).
func (e *Engine) flushLocked() {
	if len(e.pendingCommands) == 0 {
		return
	}
	e.device.queue.Submit(e.pendingCommands...)
	e.pendingCommands = e.pendingCommands[:0]
}

// Wait submits pending commands, then resolves deferred reads in order.
func (e *Engine) Wait() error {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	e.flushLocked()

	var first error
	for _, r := range e.pendingReads {
		if err := e.resolve(r); err != nil && first == nil {
			first = err
		}
	}
	e.pendingReads = e.pendingReads[:0]

	for _, pb := range e.inflight {
		e.pool.Release(pb.buffer, pb.size, pb.usage)
	}
	e.inflight = e.inflight[:0]

	return first
}

// upload stages src and encodes a copy into dst at dstOffset. Offsets and
// sizes must be aligned.
func (e *Engine) upload(dst *wgpu.Buffer, dstOffset uint64, src []byte) error {
	size := uint64(len(src))
	staging := e.pool.Acquire(size, writeUsage)

	if err := staging.MapAsync(e.device.device, wgpu.MapModeWrite, 0, size); err != nil {
		e.pool.Release(staging, size, writeUsage)
		return &gpuError{op: "map staging buffer", err: err}
	}
	mappedPtr := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), size), src)
	staging.Unmap()

	encoder := e.device.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, dst, dstOffset, size)
	cmd := encoder.Finish(nil)

	e.pendingMu.Lock()
	e.pendingCommands = append(e.pendingCommands, cmd)
	e.inflight = append(e.inflight, pooledBuffer{buffer: staging, size: size, usage: writeUsage})
	e.pendingMu.Unlock()
	return nil
}

// download encodes a copy of [srcOffset, srcOffset+size) into a staging
// buffer. dst receives size-skip bytes starting skip bytes into the range
// when the read is resolved.
func (e *Engine) download(src *wgpu.Buffer, srcOffset, size uint64, skip int, dst []byte) pendingRead {
	staging := e.pool.Acquire(size, readUsage)

	encoder := e.device.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, srcOffset, staging, 0, size)
	e.queueCommand(encoder.Finish(nil))

	return pendingRead{staging: staging, size: size, skip: skip, dst: dst}
}

// resolve maps a staging buffer and copies it out (must hold pendingMu).
func (e *Engine) resolve(r pendingRead) error {
	defer e.pool.Release(r.staging, r.size, readUsage)

	if err := r.staging.MapAsync(e.device.device, wgpu.MapModeRead, 0, r.size); err != nil {
		return &gpuError{op: "map staging buffer", err: err}
	}
	mappedPtr := r.staging.GetMappedRange(0, r.size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mapped := unsafe.Slice((*byte)(mappedPtr), r.size)
	copy(r.dst, mapped[r.skip:])
	r.staging.Unmap()
	return nil
}

// readNow submits everything pending and completes one read.
func (e *Engine) readNow(r pendingRead) error {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	e.flushLocked()
	return e.resolve(r)
}

func (e *Engine) deferRead(r pendingRead) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	e.pendingReads = append(e.pendingReads, r)
}

func alignDown(n uint64) uint64 {
	return n &^ (copyAlignment - 1)
}

func alignUp(n uint64) uint64 {
	return (n + copyAlignment - 1) &^ (copyAlignment - 1)
}
