package cpu

import (
	"fmt"

	"github.com/born-ml/denoise/internal/core"
	"github.com/born-ml/denoise/internal/parallel"
)

// maxAllocSize bounds a single allocation. Larger requests fail with
// core.ErrOutOfMemory instead of aborting the process.
var maxAllocSize = 1 << 34

// Engine allocates host memory and runs kernels for a CPU device.
type Engine struct {
	device *Device
	queue  core.Queue
	par    parallel.Config
}

func newEngine(dev *Device, par parallel.Config) *Engine {
	return &Engine{device: dev, par: par}
}

// Device implements core.Engine.
func (e *Engine) Device() core.Device {
	return e.device
}

// Parallel returns the kernel parallelism settings.
func (e *Engine) Parallel() parallel.Config {
	return e.par
}

// NewBuffer allocates a zeroed buffer. All storage kinds live in host
// memory on this device.
func (e *Engine) NewBuffer(byteSize int, storage core.Storage) (core.Buffer, error) {
	if storage == core.StorageUndefined || storage > core.StorageManaged || storage < 0 {
		return nil, core.Errorf(core.InvalidArgument, "invalid storage mode")
	}
	data, err := alloc(byteSize)
	if err != nil {
		return nil, err
	}
	core.Logger().Debug("allocated buffer", "bytes", byteSize, "storage", storage.String())
	return newHostBuffer(e, data, storage), nil
}

// NewSharedBuffer wraps caller-owned memory.
func (e *Engine) NewSharedBuffer(data []byte) (core.Buffer, error) {
	return newHostBuffer(e, data, core.StorageUndefined), nil
}

// NewExternalBufferFromFD maps the memory object referenced by fd.
func (e *Engine) NewExternalBufferFromFD(fdType core.ExternalMemoryTypeFlags, fd int, byteSize int) (core.Buffer, error) {
	if byteSize <= 0 {
		return nil, core.Errorf(core.InvalidArgument, "invalid buffer size")
	}
	data, unbind, err := importFD(fd, byteSize)
	if err != nil {
		return nil, err
	}
	core.Logger().Debug("imported external memory", "type", int(fdType), "fd", fd, "bytes", byteSize)
	b := newHostBuffer(e, data, core.StorageUndefined)
	b.unbind = unbind
	return b, nil
}

// NewExternalBufferFromWin32Handle maps the memory object referenced by
// handle or, if handle is zero, by name.
func (e *Engine) NewExternalBufferFromWin32Handle(handleType core.ExternalMemoryTypeFlags, handle uintptr, name string, byteSize int) (core.Buffer, error) {
	if byteSize <= 0 {
		return nil, core.Errorf(core.InvalidArgument, "invalid buffer size")
	}
	data, unbind, err := importWin32(handle, name, byteSize)
	if err != nil {
		return nil, err
	}
	core.Logger().Debug("imported external memory", "type", int(handleType), "name", name, "bytes", byteSize)
	b := newHostBuffer(e, data, core.StorageUndefined)
	b.unbind = unbind
	return b, nil
}

// NewScratchBuffer allocates a reallocatable engine-internal buffer.
func (e *Engine) NewScratchBuffer(byteSize int) (core.ScratchBuffer, error) {
	data, err := alloc(byteSize)
	if err != nil {
		return nil, err
	}
	return &scratchBuffer{hostBuffer: newHostBuffer(e, data, core.StorageDevice)}, nil
}

// Submit runs kernel on the queue.
func (e *Engine) Submit(kernel func() error, mode core.SyncMode) error {
	if mode == core.Sync {
		return e.queue.Run(kernel)
	}
	e.queue.Submit(kernel, true)
	return nil
}

// Barrier implements core.KernelEngine.
func (e *Engine) Barrier() {
	e.queue.Barrier()
}

// Wait blocks until all queued work has completed.
func (e *Engine) Wait() error {
	return e.queue.Wait()
}

// SetDepEvents implements core.EventEngine.
func (e *Engine) SetDepEvents(events []core.Event) {
	e.queue.SetDepEvents(events)
}

// DoneEvents implements core.EventEngine.
func (e *Engine) DoneEvents() []core.Event {
	return e.queue.DoneEvents()
}

// Accessor exports img for host kernels.
func (e *Engine) Accessor(img *core.Image) core.ImageAccessor {
	return img.Accessor(supportsDataType)
}

func supportsDataType(dt core.DataType) bool {
	switch dt {
	case core.DataTypeFloat32, core.DataTypeFloat16, core.DataTypeUInt8:
		return true
	default:
		return false
	}
}

func alloc(byteSize int) ([]byte, error) {
	if byteSize < 0 {
		return nil, core.Errorf(core.InvalidArgument, "invalid buffer size")
	}
	if byteSize > maxAllocSize {
		return nil, fmt.Errorf("allocating %d bytes: %w", byteSize, core.ErrOutOfMemory)
	}
	return make([]byte, byteSize), nil
}
