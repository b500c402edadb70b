//go:build opencl

package opencl

import (
	"github.com/born-ml/denoise/internal/core"
	"github.com/passkeyra/go-opencl/opencl"
)

// Engine allocates OpenCL buffers.
type Engine struct {
	device *Device
}

// Device implements core.Engine.
func (e *Engine) Device() core.Device {
	return e.device
}

// NewBuffer allocates a read-write device buffer.
func (e *Engine) NewBuffer(byteSize int, storage core.Storage) (core.Buffer, error) {
	if storage == core.StorageUndefined || storage > core.StorageManaged || storage < 0 {
		return nil, core.Errorf(core.InvalidArgument, "invalid storage mode")
	}
	if byteSize < 0 {
		return nil, core.Errorf(core.InvalidArgument, "invalid buffer size")
	}

	//nolint:gosec // G115: byteSize is non-negative
	mem, err := e.device.context.CreateBuffer([]opencl.MemFlags{opencl.MemReadWrite}, uint64(max(byteSize, 1)))
	if err != nil {
		return nil, &clError{op: "create buffer", err: err}
	}

	b := &clBuffer{engine: e, mem: mem}
	b.InitBuffer(e, byteSize, storage)
	core.Logger().Debug("allocated buffer", "bytes", byteSize, "storage", storage.String())
	return b, nil
}

// NewSharedBuffer is not supported.
func (e *Engine) NewSharedBuffer([]byte) (core.Buffer, error) {
	return nil, core.Errorf(core.UnsupportedHardware, "shared buffers are not supported by the OpenCL device")
}

// NewExternalBufferFromFD is not supported.
func (e *Engine) NewExternalBufferFromFD(core.ExternalMemoryTypeFlags, int, int) (core.Buffer, error) {
	return nil, core.Errorf(core.UnsupportedHardware, "external memory is not supported by the OpenCL device")
}

// NewExternalBufferFromWin32Handle is not supported.
func (e *Engine) NewExternalBufferFromWin32Handle(core.ExternalMemoryTypeFlags, uintptr, string, int) (core.Buffer, error) {
	return nil, core.Errorf(core.UnsupportedHardware, "external memory is not supported by the OpenCL device")
}

// Wait returns immediately: all transfers are blocking.
func (e *Engine) Wait() error {
	return nil
}
