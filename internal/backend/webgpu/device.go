//go:build windows

// Package webgpu implements a WebGPU device on go-webgpu
// (github.com/go-webgpu/webgpu): device-local storage buffers with staged
// host transfers. It does not run filter kernels.
package webgpu

import (
	"fmt"

	"github.com/born-ml/denoise/internal/config"
	"github.com/born-ml/denoise/internal/core"
	"github.com/born-ml/denoise/internal/registry"
	"github.com/go-webgpu/webgpu/wgpu"
)

func init() {
	registry.Register(core.DeviceWebGPU, registry.Factory{
		New: func(cfg *config.Config) (core.Device, error) {
			return New(cfg), nil
		},
		IsSupported: IsAvailable,
	})
}

// gpuError is a failure reported by the WebGPU runtime.
type gpuError struct {
	op  string
	err error
	oom bool
}

func (e *gpuError) Error() string {
	return fmt.Sprintf("webgpu: %s: %v", e.op, e.err)
}

func (e *gpuError) Unwrap() error {
	return e.err
}

// OutOfMemory implements core.BackendError.
func (e *gpuError) OutOfMemory() bool {
	return e.oom
}

// Device is a WebGPU device.
type Device struct {
	core.DeviceBase

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	engine *Engine
}

// New creates an uncommitted WebGPU device.
func New(cfg *config.Config) *Device {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	d := &Device{}
	d.InitBase(core.DeviceWebGPU, core.ExternalMemoryNone, cfg.Verbose)
	core.Logger().Info("created device", "type", core.DeviceWebGPU.String())
	return d
}

// Device implements core.Object.
func (d *Device) Device() core.Device {
	return d
}

// Engine returns the engine, or nil before Commit.
func (d *Device) Engine() core.Engine {
	if d.engine == nil {
		return nil
	}
	return d.engine
}

// Commit acquires the adapter, device and queue.
func (d *Device) Commit() (err error) {
	if d.IsCommitted() {
		return core.Errorf(core.InvalidOperation, "device can be committed only once")
	}

	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			d.releaseGPU()
			err = core.Errorf(core.UnsupportedHardware, "webgpu: native library not available: %v", r)
		}
	}()

	d.instance = wgpu.CreateInstance(nil)
	adapter, adapterErr := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		d.releaseGPU()
		return core.Errorf(core.UnsupportedHardware, "webgpu: failed to request adapter: %v", adapterErr)
	}
	d.adapter = adapter

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		d.releaseGPU()
		return &gpuError{op: "request device", err: deviceErr}
	}
	d.device = device

	d.queue = device.GetQueue()
	if d.queue == nil {
		d.releaseGPU()
		return &gpuError{op: "get queue", err: fmt.Errorf("no queue")}
	}

	d.engine = newEngine(d)
	d.MarkCommitted()
	core.Logger().Info("committed device", "type", core.DeviceWebGPU.String())
	return nil
}

// Wait submits batched commands and completes deferred reads.
func (d *Device) Wait() error {
	if d.engine == nil {
		return nil
	}
	return d.engine.Wait()
}

// Destroy releases all WebGPU resources. The device has been drained
// already.
func (d *Device) Destroy() error {
	if d.engine != nil {
		d.engine.pool.Clear()
		d.engine = nil
	}
	d.releaseGPU()
	core.Logger().Debug("destroyed device", "type", core.DeviceWebGPU.String())
	return nil
}

func (d *Device) releaseGPU() {
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}
