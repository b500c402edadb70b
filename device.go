// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package denoise

import (
	"github.com/born-ml/denoise/internal/boundary"
	"github.com/born-ml/denoise/internal/config"
	"github.com/born-ml/denoise/internal/core"
	"github.com/born-ml/denoise/internal/filter"
	"github.com/born-ml/denoise/internal/registry"

	// The CPU backend is always available.
	_ "github.com/born-ml/denoise/internal/backend/cpu"
)

// Device is a handle to a backend instance. A device must be committed
// before buffers and filters can be created on it.
type Device struct {
	impl core.Device
}

// NewDevice creates an uncommitted device of type typ, with defaults read
// from the environment. It returns nil on failure.
func NewDevice(typ DeviceType) *Device {
	return newDevice(typ, config.FromEnv)
}

// NewDeviceWithConfigFile is NewDevice with defaults read from cfgFile and
// then the environment.
func NewDeviceWithConfigFile(typ DeviceType, cfgFile string) *Device {
	return newDevice(typ, func() *config.Config {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			boundary.Report(nil, core.Errorf(core.InvalidArgument, "invalid configuration: %v", err))
			return nil
		}
		return cfg
	})
}

func newDevice(typ DeviceType, load func() *config.Config) *Device {
	var d *Device
	boundary.Try(nil, func() error {
		cfg := load()
		if cfg == nil {
			return nil
		}
		if typ == DeviceTypeDefault {
			typ = cfg.DeviceType()
		}
		impl, err := registry.New(typ, cfg)
		if err != nil {
			return err
		}
		d = &Device{impl: impl}
		return nil
	})
	return d
}

func (d *Device) object() core.Object {
	if d == nil || d.impl == nil {
		return nil
	}
	return d.impl
}

// locked runs fn under the device lock, reporting failures on the device.
func (d *Device) locked(fn func() error) bool {
	if !validHandle(d.object()) {
		return false
	}
	return boundary.Locked(d.impl, fn)
}

// Retain adds a reference to the device.
func (d *Device) Retain() {
	if validHandle(d.object()) {
		d.impl.IncRef()
	}
}

// Release drops a reference. The last release waits for all queued work
// and destroys the device.
func (d *Device) Release() {
	if d.object() == nil {
		return
	}
	boundary.Try(nil, func() error {
		return core.Release(d.impl)
	})
}

// Type returns the backend type of the device.
func (d *Device) Type() DeviceType {
	var typ DeviceType
	d.locked(func() error {
		typ = d.impl.Type()
		return nil
	})
	return typ
}

// SetInt sets an integer parameter.
func (d *Device) SetInt(name string, value int) {
	d.locked(func() error {
		return d.impl.SetInt(name, value)
	})
}

// GetInt returns an integer parameter, or 0 on failure.
func (d *Device) GetInt(name string) int {
	var v int
	d.locked(func() error {
		var err error
		v, err = d.impl.GetInt(name)
		return err
	})
	return v
}

// SetBool sets a boolean parameter.
func (d *Device) SetBool(name string, value bool) {
	d.SetInt(name, boolToInt(value))
}

// GetBool returns a boolean parameter, or false on failure.
func (d *Device) GetBool(name string) bool {
	return d.GetInt(name) != 0
}

// SetErrorFunc registers fn to be called on every failure reported on the
// device.
func (d *Device) SetErrorFunc(fn ErrorFunc, userData any) {
	d.locked(func() error {
		d.impl.SetErrorFunc(fn, userData)
		return nil
	})
}

// Commit finalizes the device configuration.
func (d *Device) Commit() {
	d.locked(func() error {
		return d.impl.Commit()
	})
}

// Sync waits for all asynchronous work on the device. Failures of that work
// are reported on the device.
func (d *Device) Sync() {
	d.locked(func() error {
		if err := d.impl.CheckCommitted(); err != nil {
			return err
		}
		return d.impl.Wait()
	})
}

// NewBuffer allocates a host-storage buffer.
func (d *Device) NewBuffer(byteSize int) *Buffer {
	return d.NewBufferWithStorage(byteSize, StorageHost)
}

// NewBufferWithStorage allocates a buffer with the given storage.
func (d *Device) NewBufferWithStorage(byteSize int, storage Storage) *Buffer {
	return d.newBuffer(func(e core.Engine) (core.Buffer, error) {
		return e.NewBuffer(byteSize, storage)
	})
}

// NewSharedBuffer wraps caller-owned memory. The memory must outlive the
// buffer.
func (d *Device) NewSharedBuffer(data []byte) *Buffer {
	return d.newBuffer(func(e core.Engine) (core.Buffer, error) {
		return e.NewSharedBuffer(data)
	})
}

// NewSharedBufferFromFD imports byteSize bytes of the memory object behind
// fd. fdType must be one of the device's external memory types.
func (d *Device) NewSharedBufferFromFD(fdType ExternalMemoryTypeFlags, fd int, byteSize int) *Buffer {
	return d.newBuffer(func(e core.Engine) (core.Buffer, error) {
		if err := d.checkExternalMemoryType(fdType); err != nil {
			return nil, err
		}
		return e.NewExternalBufferFromFD(fdType, fd, byteSize)
	})
}

// NewSharedBufferFromWin32Handle imports byteSize bytes of the memory
// object referenced by handle or name. Exactly one of them must be set.
func (d *Device) NewSharedBufferFromWin32Handle(handleType ExternalMemoryTypeFlags, handle uintptr, name string, byteSize int) *Buffer {
	return d.newBuffer(func(e core.Engine) (core.Buffer, error) {
		if err := d.checkExternalMemoryType(handleType); err != nil {
			return nil, err
		}
		if (handle == 0) == (name == "") {
			return nil, core.Errorf(core.InvalidArgument, "exactly one of the external memory handle and name must be specified")
		}
		return e.NewExternalBufferFromWin32Handle(handleType, handle, name, byteSize)
	})
}

func (d *Device) checkExternalMemoryType(typ ExternalMemoryTypeFlags) error {
	if !d.impl.ExternalMemoryTypes().Has(typ) {
		return core.Errorf(core.InvalidArgument, "external memory type not supported by the device")
	}
	return nil
}

func (d *Device) newBuffer(create func(core.Engine) (core.Buffer, error)) *Buffer {
	var b *Buffer
	d.locked(func() error {
		if err := d.impl.CheckCommitted(); err != nil {
			return err
		}
		impl, err := create(d.impl.Engine())
		if err != nil {
			return err
		}
		b = &Buffer{impl: impl}
		return nil
	})
	return b
}

// NewFilter creates a filter of type typ.
func (d *Device) NewFilter(typ string) *Filter {
	var f *Filter
	d.locked(func() error {
		impl, err := filter.New(d.impl, typ)
		if err != nil {
			return err
		}
		f = &Filter{impl: impl}
		return nil
	})
	return f
}
