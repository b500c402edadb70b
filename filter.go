// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package denoise

import (
	"github.com/born-ml/denoise/internal/boundary"
	"github.com/born-ml/denoise/internal/core"
)

// Filter is a handle to an image operation. Images and parameters are set
// by name, then Commit validates them. Any later change requires a new
// Commit before Execute.
type Filter struct {
	impl core.Filter
}

func (f *Filter) object() core.Object {
	if f == nil || f.impl == nil {
		return nil
	}
	return f.impl
}

func (f *Filter) locked(fn func() error) bool {
	if !validHandle(f.object()) {
		return false
	}
	return boundary.Locked(f.impl.Device(), fn)
}

// Retain adds a reference to the filter.
func (f *Filter) Retain() {
	if validHandle(f.object()) {
		f.impl.IncRef()
	}
}

// Release drops a reference. The last release frees the filter and the
// references it holds on its images' buffers.
func (f *Filter) Release() {
	if f.object() == nil {
		return
	}
	boundary.Try(f.impl.Device(), func() error {
		return core.Release(f.impl)
	})
}

// SetImage binds a region of buf as the image name. Zero strides mean
// tightly packed. buf must belong to the filter's device.
func (f *Filter) SetImage(name string, buf *Buffer, format Format, width, height, byteOffset, pixelByteStride, rowByteStride int) {
	f.locked(func() error {
		if buf.object() == nil || !buf.impl.Alive() {
			return core.ErrInvalidHandle
		}
		if buf.impl.Device() != f.impl.Device() {
			return core.Errorf(core.InvalidArgument, "the specified objects are bound to different devices")
		}
		img, err := core.NewBufferImage(buf.impl, format, width, height, byteOffset, pixelByteStride, rowByteStride)
		if err != nil {
			return err
		}
		return f.impl.SetImage(name, img)
	})
}

// SetSharedImage binds caller-owned memory as the image name. The memory
// must outlive the binding.
func (f *Filter) SetSharedImage(name string, data []byte, format Format, width, height, byteOffset, pixelByteStride, rowByteStride int) {
	f.locked(func() error {
		img, err := core.NewImage(data, format, width, height, byteOffset, pixelByteStride, rowByteStride)
		if err != nil {
			return err
		}
		return f.impl.SetImage(name, img)
	})
}

// RemoveImage unbinds the image name.
func (f *Filter) RemoveImage(name string) {
	f.locked(func() error {
		return f.impl.RemoveImage(name)
	})
}

// SetSharedData binds caller-owned data as the blob name.
func (f *Filter) SetSharedData(name string, data []byte) {
	f.locked(func() error {
		return f.impl.SetData(name, data)
	})
}

// UpdateData notifies the filter that the contents of the blob name changed.
func (f *Filter) UpdateData(name string) {
	f.locked(func() error {
		return f.impl.UpdateData(name)
	})
}

// RemoveData unbinds the blob name.
func (f *Filter) RemoveData(name string) {
	f.locked(func() error {
		return f.impl.RemoveData(name)
	})
}

// SetInt sets an integer parameter.
func (f *Filter) SetInt(name string, value int) {
	f.locked(func() error {
		return f.impl.SetInt(name, value)
	})
}

// GetInt returns an integer parameter, or 0 on failure.
func (f *Filter) GetInt(name string) int {
	var v int
	f.locked(func() error {
		var err error
		v, err = f.impl.GetInt(name)
		return err
	})
	return v
}

// SetBool sets a boolean parameter.
func (f *Filter) SetBool(name string, value bool) {
	f.SetInt(name, boolToInt(value))
}

// GetBool returns a boolean parameter, or false on failure.
func (f *Filter) GetBool(name string) bool {
	return f.GetInt(name) != 0
}

// SetFloat sets a float parameter.
func (f *Filter) SetFloat(name string, value float32) {
	f.locked(func() error {
		return f.impl.SetFloat(name, value)
	})
}

// GetFloat returns a float parameter, or 0 on failure.
func (f *Filter) GetFloat(name string) float32 {
	var v float32
	f.locked(func() error {
		var err error
		v, err = f.impl.GetFloat(name)
		return err
	})
	return v
}

// SetProgressMonitorFunc registers fn to be called during execution.
// It runs on a worker goroutine and must not call back into the device.
func (f *Filter) SetProgressMonitorFunc(fn ProgressMonitorFunc, userData any) {
	f.locked(func() error {
		f.impl.SetProgressFunc(fn, userData)
		return nil
	})
}

// Commit validates the images and parameters.
func (f *Filter) Commit() {
	f.locked(func() error {
		return f.impl.Commit()
	})
}

// Execute runs the filter and waits for it.
func (f *Filter) Execute() {
	f.locked(func() error {
		return f.impl.Execute(core.Sync)
	})
}

// ExecuteAsync enqueues the filter. Failures are reported by the next
// Device.Sync.
func (f *Filter) ExecuteAsync() {
	f.locked(func() error {
		return f.impl.Execute(core.Async)
	})
}

// ExecuteAsyncWithEvents enqueues the filter after every event in
// waitEvents has completed and returns an event completing with it. The
// returned event is nil if no work was issued. Only devices with an
// external event model support it.
func (f *Filter) ExecuteAsyncWithEvents(waitEvents []Event) Event {
	var done Event
	f.locked(func() error {
		engine, ok := f.impl.Device().Engine().(core.EventEngine)
		if !ok {
			return core.Errorf(core.UnsupportedHardware, "the device does not support external events")
		}
		engine.SetDepEvents(waitEvents)
		err := f.impl.Execute(core.Async)
		events := engine.DoneEvents()
		if err != nil {
			return err
		}
		done = core.SingleEvent(events)
		return nil
	})
	return done
}
