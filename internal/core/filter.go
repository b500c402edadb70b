package core

import "errors"

// ProgressFunc is called during execution with the completed fraction in
// [0, 1]. Returning false cancels the execution.
type ProgressFunc func(userData any, n float64) bool

// Filter is a device-bound operation over named images.
type Filter interface {
	Object

	SetImage(name string, img *Image) error
	RemoveImage(name string) error

	SetData(name string, data []byte) error
	UpdateData(name string) error
	RemoveData(name string) error

	SetInt(name string, value int) error
	GetInt(name string) (int, error)
	SetFloat(name string, value float32) error
	GetFloat(name string) (float32, error)

	SetProgressFunc(fn ProgressFunc, userData any)

	Commit() error
	Execute(mode SyncMode) error
}

// ErrCancelled is returned when a progress callback stops an execution.
var ErrCancelled = &Error{Code: Cancelled, Message: "execution was cancelled"}

// FilterBase implements the bookkeeping shared by filters: the device
// reference, named image slots and the progress callback. It is not safe
// for concurrent use; callers hold the device lock.
type FilterBase struct {
	RefCount

	device   Device
	images   map[string]*Image
	progress ProgressFunc
	userData any

	dirty     bool
	committed bool
}

// InitFilter prepares the base and takes a reference on the device, which
// is dropped by Release after the filter is destroyed.
func (f *FilterBase) InitFilter(dev Device) {
	f.RefCount.Init()
	f.device = dev
	f.images = make(map[string]*Image)
	f.dirty = true
	dev.IncRef()
}

// Device returns the owning device.
func (f *FilterBase) Device() Device {
	return f.device
}

// Image returns the image bound to name, or nil.
func (f *FilterBase) Image(name string) *Image {
	return f.images[name]
}

// BindImage replaces the image bound to name, releasing the previous one.
// A nil img clears the slot.
func (f *FilterBase) BindImage(name string, img *Image) error {
	old := f.images[name]
	if img == nil {
		delete(f.images, name)
	} else {
		f.images[name] = img
	}
	f.dirty = true
	return old.Release()
}

// ReleaseImages releases every bound image.
func (f *FilterBase) ReleaseImages() error {
	var errs []error
	for name, img := range f.images {
		errs = append(errs, img.Release())
		delete(f.images, name)
	}
	return errors.Join(errs...)
}

// MarkDirty records an uncommitted change.
func (f *FilterBase) MarkDirty() {
	f.dirty = true
}

// MarkCommitted records a successful commit.
func (f *FilterBase) MarkCommitted() {
	f.dirty = false
	f.committed = true
}

// CheckCommitted fails if the filter has uncommitted changes.
func (f *FilterBase) CheckCommitted() error {
	if !f.committed || f.dirty {
		return Errorf(InvalidOperation, "filter not committed")
	}
	return nil
}

// SetProgressFunc implements Filter.
func (f *FilterBase) SetProgressFunc(fn ProgressFunc, userData any) {
	f.progress = fn
	f.userData = userData
}

// Progress reports the completed fraction to the registered callback and
// returns ErrCancelled if it asks to stop.
func (f *FilterBase) Progress(n float64) error {
	if f.progress == nil {
		return nil
	}
	if !f.progress(f.userData, n) {
		return ErrCancelled
	}
	return nil
}

// UnknownParam warns about a parameter that cannot be set.
func (f *FilterBase) UnknownParam(name string) {
	Logger().Warn("unknown filter parameter or type mismatch", "name", name)
}

// UnknownParamError is returned when getting an unknown parameter.
func UnknownParamError(name string) error {
	return Errorf(InvalidArgument, "unknown filter parameter or type mismatch: '%s'", name)
}
