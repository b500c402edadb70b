package core

import (
	"errors"
	"sync/atomic"
)

// Object is a device-bound, reference-counted resource.
type Object interface {
	IncRef()
	// DecRef drops one reference and reports whether it was the last one.
	DecRef() bool
	// MarkDestroyed flips the object into the destroyed state. It returns
	// false if the object was already destroyed.
	MarkDestroyed() bool
	Alive() bool
	Device() Device
	// Destroy frees the object's resources. Callers go through Release,
	// which guarantees Destroy runs exactly once and only after the owning
	// device has been drained.
	Destroy() error
}

// RefCount is the intrusive reference count embedded by every Object.
// Call Init before handing the object out.
type RefCount struct {
	count     atomic.Int64
	destroyed atomic.Bool
}

// Init sets the count to one reference owned by the creator.
func (r *RefCount) Init() {
	r.count.Store(1)
}

// IncRef adds a reference.
func (r *RefCount) IncRef() {
	r.count.Add(1)
}

// DecRef drops one reference. The count never goes below zero, so extra
// releases of a dead object are harmless.
func (r *RefCount) DecRef() bool {
	for {
		n := r.count.Load()
		if n <= 0 {
			return false
		}
		if r.count.CompareAndSwap(n, n-1) {
			return n == 1
		}
	}
}

// RefCount returns the current number of references.
func (r *RefCount) RefCount() int64 {
	return r.count.Load()
}

// MarkDestroyed implements Object.
func (r *RefCount) MarkDestroyed() bool {
	return r.destroyed.CompareAndSwap(false, true)
}

// Alive reports whether the object has not been destroyed yet.
func (r *RefCount) Alive() bool {
	return !r.destroyed.Load()
}

// Release drops a reference held by a caller outside any device lock.
//
// When it was the last reference, the owning device's lock is acquired
// (except for a device itself, which owns that lock), the device is drained
// and the object destroyed. The object's own reference on its device is
// dropped afterwards, outside the lock.
func Release(obj Object) error {
	if obj == nil || !obj.DecRef() {
		return nil
	}
	dev := obj.Device()
	if isDevice(obj, dev) {
		return destroy(obj, dev)
	}

	mu := dev.Mutex()
	mu.Lock()
	err := destroy(obj, dev)
	mu.Unlock()

	return errors.Join(err, Release(dev))
}

// ReleaseLocked drops a reference from code that already holds the owning
// device's lock, such as a filter replacing one of its images.
func ReleaseLocked(obj Object) error {
	if obj == nil || !obj.DecRef() {
		return nil
	}
	dev := obj.Device()
	if isDevice(obj, dev) {
		return destroy(obj, dev)
	}
	err := destroy(obj, dev)
	return errors.Join(err, Release(dev))
}

func isDevice(obj Object, dev Device) bool {
	return any(obj) == any(dev)
}

// destroy drains the device before freeing the object so no in-flight
// asynchronous operation outlives the memory it touches.
func destroy(obj Object, dev Device) error {
	if !obj.MarkDestroyed() {
		return nil
	}
	waitErr := dev.Wait()
	return errors.Join(waitErr, obj.Destroy())
}
