// Package boundary translates internal failures into the latched
// (code, message) pair seen by callers of the public API.
package boundary

import (
	"errors"

	"github.com/born-ml/denoise/internal/core"
)

// Try runs fn and reports any failure on dev, or on the global error slot
// when dev is nil. Panics are recovered. It reports whether fn succeeded.
func Try(dev core.Device, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			Report(dev, fromPanic(r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		Report(dev, err)
		return false
	}
	return true
}

// Locked is Try with dev's mutex held for the duration of fn. A nil dev is
// reported as an invalid handle.
func Locked(dev core.Device, fn func() error) bool {
	if dev == nil {
		Report(nil, core.ErrInvalidHandle)
		return false
	}
	return Try(dev, func() error {
		mu := dev.Mutex()
		mu.Lock()
		defer mu.Unlock()
		return fn()
	})
}

// panicError carries a recovered non-error panic value.
type panicError struct {
	value any
}

func (p panicError) Error() string {
	return "unknown exception caught"
}

func fromPanic(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return panicError{value: r}
}

// Translate maps err to a caller-visible code and message.
func Translate(err error) (core.Code, string) {
	var domain *core.Error
	if errors.As(err, &domain) {
		return domain.Code, domain.Message
	}
	if errors.Is(err, core.ErrOutOfMemory) {
		return core.OutOfMemory, "out of memory"
	}
	var backend core.BackendError
	if errors.As(err, &backend) {
		if backend.OutOfMemory() {
			return core.OutOfMemory, "out of memory"
		}
		return core.Unknown, backend.Error()
	}
	var p panicError
	if errors.As(err, &p) {
		return core.Unknown, "unknown exception caught"
	}
	return core.Unknown, err.Error()
}

// Report latches err on dev, or on the global slot when dev is nil.
func Report(dev core.Device, err error) {
	code, msg := Translate(err)
	core.SetError(dev, code, msg)
}
