// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package denoise

import (
	"log/slog"

	"github.com/born-ml/denoise/internal/boundary"
	"github.com/born-ml/denoise/internal/core"
)

// Error is a caller-visible error code.
type Error = core.Code

// Error codes.
const (
	ErrorNone                = core.None
	ErrorUnknown             = core.Unknown
	ErrorInvalidArgument     = core.InvalidArgument
	ErrorInvalidOperation    = core.InvalidOperation
	ErrorOutOfMemory         = core.OutOfMemory
	ErrorUnsupportedHardware = core.UnsupportedHardware
	ErrorCancelled           = core.Cancelled
)

// ErrorFunc is called synchronously on every failure reported on a device.
type ErrorFunc = core.ErrorFunc

// GetDeviceError returns and clears the first failure latched on dev since
// the last query. A nil dev queries the global slot, which holds failures
// that have no device context.
func GetDeviceError(dev *Device) (Error, string) {
	if dev == nil || dev.impl == nil {
		return core.GetError(nil)
	}
	return core.GetError(dev.impl)
}

// SetLogger installs the logger used by the runtime. The default logger
// discards everything; nil restores it.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}

// validHandle reports whether obj can be used. Nil and destroyed handles
// are reported on the global slot.
func validHandle(obj core.Object) bool {
	if obj == nil || !obj.Alive() {
		boundary.Report(nil, core.ErrInvalidHandle)
		return false
	}
	return true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
