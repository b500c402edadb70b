// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package denoise is the public API of the denoise runtime: devices, buffers,
// filters and the error contract shared by all of them.
//
// # Overview
//
// Every handle (Device, Buffer, Filter) is reference counted. Retain adds a
// reference and Release drops one; the last Release drains the owning device
// and frees the object. Releasing a nil or already destroyed handle is a no-op.
//
// No method returns an error. Failures are latched on the affected device
// (or on a global slot when there is no device) and reported through
// GetDeviceError and the callback registered with SetErrorFunc. Methods
// return a zero value on failure.
//
// # Basic Usage
//
//	dev := denoise.NewDevice(denoise.DeviceTypeDefault)
//	defer dev.Release()
//	dev.Commit()
//
//	in := dev.NewBuffer(w * h * 12)
//	out := dev.NewBuffer(w * h * 3)
//	defer in.Release()
//	defer out.Release()
//
//	f := dev.NewFilter("copy")
//	defer f.Release()
//	f.SetImage("input", in, denoise.FormatFloat3, w, h, 0, 0, 0)
//	f.SetImage("output", out, denoise.FormatUChar3, w, h, 0, 0, 0)
//	f.Commit()
//	f.Execute()
//
//	if code, msg := denoise.GetDeviceError(dev); code != denoise.ErrorNone {
//	    log.Fatal(msg)
//	}
//
// # Configuration
//
// Device defaults are read from DENOISE_* environment variables:
// DENOISE_VERBOSE, DENOISE_NUM_THREADS, DENOISE_SET_AFFINITY and
// DENOISE_DEFAULT_DEVICE.
package denoise
