// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package denoise

import (
	"github.com/born-ml/denoise/internal/core"
)

// DeviceType selects a backend.
type DeviceType = core.DeviceType

// Device types. DeviceTypeDefault picks the first supported backend in the
// order WebGPU, OpenCL, CPU.
const (
	DeviceTypeDefault = core.DeviceDefault
	DeviceTypeCPU     = core.DeviceCPU
	DeviceTypeWebGPU  = core.DeviceWebGPU
	DeviceTypeOpenCL  = core.DeviceOpenCL
)

// Storage is where a buffer's bytes reside.
type Storage = core.Storage

// Storage kinds.
const (
	StorageUndefined = core.StorageUndefined
	StorageHost      = core.StorageHost
	StorageDevice    = core.StorageDevice
	StorageManaged   = core.StorageManaged
)

// Access is the mode of a buffer mapping.
type Access = core.Access

// Access modes.
const (
	AccessRead         = core.AccessRead
	AccessWrite        = core.AccessWrite
	AccessReadWrite    = core.AccessReadWrite
	AccessWriteDiscard = core.AccessWriteDiscard
)

// ExternalMemoryTypeFlags is a bitmask of importable OS memory object kinds.
type ExternalMemoryTypeFlags = core.ExternalMemoryTypeFlags

// External memory types.
const (
	ExternalMemoryTypeNone           = core.ExternalMemoryNone
	ExternalMemoryTypeOpaqueFD       = core.ExternalMemoryOpaqueFD
	ExternalMemoryTypeDMABuf         = core.ExternalMemoryDMABuf
	ExternalMemoryTypeOpaqueWin32    = core.ExternalMemoryOpaqueWin32
	ExternalMemoryTypeOpaqueWin32KMT = core.ExternalMemoryOpaqueWin32KMT
	ExternalMemoryTypeD3D11Texture   = core.ExternalMemoryD3D11Texture
	ExternalMemoryTypeD3D11Resource  = core.ExternalMemoryD3D11Resource
	ExternalMemoryTypeD3D12Heap      = core.ExternalMemoryD3D12Heap
	ExternalMemoryTypeD3D12Resource  = core.ExternalMemoryD3D12Resource
)

// Format is an image pixel format.
type Format = core.Format

// Image formats.
const (
	FormatUndefined = core.FormatUndefined
	FormatFloat     = core.FormatFloat
	FormatFloat2    = core.FormatFloat2
	FormatFloat3    = core.FormatFloat3
	FormatFloat4    = core.FormatFloat4
	FormatHalf      = core.FormatHalf
	FormatHalf2     = core.FormatHalf2
	FormatHalf3     = core.FormatHalf3
	FormatHalf4     = core.FormatHalf4
	FormatUChar     = core.FormatUChar
	FormatUChar2    = core.FormatUChar2
	FormatUChar3    = core.FormatUChar3
	FormatUChar4    = core.FormatUChar4
)

// Event is an external synchronization primitive, used to order filter
// execution with work outside the runtime.
type Event = core.Event

// ProgressMonitorFunc receives the completed fraction of an execution.
// Returning false cancels it.
type ProgressMonitorFunc = core.ProgressFunc
