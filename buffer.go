// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package denoise

import (
	"github.com/born-ml/denoise/internal/boundary"
	"github.com/born-ml/denoise/internal/core"
)

// Buffer is a handle to device memory.
type Buffer struct {
	impl core.Buffer
}

func (b *Buffer) object() core.Object {
	if b == nil || b.impl == nil {
		return nil
	}
	return b.impl
}

func (b *Buffer) locked(fn func() error) bool {
	if !validHandle(b.object()) {
		return false
	}
	return boundary.Locked(b.impl.Device(), fn)
}

// Retain adds a reference to the buffer.
func (b *Buffer) Retain() {
	if validHandle(b.object()) {
		b.impl.IncRef()
	}
}

// Release drops a reference. The last release waits for queued work on the
// device and frees the memory.
func (b *Buffer) Release() {
	if b.object() == nil {
		return
	}
	boundary.Try(b.impl.Device(), func() error {
		return core.Release(b.impl)
	})
}

// Map returns a host window onto byteSize bytes at byteOffset. A zero
// byteSize maps to the end of the buffer. It returns nil on failure.
func (b *Buffer) Map(byteOffset, byteSize int, access Access) []byte {
	var region []byte
	b.locked(func() error {
		var err error
		region, err = b.impl.Map(byteOffset, byteSize, access)
		return err
	})
	return region
}

// Unmap releases a region returned by Map, writing it back if needed.
func (b *Buffer) Unmap(region []byte) {
	b.locked(func() error {
		return b.impl.Unmap(region)
	})
}

// Read copies len(dst) bytes at byteOffset into dst and waits for it.
func (b *Buffer) Read(byteOffset int, dst []byte) {
	b.locked(func() error {
		return b.impl.Read(byteOffset, dst, core.Sync)
	})
}

// ReadAsync enqueues a read. dst must not be touched until the device is
// synced.
func (b *Buffer) ReadAsync(byteOffset int, dst []byte) {
	b.locked(func() error {
		return b.impl.Read(byteOffset, dst, core.Async)
	})
}

// Write copies src into the buffer at byteOffset and waits for it.
func (b *Buffer) Write(byteOffset int, src []byte) {
	b.locked(func() error {
		return b.impl.Write(byteOffset, src, core.Sync)
	})
}

// WriteAsync enqueues a write. src must not be modified until the device is
// synced.
func (b *Buffer) WriteAsync(byteOffset int, src []byte) {
	b.locked(func() error {
		return b.impl.Write(byteOffset, src, core.Async)
	})
}

// Data returns the host-addressable bytes of the buffer, or nil if its
// storage is not visible to the host.
func (b *Buffer) Data() []byte {
	var data []byte
	b.locked(func() error {
		data = b.impl.Data()
		return nil
	})
	return data
}

// Size returns the size of the buffer in bytes.
func (b *Buffer) Size() int {
	var n int
	b.locked(func() error {
		n = b.impl.ByteSize()
		return nil
	})
	return n
}

// Storage returns the storage kind of the buffer.
func (b *Buffer) Storage() Storage {
	var s Storage
	b.locked(func() error {
		s = b.impl.Storage()
		return nil
	})
	return s
}
