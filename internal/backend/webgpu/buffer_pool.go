//go:build windows

package webgpu

import (
	"math/bits"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

const (
	minPoolClass = 256 // Smallest pooled staging buffer in bytes.
	maxPoolSize  = 16  // Max buffers kept per size class and usage.
)

// pooledBuffer is a staging buffer waiting to return to the pool.
type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

type poolKey struct {
	class uint64
	usage wgpu.BufferUsage
}

// BufferPool reuses staging buffers. Buffers are bucketed by power-of-two
// size class and usage flags.
type BufferPool struct {
	device *wgpu.Device

	mu    sync.Mutex
	pools map[poolKey][]*wgpu.Buffer

	// Statistics
	poolHits   uint64
	poolMisses uint64
}

// NewBufferPool creates a new buffer pool for the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{
		device: device,
		pools:  make(map[poolKey][]*wgpu.Buffer),
	}
}

// sizeClass rounds size up to the next power of two, at least minPoolClass.
func sizeClass(size uint64) uint64 {
	if size <= minPoolClass {
		return minPoolClass
	}
	return 1 << bits.Len64(size-1)
}

// Acquire gets a buffer of at least size bytes from the pool or creates a
// new one.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	key := poolKey{class: sizeClass(size), usage: usage}

	p.mu.Lock()
	defer p.mu.Unlock()

	if free := p.pools[key]; len(free) > 0 {
		buf := free[len(free)-1]
		p.pools[key] = free[:len(free)-1]
		p.poolHits++
		return buf
	}

	p.poolMisses++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  key.class,
	})
}

// Release returns a buffer acquired with the same size and usage.
// If the pool is full, the buffer is immediately released.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	key := poolKey{class: sizeClass(size), usage: usage}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pools[key]) >= maxPoolSize {
		buffer.Release()
		return
	}
	p.pools[key] = append(p.pools[key], buffer)
}

// Clear releases all pooled buffers.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, free := range p.pools {
		for _, buf := range free {
			buf.Release()
		}
		delete(p.pools, key)
	}
}

// Stats returns pool hits, misses and the number of pooled buffers.
func (p *BufferPool) Stats() (hits, misses uint64, pooled int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, free := range p.pools {
		pooled += len(free)
	}
	return p.poolHits, p.poolMisses, pooled
}
