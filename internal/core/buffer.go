package core

// Storage classifies where a buffer's bytes physically reside.
type Storage int

// Storage kinds. Undefined is reported for memory the runtime did not
// allocate and cannot classify, such as imported external memory.
const (
	StorageUndefined Storage = iota
	StorageHost
	StorageDevice
	StorageManaged
)

// String returns a human-readable storage name.
func (s Storage) String() string {
	switch s {
	case StorageUndefined:
		return "undefined"
	case StorageHost:
		return "host"
	case StorageDevice:
		return "device"
	case StorageManaged:
		return "managed"
	default:
		return "unknown"
	}
}

// Access is the mode of a host mapping.
type Access int

// Access modes.
const (
	AccessRead Access = iota
	AccessWrite
	AccessReadWrite
	AccessWriteDiscard
)

// Valid reports whether a is a known access mode.
func (a Access) Valid() bool {
	return a >= AccessRead && a <= AccessWriteDiscard
}

// SyncMode selects between blocking and enqueue-and-return submission.
type SyncMode int

// Sync modes.
const (
	Sync SyncMode = iota
	Async
)

// ExternalMemoryTypeFlags is a bitmask of OS-level memory object kinds.
type ExternalMemoryTypeFlags int

// External memory type flags.
const (
	ExternalMemoryNone             ExternalMemoryTypeFlags = 0
	ExternalMemoryOpaqueFD         ExternalMemoryTypeFlags = 1 << 0
	ExternalMemoryDMABuf           ExternalMemoryTypeFlags = 1 << 1
	ExternalMemoryOpaqueWin32      ExternalMemoryTypeFlags = 1 << 2
	ExternalMemoryOpaqueWin32KMT   ExternalMemoryTypeFlags = 1 << 3
	ExternalMemoryD3D11Texture     ExternalMemoryTypeFlags = 1 << 4
	ExternalMemoryD3D11TextureKMT  ExternalMemoryTypeFlags = 1 << 5
	ExternalMemoryD3D11Resource    ExternalMemoryTypeFlags = 1 << 6
	ExternalMemoryD3D11ResourceKMT ExternalMemoryTypeFlags = 1 << 7
	ExternalMemoryD3D12Heap        ExternalMemoryTypeFlags = 1 << 8
	ExternalMemoryD3D12Resource    ExternalMemoryTypeFlags = 1 << 9
)

// Has reports whether every bit of flag is present in f.
func (f ExternalMemoryTypeFlags) Has(flag ExternalMemoryTypeFlags) bool {
	return flag != 0 && f&flag == flag
}

// Buffer is a fixed-size span of memory owned by an engine.
type Buffer interface {
	Object

	Engine() Engine
	ByteSize() int
	Storage() Storage

	// Data returns the host-addressable bytes of the buffer, or nil if its
	// storage is not visible to the host.
	Data() []byte

	Map(byteOffset, byteSize int, access Access) ([]byte, error)
	Unmap(region []byte) error

	Read(byteOffset int, dst []byte, mode SyncMode) error
	Write(byteOffset int, src []byte, mode SyncMode) error

	// Attach registers a view that must be re-pointed whenever the buffer's
	// storage moves. Detach removes it.
	Attach(v View)
	Detach(v View)
}

// View is a memory view over a buffer.
type View interface {
	UpdatePtr() error
}

// BufferBase implements the bookkeeping shared by all buffers.
// It is not safe for concurrent use; callers hold the device lock.
type BufferBase struct {
	RefCount

	engine   Engine
	byteSize int
	storage  Storage
	views    map[View]struct{}
}

// InitBuffer prepares a buffer base and takes a reference on the device,
// which is dropped by Release after the buffer is destroyed.
func (b *BufferBase) InitBuffer(engine Engine, byteSize int, storage Storage) {
	b.RefCount.Init()
	b.engine = engine
	b.byteSize = byteSize
	b.storage = storage
	engine.Device().IncRef()
}

// Engine returns the owning engine.
func (b *BufferBase) Engine() Engine {
	return b.engine
}

// Device returns the owning device.
func (b *BufferBase) Device() Device {
	return b.engine.Device()
}

// ByteSize returns the size of the buffer in bytes.
func (b *BufferBase) ByteSize() int {
	return b.byteSize
}

// Storage returns the storage kind.
func (b *BufferBase) Storage() Storage {
	return b.storage
}

// SetByteSize changes the recorded size. Only reallocating buffers use it.
func (b *BufferBase) SetByteSize(byteSize int) {
	b.byteSize = byteSize
}

// Attach implements Buffer.
func (b *BufferBase) Attach(v View) {
	if b.views == nil {
		b.views = make(map[View]struct{})
	}
	b.views[v] = struct{}{}
}

// Detach implements Buffer.
func (b *BufferBase) Detach(v View) {
	delete(b.views, v)
}

// NumViews returns the number of attached views.
func (b *BufferBase) NumViews() int {
	return len(b.views)
}

// PostRealloc re-points every attached view after the storage moved.
// All views are updated; the first range violation is returned.
func (b *BufferBase) PostRealloc() error {
	var first error
	for v := range b.views {
		if err := v.UpdatePtr(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CheckRange validates that [byteOffset, byteOffset+byteSize) lies within
// the buffer.
func (b *BufferBase) CheckRange(byteOffset, byteSize int) error {
	if byteOffset < 0 || byteSize < 0 || byteOffset > b.byteSize || byteSize > b.byteSize-byteOffset {
		return Errorf(InvalidArgument, "buffer region out of range")
	}
	return nil
}
