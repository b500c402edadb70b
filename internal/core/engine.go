package core

import "github.com/born-ml/denoise/internal/parallel"

// Engine allocates and imports memory for a device and executes its work.
type Engine interface {
	Device() Device

	NewBuffer(byteSize int, storage Storage) (Buffer, error)
	// NewSharedBuffer wraps caller-owned memory without taking ownership.
	NewSharedBuffer(data []byte) (Buffer, error)
	NewExternalBufferFromFD(fdType ExternalMemoryTypeFlags, fd int, byteSize int) (Buffer, error)
	NewExternalBufferFromWin32Handle(handleType ExternalMemoryTypeFlags, handle uintptr, name string, byteSize int) (Buffer, error)

	// Wait blocks until all submitted work has completed.
	Wait() error
}

// KernelEngine is an engine able to run host kernels over image accessors.
// Filters require it.
type KernelEngine interface {
	Engine

	// Submit runs kernel on the engine's queue. In Sync mode it returns the
	// kernel's error; in Async mode it returns immediately and failures are
	// reported by the next Wait.
	Submit(kernel func() error, mode SyncMode) error

	// Barrier joins all work submitted so far into a single completion.
	Barrier()

	NewScratchBuffer(byteSize int) (ScratchBuffer, error)

	// Accessor exports img for kernels of this engine. It panics with a
	// LogicError if the image's data type is not recognized.
	Accessor(img *Image) ImageAccessor

	Parallel() parallel.Config
}

// ScratchBuffer is an engine-internal buffer whose storage may be
// reallocated. Attached views are re-pointed after every reallocation.
type ScratchBuffer interface {
	Buffer
	Realloc(byteSize int) error
}

// EventEngine is implemented by engines that can bridge dependencies with
// an external queue/event model.
type EventEngine interface {
	// SetDepEvents makes the next submitted work wait for events. It also
	// starts recording completion events.
	SetDepEvents(events []Event)
	// DoneEvents returns the completions recorded since SetDepEvents and
	// stops recording.
	DoneEvents() []Event
}
