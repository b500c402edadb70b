package core

import "sync/atomic"

type fakeDevice struct {
	DeviceBase

	engine    *fakeEngine
	waits     atomic.Int32
	destroyed atomic.Int32
	onWait    func()
}

func newFakeDevice() *fakeDevice {
	d := &fakeDevice{}
	d.InitBase(DeviceCPU, ExternalMemoryOpaqueFD, 0)
	d.engine = &fakeEngine{dev: d}
	d.MarkCommitted()
	return d
}

func (d *fakeDevice) Device() Device { return d }
func (d *fakeDevice) Engine() Engine { return d.engine }
func (d *fakeDevice) Commit() error  { d.MarkCommitted(); return nil }

func (d *fakeDevice) Wait() error {
	d.waits.Add(1)
	if d.onWait != nil {
		d.onWait()
	}
	return nil
}

func (d *fakeDevice) Destroy() error {
	d.destroyed.Add(1)
	return nil
}

type fakeEngine struct {
	dev *fakeDevice
}

func (e *fakeEngine) Device() Device { return e.dev }

func (e *fakeEngine) NewBuffer(byteSize int, storage Storage) (Buffer, error) {
	return newFakeBuffer(e, byteSize), nil
}

func (e *fakeEngine) NewSharedBuffer(data []byte) (Buffer, error) {
	b := &fakeBuffer{data: data}
	b.InitBuffer(e, len(data), StorageHost)
	return b, nil
}

func (e *fakeEngine) NewExternalBufferFromFD(ExternalMemoryTypeFlags, int, int) (Buffer, error) {
	return nil, Errorf(UnsupportedHardware, "not supported")
}

func (e *fakeEngine) NewExternalBufferFromWin32Handle(ExternalMemoryTypeFlags, uintptr, string, int) (Buffer, error) {
	return nil, Errorf(UnsupportedHardware, "not supported")
}

func (e *fakeEngine) Wait() error { return nil }

type fakeBuffer struct {
	BufferBase

	data      []byte
	destroyed atomic.Int32
}

func newFakeBuffer(e *fakeEngine, byteSize int) *fakeBuffer {
	b := &fakeBuffer{data: make([]byte, byteSize)}
	b.InitBuffer(e, byteSize, StorageDevice)
	return b
}

func (b *fakeBuffer) Data() []byte { return b.data }

func (b *fakeBuffer) Map(byteOffset, byteSize int, _ Access) ([]byte, error) {
	if err := b.CheckRange(byteOffset, byteSize); err != nil {
		return nil, err
	}
	return b.data[byteOffset : byteOffset+byteSize], nil
}

func (b *fakeBuffer) Unmap([]byte) error { return nil }

func (b *fakeBuffer) Read(byteOffset int, dst []byte, _ SyncMode) error {
	copy(dst, b.data[byteOffset:])
	return nil
}

func (b *fakeBuffer) Write(byteOffset int, src []byte, _ SyncMode) error {
	copy(b.data[byteOffset:], src)
	return nil
}

func (b *fakeBuffer) Destroy() error {
	b.destroyed.Add(1)
	return nil
}

// shrink simulates a reallocation to a smaller size.
func (b *fakeBuffer) shrink(byteSize int) error {
	b.data = make([]byte, byteSize)
	b.SetByteSize(byteSize)
	return b.PostRealloc()
}
