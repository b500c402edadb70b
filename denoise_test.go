package denoise

import (
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/born-ml/denoise/internal/backend/cpu"
	"github.com/born-ml/denoise/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCPUDevice(t *testing.T) *Device {
	t.Helper()
	clearGlobalError()
	d := NewDevice(DeviceTypeCPU)
	require.NotNil(t, d)
	d.Commit()
	requireNoError(t, d)
	t.Cleanup(d.Release)
	return d
}

func clearGlobalError() {
	GetDeviceError(nil)
}

func requireNoError(t *testing.T, d *Device) {
	t.Helper()
	code, msg := GetDeviceError(d)
	require.Equal(t, ErrorNone, code, msg)
}

func requireError(t *testing.T, d *Device, code Error, msg string) {
	t.Helper()
	got, gotMsg := GetDeviceError(d)
	require.Equal(t, code, got, gotMsg)
	if msg != "" {
		assert.Equal(t, msg, gotMsg)
	}
}

func putFloats(dst []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

func TestDevice_Lifecycle(t *testing.T) {
	clearGlobalError()
	d := NewDevice(DeviceTypeCPU)
	require.NotNil(t, d)

	assert.Equal(t, DeviceTypeCPU, d.Type())
	assert.Equal(t, int(DeviceTypeCPU), d.GetInt("type"))
	assert.Equal(t, 10000, d.GetInt("version"))
	assert.Equal(t, 1, d.GetInt("versionMajor"))
	requireNoError(t, d)

	// Allocation before commit.
	assert.Nil(t, d.NewBuffer(16))
	requireError(t, d, ErrorInvalidOperation, "device not committed")

	d.Commit()
	requireNoError(t, d)
	d.Commit()
	requireError(t, d, ErrorInvalidOperation, "device can be committed only once")

	d.Retain()
	d.Release()
	assert.Equal(t, DeviceTypeCPU, d.Type(), "balanced retain must keep the device")

	d.Release()
	d.Release()
	requireNoError(t, nil)

	d.Commit()
	requireError(t, nil, ErrorInvalidArgument, "invalid handle")
}

func TestDevice_Params(t *testing.T) {
	d := newCPUDevice(t)

	d.SetInt("verbose", 2)
	assert.Equal(t, 2, d.GetInt("verbose"))

	d.SetBool("setAffinity", false)
	requireError(t, d, ErrorInvalidOperation, "")

	d.SetInt("version", 3)
	requireError(t, d, ErrorInvalidArgument, "")

	// Unknown parameters are ignored on set.
	d.SetInt("hdr", 1)
	requireNoError(t, d)
	assert.Equal(t, 0, d.GetInt("hdr"))
	requireError(t, d, ErrorInvalidArgument, "")
}

func TestDevice_Environment(t *testing.T) {
	t.Setenv("DENOISE_DEFAULT_DEVICE", "cpu")
	t.Setenv("DENOISE_NUM_THREADS", "2")
	t.Setenv("DENOISE_SET_AFFINITY", "false")

	d := NewDevice(DeviceTypeDefault)
	require.NotNil(t, d)
	defer d.Release()

	assert.Equal(t, DeviceTypeCPU, d.Type())
	assert.Equal(t, 2, d.GetInt("numThreads"))
	assert.False(t, d.GetBool("setAffinity"))
}

func TestDevice_UnsupportedType(t *testing.T) {
	clearGlobalError()
	assert.Nil(t, NewDevice(DeviceType(42)))
	requireError(t, nil, ErrorInvalidArgument, "unsupported device type")
}

func TestDevice_ErrorFunc(t *testing.T) {
	d := newCPUDevice(t)

	type report struct {
		code Error
		msg  string
	}
	var reports []report
	d.SetErrorFunc(func(userData any, code Error, msg string) {
		assert.Equal(t, "ctx", userData)
		reports = append(reports, report{code, msg})
	}, "ctx")

	d.NewBufferWithStorage(16, StorageUndefined)
	d.NewBuffer(-1)
	require.Len(t, reports, 2)
	assert.Equal(t, ErrorInvalidArgument, reports[0].code)

	// The first failure stays latched until queried.
	requireError(t, d, ErrorInvalidArgument, "invalid storage mode")
	requireNoError(t, d)
}

func TestNilHandles(t *testing.T) {
	clearGlobalError()

	var d *Device
	var b *Buffer
	var f *Filter

	d.Release()
	b.Release()
	f.Release()
	requireNoError(t, nil)

	d.Retain()
	requireError(t, nil, ErrorInvalidArgument, "invalid handle")
	assert.Nil(t, d.NewFilter("copy"))
	requireError(t, nil, ErrorInvalidArgument, "invalid handle")
	assert.Equal(t, 0, b.Size())
	requireError(t, nil, ErrorInvalidArgument, "invalid handle")
	assert.Equal(t, float32(0), f.GetFloat("inputScale"))
	requireError(t, nil, ErrorInvalidArgument, "invalid handle")
}

func TestBuffer_ReadWrite(t *testing.T) {
	d := newCPUDevice(t)
	b := d.NewBuffer(8)
	require.NotNil(t, b)
	defer b.Release()

	assert.Equal(t, 8, b.Size())
	assert.Equal(t, StorageHost, b.Storage())

	b.WriteAsync(0, []byte{1, 2, 3, 4})
	b.Write(4, []byte{5, 6, 7, 8})
	dst := make([]byte, 8)
	b.ReadAsync(0, dst)
	d.Sync()
	requireNoError(t, d)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, dst)

	region := b.Map(2, 2, AccessReadWrite)
	require.Equal(t, []byte{3, 4}, region)
	region[0] = 30
	b.Unmap(region)
	requireNoError(t, d)
	assert.Equal(t, byte(30), b.Data()[2])

	assert.Nil(t, b.Map(6, 4, AccessRead))
	requireError(t, d, ErrorInvalidArgument, "buffer region out of range")
	b.Unmap(region)
	requireError(t, d, ErrorInvalidArgument, "invalid mapped region")
	b.Read(7, dst)
	requireError(t, d, ErrorInvalidArgument, "buffer region out of range")
}

func TestBuffer_RetainRelease(t *testing.T) {
	d := newCPUDevice(t)
	b := d.NewBuffer(4)
	require.NotNil(t, b)

	b.Retain()
	b.Release()
	assert.Equal(t, 4, b.Size())

	b.Release()
	clearGlobalError()
	assert.Equal(t, 0, b.Size())
	requireError(t, nil, ErrorInvalidArgument, "invalid handle")

	b.Release()
	requireNoError(t, nil)
}

func TestBuffer_Shared(t *testing.T) {
	d := newCPUDevice(t)
	mem := make([]byte, 4)
	b := d.NewSharedBuffer(mem)
	require.NotNil(t, b)
	defer b.Release()

	assert.Equal(t, StorageUndefined, b.Storage())
	b.Write(0, []byte{9, 8, 7, 6})
	assert.Equal(t, []byte{9, 8, 7, 6}, mem)
}

func TestBuffer_ExternalTypeChecks(t *testing.T) {
	d := newCPUDevice(t)

	assert.Nil(t, d.NewSharedBufferFromFD(ExternalMemoryTypeD3D12Heap, 0, 16))
	requireError(t, d, ErrorInvalidArgument, "external memory type not supported by the device")

	assert.Nil(t, d.NewSharedBufferFromWin32Handle(ExternalMemoryTypeD3D11Texture, 1, "name", 16))
	requireError(t, d, ErrorInvalidArgument, "external memory type not supported by the device")
}

type cpuDevice = cpu.Device

// win32Device advertises Win32 handle import on top of the CPU device.
type win32Device struct {
	*cpuDevice
}

func (win32Device) ExternalMemoryTypes() core.ExternalMemoryTypeFlags {
	return core.ExternalMemoryOpaqueWin32
}

func TestBuffer_Win32HandleOrName(t *testing.T) {
	clearGlobalError()
	inner := cpu.New(nil)
	t.Cleanup((&Device{impl: inner}).Release)

	d := &Device{impl: win32Device{inner}}
	d.Commit()
	requireNoError(t, d)

	assert.Nil(t, d.NewSharedBufferFromWin32Handle(ExternalMemoryTypeOpaqueWin32, 1, "name", 16))
	requireError(t, d, ErrorInvalidArgument, "exactly one of the external memory handle and name must be specified")

	assert.Nil(t, d.NewSharedBufferFromWin32Handle(ExternalMemoryTypeOpaqueWin32, 0, "", 16))
	requireError(t, d, ErrorInvalidArgument, "exactly one of the external memory handle and name must be specified")
}

func TestFilter_Copy(t *testing.T) {
	d := newCPUDevice(t)

	in := make([]byte, 2*12)
	putFloats(in, 0, 0.5, 1, 1, 0.5, 0)
	out := d.NewBuffer(2 * 3)
	require.NotNil(t, out)
	defer out.Release()

	f := d.NewFilter("copy")
	require.NotNil(t, f)
	defer f.Release()

	f.SetSharedImage("input", in, FormatFloat3, 2, 1, 0, 0, 0)
	f.SetImage("output", out, FormatUChar3, 2, 1, 0, 0, 0)
	f.Execute()
	requireError(t, d, ErrorInvalidOperation, "filter not committed")

	f.Commit()
	f.Execute()
	requireNoError(t, d)
	assert.Equal(t, []byte{0, 128, 255, 255, 128, 0}, out.Data())

	f.SetFloat("inputScale", 0.5)
	assert.Equal(t, float32(0.5), f.GetFloat("inputScale"))
	f.SetBool("clamp", true)
	assert.True(t, f.GetBool("clamp"))
	f.Commit()
	f.ExecuteAsync()
	d.Sync()
	requireNoError(t, d)
	assert.Equal(t, []byte{0, 64, 128, 128, 64, 0}, out.Data())
}

func TestFilter_Errors(t *testing.T) {
	d := newCPUDevice(t)
	other := newCPUDevice(t)

	assert.Nil(t, d.NewFilter("RT"))
	requireError(t, d, ErrorInvalidArgument, "unknown filter type: 'RT'")

	f := d.NewFilter("copy")
	require.NotNil(t, f)
	defer f.Release()

	foreign := other.NewBuffer(16)
	require.NotNil(t, foreign)
	defer foreign.Release()

	f.SetImage("input", foreign, FormatFloat, 4, 1, 0, 0, 0)
	requireError(t, d, ErrorInvalidArgument, "the specified objects are bound to different devices")

	f.SetSharedImage("input", make([]byte, 8), FormatFloat, 4, 1, 0, 0, 0)
	requireError(t, d, ErrorInvalidArgument, "buffer region out of range")

	f.SetSharedImage("input", make([]byte, 16), FormatFloat, 4, 1, 0, 2, 0)
	requireError(t, d, ErrorInvalidArgument, "pixel stride smaller than pixel size")

	f.SetSharedImage("input", make([]byte, 64), FormatFloat, 1, 16, 0, 0, math.MaxInt/8)
	requireError(t, d, ErrorInvalidArgument, "image size too large")

	f.SetImage("input", nil, FormatFloat, 4, 1, 0, 0, 0)
	requireError(t, d, ErrorInvalidArgument, "invalid handle")

	assert.Equal(t, 0, f.GetInt("hdr"))
	requireError(t, d, ErrorInvalidArgument, "unknown filter parameter or type mismatch: 'hdr'")
}

func TestFilter_Cancel(t *testing.T) {
	d := newCPUDevice(t)
	in := make([]byte, 4*4)
	out := make([]byte, 4*4)

	f := d.NewFilter("copy")
	require.NotNil(t, f)
	defer f.Release()

	f.SetSharedImage("input", in, FormatFloat, 4, 1, 0, 0, 0)
	f.SetSharedImage("output", out, FormatFloat, 4, 1, 0, 0, 0)
	f.SetProgressMonitorFunc(func(any, float64) bool { return false }, nil)
	f.Commit()
	f.Execute()
	requireError(t, d, ErrorCancelled, "execution was cancelled")
}

// chanEvent completes when its channel is closed.
type chanEvent chan struct{}

func (e chanEvent) Wait(ctx context.Context) error {
	select {
	case <-e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestFilter_ExecuteAsyncWithEvents(t *testing.T) {
	d := newCPUDevice(t)
	in := make([]byte, 4)
	out := make([]byte, 4)
	putFloats(in, 0.25)

	f := d.NewFilter("copy")
	require.NotNil(t, f)
	defer f.Release()
	f.SetSharedImage("input", in, FormatFloat, 1, 1, 0, 0, 0)
	f.SetSharedImage("output", out, FormatFloat, 1, 1, 0, 0, 0)
	f.SetFloat("inputScale", 4)

	// Not committed: no work was issued, so there is no done event.
	assert.Nil(t, f.ExecuteAsyncWithEvents(nil))
	requireError(t, d, ErrorInvalidOperation, "")

	f.Commit()
	dep := make(chanEvent)
	done := f.ExecuteAsyncWithEvents([]Event{dep})
	require.NotNil(t, done)
	requireNoError(t, d)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, done.Wait(ctx), "work must wait for its dependencies")
	assert.Equal(t, float32(0), math.Float32frombits(binary.LittleEndian.Uint32(out)))

	close(dep)
	require.NoError(t, done.Wait(context.Background()))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(out)))
}

func TestFilter_DeviceOutlivesHandles(t *testing.T) {
	clearGlobalError()
	d := NewDevice(DeviceTypeCPU)
	require.NotNil(t, d)
	d.Commit()

	b := d.NewBuffer(16)
	f := d.NewFilter("copy")
	f.SetImage("input", b, FormatFloat, 4, 1, 0, 0, 0)
	b.Release()

	d.Release()
	assert.Equal(t, DeviceTypeCPU, d.Type(), "filter keeps the device alive")

	f.Release()
	clearGlobalError()
	d.Type()
	requireError(t, nil, ErrorInvalidArgument, "invalid handle")
}
