package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireCode(t *testing.T, err error, code Code, message string) {
	t.Helper()
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, code, e.Code)
	if message != "" {
		assert.Equal(t, message, e.Message)
	}
}

func TestNewImageDesc_DefaultStrides(t *testing.T) {
	tests := []struct {
		format    Format
		width     int
		pixelSize int
	}{
		{FormatFloat, 7, 4},
		{FormatFloat3, 10, 12},
		{FormatHalf4, 3, 8},
		{FormatUChar2, 64, 2},
		{FormatUndefined, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			d, err := NewImageDesc(tt.format, tt.width, 4, 0, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.pixelSize, d.PixelByteStride)
			assert.Equal(t, tt.width*tt.pixelSize, d.RowByteStride)
			assert.Equal(t, 4*tt.width*tt.pixelSize, d.ByteSize())
		})
	}
}

func TestNewImageDesc_CustomStrides(t *testing.T) {
	d, err := NewImageDesc(FormatFloat3, 10, 2, 16, 200)
	require.NoError(t, err)
	assert.Equal(t, 16, d.PixelByteStride)
	assert.Equal(t, 200, d.RowByteStride)
	assert.Equal(t, 400, d.ByteSize())
}

func TestNewImageDesc_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		w, h    int
		ps, rs  int
		message string
	}{
		{"pixel stride", FormatFloat3, 10, 10, 8, 0, "pixel stride smaller than pixel size"},
		{"row stride", FormatFloat3, 10, 10, 0, 100, "row stride smaller than width * pixel stride"},
		{"row stride custom pixel", FormatFloat3, 10, 10, 16, 150, "row stride smaller than width * pixel stride"},
		{"width", FormatFloat, MaxDim + 1, 1, 0, 0, "image size too large"},
		{"height", FormatFloat, 1, MaxDim + 1, 0, 0, "image size too large"},
		{"channels", FormatFloat3, MaxDim, MaxDim, 0, 0, "image size too large"},
		{"format", Format(99), 1, 1, 0, 0, "invalid image format"},
		{"negative", FormatFloat, -1, 1, 0, 0, "invalid image size"},
		{"pixel stride overflow", FormatFloat, 16, 1, math.MaxInt / 8, 0, "image size too large"},
		{"row stride overflow", FormatFloat, 1, 16, 0, math.MaxInt / 8, "image size too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImageDesc(tt.format, tt.w, tt.h, tt.ps, tt.rs)
			requireCode(t, err, InvalidArgument, tt.message)
		})
	}
}

func TestNewImageDesc_MaxDim(t *testing.T) {
	_, err := NewImageDesc(FormatFloat4, MaxDim, 1, 0, 0)
	assert.NoError(t, err)
}

func TestNewImage_Raw(t *testing.T) {
	raw := make([]byte, 64)
	img, err := NewImage(raw, FormatUChar4, 4, 2, 16, 0, 0)
	require.NoError(t, err)
	assert.Len(t, img.Data(), 32)
	assert.Nil(t, img.Buffer())

	_, err = NewImage(raw, FormatUChar4, 4, 4, 8, 0, 0)
	requireCode(t, err, InvalidArgument, "buffer region out of range")

	_, err = NewImage(nil, FormatUChar, 1, 1, 0, 0, 0)
	requireCode(t, err, InvalidArgument, "buffer region out of range")

	img, err = NewImage(nil, FormatUndefined, 0, 0, 0, 0, 0)
	require.NoError(t, err)
	assert.Nil(t, img.Data())
}

func TestNewImage_OffsetOverflow(t *testing.T) {
	raw := make([]byte, 64)
	_, err := NewImage(raw, FormatFloat, 1, 1, math.MaxInt-2, 0, 0)
	requireCode(t, err, InvalidArgument, "buffer region out of range")

	dev := newFakeDevice()
	buf := newFakeBuffer(dev.engine, 64)
	_, err = NewBufferImage(buf, FormatFloat, 1, 1, math.MaxInt-2, 0, 0)
	requireCode(t, err, InvalidArgument, "buffer region out of range")
	assert.Equal(t, int64(1), buf.RefCount.RefCount())
}

func TestNewBufferImage_TakesReference(t *testing.T) {
	dev := newFakeDevice()
	buf := newFakeBuffer(dev.engine, 256)

	img, err := NewBufferImage(buf, FormatFloat, 8, 8, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), buf.RefCount.RefCount())
	assert.Equal(t, 1, buf.NumViews())

	require.NoError(t, img.Release())
	assert.Equal(t, int64(1), buf.RefCount.RefCount())
	assert.Equal(t, 0, buf.NumViews())
	assert.Equal(t, int32(0), buf.destroyed.Load())

	_, err = NewBufferImage(buf, FormatFloat, 8, 8, 4, 0, 0)
	requireCode(t, err, InvalidArgument, "buffer region out of range")
	assert.Equal(t, int64(1), buf.RefCount.RefCount())
}

func TestNewEngineImage(t *testing.T) {
	dev := newFakeDevice()
	img, err := NewEngineImage(dev.engine, FormatHalf3, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, 5*3*6, img.Buffer().ByteSize())
	assert.Len(t, img.Data(), 90)

	buf := img.Buffer().(*fakeBuffer)
	require.NoError(t, img.Release())
	assert.Equal(t, int32(1), buf.destroyed.Load())
}

func TestImage_Overlaps(t *testing.T) {
	dev := newFakeDevice()
	buf := newFakeBuffer(dev.engine, 300)
	other := newFakeBuffer(dev.engine, 300)

	at := func(b Buffer, off int) *Image {
		img, err := NewBufferImage(b, FormatUChar, 100, 1, off, 0, 0)
		require.NoError(t, err)
		return img
	}

	a := at(buf, 0)
	b := at(buf, 50)
	c := at(buf, 100)
	d := at(other, 0)

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.True(t, b.Overlaps(c))
	assert.False(t, a.Overlaps(c), "touching intervals do not overlap")
	assert.False(t, a.Overlaps(d), "different buffers never overlap")

	raw := make([]byte, 300)
	r1, err := NewImage(raw, FormatUChar, 100, 1, 0, 0, 0)
	require.NoError(t, err)
	r2, err := NewImage(raw, FormatUChar, 100, 1, 50, 0, 0)
	require.NoError(t, err)
	assert.False(t, r1.Overlaps(r2))
	assert.False(t, r1.Overlaps(a))
	assert.False(t, a.Overlaps(nil))
}

func TestImage_UpdatePtrAfterShrink(t *testing.T) {
	dev := newFakeDevice()
	buf := newFakeBuffer(dev.engine, 200)

	low, err := NewBufferImage(buf, FormatUChar, 100, 1, 0, 0, 0)
	require.NoError(t, err)
	high, err := NewBufferImage(buf, FormatUChar, 100, 1, 100, 0, 0)
	require.NoError(t, err)

	err = buf.shrink(150)
	assert.ErrorIs(t, err, ErrRange)

	// Views that still fit are re-pointed at the new storage.
	buf.data[0] = 42
	assert.Equal(t, byte(42), low.Data()[0])
	assert.ErrorIs(t, high.UpdatePtr(), ErrRange)
}

func TestImage_Accessor(t *testing.T) {
	all := func(DataType) bool { return true }

	img, err := NewImage(make([]byte, 48), FormatHalf3, 2, 2, 0, 0, 24)
	require.NoError(t, err)
	acc := img.Accessor(all)
	assert.Equal(t, DataTypeFloat16, acc.DataType)
	assert.Equal(t, 6, acc.PixelByteStride)
	assert.Equal(t, 24, acc.RowByteStride)
	assert.Equal(t, 2, acc.Width)
	assert.Equal(t, 2, acc.Height)
	assert.Len(t, acc.Pixel(1, 1), 6)

	undef, err := NewImage(nil, FormatUndefined, 0, 0, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DataTypeFloat32, undef.Accessor(all).DataType)

	floatOnly := func(dt DataType) bool { return dt == DataTypeFloat32 }
	assert.PanicsWithValue(t, LogicError{Message: "unsupported data type"}, func() {
		img.Accessor(floatOnly)
	})
}

func TestFormat(t *testing.T) {
	assert.Equal(t, 3, FormatHalf3.Channels())
	assert.Equal(t, DataTypeUInt8, FormatUChar4.DataType())
	assert.Equal(t, 16, FormatFloat4.Size())
	assert.Equal(t, 0, FormatUndefined.Size())
	assert.False(t, Format(5).Valid())
	assert.False(t, Format(0x300|1).Valid())
	assert.Equal(t, "half3", FormatHalf3.String())
	assert.Equal(t, "uchar", FormatUChar.String())
}
