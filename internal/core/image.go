package core

import "math"

// MaxDim is the largest supported image width or height.
const MaxDim = 65536

// ImageDesc describes the geometry and layout of an image.
type ImageDesc struct {
	Format          Format
	Width           int
	Height          int
	PixelByteStride int
	RowByteStride   int
}

// NewImageDesc validates an image layout. Zero strides select the tightly
// packed defaults.
func NewImageDesc(format Format, width, height, pixelByteStride, rowByteStride int) (ImageDesc, error) {
	if !format.Valid() {
		return ImageDesc{}, Errorf(InvalidArgument, "invalid image format")
	}
	if width < 0 || height < 0 {
		return ImageDesc{}, Errorf(InvalidArgument, "invalid image size")
	}
	if width > MaxDim || height > MaxDim || int64(width)*int64(height)*int64(format.Channels()) > math.MaxInt32 {
		return ImageDesc{}, Errorf(InvalidArgument, "image size too large")
	}

	d := ImageDesc{Format: format, Width: width, Height: height}

	pixelSize := format.Size()
	if pixelByteStride != 0 {
		if pixelByteStride < pixelSize {
			return ImageDesc{}, Errorf(InvalidArgument, "pixel stride smaller than pixel size")
		}
		d.PixelByteStride = pixelByteStride
	} else {
		d.PixelByteStride = pixelSize
	}
	if width > 0 && d.PixelByteStride > math.MaxInt/width {
		return ImageDesc{}, Errorf(InvalidArgument, "image size too large")
	}

	if rowByteStride != 0 {
		if rowByteStride < width*d.PixelByteStride {
			return ImageDesc{}, Errorf(InvalidArgument, "row stride smaller than width * pixel stride")
		}
		d.RowByteStride = rowByteStride
	} else {
		d.RowByteStride = width * d.PixelByteStride
	}
	if height > 0 && d.RowByteStride > math.MaxInt/height {
		return ImageDesc{}, Errorf(InvalidArgument, "image size too large")
	}

	return d, nil
}

// Channels returns the number of channels per pixel.
func (d ImageDesc) Channels() int {
	return d.Format.Channels()
}

// DataType returns the channel data type.
func (d ImageDesc) DataType() DataType {
	return d.Format.DataType()
}

// ByteSize returns the number of bytes spanned by the image, including the
// padding of the last row.
func (d ImageDesc) ByteSize() int {
	return d.Height * d.RowByteStride
}

// Image is a strided, typed view over raw memory or over a buffer region.
//
// A buffer-backed image holds a reference on its buffer and is attached to
// it, so the view is re-pointed whenever the buffer's storage moves.
type Image struct {
	ImageDesc

	buffer     Buffer
	byteOffset int
	data       []byte
}

// NewImage creates an image over caller-owned memory starting at byteOffset.
func NewImage(raw []byte, format Format, width, height, byteOffset, pixelByteStride, rowByteStride int) (*Image, error) {
	desc, err := NewImageDesc(format, width, height, pixelByteStride, rowByteStride)
	if err != nil {
		return nil, err
	}
	if !fits(byteOffset, desc.ByteSize(), len(raw)) {
		return nil, Errorf(InvalidArgument, "buffer region out of range")
	}
	img := &Image{ImageDesc: desc, byteOffset: byteOffset}
	if raw != nil {
		img.data = raw[byteOffset : byteOffset+desc.ByteSize()]
	}
	return img, nil
}

// NewBufferImage creates an image over a region of buf.
func NewBufferImage(buf Buffer, format Format, width, height, byteOffset, pixelByteStride, rowByteStride int) (*Image, error) {
	desc, err := NewImageDesc(format, width, height, pixelByteStride, rowByteStride)
	if err != nil {
		return nil, err
	}
	return newBufferImage(buf, desc, byteOffset)
}

// NewBufferImageDesc creates an image with an already validated layout over
// a region of buf.
func NewBufferImageDesc(buf Buffer, desc ImageDesc, byteOffset int) (*Image, error) {
	return newBufferImage(buf, desc, byteOffset)
}

func newBufferImage(buf Buffer, desc ImageDesc, byteOffset int) (*Image, error) {
	if !fits(byteOffset, desc.ByteSize(), buf.ByteSize()) {
		return nil, Errorf(InvalidArgument, "buffer region out of range")
	}
	img := &Image{ImageDesc: desc, buffer: buf, byteOffset: byteOffset}
	img.point()
	buf.IncRef()
	buf.Attach(img)
	return img, nil
}

// NewEngineImage allocates a tightly packed device-storage image that owns
// its buffer. It serves engine-side temporaries that are not reallocated;
// filters that resize their temporaries across commits stage through a
// ScratchBuffer instead. Releasing the image frees the buffer.
func NewEngineImage(engine Engine, format Format, width, height int) (*Image, error) {
	desc, err := NewImageDesc(format, width, height, 0, 0)
	if err != nil {
		return nil, err
	}
	buf, err := engine.NewBuffer(width*height*format.Size(), StorageDevice)
	if err != nil {
		return nil, err
	}
	img := &Image{ImageDesc: desc, buffer: buf}
	img.point()
	// The image takes over the allocation's only reference.
	buf.Attach(img)
	return img, nil
}

// fits reports whether [offset, offset+n) lies within [0, size).
func fits(offset, n, size int) bool {
	return offset >= 0 && n <= size && offset <= size-n
}

func (img *Image) point() {
	if data := img.buffer.Data(); data != nil {
		img.data = data[img.byteOffset : img.byteOffset+img.ByteSize()]
	} else {
		img.data = nil
	}
}

// Buffer returns the backing buffer, or nil for raw memory images.
func (img *Image) Buffer() Buffer {
	return img.buffer
}

// ByteOffset returns the offset of the first pixel within the backing
// memory.
func (img *Image) ByteOffset() int {
	return img.byteOffset
}

// Data returns the host-visible bytes of the image, or nil if the backing
// storage is not visible to the host.
func (img *Image) Data() []byte {
	return img.data
}

// UpdatePtr re-points the view after the backing buffer's storage moved.
// It fails with ErrRange if the view no longer fits.
func (img *Image) UpdatePtr() error {
	if img.buffer == nil {
		return nil
	}
	if !fits(img.byteOffset, img.ByteSize(), img.buffer.ByteSize()) {
		return ErrRange
	}
	img.point()
	return nil
}

// Overlaps reports whether the byte intervals of two images backed by the
// same buffer intersect. Images without a buffer, or backed by different
// buffers, never overlap.
func (img *Image) Overlaps(other *Image) bool {
	if img == nil || other == nil || img.buffer == nil || other.buffer == nil {
		return false
	}
	if img.buffer != other.buffer {
		return false
	}
	begin1, end1 := img.byteOffset, img.byteOffset+img.ByteSize()
	begin2, end2 := other.byteOffset, other.byteOffset+other.ByteSize()
	return begin1 < end2 && begin2 < end1
}

// Release detaches the image from its buffer and drops its buffer
// reference. The caller holds the device lock.
func (img *Image) Release() error {
	if img == nil || img.buffer == nil {
		return nil
	}
	buf := img.buffer
	buf.Detach(img)
	img.buffer = nil
	img.data = nil
	return ReleaseLocked(buf)
}

// ImageAccessor is the kernel-facing descriptor of an image.
type ImageAccessor struct {
	Data            []byte
	RowByteStride   int
	PixelByteStride int
	Width           int
	Height          int
	DataType        DataType
}

// Accessor builds the kernel descriptor of the image. supported reports
// whether the exporting engine recognizes a data type; an unrecognized type
// is an invariant violation and panics with a LogicError. Undefined images
// export as Float32.
func (img *Image) Accessor(supported func(DataType) bool) ImageAccessor {
	acc := ImageAccessor{
		Data:            img.data,
		RowByteStride:   img.RowByteStride,
		PixelByteStride: img.PixelByteStride,
		Width:           img.Width,
		Height:          img.Height,
		DataType:        DataTypeFloat32,
	}
	if img.Format != FormatUndefined {
		dt := img.DataType()
		if dt == DataTypeVoid || !supported(dt) {
			panic(LogicError{Message: "unsupported data type"})
		}
		acc.DataType = dt
	}
	return acc
}

// Pixel returns the bytes of the pixel at (x, y).
func (acc ImageAccessor) Pixel(x, y int) []byte {
	off := y*acc.RowByteStride + x*acc.PixelByteStride
	return acc.Data[off : off+acc.PixelByteStride]
}
