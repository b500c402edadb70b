package core

// DataType is the per-channel element type of an image format.
type DataType int

// Data types.
const (
	DataTypeVoid DataType = iota
	DataTypeFloat32
	DataTypeFloat16
	DataTypeUInt8
)

// Size returns the byte size of one element.
func (dt DataType) Size() int {
	switch dt {
	case DataTypeFloat32:
		return 4
	case DataTypeFloat16:
		return 2
	case DataTypeUInt8:
		return 1
	default:
		return 0
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case DataTypeVoid:
		return "void"
	case DataTypeFloat32:
		return "float32"
	case DataTypeFloat16:
		return "float16"
	case DataTypeUInt8:
		return "uint8"
	default:
		return "unknown"
	}
}

// Format is a pixel format: a channel count and a data type.
type Format int

// Pixel formats.
const (
	FormatUndefined Format = 0

	FormatFloat  Format = 1
	FormatFloat2 Format = 2
	FormatFloat3 Format = 3
	FormatFloat4 Format = 4

	FormatHalf  Format = 257
	FormatHalf2 Format = 258
	FormatHalf3 Format = 259
	FormatHalf4 Format = 260

	FormatUChar  Format = 513
	FormatUChar2 Format = 514
	FormatUChar3 Format = 515
	FormatUChar4 Format = 516
)

// Channels returns the number of channels, or 0 for an invalid format.
func (f Format) Channels() int {
	if f.DataType() == DataTypeVoid {
		return 0
	}
	return int(f) & 0xff
}

// DataType returns the channel data type.
func (f Format) DataType() DataType {
	c := int(f) & 0xff
	if c < 1 || c > 4 {
		return DataTypeVoid
	}
	switch int(f) >> 8 {
	case 0:
		return DataTypeFloat32
	case 1:
		return DataTypeFloat16
	case 2:
		return DataTypeUInt8
	default:
		return DataTypeVoid
	}
}

// Valid reports whether f is Undefined or a known format.
func (f Format) Valid() bool {
	return f == FormatUndefined || f.DataType() != DataTypeVoid
}

// Size returns the byte size of one pixel.
func (f Format) Size() int {
	return f.Channels() * f.DataType().Size()
}

// String returns a human-readable format name.
func (f Format) String() string {
	if f == FormatUndefined {
		return "undefined"
	}
	var base string
	switch f.DataType() {
	case DataTypeFloat32:
		base = "float"
	case DataTypeFloat16:
		base = "half"
	case DataTypeUInt8:
		base = "uchar"
	default:
		return "invalid"
	}
	if c := f.Channels(); c > 1 {
		return base + string(rune('0'+c))
	}
	return base
}
