package filter

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/born-ml/denoise/internal/core"
	"github.com/born-ml/denoise/internal/parallel"
	"github.com/x448/float16"
)

// progress accumulates completed rows across kernels and forwards the
// fraction to the filter's progress callback.
type progress struct {
	mu     sync.Mutex
	filter *core.FilterBase
	done   int
	total  int
}

func (p *progress) advance(rows int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done += rows
	if p.total == 0 {
		return p.filter.Progress(1)
	}
	return p.filter.Progress(float64(p.done) / float64(p.total))
}

// copyPixels copies pixels of identical format between two images.
func copyPixels(src, dst core.ImageAccessor, par parallel.Config) {
	parallel.For(dst.Height, func(y int) {
		for x := range dst.Width {
			copy(dst.Pixel(x, y), src.Pixel(x, y))
		}
	}, par)
}

// convertKernel converts pixels between formats.
type convertKernel struct {
	src, dst    core.ImageAccessor
	srcChannels int
	dstChannels int
	scale       float32
	clamp       bool
}

func (k *convertKernel) run(par parallel.Config, p *progress) error {
	return parallel.ForChunks(k.dst.Height, func(start, end int) error {
		for y := start; y < end; y++ {
			k.row(y)
		}
		return p.advance(end - start)
	}, par)
}

func (k *convertKernel) row(y int) {
	var v [4]float32
	n := min(k.srcChannels, k.dstChannels)
	for x := range k.dst.Width {
		// Read the whole pixel first: in-place conversion reuses the bytes.
		clear(v[:])
		sp := k.src.Pixel(x, y)
		for c := range n {
			v[c] = load(sp, c, k.src.DataType) * k.scale
		}
		dp := k.dst.Pixel(x, y)
		for c := range k.dstChannels {
			value := v[c]
			if k.clamp {
				value = clamp01(value)
			}
			store(dp, c, k.dst.DataType, value)
		}
	}
}

func load(px []byte, c int, dt core.DataType) float32 {
	switch dt {
	case core.DataTypeFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(px[c*4:]))
	case core.DataTypeFloat16:
		return float16.Frombits(binary.LittleEndian.Uint16(px[c*2:])).Float32()
	case core.DataTypeUInt8:
		return float32(px[c]) / 255
	default:
		panic(core.LogicError{Message: "unsupported data type"})
	}
}

func store(px []byte, c int, dt core.DataType, v float32) {
	switch dt {
	case core.DataTypeFloat32:
		binary.LittleEndian.PutUint32(px[c*4:], math.Float32bits(v))
	case core.DataTypeFloat16:
		binary.LittleEndian.PutUint16(px[c*2:], float16.Fromfloat32(v).Bits())
	case core.DataTypeUInt8:
		px[c] = uint8(v*255 + 0.5)
	default:
		panic(core.LogicError{Message: "unsupported data type"})
	}
}

// clamp01 clamps v to [0, 1], mapping NaN to 0.
func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	return min(v, 1)
}
