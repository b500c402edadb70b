package filter

import (
	"errors"

	"github.com/born-ml/denoise/internal/core"
)

const (
	inputImage  = "input"
	outputImage = "output"
)

// Copy converts the input image into the output image, mapping between
// pixel formats. Channels missing from the input are written as zero.
//
// Parameters:
//   - inputScale (float): multiplier applied to every input value, default 1
//   - maxMemoryMB (int): bound on scratch memory, 0 for unlimited
//   - clamp (bool): clamp output values to [0, 1]; UChar output is always clamped
type Copy struct {
	core.FilterBase

	engine core.KernelEngine

	inputScale  float32
	maxMemoryMB int
	clamp       bool

	// Overlapping views are converted from a staged copy of the input.
	scratch core.ScratchBuffer
	staged  *core.Image
}

// NewCopy creates a copy filter. The device's engine must run host kernels.
func NewCopy(dev core.Device) (core.Filter, error) {
	engine, ok := dev.Engine().(core.KernelEngine)
	if !ok {
		return nil, core.Errorf(core.UnsupportedHardware, "filters are not supported by the %s device", dev.Type())
	}
	f := &Copy{engine: engine, inputScale: 1}
	f.InitFilter(dev)
	return f, nil
}

// SetImage binds img to a named slot and takes ownership of it. Images for
// unknown slots are released.
func (f *Copy) SetImage(name string, img *core.Image) error {
	switch name {
	case inputImage, outputImage:
		return f.BindImage(name, img)
	default:
		f.UnknownParam(name)
		return img.Release()
	}
}

// RemoveImage implements core.Filter.
func (f *Copy) RemoveImage(name string) error {
	switch name {
	case inputImage, outputImage:
		return f.BindImage(name, nil)
	default:
		f.UnknownParam(name)
		return nil
	}
}

// SetData implements core.Filter. The copy filter has no data slots.
func (f *Copy) SetData(name string, _ []byte) error {
	f.UnknownParam(name)
	return nil
}

// UpdateData implements core.Filter.
func (f *Copy) UpdateData(name string) error {
	f.UnknownParam(name)
	return nil
}

// RemoveData implements core.Filter.
func (f *Copy) RemoveData(name string) error {
	f.UnknownParam(name)
	return nil
}

// SetInt implements core.Filter. Booleans are set as integers.
func (f *Copy) SetInt(name string, value int) error {
	switch name {
	case "maxMemoryMB":
		f.maxMemoryMB = value
	case "clamp":
		f.clamp = value != 0
	default:
		f.UnknownParam(name)
		return nil
	}
	f.MarkDirty()
	return nil
}

// GetInt implements core.Filter.
func (f *Copy) GetInt(name string) (int, error) {
	switch name {
	case "maxMemoryMB":
		return f.maxMemoryMB, nil
	case "clamp":
		if f.clamp {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, core.UnknownParamError(name)
	}
}

// SetFloat implements core.Filter.
func (f *Copy) SetFloat(name string, value float32) error {
	if name != "inputScale" {
		f.UnknownParam(name)
		return nil
	}
	f.inputScale = value
	f.MarkDirty()
	return nil
}

// GetFloat implements core.Filter.
func (f *Copy) GetFloat(name string) (float32, error) {
	if name != "inputScale" {
		return 0, core.UnknownParamError(name)
	}
	return f.inputScale, nil
}

// Commit validates the images and prepares scratch memory for overlapping
// views.
func (f *Copy) Commit() error {
	in, out := f.Image(inputImage), f.Image(outputImage)
	if in == nil || out == nil {
		return core.Errorf(core.InvalidOperation, "input and output images must be set")
	}
	if in.Format == core.FormatUndefined || out.Format == core.FormatUndefined {
		return core.Errorf(core.InvalidArgument, "unsupported image format")
	}
	if in.Width != out.Width || in.Height != out.Height {
		return core.Errorf(core.InvalidArgument, "image size mismatch")
	}

	if in.Overlaps(out) && !sameView(in, out) {
		if err := f.stage(in); err != nil {
			return err
		}
	} else if err := f.unstage(); err != nil {
		return err
	}

	f.MarkCommitted()
	return nil
}

// stage points f.staged at a tightly packed scratch image with the layout
// of in. A staged view left from an earlier commit stays attached while
// the scratch buffer grows, so the reallocation re-points it.
func (f *Copy) stage(in *core.Image) error {
	desc, err := core.NewImageDesc(in.Format, in.Width, in.Height, 0, 0)
	if err != nil {
		return err
	}
	size := desc.ByteSize()
	if f.maxMemoryMB > 0 && size > f.maxMemoryMB<<20 {
		return core.Errorf(core.OutOfMemory, "scratch memory exceeds the limit of %d MB", f.maxMemoryMB)
	}

	switch {
	case f.scratch == nil:
		f.scratch, err = f.engine.NewScratchBuffer(size)
	case f.scratch.ByteSize() < size:
		// Kernels of a previous execution may still use the scratch memory.
		if err = f.engine.Wait(); err == nil {
			err = f.scratch.Realloc(size)
		}
	}
	if err != nil {
		return err
	}
	core.Logger().Debug("staging overlapping input", "bytes", size)

	if f.staged != nil && f.staged.ImageDesc == desc {
		return nil
	}
	if err := f.unstage(); err != nil {
		return err
	}
	f.staged, err = core.NewBufferImageDesc(f.scratch, desc, 0)
	return err
}

func (f *Copy) unstage() error {
	err := f.staged.Release()
	f.staged = nil
	return err
}

// Execute runs the conversion. With a staged input two kernels are
// submitted and joined by a barrier.
func (f *Copy) Execute(mode core.SyncMode) error {
	if err := f.CheckCommitted(); err != nil {
		return err
	}
	in, out := f.Image(inputImage), f.Image(outputImage)
	par := f.engine.Parallel()

	rows := out.Height
	if f.staged != nil {
		rows *= 2
	}
	p := &progress{filter: &f.FilterBase, total: rows}

	src := f.engine.Accessor(in)
	if f.staged != nil {
		staged := f.engine.Accessor(f.staged)
		err := f.engine.Submit(func() error {
			copyPixels(src, staged, par)
			return p.advance(staged.Height)
		}, mode)
		if err != nil {
			return err
		}
		src = staged
	}

	k := &convertKernel{
		src:         src,
		dst:         f.engine.Accessor(out),
		srcChannels: in.Channels(),
		dstChannels: out.Channels(),
		scale:       f.inputScale,
		clamp:       f.clamp || out.DataType() == core.DataTypeUInt8,
	}
	if err := f.engine.Submit(func() error { return k.run(par, p) }, mode); err != nil {
		return err
	}
	f.engine.Barrier()
	return nil
}

// Destroy implements core.Object. The device has been drained.
func (f *Copy) Destroy() error {
	errs := []error{f.staged.Release(), f.ReleaseImages()}
	f.staged = nil
	if f.scratch != nil {
		errs = append(errs, core.ReleaseLocked(f.scratch))
		f.scratch = nil
	}
	return errors.Join(errs...)
}

func sameView(a, b *core.Image) bool {
	return a.Buffer() == b.Buffer() && a.ByteOffset() == b.ByteOffset() && a.ImageDesc == b.ImageDesc
}
