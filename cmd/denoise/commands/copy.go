package commands

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/born-ml/denoise"
	"github.com/spf13/cobra"
	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

var (
	intermediate string
	inputScale   float32
	clampOutput  bool
	maxMemoryMB  int
)

var copyCmd = &cobra.Command{
	Use:   "copy <input> <output>",
	Short: "Convert an image through the copy filter",
	Long: `Decode a PNG, BMP or TIFF image, convert it to an intermediate pixel
format on the device and back, and encode the result. The output format
follows the file extension.`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		format, ok := intermediateFormats[strings.ToLower(intermediate)]
		if !ok {
			return fmt.Errorf("unknown intermediate format %q", intermediate)
		}
		dev, err := openDevice()
		if err != nil {
			return err
		}
		defer dev.Release()
		return copyFile(dev, args[0], args[1], copyOptions{
			intermediate: format,
			inputScale:   inputScale,
			clamp:        clampOutput,
			maxMemoryMB:  maxMemoryMB,
		})
	},
}

func init() {
	copyCmd.Flags().StringVar(&intermediate, "intermediate", "half3", "intermediate format: float3, half3 or uchar3")
	copyCmd.Flags().Float32Var(&inputScale, "scale", 1, "scale applied to the input values")
	copyCmd.Flags().BoolVar(&clampOutput, "clamp", false, "clamp intermediate values to [0, 1]")
	copyCmd.Flags().IntVar(&maxMemoryMB, "max-memory", 0, "scratch memory limit in MB (0 for unlimited)")
	rootCmd.AddCommand(copyCmd)
}

var intermediateFormats = map[string]denoise.Format{
	"float3": denoise.FormatFloat3,
	"half3":  denoise.FormatHalf3,
	"uchar3": denoise.FormatUChar3,
}

type copyOptions struct {
	intermediate denoise.Format
	inputScale   float32
	clamp        bool
	maxMemoryMB  int
}

func copyFile(dev *denoise.Device, inPath, outPath string, opts copyOptions) error {
	src, err := decodeFile(inPath)
	if err != nil {
		return err
	}
	dst, err := convert(dev, src, opts)
	if err != nil {
		return err
	}
	return encodeFile(outPath, dst)
}

// convert runs src through an intermediate device buffer and returns the
// opaque result.
func convert(dev *denoise.Device, src image.Image, opts copyOptions) (*image.RGBA, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	in := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(in, in.Bounds(), src, b.Min, xdraw.Src)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(out, out.Bounds(), image.Opaque, image.Point{}, xdraw.Src)

	tmp := dev.NewBufferWithStorage(w*h*opts.intermediate.Size(), denoise.StorageDevice)
	if err := deviceError(dev); err != nil {
		return nil, err
	}
	defer tmp.Release()

	// RGB is read and written with the RGBA pixel stride; alpha is untouched.
	toDevice := dev.NewFilter("copy")
	defer toDevice.Release()
	toDevice.SetSharedImage("input", in.Pix, denoise.FormatUChar3, w, h, 0, 4, in.Stride)
	toDevice.SetImage("output", tmp, opts.intermediate, w, h, 0, 0, 0)
	toDevice.SetFloat("inputScale", opts.inputScale)
	toDevice.SetBool("clamp", opts.clamp)
	toDevice.SetInt("maxMemoryMB", opts.maxMemoryMB)
	toDevice.SetProgressMonitorFunc(logProgress, "input")
	toDevice.Commit()
	toDevice.ExecuteAsync()

	fromDevice := dev.NewFilter("copy")
	defer fromDevice.Release()
	fromDevice.SetImage("input", tmp, opts.intermediate, w, h, 0, 0, 0)
	fromDevice.SetSharedImage("output", out.Pix, denoise.FormatUChar3, w, h, 0, 4, out.Stride)
	fromDevice.SetProgressMonitorFunc(logProgress, "output")
	fromDevice.Commit()
	fromDevice.ExecuteAsync()

	dev.Sync()
	if err := deviceError(dev); err != nil {
		return nil, err
	}
	return out, nil
}

func logProgress(userData any, n float64) bool {
	logger.Debug("progress", "stage", userData, "done", n)
	return true
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

func encodeFile(path string, img image.Image) (err error) {
	encode, ok := encoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := encode(f, img); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

var encoders = map[string]func(io.Writer, image.Image) error{
	".png":  png.Encode,
	".bmp":  bmp.Encode,
	".tif":  encodeTIFF,
	".tiff": encodeTIFF,
}

func encodeTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}
