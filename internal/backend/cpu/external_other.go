//go:build !unix && !windows

package cpu

import "github.com/born-ml/denoise/internal/core"

const externalMemoryTypes = core.ExternalMemoryNone

func importFD(int, int) ([]byte, func() error, error) {
	return nil, nil, core.Errorf(core.UnsupportedHardware, "external memory is not supported on this platform")
}

func importWin32(uintptr, string, int) ([]byte, func() error, error) {
	return nil, nil, core.Errorf(core.UnsupportedHardware, "external memory is not supported on this platform")
}
