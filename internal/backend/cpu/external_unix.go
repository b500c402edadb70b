//go:build unix

package cpu

import (
	"github.com/born-ml/denoise/internal/core"
	"golang.org/x/sys/unix"
)

const externalMemoryTypes = core.ExternalMemoryOpaqueFD | core.ExternalMemoryDMABuf

// importFD maps byteSize bytes of the memory object behind fd (Unix
// implementation). The mapping is shared so writes are visible to the
// exporter.
func importFD(fd, byteSize int) ([]byte, func() error, error) {
	data, err := unix.Mmap(fd, 0, byteSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, core.Errorf(core.InvalidArgument, "failed to import external memory: %v", err)
	}
	return data, func() error { return unix.Munmap(data) }, nil
}

func importWin32(uintptr, string, int) ([]byte, func() error, error) {
	return nil, nil, core.Errorf(core.UnsupportedHardware, "Win32 external memory is not supported on this platform")
}
