//go:build windows

package cpu

import (
	"unsafe"

	"github.com/born-ml/denoise/internal/core"
	"golang.org/x/sys/windows"
)

const externalMemoryTypes = core.ExternalMemoryOpaqueWin32 | core.ExternalMemoryOpaqueWin32KMT

var procOpenFileMappingW = windows.NewLazySystemDLL("kernel32.dll").NewProc("OpenFileMappingW")

func importFD(int, int) ([]byte, func() error, error) {
	return nil, nil, core.Errorf(core.UnsupportedHardware, "file descriptor external memory is not supported on this platform")
}

// importWin32 maps byteSize bytes of a file mapping object given by handle
// or, when handle is zero, opened by name (Windows implementation).
//
// This function uses unsafe operations which are required for memory mapping.
// The address comes from MapViewOfFile and stays valid until UnmapViewOfFile.
func importWin32(handle uintptr, name string, byteSize int) ([]byte, func() error, error) {
	h := windows.Handle(handle)
	if h == 0 {
		named, err := openFileMapping(name)
		if err != nil {
			return nil, nil, core.Errorf(core.InvalidArgument, "failed to open external memory '%s': %v", name, err)
		}
		defer func() {
			// The view keeps the mapping alive.
			_ = windows.CloseHandle(named)
		}()
		h = named
	}

	addr, err := windows.MapViewOfFile(
		h,
		windows.FILE_MAP_READ|windows.FILE_MAP_WRITE,
		0,
		0,
		uintptr(byteSize), //nolint:gosec // G115: size validated by caller
	)
	if err != nil {
		return nil, nil, core.Errorf(core.InvalidArgument, "failed to import external memory: %v", err)
	}

	//nolint:gosec // G103: addr is a valid mapped view of byteSize bytes
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), byteSize)
	return data, func() error { return windows.UnmapViewOfFile(addr) }, nil
}

func openFileMapping(name string) (windows.Handle, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	r, _, callErr := procOpenFileMappingW.Call(
		uintptr(windows.FILE_MAP_READ|windows.FILE_MAP_WRITE),
		0,
		uintptr(unsafe.Pointer(p)), //nolint:gosec // G103: pointer passed to syscall
	)
	if r == 0 {
		return 0, callErr
	}
	return windows.Handle(r), nil
}
