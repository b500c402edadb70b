//go:build linux

package cpu

import (
	"testing"

	"github.com/born-ml/denoise/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newMemfd(t *testing.T, size int) int {
	t.Helper()
	fd, err := unix.MemfdCreate("denoise-test", 0)
	if err != nil {
		t.Skipf("memfd_create unavailable: %v", err)
	}
	t.Cleanup(func() { _ = unix.Close(fd) })
	require.NoError(t, unix.Ftruncate(fd, int64(size)))
	return fd
}

func TestExternalFD_SharedMapping(t *testing.T) {
	d := newCommitted(t)
	assert.True(t, d.ExternalMemoryTypes().Has(core.ExternalMemoryOpaqueFD))

	fd := newMemfd(t, 4096)
	buf, err := d.Engine().NewExternalBufferFromFD(core.ExternalMemoryOpaqueFD, fd, 4096)
	require.NoError(t, err)
	assert.Equal(t, core.StorageUndefined, buf.Storage())

	require.NoError(t, buf.Write(0, []byte("exported"), core.Sync))

	// A second mapping of the same object sees the write.
	other, err := d.Engine().NewExternalBufferFromFD(core.ExternalMemoryOpaqueFD, fd, 4096)
	require.NoError(t, err)
	dst := make([]byte, 8)
	require.NoError(t, other.Read(0, dst, core.Sync))
	assert.Equal(t, "exported", string(dst))

	require.NoError(t, core.Release(other))
	require.NoError(t, core.Release(buf))
	assert.Nil(t, buf.Data())
}

func TestExternalFD_UnbindOnce(t *testing.T) {
	d := newCommitted(t)
	e := d.Engine().(*Engine)

	fd := newMemfd(t, 4096)
	buf, err := e.NewExternalBufferFromFD(core.ExternalMemoryOpaqueFD, fd, 4096)
	require.NoError(t, err)

	hb := buf.(*hostBuffer)
	calls := 0
	unbind := hb.unbind
	hb.unbind = func() error {
		calls++
		return unbind()
	}

	require.NoError(t, core.Release(buf))
	require.NoError(t, core.Release(buf))
	require.NoError(t, hb.Destroy())
	assert.Equal(t, 1, calls)
}

func TestExternalFD_Invalid(t *testing.T) {
	d := newCommitted(t)
	e := d.Engine()

	_, err := e.NewExternalBufferFromFD(core.ExternalMemoryOpaqueFD, -1, 4096)
	requireCode(t, err, core.InvalidArgument)

	_, err = e.NewExternalBufferFromFD(core.ExternalMemoryOpaqueFD, 0, 0)
	requireCode(t, err, core.InvalidArgument)

	_, err = e.NewExternalBufferFromWin32Handle(core.ExternalMemoryOpaqueWin32, 1, "", 16)
	requireCode(t, err, core.UnsupportedHardware)
}
