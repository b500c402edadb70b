//go:build opencl

package opencl

import (
	"testing"

	"github.com/born-ml/denoise/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_RoundTrip(t *testing.T) {
	if !IsAvailable() {
		t.Skip("OpenCL not available")
	}
	d := New(nil)
	require.NoError(t, d.Commit())
	defer func() { _ = core.Release(d) }()

	buf, err := d.Engine().NewBuffer(32, core.StorageDevice)
	require.NoError(t, err)
	defer func() { _ = core.Release(buf) }()

	require.NoError(t, buf.Write(0, []byte("head"), core.Sync))
	require.NoError(t, buf.Write(10, []byte("tail"), core.Async))

	dst := make([]byte, 14)
	require.NoError(t, buf.Read(0, dst, core.Sync))
	assert.Equal(t, []byte("head"), dst[:4])
	assert.Equal(t, []byte("tail"), dst[10:])
}

func TestClError_OutOfMemory(t *testing.T) {
	assert.True(t, (&clError{op: "create buffer"}).OutOfMemory())
	assert.False(t, (&clError{op: "read buffer"}).OutOfMemory())
}
