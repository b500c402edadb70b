package registry

import (
	"testing"

	"github.com/born-ml/denoise/internal/config"
	"github.com/born-ml/denoise/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDevice struct {
	core.DeviceBase
}

func (d *stubDevice) Device() core.Device { return d }
func (d *stubDevice) Engine() core.Engine { return nil }
func (d *stubDevice) Commit() error       { d.MarkCommitted(); return nil }
func (d *stubDevice) Wait() error         { return nil }
func (d *stubDevice) Destroy() error      { return nil }

func stub(typ core.DeviceType, supported bool) Factory {
	return Factory{
		New: func(*config.Config) (core.Device, error) {
			d := &stubDevice{}
			d.InitBase(typ, core.ExternalMemoryNone, 0)
			return d, nil
		},
		IsSupported: func() bool { return supported },
	}
}

func withFactories(t *testing.T, fs map[core.DeviceType]Factory) {
	t.Helper()
	registryMu.Lock()
	saved := factories
	factories = fs
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		factories = saved
		registryMu.Unlock()
	})
}

func TestNew_DefaultPriority(t *testing.T) {
	withFactories(t, map[core.DeviceType]Factory{
		core.DeviceCPU:    stub(core.DeviceCPU, true),
		core.DeviceOpenCL: stub(core.DeviceOpenCL, true),
		core.DeviceWebGPU: stub(core.DeviceWebGPU, false),
	})

	dev, err := New(core.DeviceDefault, config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, core.DeviceOpenCL, dev.Type())

	assert.Equal(t, []core.DeviceType{core.DeviceWebGPU, core.DeviceOpenCL, core.DeviceCPU}, Available())
}

func TestNew_FallsBackToCPU(t *testing.T) {
	withFactories(t, map[core.DeviceType]Factory{
		core.DeviceCPU: stub(core.DeviceCPU, true),
	})

	dev, err := New(core.DeviceDefault, config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, core.DeviceCPU, dev.Type())
}

func TestNew_UnsupportedType(t *testing.T) {
	withFactories(t, map[core.DeviceType]Factory{})

	_, err := New(core.DeviceWebGPU, config.DefaultConfig())
	var e *core.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, core.InvalidArgument, e.Code)
	assert.Equal(t, "unsupported device type", e.Message)

	_, err = New(core.DeviceDefault, config.DefaultConfig())
	require.ErrorAs(t, err, &e)
	assert.Equal(t, core.UnsupportedHardware, e.Code)
}
