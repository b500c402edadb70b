package core

import (
	"sync"
)

// Library version reported through the "version*" device parameters.
const (
	VersionMajor = 1
	VersionMinor = 0
	VersionPatch = 0
	Version      = VersionMajor*10000 + VersionMinor*100 + VersionPatch
)

// DeviceType identifies a backend.
type DeviceType int

// Supported device types.
const (
	DeviceDefault DeviceType = iota
	DeviceCPU
	DeviceWebGPU
	DeviceOpenCL
)

// String returns a human-readable device type name.
func (t DeviceType) String() string {
	switch t {
	case DeviceDefault:
		return "default"
	case DeviceCPU:
		return "CPU"
	case DeviceWebGPU:
		return "WebGPU"
	case DeviceOpenCL:
		return "OpenCL"
	default:
		return "unknown"
	}
}

// Device is a process-visible handle to a backend instance.
//
// Every mutating call on a device or on an object bound to it must be made
// while holding Mutex. The mutex guards metadata and submission only:
// asynchronous work already queued runs without it.
type Device interface {
	Object

	Type() DeviceType
	Mutex() *sync.Mutex
	Engine() Engine
	ExternalMemoryTypes() ExternalMemoryTypeFlags

	Commit() error
	IsCommitted() bool
	CheckCommitted() error

	// Wait blocks until every asynchronous operation on the device has
	// completed and returns the first failure among them.
	Wait() error

	GetInt(name string) (int, error)
	SetInt(name string, value int) error
	Verbose() int

	SetErrorFunc(fn ErrorFunc, userData any)
	ErrorState() *ErrorState
}

// DeviceBase implements the backend-independent part of Device.
// Backends embed it and override GetInt/SetInt for their own parameters.
type DeviceBase struct {
	RefCount

	mu          sync.Mutex
	typ         DeviceType
	committed   bool
	verbose     int
	extMemTypes ExternalMemoryTypeFlags
	errState    ErrorState
}

// InitBase prepares the base for a freshly created, uncommitted device.
func (d *DeviceBase) InitBase(typ DeviceType, extMemTypes ExternalMemoryTypeFlags, verbose int) {
	d.RefCount.Init()
	d.typ = typ
	d.extMemTypes = extMemTypes
	d.verbose = verbose
}

// Mutex returns the lock serializing control-plane calls on the device.
func (d *DeviceBase) Mutex() *sync.Mutex {
	return &d.mu
}

// Type returns the device type.
func (d *DeviceBase) Type() DeviceType {
	return d.typ
}

// ExternalMemoryTypes returns the set of importable external memory kinds.
func (d *DeviceBase) ExternalMemoryTypes() ExternalMemoryTypeFlags {
	return d.extMemTypes
}

// IsCommitted reports whether Commit has succeeded.
func (d *DeviceBase) IsCommitted() bool {
	return d.committed
}

// MarkCommitted is called by the backend once its Commit succeeded.
func (d *DeviceBase) MarkCommitted() {
	d.committed = true
}

// CheckCommitted fails if the device has not been committed yet.
func (d *DeviceBase) CheckCommitted() error {
	if !d.committed {
		return Errorf(InvalidOperation, "device not committed")
	}
	return nil
}

// Verbose returns the verbosity level.
func (d *DeviceBase) Verbose() int {
	return d.verbose
}

// GetInt returns a common device parameter.
func (d *DeviceBase) GetInt(name string) (int, error) {
	switch name {
	case "type":
		return int(d.typ), nil
	case "version":
		return Version, nil
	case "versionMajor":
		return VersionMajor, nil
	case "versionMinor":
		return VersionMinor, nil
	case "versionPatch":
		return VersionPatch, nil
	case "verbose":
		return d.verbose, nil
	case "externalMemoryTypes":
		return int(d.extMemTypes), nil
	default:
		return 0, Errorf(InvalidArgument, "unknown device parameter or type mismatch: '%s'", name)
	}
}

// SetInt sets a common device parameter. Unknown names are ignored with a
// warning; read-only names are rejected.
func (d *DeviceBase) SetInt(name string, value int) error {
	switch name {
	case "verbose":
		d.verbose = value
		return nil
	case "type", "version", "versionMajor", "versionMinor", "versionPatch", "externalMemoryTypes":
		return Errorf(InvalidArgument, "device parameter '%s' is read-only", name)
	default:
		Logger().Warn("unknown device parameter or type mismatch", "name", name)
		return nil
	}
}

// SetErrorFunc registers the callback invoked on every failure.
func (d *DeviceBase) SetErrorFunc(fn ErrorFunc, userData any) {
	d.errState.mu.Lock()
	defer d.errState.mu.Unlock()
	d.errState.fn = fn
	d.errState.userData = userData
}

// ErrorState returns the device's latched error slot.
func (d *DeviceBase) ErrorState() *ErrorState {
	return &d.errState
}
