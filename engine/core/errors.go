package core

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfVideoMemory        = errors.New("out of video memory")
	ErrDeviceLost              = errors.New("device lost")
	ErrDeviceNotReset          = errors.New("device lost, reset required")
	ErrNoDevice                = errors.New("no device")
	ErrResourceEvacuated       = errors.New("resource evacuated, waiting for device restore")
	ErrResourceDisposed        = errors.New("resource disposed")
	ErrRestoreIncomplete       = errors.New("one or more resources failed to restore")
	ErrInvalidVertexProcessing = errors.New("incorrect vertex processing type")
	ErrSessionClosed           = errors.New("session closed")
	ErrUnknown                 = errors.New("unknown")
)

// ResourceKind names one of the device-loss-safe handle types.
type ResourceKind int

const (
	ResourceKindVertexBuffer ResourceKind = iota
	ResourceKindIndexBuffer
	ResourceKindTexture
	ResourceKindMesh
	resourceKindCount
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindVertexBuffer:
		return "vertex buffer"
	case ResourceKindIndexBuffer:
		return "index buffer"
	case ResourceKindTexture:
		return "texture"
	case ResourceKindMesh:
		return "mesh"
	}
	return fmt.Sprintf("resource kind %d", int(k))
}

// AllocationError is returned when the device rejects the creation of a GPU
// object (size, format or memory).
type AllocationError struct {
	Kind ResourceKind
	Op   string
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("%s: %s allocation failed: %v", e.Op, e.Kind, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// UnsupportedFormatError is returned by pixel operations on a texture whose
// format is not the one the operation requires.
type UnsupportedFormatError struct {
	Op   string
	Have string
	Want string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported format %s, requires %s", e.Op, e.Have, e.Want)
}

// DeviceCreationError reports that every creation attempt failed.
type DeviceCreationError struct {
	OutOfMemory bool
	Attempts    int
	Err         error
}

func (e *DeviceCreationError) Error() string {
	if e.OutOfMemory {
		return fmt.Sprintf("error creating device after %d attempts: out of video memory", e.Attempts)
	}
	return fmt.Sprintf("error creating device after %d attempts: %v", e.Attempts, e.Err)
}

func (e *DeviceCreationError) Unwrap() error { return e.Err }

// UnsupportedDeviceError is returned when the created device is a null
// reference backend that cannot render anything.
type UnsupportedDeviceError struct {
	Device string
}

func (e *UnsupportedDeviceError) Error() string {
	return fmt.Sprintf("null rendering device %q can't render anything", e.Device)
}
