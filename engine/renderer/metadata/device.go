package metadata

import (
	"fmt"

	"github.com/spaghettifunk/rekindle/engine/core"
)

/** @brief The kind of device a driver creates. */
type DeviceType int

const (
	DeviceTypeHardware DeviceType = iota + 1
	DeviceTypeReference
	DeviceTypeSoftware
	// DeviceTypeNullReference accepts every call and draws nothing.
	DeviceTypeNullReference
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeHardware:
		return "hardware"
	case DeviceTypeReference:
		return "reference"
	case DeviceTypeSoftware:
		return "software"
	case DeviceTypeNullReference:
		return "null-reference"
	}
	return fmt.Sprintf("DeviceType(%d)", int(t))
}

/** @brief Where vertex transformation runs. */
type VertexProcessing int

const (
	VertexProcessingSoftware VertexProcessing = iota + 1
	VertexProcessingMixed
	VertexProcessingHardware
	VertexProcessingPureHardware
)

func (v VertexProcessing) String() string {
	switch v {
	case VertexProcessingSoftware:
		return "software"
	case VertexProcessingMixed:
		return "mixed"
	case VertexProcessingHardware:
		return "hardware"
	case VertexProcessingPureHardware:
		return "pure-hardware"
	}
	return fmt.Sprintf("VertexProcessing(%d)", int(v))
}

// ParseVertexProcessing is the inverse of VertexProcessing.String.
func ParseVertexProcessing(s string) (VertexProcessing, error) {
	for v := VertexProcessingSoftware; v <= VertexProcessingPureHardware; v++ {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrInvalidVertexProcessing, s)
}

/** @brief Flags passed to a driver when a device is created. */
type CreateFlags uint32

const (
	CreateSoftwareVertexProcessing CreateFlags = 0x20
	CreateHardwareVertexProcessing CreateFlags = 0x40
	CreateMixedVertexProcessing    CreateFlags = 0x80
	CreatePureDevice               CreateFlags = 0x10
)

/**
 * @brief Maps a vertex processing mode to device creation flags. A pure
 * hardware device is a hardware device with the pure flag set.
 */
func (v VertexProcessing) CreateFlags() (CreateFlags, error) {
	switch v {
	case VertexProcessingSoftware:
		return CreateSoftwareVertexProcessing, nil
	case VertexProcessingMixed:
		return CreateMixedVertexProcessing, nil
	case VertexProcessingHardware:
		return CreateHardwareVertexProcessing, nil
	case VertexProcessingPureHardware:
		return CreateHardwareVertexProcessing | CreatePureDevice, nil
	}
	return 0, fmt.Errorf("%w: %d", core.ErrInvalidVertexProcessing, int(v))
}

type DisplayMode struct {
	Width       int
	Height      int
	RefreshRate int
	Format      Format
}

/**
 * @brief Everything needed to pick and configure a device. Read only for
 * the creation code.
 */
type DeviceSettings struct {
	AdapterOrdinal     int
	DeviceType         DeviceType
	BackBufferFormat   Format
	DepthStencilFormat Format
	MultisampleType    MultisampleType
	MultisampleQuality int
	VertexProcessing   VertexProcessing
	DisplayMode        DisplayMode
	UsesDepthBuffer    bool
	Windowed           bool
	BackColor          Color32
}

// DefaultDeviceSettings is a windowed hardware device on the first adapter.
func DefaultDeviceSettings() DeviceSettings {
	return DeviceSettings{
		AdapterOrdinal:     0,
		DeviceType:         DeviceTypeHardware,
		BackBufferFormat:   FormatX8R8G8B8,
		DepthStencilFormat: FormatD16,
		MultisampleType:    MultisampleNone,
		VertexProcessing:   VertexProcessingHardware,
		DisplayMode:        DisplayMode{Width: 1024, Height: 768, RefreshRate: 60, Format: FormatX8R8G8B8},
		UsesDepthBuffer:    true,
		Windowed:           true,
		BackColor:          ColorBlack,
	}
}

type PresentInterval int

const (
	PresentIntervalDefault PresentInterval = iota
	PresentIntervalOne
	PresentIntervalImmediate
)

type SwapEffect int

const (
	SwapEffectDiscard SwapEffect = iota + 1
	SwapEffectFlip
	SwapEffectCopy
)

type PresentFlags uint32

const (
	PresentFlagNone               PresentFlags = 0
	PresentFlagLockableBackBuffer PresentFlags = 0x1
)

/** @brief The presentation configuration a device is created with. */
type PresentParameters struct {
	Windowed               bool
	BackBufferWidth        int
	BackBufferHeight       int
	BackBufferFormat       Format
	BackBufferCount        int
	MultisampleType        MultisampleType
	MultisampleQuality     int
	SwapEffect             SwapEffect
	EnableAutoDepthStencil bool
	AutoDepthStencilFormat Format
	Flags                  PresentFlags
	PresentInterval        PresentInterval
}

/** @brief What a created device reports about itself. */
type Caps struct {
	DeviceType       DeviceType
	AdapterOrdinal   int
	AdapterName      string
	MaxTextureWidth  int
	MaxTextureHeight int
	VideoMemory      int64
}

type Viewport struct {
	X      int
	Y      int
	Width  int
	Height int
	MinZ   float32
	MaxZ   float32
}

type ClearFlags uint32

const (
	ClearTarget  ClearFlags = 0x1
	ClearZBuffer ClearFlags = 0x2
	ClearStencil ClearFlags = 0x4
)

/** @brief Result of probing a device that failed to present. */
type DeviceStatus int

const (
	DeviceStatusOK DeviceStatus = iota
	// DeviceStatusLost means the device cannot be used or reset yet.
	DeviceStatusLost
	// DeviceStatusNotReset means the device can be recreated now.
	DeviceStatusNotReset
	// DeviceStatusRemoved means the device is gone for good and must be recreated.
	DeviceStatusRemoved
)

func (s DeviceStatus) String() string {
	switch s {
	case DeviceStatusOK:
		return "ok"
	case DeviceStatusLost:
		return "lost"
	case DeviceStatusNotReset:
		return "not-reset"
	case DeviceStatusRemoved:
		return "removed"
	}
	return fmt.Sprintf("DeviceStatus(%d)", int(s))
}
