package metadata

import "fmt"

/** @brief Pixel, depth and index formats understood by the drivers. */
type Format int

const (
	FormatUnknown Format = iota
	FormatA8R8G8B8
	FormatX8R8G8B8
	FormatA8B8G8R8
	FormatX8B8G8R8
	FormatG8R8G8B8
	FormatR5G6B5
	FormatX1R5G5B5
	FormatA1R5G5B5
	FormatA4R4G4B4
	FormatA8R3G3B2
	FormatA8
	FormatL8
	FormatP8
	FormatD16
	FormatD24S8
	FormatD32
	FormatIndex16
	FormatIndex32
)

var formatNames = map[Format]string{
	FormatUnknown:  "Unknown",
	FormatA8R8G8B8: "A8R8G8B8",
	FormatX8R8G8B8: "X8R8G8B8",
	FormatA8B8G8R8: "A8B8G8R8",
	FormatX8B8G8R8: "X8B8G8R8",
	FormatG8R8G8B8: "G8R8G8B8",
	FormatR5G6B5:   "R5G6B5",
	FormatX1R5G5B5: "X1R5G5B5",
	FormatA1R5G5B5: "A1R5G5B5",
	FormatA4R4G4B4: "A4R4G4B4",
	FormatA8R3G3B2: "A8R3G3B2",
	FormatA8:       "A8",
	FormatL8:       "L8",
	FormatP8:       "P8",
	FormatD16:      "D16",
	FormatD24S8:    "D24S8",
	FormatD32:      "D32",
	FormatIndex16:  "Index16",
	FormatIndex32:  "Index32",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

/**
 * @brief Size of one pixel in bits. Formats without a known size report 32.
 */
func (f Format) BitsPerPixel() int {
	switch f {
	case FormatA8, FormatL8, FormatP8:
		return 8
	case FormatA8R3G3B2, FormatA4R4G4B4, FormatA1R5G5B5, FormatX1R5G5B5, FormatR5G6B5, FormatD16, FormatIndex16:
		return 16
	case FormatG8R8G8B8, FormatA8R8G8B8, FormatX8R8G8B8, FormatA8B8G8R8, FormatX8B8G8R8:
		return 32
	default:
		return 32
	}
}

// LevelSize is the byte size of a w×h surface in this format.
func (f Format) LevelSize(width, height int) int {
	return f.BitsPerPixel() * width * height / 8
}

func (f Format) IsDepth() bool {
	return f == FormatD16 || f == FormatD24S8 || f == FormatD32
}

/** @brief Usage hints given when a GPU object is created. */
type Usage uint32

const (
	UsageNone         Usage = 0
	UsageWriteOnly    Usage = 0x1
	UsageDynamic      Usage = 0x2
	UsageRenderTarget Usage = 0x4
	UsageAutoGenMips  Usage = 0x8
)

/**
 * @brief Memory placement of a GPU object.
 */
type Pool int

const (
	// PoolDefault lives in video memory and is lost with the device.
	PoolDefault Pool = iota
	// PoolManaged is backed by a driver copy in system memory.
	PoolManaged
	PoolSystemMemory
	PoolScratch
)

func (p Pool) String() string {
	switch p {
	case PoolDefault:
		return "Default"
	case PoolManaged:
		return "Managed"
	case PoolSystemMemory:
		return "SystemMemory"
	case PoolScratch:
		return "Scratch"
	}
	return fmt.Sprintf("Pool(%d)", int(p))
}

type MultisampleType int

const (
	MultisampleNone MultisampleType = iota
	MultisampleNonMaskable
	Multisample2Samples
	Multisample4Samples
	Multisample8Samples
)
