package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

/**
 * @brief Creates devices. One implementation per graphics API.
 */
type Driver interface {
	Name() string
	/**
	 * @brief Creates a device. Drivers return an error wrapping
	 * core.ErrOutOfVideoMemory when the failure is caused by a lack of memory.
	 */
	CreateDevice(settings metadata.DeviceSettings, flags metadata.CreateFlags, params metadata.PresentParameters) (Device, error)
}

/**
 * @brief A graphics device. Every object created by a device becomes
 * unusable once the device is closed.
 */
type Device interface {
	Caps() metadata.Caps
	PresentParameters() metadata.PresentParameters
	Viewport() metadata.Viewport

	CreateVertexBuffer(desc metadata.BufferDesc) (Buffer, error)
	CreateIndexBuffer(desc metadata.BufferDesc) (Buffer, error)
	CreateTexture(desc metadata.TextureDesc) (Texture, error)
	CreateMesh(desc metadata.MeshDesc) (Mesh, error)

	Clear(flags metadata.ClearFlags, color metadata.Color32, z float32, stencil uint32) error
	BeginScene() error
	EndScene() error
	// Present fails when the device was lost while drawing.
	Present() error
	TestCooperativeLevel() metadata.DeviceStatus
	Close() error
}

/** @brief A linear GPU allocation. */
type Buffer interface {
	// Size is the length in bytes.
	Size() int
	// Read copies the whole buffer into host memory.
	Read() ([]byte, error)
	// Write copies data at the start of the buffer.
	Write(data []byte) error
	Release()
}

type Texture interface {
	Desc() metadata.TextureDesc
	LevelCount() int
	LevelDesc(level int) metadata.LevelDesc
	ReadLevel(level int) ([]byte, error)
	WriteLevel(level int, data []byte) error
	Release()
}

/**
 * @brief Indexed triangle geometry. Faces reference three indices each and
 * carry one attribute (subset id) per face.
 */
type Mesh interface {
	Desc() metadata.MeshDesc
	IndexBuffer() Buffer
	VertexBuffer() Buffer
	Attributes() ([]uint32, error)
	SetAttributes(attributes []uint32) error
	Release()
}

var errWriteOverflow = errors.New("write exceeds buffer size")

// CheckWrite validates a write of n bytes into a buffer of size bytes.
func CheckWrite(n, size int) error {
	if n > size {
		return fmt.Errorf("%w: %d > %d", errWriteOverflow, n, size)
	}
	return nil
}

type composedMesh struct {
	desc       metadata.MeshDesc
	indices    Buffer
	vertices   Buffer
	attributes []uint32
}

/**
 * @brief Builds a mesh out of one index buffer, one vertex buffer and a host
 * side attribute table. Drivers without a native mesh object use this.
 */
func ComposeMesh(device Device, desc metadata.MeshDesc) (Mesh, error) {
	pool := desc.Options.Pool()
	var usage metadata.Usage
	if desc.Options&metadata.MeshOptionsWriteOnly == metadata.MeshOptionsWriteOnly {
		usage |= metadata.UsageWriteOnly
	}
	if desc.Options&metadata.MeshOptionsDynamic != 0 {
		usage |= metadata.UsageDynamic
	}
	indexFormat := desc.Options.IndexFormat()
	ib, err := device.CreateIndexBuffer(metadata.BufferDesc{
		Size:        desc.FaceCount * 3 * indexFormat.BitsPerPixel() / 8,
		Usage:       usage,
		Pool:        pool,
		IndexFormat: indexFormat,
	})
	if err != nil {
		return nil, err
	}
	vb, err := device.CreateVertexBuffer(metadata.BufferDesc{
		Size:         desc.VertexCount * desc.VertexFormat.Stride(),
		Usage:        usage,
		Pool:         pool,
		VertexFormat: desc.VertexFormat,
	})
	if err != nil {
		ib.Release()
		return nil, err
	}
	return &composedMesh{
		desc:       desc,
		indices:    ib,
		vertices:   vb,
		attributes: make([]uint32, desc.FaceCount),
	}, nil
}

func (m *composedMesh) Desc() metadata.MeshDesc { return m.desc }
func (m *composedMesh) IndexBuffer() Buffer     { return m.indices }
func (m *composedMesh) VertexBuffer() Buffer    { return m.vertices }

func (m *composedMesh) Attributes() ([]uint32, error) {
	out := make([]uint32, len(m.attributes))
	copy(out, m.attributes)
	return out, nil
}

func (m *composedMesh) SetAttributes(attributes []uint32) error {
	if err := CheckWrite(len(attributes), len(m.attributes)); err != nil {
		return err
	}
	copy(m.attributes, attributes)
	return nil
}

func (m *composedMesh) Release() {
	m.indices.Release()
	m.vertices.Release()
	m.attributes = nil
}
