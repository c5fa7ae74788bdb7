package resources

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

/**
 * @brief A vertex buffer that survives device loss. Its contents are copied
 * to host memory when the session loses the device and uploaded again once
 * a new device exists.
 */
type VertexBuffer struct {
	gpuBuffer
	count int
	// Tag is not used by the engine.
	Tag any
}

/**
 * @brief Creates a buffer of count vertices. A buffer of zero vertices still
 * allocates room for one.
 */
func NewVertexBuffer(session *renderer.Session, format metadata.VertexFormat, count int, usage metadata.Usage, pool metadata.Pool) (*VertexBuffer, error) {
	if format.Stride() == 0 {
		return nil, allocationError(core.ResourceKindVertexBuffer, "create", fmt.Errorf("vertex format %s has no components", format))
	}
	if count < 0 {
		return nil, allocationError(core.ResourceKindVertexBuffer, "create", fmt.Errorf("negative vertex count %d", count))
	}
	vb := &VertexBuffer{count: count}
	desc := metadata.BufferDesc{
		Size:         max(count, 1) * format.Stride(),
		Usage:        usage,
		Pool:         pool,
		VertexFormat: format,
	}
	if err := vb.init(session, core.ResourceKindVertexBuffer, desc, createVertexBuffer); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return vb, nil
}

func createVertexBuffer(device renderer.Device, desc metadata.BufferDesc) (renderer.Buffer, error) {
	return device.CreateVertexBuffer(desc)
}

// Count is the number of vertices requested at creation.
func (v *VertexBuffer) Count() int { return v.count }

func (v *VertexBuffer) Format() metadata.VertexFormat { return v.desc.VertexFormat }

/**
 * @brief Writes a slice of fixed size vertex structs, little endian, such as
 * []metadata.PositionColored.
 */
func (v *VertexBuffer) SetVertices(vertices any) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, vertices); err != nil {
		return fmt.Errorf("set vertices: %w", err)
	}
	return v.SetData(buf.Bytes())
}

/**
 * @brief Decodes the start of the buffer into out, a pointer to a slice of
 * fixed size vertex structs with its length already set.
 */
func (v *VertexBuffer) Vertices(out any) error {
	data, err := v.Data()
	if err != nil {
		return err
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, out); err != nil {
		return fmt.Errorf("vertices: %w", err)
	}
	return nil
}
