package resources

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

/**
 * @brief An index buffer that survives device loss.
 */
type IndexBuffer struct {
	gpuBuffer
	count int
	// Tag is not used by the engine.
	Tag any
}

// NewIndexBuffer creates room for count indices of format FormatIndex16 or FormatIndex32.
func NewIndexBuffer(session *renderer.Session, format metadata.Format, count int, usage metadata.Usage, pool metadata.Pool) (*IndexBuffer, error) {
	if format != metadata.FormatIndex16 && format != metadata.FormatIndex32 {
		return nil, allocationError(core.ResourceKindIndexBuffer, "create", fmt.Errorf("%s is not an index format", format))
	}
	if count < 0 {
		return nil, allocationError(core.ResourceKindIndexBuffer, "create", fmt.Errorf("negative index count %d", count))
	}
	ib := &IndexBuffer{count: count}
	desc := metadata.BufferDesc{
		Size:        count * format.BitsPerPixel() / 8,
		Usage:       usage,
		Pool:        pool,
		IndexFormat: format,
	}
	if err := ib.init(session, core.ResourceKindIndexBuffer, desc, createIndexBuffer); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return ib, nil
}

func createIndexBuffer(device renderer.Device, desc metadata.BufferDesc) (renderer.Buffer, error) {
	return device.CreateIndexBuffer(desc)
}

func (b *IndexBuffer) Count() int { return b.count }

func (b *IndexBuffer) Format() metadata.Format { return b.desc.IndexFormat }

// SetIndices writes 16 bit indices at the start of the buffer.
func (b *IndexBuffer) SetIndices(indices []uint16) error {
	if b.desc.IndexFormat != metadata.FormatIndex16 {
		return &core.UnsupportedFormatError{Op: "SetIndices", Have: b.desc.IndexFormat.String(), Want: metadata.FormatIndex16.String()}
	}
	data := make([]byte, 2*len(indices))
	for i, idx := range indices {
		binary.LittleEndian.PutUint16(data[2*i:], idx)
	}
	return b.SetData(data)
}

// Indices reads the whole buffer as 16 bit indices.
func (b *IndexBuffer) Indices() ([]uint16, error) {
	if b.desc.IndexFormat != metadata.FormatIndex16 {
		return nil, &core.UnsupportedFormatError{Op: "Indices", Have: b.desc.IndexFormat.String(), Want: metadata.FormatIndex16.String()}
	}
	data, err := b.Data()
	if err != nil {
		return nil, err
	}
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return out, nil
}
