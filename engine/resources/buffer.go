package resources

import (
	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

type createBufferFunc func(device renderer.Device, desc metadata.BufferDesc) (renderer.Buffer, error)

/**
 * @brief Lifecycle shared by vertex and index buffers. Exactly one of
 * buffer and shadow is set until the handle is disposed.
 */
type gpuBuffer struct {
	binding
	desc   metadata.BufferDesc
	create createBufferFunc
	buffer renderer.Buffer
	shadow []byte
}

func (g *gpuBuffer) init(session *renderer.Session, kind core.ResourceKind, desc metadata.BufferDesc, create createBufferFunc) error {
	device, err := deviceOf(session, kind, "create")
	if err != nil {
		return err
	}
	buf, err := create(device, desc)
	if err != nil {
		return allocationError(kind, "create", err)
	}
	g.desc = desc
	g.create = create
	g.buffer = buf
	g.bind(session, kind, g.evacuate, g.restore)
	return nil
}

// Desc returns the parameters the buffer is (re)created with.
func (g *gpuBuffer) Desc() metadata.BufferDesc { return g.desc }

// Size is the length of the buffer in bytes.
func (g *gpuBuffer) Size() int { return g.desc.Size }

// Buffer is the device object, nil while evacuated or disposed.
func (g *gpuBuffer) Buffer() renderer.Buffer { return g.buffer }

// Live reports whether a device object currently backs the handle.
func (g *gpuBuffer) Live() bool { return g.buffer != nil }

// Evacuated reports whether the contents are held in host memory.
func (g *gpuBuffer) Evacuated() bool { return g.shadow != nil }

// SetData writes data at the start of the buffer.
func (g *gpuBuffer) SetData(data []byte) error {
	if err := g.usable(g.buffer != nil); err != nil {
		return err
	}
	return g.buffer.Write(data)
}

// Data reads the whole buffer.
func (g *gpuBuffer) Data() ([]byte, error) {
	if err := g.usable(g.buffer != nil); err != nil {
		return nil, err
	}
	return g.buffer.Read()
}

func (g *gpuBuffer) evacuate() error {
	if g.disposed || g.buffer == nil {
		return nil
	}
	data, err := g.buffer.Read()
	if err != nil {
		data = make([]byte, g.desc.Size)
		err = evacuationError(g.kind, err)
	}
	g.shadow = data
	g.buffer.Release()
	g.buffer = nil
	return err
}

func (g *gpuBuffer) restore() error {
	if g.disposed || g.buffer != nil {
		return nil
	}
	device, err := deviceOf(g.session, g.kind, "restore")
	if err != nil {
		return err
	}
	buf, err := g.create(device, g.desc)
	if err != nil {
		return allocationError(g.kind, "restore", err)
	}
	if err := buf.Write(g.shadow); err != nil {
		buf.Release()
		return allocationError(g.kind, "restore", err)
	}
	g.buffer = buf
	g.shadow = nil
	return nil
}

// Dispose releases the buffer. Calling it again does nothing.
func (g *gpuBuffer) Dispose() {
	if !g.unbind() {
		return
	}
	if g.buffer != nil {
		g.buffer.Release()
		g.buffer = nil
	}
	g.shadow = nil
}
