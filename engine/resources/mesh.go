package resources

import (
	"encoding/binary"
	"errors"
	"fmt"
	gomath "math"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/math"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

type meshShadow struct {
	indices    []byte
	vertices   []byte
	attributes []uint32
}

/**
 * @brief Indexed geometry with one material and one optional texture per
 * subset. Index, vertex and attribute data survive device loss; the
 * textures are handles of their own.
 */
type Mesh struct {
	binding
	desc   metadata.MeshDesc
	mesh   renderer.Mesh
	shadow *meshShadow

	materials []metadata.Material
	textures  []*Texture

	// OwnsTextures makes Dispose dispose the textures too.
	OwnsTextures bool
	// Tag is not used by the engine.
	Tag any

	vertexCache []math.Vec3

	boxValid       bool
	box            math.Extents3D
	sphereValid    bool
	sphere         math.Sphere
	sphereMinValid bool
	sphereMin      math.Sphere
}

func NewMesh(session *renderer.Session, desc metadata.MeshDesc) (*Mesh, error) {
	device, err := deviceOf(session, core.ResourceKindMesh, "create")
	if err != nil {
		return nil, err
	}
	dm, err := device.CreateMesh(desc)
	if err != nil {
		err = allocationError(core.ResourceKindMesh, "create", err)
		core.LogError(err.Error())
		return nil, err
	}
	m := &Mesh{
		desc:      dm.Desc(),
		mesh:      dm,
		materials: []metadata.Material{},
		textures:  []*Texture{},
	}
	m.bind(session, core.ResourceKindMesh, m.evacuate, m.restore)
	return m, nil
}

func (m *Mesh) Desc() metadata.MeshDesc { return m.desc }

// DeviceMesh is nil while the device is lost.
func (m *Mesh) DeviceMesh() renderer.Mesh { return m.mesh }

func (m *Mesh) Live() bool      { return m.mesh != nil }
func (m *Mesh) Evacuated() bool { return m.shadow != nil }

func (m *Mesh) invalidate() {
	m.vertexCache = nil
	m.boxValid = false
	m.sphereValid = false
	m.sphereMinValid = false
}

/**
 * @brief Replaces the geometry with a mesh created on the session's device
 * and drops the cached bounds. The previous device mesh is released.
 */
func (m *Mesh) ReplaceMesh(mesh renderer.Mesh) error {
	if err := m.usable(m.mesh != nil); err != nil {
		return err
	}
	if mesh == nil {
		return fmt.Errorf("replace mesh: nil mesh")
	}
	if mesh != m.mesh {
		m.mesh.Release()
	}
	m.mesh = mesh
	m.desc = mesh.Desc()
	m.invalidate()
	return nil
}

/**
 * @brief ReplaceMesh for callers that already know the bounds. The sphere
 * given is used both as bounding sphere and as minimum sphere.
 */
func (m *Mesh) SetMesh(mesh renderer.Mesh, center math.Vec3, radius float32, min, max math.Vec3) error {
	if err := m.ReplaceMesh(mesh); err != nil {
		return err
	}
	m.sphere = math.Sphere{Center: center, Radius: radius}
	m.sphereValid = true
	m.sphereMin = m.sphere
	m.sphereMinValid = true
	m.box = math.Extents3D{Min: min, Max: max}
	m.boxValid = true
	return nil
}

func (m *Mesh) Materials() []metadata.Material { return m.materials }
func (m *Mesh) Textures() []*Texture           { return m.textures }

// SubsetCount is the number of material slots.
func (m *Mesh) SubsetCount() int { return len(m.materials) }

/**
 * @brief Sets one material and one texture per subset. A nil textures
 * slice means no subset is textured; otherwise both slices must have the
 * same length. Entries of textures may be nil.
 */
func (m *Mesh) SetSubsets(materials []metadata.Material, textures []*Texture) error {
	if textures != nil && len(textures) != len(materials) {
		return fmt.Errorf("set subsets: %d materials but %d textures", len(materials), len(textures))
	}
	if materials == nil {
		materials = []metadata.Material{}
	}
	if textures == nil {
		textures = make([]*Texture, len(materials))
	}
	m.materials = materials
	m.textures = textures
	return nil
}

func (m *Mesh) SetIndexData(data []byte) error {
	if err := m.usable(m.mesh != nil); err != nil {
		return err
	}
	return m.mesh.IndexBuffer().Write(data)
}

func (m *Mesh) IndexData() ([]byte, error) {
	if err := m.usable(m.mesh != nil); err != nil {
		return nil, err
	}
	return m.mesh.IndexBuffer().Read()
}

// SetVertexData writes vertices and drops the cached bounds.
func (m *Mesh) SetVertexData(data []byte) error {
	if err := m.usable(m.mesh != nil); err != nil {
		return err
	}
	if err := m.mesh.VertexBuffer().Write(data); err != nil {
		return err
	}
	m.invalidate()
	return nil
}

func (m *Mesh) VertexData() ([]byte, error) {
	if err := m.usable(m.mesh != nil); err != nil {
		return nil, err
	}
	return m.mesh.VertexBuffer().Read()
}

func (m *Mesh) SetAttributes(attributes []uint32) error {
	if err := m.usable(m.mesh != nil); err != nil {
		return err
	}
	return m.mesh.SetAttributes(attributes)
}

func (m *Mesh) Attributes() ([]uint32, error) {
	if err := m.usable(m.mesh != nil); err != nil {
		return nil, err
	}
	return m.mesh.Attributes()
}

/**
 * @brief The positions of every vertex. The slice is cached and shared;
 * callers must not modify it. Empty while the device is lost.
 */
func (m *Mesh) Vertices() []math.Vec3 {
	if m.vertexCache != nil {
		return m.vertexCache
	}
	if m.mesh == nil {
		return []math.Vec3{}
	}
	data, err := m.mesh.VertexBuffer().Read()
	if err != nil {
		core.LogWarn("reading mesh vertices: %v", err)
		return []math.Vec3{}
	}
	m.vertexCache = positions(data, m.desc.VertexFormat, m.desc.VertexCount)
	return m.vertexCache
}

func positions(data []byte, format metadata.VertexFormat, count int) []math.Vec3 {
	stride := format.Stride()
	offset := format.Offset(metadata.VertexFormatPosition)
	if offset < 0 || stride == 0 {
		return []math.Vec3{}
	}
	count = min(count, len(data)/stride)
	out := make([]math.Vec3, count)
	for i := range out {
		p := data[i*stride+offset:]
		out[i] = math.NewVec3(
			gomath.Float32frombits(binary.LittleEndian.Uint32(p[0:])),
			gomath.Float32frombits(binary.LittleEndian.Uint32(p[4:])),
			gomath.Float32frombits(binary.LittleEndian.Uint32(p[8:])))
	}
	return out
}

func (m *Mesh) boundsUsable() error {
	if m.disposed {
		return core.ErrResourceDisposed
	}
	if m.mesh == nil {
		return core.ErrResourceEvacuated
	}
	return nil
}

// BoundingBox of the vertex positions, cached until the geometry changes.
func (m *Mesh) BoundingBox() (math.Extents3D, error) {
	if !m.boxValid {
		if err := m.boundsUsable(); err != nil {
			return math.Extents3D{}, err
		}
		m.box = math.ComputeBoundingBox(m.Vertices())
		m.boxValid = true
	}
	return m.box, nil
}

// BoundingSphere of the vertex positions, cached until the geometry changes.
func (m *Mesh) BoundingSphere() (math.Sphere, error) {
	if !m.sphereValid {
		if err := m.boundsUsable(); err != nil {
			return math.Sphere{}, err
		}
		m.sphere = math.ComputeBoundingSphere(m.Vertices())
		m.sphereValid = true
	}
	return m.sphere, nil
}

/**
 * @brief The smaller of the bounding sphere and the sphere around the
 * bounding box. The box sphere wins a tie.
 */
func (m *Mesh) BoundingSphereMin() (math.Sphere, error) {
	if m.sphereMinValid {
		return m.sphereMin, nil
	}
	sphere, err := m.BoundingSphere()
	if err != nil {
		return math.Sphere{}, err
	}
	box, err := m.BoundingBox()
	if err != nil {
		return math.Sphere{}, err
	}
	m.sphereMin = sphere
	if boxSphere := box.CircumscribedSphere(); boxSphere.Radius <= sphere.Radius {
		m.sphereMin = boxSphere
	}
	m.sphereMinValid = true
	return m.sphereMin, nil
}

func (m *Mesh) evacuate() error {
	if m.disposed || m.mesh == nil {
		return nil
	}
	var errs []error
	shadow := &meshShadow{}
	var err error
	if shadow.indices, err = m.mesh.IndexBuffer().Read(); err != nil {
		shadow.indices = make([]byte, m.mesh.IndexBuffer().Size())
		errs = append(errs, err)
	}
	if shadow.vertices, err = m.mesh.VertexBuffer().Read(); err != nil {
		shadow.vertices = make([]byte, m.mesh.VertexBuffer().Size())
		errs = append(errs, err)
	}
	if shadow.attributes, err = m.mesh.Attributes(); err != nil {
		shadow.attributes = make([]uint32, m.desc.FaceCount)
		errs = append(errs, err)
	}
	m.shadow = shadow
	m.mesh.Release()
	m.mesh = nil
	m.vertexCache = nil
	if len(errs) > 0 {
		return evacuationError(m.kind, errors.Join(errs...))
	}
	return nil
}

func (m *Mesh) restore() error {
	if m.disposed || m.mesh != nil {
		return nil
	}
	device, err := deviceOf(m.session, m.kind, "restore")
	if err != nil {
		return err
	}
	dm, err := device.CreateMesh(m.desc)
	if err != nil {
		return allocationError(m.kind, "restore", err)
	}
	err = errors.Join(
		dm.IndexBuffer().Write(m.shadow.indices),
		dm.VertexBuffer().Write(m.shadow.vertices),
		dm.SetAttributes(m.shadow.attributes))
	if err != nil {
		dm.Release()
		return allocationError(m.kind, "restore", err)
	}
	m.mesh = dm
	m.shadow = nil
	return nil
}

/**
 * @brief Releases the geometry, and the textures when OwnsTextures is set.
 * Calling it again does nothing.
 */
func (m *Mesh) Dispose() {
	if !m.unbind() {
		return
	}
	if m.mesh != nil {
		m.mesh.Release()
		m.mesh = nil
	}
	m.shadow = nil
	m.invalidate()
	if m.OwnsTextures {
		for _, t := range m.textures {
			if t != nil {
				t.Dispose()
			}
		}
	}
	m.textures = []*Texture{}
	m.materials = []metadata.Material{}
}

/**
 * @brief Deep copies the mesh on the same session, converting the vertex
 * layout and the texture format. A texture used by several subsets is
 * cloned once and shared by the same subsets of the clone.
 */
func (m *Mesh) Clone(options metadata.MeshOptions, vertexFormat metadata.VertexFormat, textureFormat metadata.Format, usage metadata.Usage, pool metadata.Pool) (*Mesh, error) {
	if err := m.usable(m.mesh != nil); err != nil {
		return nil, err
	}
	indices, err := m.mesh.IndexBuffer().Read()
	if err != nil {
		return nil, err
	}
	vertices, err := m.mesh.VertexBuffer().Read()
	if err != nil {
		return nil, err
	}
	attributes, err := m.mesh.Attributes()
	if err != nil {
		return nil, err
	}

	clone, err := NewMesh(m.session, metadata.MeshDesc{
		FaceCount:    m.desc.FaceCount,
		VertexCount:  m.desc.VertexCount,
		Options:      options,
		VertexFormat: vertexFormat,
	})
	if err != nil {
		return nil, err
	}
	err = errors.Join(
		clone.SetIndexData(convertIndices(indices, m.desc.Options.IndexFormat(), options.IndexFormat())),
		clone.SetVertexData(metadata.ConvertVertices(vertices, m.desc.VertexFormat, vertexFormat, m.desc.VertexCount)),
		clone.SetAttributes(attributes))
	if err != nil {
		clone.Dispose()
		return nil, err
	}
	clone.Tag = m.Tag
	clone.OwnsTextures = m.OwnsTextures

	materials := make([]metadata.Material, len(m.materials))
	copy(materials, m.materials)
	textures := make([]*Texture, len(m.textures))
	cloned := make(map[*Texture]*Texture, len(m.textures))
	for i, t := range m.textures {
		if t == nil {
			continue
		}
		if c, ok := cloned[t]; ok {
			textures[i] = c
			continue
		}
		c, err := t.Clone(textureFormat, usage, pool)
		if err != nil {
			for _, done := range cloned {
				done.Dispose()
			}
			clone.Dispose()
			return nil, err
		}
		cloned[t] = c
		textures[i] = c
	}
	clone.materials = materials
	clone.textures = textures
	return clone, nil
}

func convertIndices(src []byte, from, to metadata.Format) []byte {
	if from == to {
		return src
	}
	if from == metadata.FormatIndex16 {
		out := make([]byte, len(src)*2)
		for i := 0; i+2 <= len(src); i += 2 {
			binary.LittleEndian.PutUint32(out[i*2:], uint32(binary.LittleEndian.Uint16(src[i:])))
		}
		return out
	}
	out := make([]byte, len(src)/2)
	for i := 0; i+4 <= len(src); i += 4 {
		binary.LittleEndian.PutUint16(out[i/2:], uint16(binary.LittleEndian.Uint32(src[i:])))
	}
	return out
}
