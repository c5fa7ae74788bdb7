package metadata

import "strings"

/**
 * @brief Bit set describing the components of a vertex, in memory order:
 * position, normal, diffuse color, one set of texture coordinates.
 */
type VertexFormat uint32

const (
	VertexFormatNone     VertexFormat = 0
	VertexFormatPosition VertexFormat = 0x002
	VertexFormatNormal   VertexFormat = 0x010
	VertexFormatDiffuse  VertexFormat = 0x040
	VertexFormatTexture1 VertexFormat = 0x100

	VertexFormatPositionColored        = VertexFormatPosition | VertexFormatDiffuse
	VertexFormatPositionTextured       = VertexFormatPosition | VertexFormatTexture1
	VertexFormatPositionNormalTextured = VertexFormatPosition | VertexFormatNormal | VertexFormatTexture1
)

type vertexElement struct {
	flag VertexFormat
	size int
	name string
}

var vertexElements = []vertexElement{
	{VertexFormatPosition, 12, "position"},
	{VertexFormatNormal, 12, "normal"},
	{VertexFormatDiffuse, 4, "diffuse"},
	{VertexFormatTexture1, 8, "tex1"},
}

// Stride is the size in bytes of one vertex.
func (f VertexFormat) Stride() int {
	stride := 0
	for _, e := range vertexElements {
		if f&e.flag != 0 {
			stride += e.size
		}
	}
	return stride
}

func (f VertexFormat) Has(component VertexFormat) bool {
	return f&component == component
}

// Offset returns the byte offset of a component, or -1 when absent.
func (f VertexFormat) Offset(component VertexFormat) int {
	offset := 0
	for _, e := range vertexElements {
		if f&e.flag == 0 {
			continue
		}
		if e.flag == component {
			return offset
		}
		offset += e.size
	}
	return -1
}

func (f VertexFormat) String() string {
	if f == VertexFormatNone {
		return "none"
	}
	parts := make([]string, 0, len(vertexElements))
	for _, e := range vertexElements {
		if f&e.flag != 0 {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, "|")
}

/**
 * @brief Re-encodes count vertices from one layout to another. Components
 * present in both layouts are copied, components only present in the
 * destination are zeroed.
 */
func ConvertVertices(src []byte, from, to VertexFormat, count int) []byte {
	fromStride, toStride := from.Stride(), to.Stride()
	dst := make([]byte, toStride*count)
	if from == to {
		copy(dst, src)
		return dst
	}
	for i := 0; i < count; i++ {
		sv := src[i*fromStride : (i+1)*fromStride]
		dv := dst[i*toStride : (i+1)*toStride]
		for _, e := range vertexElements {
			so, do := from.Offset(e.flag), to.Offset(e.flag)
			if so < 0 || do < 0 {
				continue
			}
			copy(dv[do:do+e.size], sv[so:so+e.size])
		}
	}
	return dst
}

/** @brief Vertex with a position and a packed diffuse color. */
type PositionColored struct {
	X, Y, Z float32
	Color   Color32
}

/** @brief Vertex with a position and one set of texture coordinates. */
type PositionTextured struct {
	X, Y, Z float32
	U, V    float32
}

type PositionNormalTextured struct {
	X, Y, Z    float32
	NX, NY, NZ float32
	U, V       float32
}
