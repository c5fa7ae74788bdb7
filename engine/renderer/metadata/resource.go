package metadata

/**
 * @brief Creation parameters of a vertex or index buffer. They are kept by
 * the owning handle so an equivalent buffer can be recreated after a device
 * loss.
 */
type BufferDesc struct {
	/** @brief Length of the buffer in bytes. */
	Size int
	Usage Usage
	Pool  Pool
	/** @brief Layout of one vertex. Zero for index buffers. */
	VertexFormat VertexFormat
	/** @brief FormatIndex16 or FormatIndex32. Unknown for vertex buffers. */
	IndexFormat Format
}

/** @brief Options used when creating or cloning a mesh. */
type MeshOptions uint32

const (
	MeshOptionsNone         MeshOptions = 0
	MeshOptionsUse32Bit     MeshOptions = 0x001
	MeshOptionsDynamic      MeshOptions = 0x080
	MeshOptionsWriteOnly    MeshOptions = 0x100
	MeshOptionsSystemMemory MeshOptions = 0x110
	MeshOptionsManaged      MeshOptions = 0x220
)

// Pool is the memory placement implied by the options.
func (o MeshOptions) Pool() Pool {
	switch {
	case o&MeshOptionsManaged == MeshOptionsManaged:
		return PoolManaged
	case o&MeshOptionsSystemMemory == MeshOptionsSystemMemory:
		return PoolSystemMemory
	}
	return PoolDefault
}

func (o MeshOptions) IndexFormat() Format {
	if o&MeshOptionsUse32Bit != 0 {
		return FormatIndex32
	}
	return FormatIndex16
}

type MeshDesc struct {
	FaceCount    int
	VertexCount  int
	Options      MeshOptions
	VertexFormat VertexFormat
}

/** @brief Per subset surface description of a mesh. */
type Material struct {
	Diffuse         Color32
	Ambient         Color32
	Specular        Color32
	Emissive        Color32
	SpecularPower   float32
	TextureFilename string
}

type ResourceType int

/** @brief Resource types known to the asset loaders. */
const (
	ResourceTypeText ResourceType = iota
	ResourceTypeBinary
	ResourceTypeImage
	ResourceTypeCustom
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeText:
		return "text"
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeImage:
		return "image"
	}
	return "custom"
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The identifier of the loader which handles this resource. */
	LoaderID uint32
	Name     string
	FullPath string
	DataSize uint64
	Data     interface{}
}
