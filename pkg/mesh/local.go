package mesh

import "fmt"

// VertexInstance is the per-corner attribute record of a LocalMesh. Several
// instances may share one deduplicated vertex position while carrying
// different normals, tangents, colors or UVs.
type VertexInstance struct {
	Vertex  uint32 `json:"vertex"` // local vertex ID
	Normal  Vec3   `json:"normal"`
	Tangent Vec3   `json:"tangent"`
	Color   Color  `json:"color"`
	UVs     []Vec2 `json:"uvs"` // one coordinate per UV channel
}

// PolygonGroup is a contiguous run of triangles sharing one material slot.
type PolygonGroup struct {
	Name          string `json:"name"`
	FirstTriangle int    `json:"firstTriangle"`
	TriangleCount int    `json:"triangleCount"`
}

// LocalMesh is a compact, self-contained mesh rebuilt from one component (or
// produced by a merge). Vertices holds each referenced source vertex once,
// with its attributes, and Vertices.Indices is the triangle list in local
// numbering. Instances has one entry per corner: Instances[k] belongs to the
// corner Vertices.Indices[k].
type LocalMesh struct {
	Name           string           `json:"name"`
	Vertices       Buffers          `json:"vertices"`
	SourceVertices []uint32         `json:"sourceVertices,omitempty"` // local vertex -> source vertex ID
	Instances      []VertexInstance `json:"instances"`
	Groups         []PolygonGroup   `json:"groups"`
}

// VertexCount returns the number of deduplicated vertices.
func (m *LocalMesh) VertexCount() int {
	return m.Vertices.VertexCount()
}

// TriangleCount returns the number of triangles.
func (m *LocalMesh) TriangleCount() int {
	return m.Vertices.TriangleCount()
}

// NumUVChannels returns the number of UV channels carried by the mesh.
func (m *LocalMesh) NumUVChannels() int {
	return m.Vertices.NumUVChannels()
}

// IsEmpty returns true if the mesh has no triangles.
func (m *LocalMesh) IsEmpty() bool {
	return m.Vertices.IsEmpty()
}

// Bounds returns the axis-aligned bounding box of the mesh.
func (m *LocalMesh) Bounds() (min, max Vec3) {
	return m.Vertices.Bounds()
}

// Validate checks index validity and that the instance list matches the
// corner list.
func (m *LocalMesh) Validate() error {
	if err := m.Vertices.Validate(); err != nil {
		return err
	}
	if len(m.Instances) != len(m.Vertices.Indices) {
		return fmt.Errorf("instance count %d does not match corner count %d", len(m.Instances), len(m.Vertices.Indices))
	}
	for k, inst := range m.Instances {
		if inst.Vertex != m.Vertices.Indices[k] {
			return fmt.Errorf("instance %d references vertex %d, corner references %d", k, inst.Vertex, m.Vertices.Indices[k])
		}
	}
	return nil
}

// Translate moves every position by d.
func (m *LocalMesh) Translate(d Vec3) {
	dv := d.V3()
	for i, p := range m.Vertices.Positions {
		m.Vertices.Positions[i] = FromV3(p.V3().Add(dv))
	}
}

// renderKey groups render vertices that share a position and every corner
// attribute except UVs. UVs are compared against the candidates directly.
type renderKey struct {
	vertex  uint32
	normal  Vec3
	tangent Vec3
	color   Color
}

// RenderBuffers flattens the mesh into a GPU-style indexed buffer set where
// each render vertex carries a single set of attributes. Corners that share a
// vertex and have identical instance attributes share one render vertex.
func (m *LocalMesh) RenderBuffers() *Buffers {
	channels := m.NumUVChannels()
	out := &Buffers{
		Indices: make([]uint32, 0, len(m.Instances)),
		UVs:     make([][]Vec2, channels),
	}
	seen := make(map[renderKey][]uint32, len(m.Instances))

	for _, inst := range m.Instances {
		key := renderKey{
			vertex:  inst.Vertex,
			normal:  inst.Normal,
			tangent: inst.Tangent,
			color:   inst.Color,
		}
		id, ok := matchUVs(out, seen[key], inst.UVs)
		if !ok {
			id = uint32(len(out.Positions))
			seen[key] = append(seen[key], id)
			out.Positions = append(out.Positions, m.Vertices.Positions[inst.Vertex])
			out.Normals = append(out.Normals, inst.Normal)
			out.Tangents = append(out.Tangents, inst.Tangent)
			out.Colors = append(out.Colors, inst.Color)
			for c := 0; c < channels; c++ {
				out.UVs[c] = append(out.UVs[c], uvOrZero(inst.UVs, c))
			}
		}
		out.Indices = append(out.Indices, id)
	}
	return out
}

// matchUVs returns the first candidate render vertex whose UVs equal uvs.
func matchUVs(out *Buffers, candidates []uint32, uvs []Vec2) (uint32, bool) {
next:
	for _, id := range candidates {
		for c := range out.UVs {
			if out.UVs[c][id] != uvOrZero(uvs, c) {
				continue next
			}
		}
		return id, true
	}
	return 0, false
}

func uvOrZero(uvs []Vec2, c int) Vec2 {
	if c < len(uvs) {
		return uvs[c]
	}
	return Vec2{}
}
