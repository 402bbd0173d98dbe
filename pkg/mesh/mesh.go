// Package mesh defines the triangle mesh buffers that flow through a split or
// merge: the source vertex/index buffers read from a host mesh, the connected
// components found in them, and the compact LocalMesh rebuilt per component.
package mesh

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec2 is a texture coordinate.
type Vec2 [2]float32

// Vec3 is a position, normal or tangent.
type Vec3 [3]float32

// V3 widens v to an sdfx vector for arithmetic.
func (v Vec3) V3() v3.Vec {
	return v3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

// FromV3 narrows an sdfx vector back to a Vec3.
func FromV3(v v3.Vec) Vec3 {
	return Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

// Color is an 8-bit RGBA vertex color.
type Color [4]uint8

// White is the color assigned to vertices of meshes that carry no color buffer.
var White = Color{255, 255, 255, 255}

// Buffers is a vertex buffer plus an index buffer in structure-of-arrays form.
// Vertex i owns Positions[i], Normals[i], Tangents[i], Colors[i] and UVs[c][i]
// for every channel c. Indices holds 3 vertex IDs per triangle.
type Buffers struct {
	Positions []Vec3   `json:"positions"`
	Normals   []Vec3   `json:"normals"`
	Tangents  []Vec3   `json:"tangents"`
	Colors    []Color  `json:"colors"`
	UVs       [][]Vec2 `json:"uvs"` // channel-major: UVs[channel][vertex]
	Indices   []uint32 `json:"indices"`
}

// VertexCount returns the number of vertices.
func (b *Buffers) VertexCount() int {
	return len(b.Positions)
}

// TriangleCount returns the number of triangles.
func (b *Buffers) TriangleCount() int {
	return len(b.Indices) / 3
}

// NumUVChannels returns the number of UV channels.
func (b *Buffers) NumUVChannels() int {
	return len(b.UVs)
}

// IsEmpty returns true if the buffers have no renderable geometry.
func (b *Buffers) IsEmpty() bool {
	return len(b.Positions) == 0 || len(b.Indices) == 0
}

// Triangle returns the three vertex IDs of triangle i.
func (b *Buffers) Triangle(i int) [3]uint32 {
	return [3]uint32{b.Indices[3*i], b.Indices[3*i+1], b.Indices[3*i+2]}
}

// Validate checks that the index buffer is a whole number of triangles, that
// every index is in range and that every attribute array is vertex-count long.
func (b *Buffers) Validate() error {
	n := len(b.Positions)
	if len(b.Indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(b.Indices))
	}
	if i, ok := firstOutOfRange(b.Indices, n); ok {
		return fmt.Errorf("index %d at slot %d references vertex out of range (vertex count %d)", b.Indices[i], i, n)
	}
	if len(b.Normals) != n {
		return fmt.Errorf("normal count %d does not match vertex count %d", len(b.Normals), n)
	}
	if len(b.Tangents) != n {
		return fmt.Errorf("tangent count %d does not match vertex count %d", len(b.Tangents), n)
	}
	if len(b.Colors) != n {
		return fmt.Errorf("color count %d does not match vertex count %d", len(b.Colors), n)
	}
	for c, ch := range b.UVs {
		if len(ch) != n {
			return fmt.Errorf("uv channel %d has %d coordinates, vertex count is %d", c, len(ch), n)
		}
	}
	return nil
}

// Clone returns a deep copy of the buffers.
func (b *Buffers) Clone() *Buffers {
	out := &Buffers{
		Positions: append([]Vec3(nil), b.Positions...),
		Normals:   append([]Vec3(nil), b.Normals...),
		Tangents:  append([]Vec3(nil), b.Tangents...),
		Colors:    append([]Color(nil), b.Colors...),
		Indices:   append([]uint32(nil), b.Indices...),
	}
	if b.UVs != nil {
		out.UVs = make([][]Vec2, len(b.UVs))
		for c, ch := range b.UVs {
			out.UVs[c] = append([]Vec2(nil), ch...)
		}
	}
	return out
}

// Bounds returns the axis-aligned bounding box of all positions.
func (b *Buffers) Bounds() (min, max Vec3) {
	if len(b.Positions) == 0 {
		return min, max
	}
	lo, hi := b.Positions[0].V3(), b.Positions[0].V3()
	for _, p := range b.Positions[1:] {
		lo, hi = lo.Min(p.V3()), hi.Max(p.V3())
	}
	return FromV3(lo), FromV3(hi)
}

// Component is a set of triangle indices (not vertex indices) that are
// connected through shared vertices. Order is visitation order.
type Component []uint32

// Source is an opaque handle to a mesh owned by the host. The core only reads
// from it; relocation and deletion are requested of the host's asset store.
type Source interface {
	// Name is the asset name, e.g. "Rock".
	Name() string
	// Path is the asset's long path including its name, e.g. "/Game/Props/Rock".
	Path() string
	// NumLODs returns the number of level-of-detail representations.
	NumLODs() int
	// LOD returns the buffers of level i. LOD 0 is the most detailed.
	LOD(i int) (*Buffers, error)
}
