// Package builder rebuilds one connected component of a source mesh into a
// compact LocalMesh: only the vertices the component references, renumbered
// densely, with every attribute carried along.
package builder

import (
	"context"
	"fmt"

	"github.com/chazu/ezsplit/pkg/mesh"
)

// DefaultGroupName names the single polygon group of a built mesh.
const DefaultGroupName = "PolygonGroup_0"

// BuildLocalMesh builds the LocalMesh for component c of src.
//
// Triangles are visited in component order and corners in winding order. The
// first corner to reference a source vertex allocates its local vertex and
// copies position, normal, tangent, color and every UV channel; later corners
// reuse it. Every corner gets its own VertexInstance. The result has exactly
// one polygon group.
func BuildLocalMesh(c mesh.Component, src *mesh.Buffers) (*mesh.LocalMesh, error) {
	if err := checkAttributes("", src); err != nil {
		return nil, err
	}
	return build("", -1, c, src)
}

// Namer returns the name of the part built from component i.
type Namer func(i int) string

// BuildAll builds every component in order. The context is checked between
// builds; any error aborts the whole batch so no partial set is returned.
func BuildAll(ctx context.Context, comps []mesh.Component, src *mesh.Buffers, name Namer) ([]*mesh.LocalMesh, error) {
	if err := checkAttributes("", src); err != nil {
		return nil, err
	}
	out := make([]*mesh.LocalMesh, 0, len(comps))
	for i, c := range comps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("builder: %w", err)
		}
		partName := ""
		if name != nil {
			partName = name(i)
		}
		m, err := build(partName, i, c, src)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// build assumes src passed checkAttributes.
func build(name string, index int, c mesh.Component, src *mesh.Buffers) (*mesh.LocalMesh, error) {
	channels := src.NumUVChannels()
	corners := 3 * len(c)
	out := &mesh.LocalMesh{
		Name: name,
		Vertices: mesh.Buffers{
			UVs:     make([][]mesh.Vec2, channels),
			Indices: make([]uint32, 0, corners),
		},
		Instances: make([]mesh.VertexInstance, 0, corners),
		Groups:    []mesh.PolygonGroup{{Name: DefaultGroupName, TriangleCount: len(c)}},
	}

	local := make(map[uint32]uint32, corners)
	triangles := src.TriangleCount()
	for _, tri := range c {
		if !mesh.InRange(tri, triangles) {
			return nil, &mesh.BuilderError{
				Mesh:      name,
				Component: index,
				Reason:    fmt.Sprintf("triangle %d out of range (triangle count %d)", tri, triangles),
			}
		}
		for corner := 0; corner < 3; corner++ {
			sv := src.Indices[3*int(tri)+corner]
			lv, ok := local[sv]
			if !ok {
				lv = uint32(len(out.Vertices.Positions))
				local[sv] = lv
				out.SourceVertices = append(out.SourceVertices, sv)
				out.Vertices.Positions = append(out.Vertices.Positions, src.Positions[sv])
				out.Vertices.Normals = append(out.Vertices.Normals, src.Normals[sv])
				out.Vertices.Tangents = append(out.Vertices.Tangents, src.Tangents[sv])
				out.Vertices.Colors = append(out.Vertices.Colors, src.Colors[sv])
				for ch := 0; ch < channels; ch++ {
					out.Vertices.UVs[ch] = append(out.Vertices.UVs[ch], src.UVs[ch][sv])
				}
			}

			inst := mesh.VertexInstance{
				Vertex:  lv,
				Normal:  src.Normals[sv],
				Tangent: src.Tangents[sv],
				Color:   src.Colors[sv],
				UVs:     make([]mesh.Vec2, channels),
			}
			for ch := 0; ch < channels; ch++ {
				inst.UVs[ch] = src.UVs[ch][sv]
			}
			out.Instances = append(out.Instances, inst)
			out.Vertices.Indices = append(out.Vertices.Indices, lv)
		}
	}
	return out, nil
}

// checkAttributes rejects source buffers whose attribute arrays do not cover
// every vertex. The UV channel count is fixed by the source mesh and every
// channel must have a coordinate for every vertex.
func checkAttributes(name string, src *mesh.Buffers) error {
	if src == nil {
		return &mesh.BuilderError{Mesh: name, Component: -1, Reason: "no source buffers"}
	}
	n := src.VertexCount()
	for ch, uvs := range src.UVs {
		if len(uvs) != n {
			return &mesh.BuilderError{
				Mesh:      name,
				Component: -1,
				Reason:    fmt.Sprintf("uv channel %d covers %d of %d vertices; channel count must be uniform", ch, len(uvs), n),
			}
		}
	}
	if len(src.Normals) != n || len(src.Tangents) != n || len(src.Colors) != n {
		return &mesh.BuilderError{
			Mesh:      name,
			Component: -1,
			Reason: fmt.Sprintf("attribute counts (normals %d, tangents %d, colors %d) do not match vertex count %d",
				len(src.Normals), len(src.Tangents), len(src.Colors), n),
		}
	}
	if len(src.Indices)%3 != 0 {
		return &mesh.BuilderError{Mesh: name, Component: -1, Reason: "index count is not a multiple of 3"}
	}
	if len(src.Indices) > 0 && !mesh.InRange(maxIndex(src.Indices), n) {
		return &mesh.BuilderError{Mesh: name, Component: -1, Reason: "index references a vertex out of range"}
	}
	return nil
}

func maxIndex(indices []uint32) uint32 {
	var m uint32
	for _, i := range indices {
		if i > m {
			m = i
		}
	}
	return m
}
