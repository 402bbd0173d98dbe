package merge

import (
	"context"
	"fmt"

	"github.com/chazu/ezsplit/pkg/builder"
	"github.com/chazu/ezsplit/pkg/mesh"
)

// Combiner concatenates the LOD 0 geometry of its inputs into one LocalMesh.
// Vertices are not welded across inputs.
type Combiner struct{}

var _ Utility = Combiner{}

// MergeToSingleMesh implements Utility. The result has one vertex per input
// vertex and one instance per input corner; SourceVertices holds each
// vertex's position in the concatenated input vertex list.
func (Combiner) MergeToSingleMesh(ctx context.Context, srcs []mesh.Source, settings Settings) (*mesh.LocalMesh, error) {
	if len(srcs) == 0 {
		return nil, fmt.Errorf("merge: no meshes to merge")
	}

	inputs := make([]*mesh.Buffers, len(srcs))
	channels := 0
	for i, src := range srcs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		b, err := mesh.Extract(src)
		if err != nil {
			return nil, err
		}
		n := b.VertexCount()
		for c, uvs := range b.UVs {
			if len(uvs) != n {
				return nil, &mesh.BuilderError{
					Mesh:      src.Name(),
					Component: -1,
					Reason:    fmt.Sprintf("uv channel %d covers %d of %d vertices", c, len(uvs), n),
				}
			}
		}
		inputs[i] = b
		if n := b.NumUVChannels(); n > channels {
			channels = n
		}
	}

	if settings.UVPolicy == UVStrict {
		want := inputs[0].NumUVChannels()
		for i, b := range inputs[1:] {
			if got := b.NumUVChannels(); got != want {
				return nil, &mesh.BuilderError{
					Mesh:      srcs[i+1].Name(),
					Component: -1,
					Reason: fmt.Sprintf("has %d uv channels, %q has %d; strict uv policy requires equal counts",
						got, srcs[0].Name(), want),
				}
			}
		}
	}

	out := &mesh.LocalMesh{Vertices: mesh.Buffers{UVs: make([][]mesh.Vec2, channels)}}
	for i, b := range inputs {
		appendInput(out, b, channels, settings.BakeVertexDataToMesh)
		if !settings.MergeMaterials {
			out.Groups = append(out.Groups, mesh.PolygonGroup{
				Name:          srcs[i].Name(),
				FirstTriangle: out.TriangleCount() - b.TriangleCount(),
				TriangleCount: b.TriangleCount(),
			})
		}
	}
	if settings.MergeMaterials {
		out.Groups = []mesh.PolygonGroup{{Name: builder.DefaultGroupName, TriangleCount: out.TriangleCount()}}
	}

	if !settings.PivotAtOrigin {
		min, max := out.Bounds()
		out.Translate(mesh.Vec3{
			-(min[0] + max[0]) / 2,
			-(min[1] + max[1]) / 2,
			-(min[2] + max[2]) / 2,
		})
	}
	return out, nil
}

// appendInput adds b's vertices and triangles to out, zero-filling UV
// channels b does not have.
func appendInput(out *mesh.LocalMesh, b *mesh.Buffers, channels int, keepColors bool) {
	base := uint32(out.VertexCount())
	for v := 0; v < b.VertexCount(); v++ {
		color := b.Colors[v]
		if !keepColors {
			color = mesh.White
		}
		out.SourceVertices = append(out.SourceVertices, base+uint32(v))
		out.Vertices.Positions = append(out.Vertices.Positions, b.Positions[v])
		out.Vertices.Normals = append(out.Vertices.Normals, b.Normals[v])
		out.Vertices.Tangents = append(out.Vertices.Tangents, b.Tangents[v])
		out.Vertices.Colors = append(out.Vertices.Colors, color)
		for c := 0; c < channels; c++ {
			out.Vertices.UVs[c] = append(out.Vertices.UVs[c], uvAt(b, c, v))
		}
	}
	for _, idx := range b.Indices {
		lv := base + idx
		inst := mesh.VertexInstance{
			Vertex:  lv,
			Normal:  out.Vertices.Normals[lv],
			Tangent: out.Vertices.Tangents[lv],
			Color:   out.Vertices.Colors[lv],
			UVs:     make([]mesh.Vec2, channels),
		}
		for c := 0; c < channels; c++ {
			inst.UVs[c] = out.Vertices.UVs[c][lv]
		}
		out.Instances = append(out.Instances, inst)
		out.Vertices.Indices = append(out.Vertices.Indices, lv)
	}
}

// uvAt zero-fills channels the input does not carry at all. Partial
// channels are rejected before this point.
func uvAt(b *mesh.Buffers, channel, v int) mesh.Vec2 {
	if channel < len(b.UVs) {
		return b.UVs[channel][v]
	}
	return mesh.Vec2{}
}
