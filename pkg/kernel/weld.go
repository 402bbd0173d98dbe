package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/ezsplit/pkg/mesh"
)

// Triangle is one unindexed triangle in winding order.
type Triangle [3]mesh.Vec3

// weldKey is a position snapped to the weld grid.
type weldKey [3]int64

// Weld turns a triangle soup into indexed buffers. Corners whose positions
// fall in the same grid cell of size eps share one vertex. Vertex normals are
// the normalized sum of the face normals of every triangle using the vertex;
// tangents are zero and colors white. Degenerate triangles that collapse onto
// fewer than three distinct vertices are dropped.
func Weld(tris []Triangle, eps float64) *mesh.Buffers {
	if eps <= 0 {
		eps = 1e-6
	}
	out := &mesh.Buffers{Indices: make([]uint32, 0, len(tris)*3)}
	ids := make(map[weldKey]uint32, len(tris))
	var normals []v3.Vec

	snap := func(p mesh.Vec3) weldKey {
		return weldKey{
			int64(math.Round(float64(p[0]) / eps)),
			int64(math.Round(float64(p[1]) / eps)),
			int64(math.Round(float64(p[2]) / eps)),
		}
	}

	for _, tri := range tris {
		var corner [3]uint32
		for j, p := range tri {
			k := snap(p)
			id, ok := ids[k]
			if !ok {
				id = uint32(len(out.Positions))
				ids[k] = id
				out.Positions = append(out.Positions, p)
				normals = append(normals, v3.Vec{})
			}
			corner[j] = id
		}
		if corner[0] == corner[1] || corner[1] == corner[2] || corner[0] == corner[2] {
			continue
		}
		n := faceNormal(tri)
		for _, id := range corner {
			normals[id] = normals[id].Add(n)
		}
		out.Indices = append(out.Indices, corner[0], corner[1], corner[2])
	}

	out.Normals = make([]mesh.Vec3, len(normals))
	for i, n := range normals {
		out.Normals[i] = mesh.FromV3(normalize(n))
	}
	out.Tangents = make([]mesh.Vec3, len(out.Positions))
	out.Colors = make([]mesh.Color, len(out.Positions))
	for i := range out.Colors {
		out.Colors[i] = mesh.White
	}
	return out
}

func faceNormal(t Triangle) v3.Vec {
	o := t[0].V3()
	return normalize(t[1].V3().Sub(o).Cross(t[2].V3().Sub(o)))
}

func normalize(v v3.Vec) v3.Vec {
	if v.Length() == 0 {
		return v
	}
	return v.Normalize()
}
