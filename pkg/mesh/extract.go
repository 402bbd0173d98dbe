package mesh

import "fmt"

// Extract reads the LOD 0 buffers of src into a fresh Buffers value.
//
// Missing normals and tangents become zero vectors and missing colors become
// opaque white, so the result always carries every attribute. UV channels are
// copied as they are; a channel with the wrong length is left for the builder
// to reject. Extract never modifies src.
func Extract(src Source) (*Buffers, error) {
	if src == nil {
		return nil, &ExtractionError{Mesh: "<nil>", Reason: "no mesh"}
	}
	name := src.Name()
	if src.NumLODs() == 0 {
		return nil, &ExtractionError{Mesh: name, Reason: "no LOD 0 geometry"}
	}
	lod, err := src.LOD(0)
	if err != nil {
		return nil, &ExtractionError{Mesh: name, Reason: "read LOD 0", Err: err}
	}
	if lod == nil || lod.IsEmpty() {
		return nil, &ExtractionError{Mesh: name, Reason: "no LOD 0 geometry"}
	}

	n := len(lod.Positions)
	if len(lod.Indices)%3 != 0 {
		return nil, &ExtractionError{
			Mesh:   name,
			Reason: fmt.Sprintf("index count %d is not a multiple of 3", len(lod.Indices)),
		}
	}
	if slot, bad := firstOutOfRange(lod.Indices, n); bad {
		return nil, &ExtractionError{
			Mesh:   name,
			Reason: fmt.Sprintf("index %d at slot %d is out of range (vertex count %d)", lod.Indices[slot], slot, n),
		}
	}

	out := lod.Clone()

	var ok bool
	if out.Normals, ok = fillVec3(out.Normals, n); !ok {
		return nil, &ExtractionError{Mesh: name, Reason: fmt.Sprintf("normal count %d does not match vertex count %d", len(lod.Normals), n)}
	}
	if out.Tangents, ok = fillVec3(out.Tangents, n); !ok {
		return nil, &ExtractionError{Mesh: name, Reason: fmt.Sprintf("tangent count %d does not match vertex count %d", len(lod.Tangents), n)}
	}
	switch len(out.Colors) {
	case n:
	case 0:
		out.Colors = make([]Color, n)
		for i := range out.Colors {
			out.Colors[i] = White
		}
	default:
		return nil, &ExtractionError{Mesh: name, Reason: fmt.Sprintf("color count %d does not match vertex count %d", len(lod.Colors), n)}
	}

	return out, nil
}

// fillVec3 returns v unchanged when it has n entries and n zero vectors when
// it is empty. Any other length is malformed.
func fillVec3(v []Vec3, n int) ([]Vec3, bool) {
	switch len(v) {
	case n:
		return v, true
	case 0:
		return make([]Vec3, n), true
	}
	return nil, false
}
