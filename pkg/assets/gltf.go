package assets

import (
	"encoding/json"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/chazu/ezsplit/pkg/mesh"
)

const (
	extrasGUID = "guid"
	generator  = "ezsplit"
)

// encode builds a single-mesh glTF document from b. All-zero normals and
// tangents are omitted, since glTF requires them to be unit length.
func encode(name, guid string, b *mesh.Buffers) *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = generator
	doc.Asset.Extras = map[string]any{extrasGUID: guid}

	attrs := map[string]int{
		"POSITION": modeler.WritePosition(doc, toArray3(b.Positions)),
	}
	if !allZero(b.Normals) {
		attrs["NORMAL"] = modeler.WriteNormal(doc, toArray3(b.Normals))
	}
	if !allZero(b.Tangents) {
		tangents := make([][4]float32, len(b.Tangents))
		for i, t := range b.Tangents {
			tangents[i] = [4]float32{t[0], t[1], t[2], 1}
		}
		attrs["TANGENT"] = modeler.WriteTangent(doc, tangents)
	}
	if len(b.Colors) > 0 {
		colors := make([][4]uint8, len(b.Colors))
		for i, c := range b.Colors {
			colors[i] = c
		}
		attrs["COLOR_0"] = modeler.WriteColor(doc, colors)
	}
	for c, uvs := range b.UVs {
		coords := make([][2]float32, len(uvs))
		for i, uv := range uvs {
			coords[i] = uv
		}
		attrs[fmt.Sprintf("TEXCOORD_%d", c)] = modeler.WriteTextureCoord(doc, coords)
	}

	doc.Meshes = []*gltf.Mesh{{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(modeler.WriteIndices(doc, b.Indices)),
			Attributes: attrs,
			Mode:       gltf.PrimitiveTriangles,
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: name, Mesh: gltf.Index(0)}}
	doc.Scenes = []*gltf.Scene{{Name: name, Nodes: []int{0}}}
	doc.Scene = gltf.Index(0)
	return doc
}

// decode reads the first mesh of doc into one set of buffers, concatenating
// its primitives. Attributes missing from some primitives are filled with
// zeros, or white for colors.
func decode(doc *gltf.Document) (*mesh.Buffers, error) {
	if len(doc.Meshes) == 0 {
		return &mesh.Buffers{}, nil
	}
	out := &mesh.Buffers{}
	for i, p := range doc.Meshes[0].Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			return nil, fmt.Errorf("primitive %d: mode %v is not triangles", i, p.Mode)
		}
		b, err := decodePrimitive(doc, p)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", i, err)
		}
		appendBuffers(out, b)
	}
	return out, nil
}

func decodePrimitive(doc *gltf.Document, p *gltf.Primitive) (*mesh.Buffers, error) {
	posIdx, ok := p.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	pos, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("read POSITION: %w", err)
	}
	n := len(pos)
	b := &mesh.Buffers{
		Positions: fromArray3(pos),
		Normals:   make([]mesh.Vec3, n),
		Tangents:  make([]mesh.Vec3, n),
		Colors:    make([]mesh.Color, n),
	}

	if idx, ok := p.Attributes["NORMAL"]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("read NORMAL: %w", err)
		}
		copy(b.Normals, fromArray3(normals))
	}
	if idx, ok := p.Attributes["TANGENT"]; ok {
		tangents, err := modeler.ReadTangent(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("read TANGENT: %w", err)
		}
		for i := 0; i < n && i < len(tangents); i++ {
			b.Tangents[i] = mesh.Vec3{tangents[i][0], tangents[i][1], tangents[i][2]}
		}
	}
	for i := range b.Colors {
		b.Colors[i] = mesh.White
	}
	if idx, ok := p.Attributes["COLOR_0"]; ok {
		colors, err := modeler.ReadColor(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("read COLOR_0: %w", err)
		}
		for i := 0; i < n && i < len(colors); i++ {
			b.Colors[i] = colors[i]
		}
	}
	for c := 0; ; c++ {
		idx, ok := p.Attributes[fmt.Sprintf("TEXCOORD_%d", c)]
		if !ok {
			break
		}
		coords, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		if err != nil {
			return nil, fmt.Errorf("read TEXCOORD_%d: %w", c, err)
		}
		uvs := make([]mesh.Vec2, n)
		for i := 0; i < n && i < len(coords); i++ {
			uvs[i] = coords[i]
		}
		b.UVs = append(b.UVs, uvs)
	}

	if p.Indices == nil {
		b.Indices = make([]uint32, n)
		for i := range b.Indices {
			b.Indices[i] = uint32(i)
		}
		return b, nil
	}
	b.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil)
	if err != nil {
		return nil, fmt.Errorf("read indices: %w", err)
	}
	return b, nil
}

// appendBuffers appends src to dst, offsetting its indices. The UV channel
// count of the result is the larger of the two; missing channels are zero.
func appendBuffers(dst, src *mesh.Buffers) {
	base := uint32(dst.VertexCount())
	for len(dst.UVs) < len(src.UVs) {
		dst.UVs = append(dst.UVs, make([]mesh.Vec2, dst.VertexCount()))
	}
	dst.Positions = append(dst.Positions, src.Positions...)
	dst.Normals = append(dst.Normals, src.Normals...)
	dst.Tangents = append(dst.Tangents, src.Tangents...)
	dst.Colors = append(dst.Colors, src.Colors...)
	for c := range dst.UVs {
		if c < len(src.UVs) {
			dst.UVs[c] = append(dst.UVs[c], src.UVs[c]...)
		} else {
			dst.UVs[c] = append(dst.UVs[c], make([]mesh.Vec2, src.VertexCount())...)
		}
	}
	for _, i := range src.Indices {
		dst.Indices = append(dst.Indices, base+i)
	}
}

// guidOf returns the asset GUID stamped in the document extras, if any.
func guidOf(doc *gltf.Document) string {
	var extras map[string]any
	switch e := doc.Asset.Extras.(type) {
	case map[string]any:
		extras = e
	case json.RawMessage:
		if json.Unmarshal(e, &extras) != nil {
			return ""
		}
	}
	guid, _ := extras[extrasGUID].(string)
	return guid
}

func toArray3(v []mesh.Vec3) [][3]float32 {
	out := make([][3]float32, len(v))
	for i := range v {
		out[i] = v[i]
	}
	return out
}

func fromArray3(v [][3]float32) []mesh.Vec3 {
	out := make([]mesh.Vec3, len(v))
	for i := range v {
		out[i] = v[i]
	}
	return out
}

func allZero(v []mesh.Vec3) bool {
	for _, x := range v {
		if x != (mesh.Vec3{}) {
			return false
		}
	}
	return true
}
