// Package kernel defines the abstract geometry kernel used to author source
// meshes: scripts and the CLI build solids from primitives and booleans, then
// tessellate them into indexed buffers that the splitter can consume.
package kernel

import "github.com/chazu/ezsplit/pkg/mesh"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid

	// Mesh output. Coincident corners are welded so triangles that touch
	// share vertex indices.
	ToMesh(s Solid) (*mesh.Buffers, error)
}
