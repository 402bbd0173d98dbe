// Package connectivity groups the triangles of an indexed mesh into connected
// components ("loose parts"). Two triangles are adjacent when they share at
// least one vertex index; a shared single vertex is enough.
package connectivity

import (
	"context"
	"fmt"

	"github.com/chazu/ezsplit/pkg/mesh"
)

// Strategy selects how adjacent triangles are discovered.
type Strategy int

const (
	// StrategyIndexed looks neighbours up through a vertex -> incident
	// triangle index built once per mesh. Near-linear.
	StrategyIndexed Strategy = iota
	// StrategyScan rescans every unvisited triangle for each popped one.
	// Quadratic in triangle count; kept as the reference traversal.
	StrategyScan
)

func (s Strategy) String() string {
	switch s {
	case StrategyIndexed:
		return "indexed"
	case StrategyScan:
		return "scan"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "indexed":
		return StrategyIndexed, nil
	case "scan":
		return StrategyScan, nil
	}
	return 0, fmt.Errorf("connectivity: unknown strategy %q, expected indexed or scan", name)
}

// Analyzer finds connected components with a fixed strategy.
type Analyzer struct {
	Strategy Strategy
}

// FindConnectedComponents returns the connected components of the triangle
// list using the indexed strategy. See Analyzer.Components.
func FindConnectedComponents(vertices []mesh.Vec3, indices []uint32) ([]mesh.Component, error) {
	return Analyzer{Strategy: StrategyIndexed}.Components(context.Background(), vertices, indices)
}

// Components partitions the triangles of indices into connected components.
//
// Components are emitted in ascending order of their seed triangle, which is
// the lowest triangle index they contain. Triangles within a component are in
// visitation order. Zero triangles yield zero components. The context is
// checked before each new component is seeded; a cancelled analysis returns
// no components.
func (a Analyzer) Components(ctx context.Context, vertices []mesh.Vec3, indices []uint32) ([]mesh.Component, error) {
	if len(indices)%3 != 0 {
		return nil, &mesh.ExtractionError{
			Mesh:   "<buffers>",
			Reason: fmt.Sprintf("index count %d is not a multiple of 3", len(indices)),
		}
	}
	for slot, idx := range indices {
		if !mesh.InRange(idx, len(vertices)) {
			return nil, &mesh.ExtractionError{
				Mesh:   "<buffers>",
				Reason: fmt.Sprintf("index %d at slot %d is out of range (vertex count %d)", idx, slot, len(vertices)),
			}
		}
	}

	t := &traversal{
		indices: indices,
		visited: make([]bool, len(indices)/3),
	}
	switch a.Strategy {
	case StrategyIndexed:
		t.neighbours = t.indexedNeighbours(len(vertices))
	case StrategyScan:
		t.neighbours = t.scanNeighbours
	default:
		return nil, fmt.Errorf("connectivity: unknown strategy %v", a.Strategy)
	}

	var comps []mesh.Component
	for seed := range t.visited {
		if t.visited[seed] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("connectivity: %w", err)
		}
		comps = append(comps, t.walk(uint32(seed)))
	}
	return comps, nil
}

// traversal holds the state of one component search.
type traversal struct {
	indices    []uint32
	visited    []bool
	stack      []uint32
	neighbours func(tri uint32, push func(uint32))
}

// walk collects every triangle reachable from seed with an explicit stack.
// A triangle can sit on the stack more than once; it is recorded only the
// first time it is popped.
func (t *traversal) walk(seed uint32) mesh.Component {
	var comp mesh.Component
	t.stack = append(t.stack[:0], seed)
	push := func(n uint32) {
		if !t.visited[n] {
			t.stack = append(t.stack, n)
		}
	}
	for len(t.stack) > 0 {
		cur := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		if t.visited[cur] {
			continue
		}
		t.visited[cur] = true
		comp = append(comp, cur)
		t.neighbours(cur, push)
	}
	return comp
}

// sharesVertex reports whether triangles a and b have a common vertex index.
func (t *traversal) sharesVertex(a, b uint32) bool {
	ta := t.indices[3*a : 3*a+3]
	tb := t.indices[3*b : 3*b+3]
	for _, i := range ta {
		for _, j := range tb {
			if i == j {
				return true
			}
		}
	}
	return false
}

func (t *traversal) scanNeighbours(tri uint32, push func(uint32)) {
	for j := range t.visited {
		if !t.visited[j] && t.sharesVertex(tri, uint32(j)) {
			push(uint32(j))
		}
	}
}

// indexedNeighbours builds the vertex -> incident triangle index in CSR form
// and returns a neighbour function that walks it.
func (t *traversal) indexedNeighbours(vertexCount int) func(uint32, func(uint32)) {
	offsets := make([]uint32, vertexCount+1)
	for _, v := range t.indices {
		offsets[v+1]++
	}
	for v := 0; v < vertexCount; v++ {
		offsets[v+1] += offsets[v]
	}
	incident := make([]uint32, len(t.indices))
	fill := append([]uint32(nil), offsets[:vertexCount]...)
	for slot, v := range t.indices {
		incident[fill[v]] = uint32(slot / 3)
		fill[v]++
	}

	return func(tri uint32, push func(uint32)) {
		for _, v := range t.indices[3*tri : 3*tri+3] {
			for _, n := range incident[offsets[v]:offsets[v+1]] {
				push(n)
			}
		}
	}
}
