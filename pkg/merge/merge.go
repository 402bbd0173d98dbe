// Package merge defines the merge-utility contract used to combine several
// meshes into one, and Combiner, a native implementation of it.
package merge

import (
	"context"
	"fmt"

	"github.com/chazu/ezsplit/pkg/mesh"
)

// LODSelection chooses which LOD levels of the inputs take part in a merge.
type LODSelection int

// AllLODs merges every LOD level. It is the only selection merges use.
const AllLODs LODSelection = 0

func (l LODSelection) String() string {
	if l == AllLODs {
		return "all"
	}
	return fmt.Sprintf("LODSelection(%d)", int(l))
}

// UVPolicy decides how inputs with different UV channel counts are combined.
type UVPolicy int

const (
	// UVUnion gives the result the largest channel count among the inputs.
	// Inputs with fewer channels are zero-filled.
	UVUnion UVPolicy = iota
	// UVStrict rejects inputs whose channel counts differ.
	UVStrict
)

func (p UVPolicy) String() string {
	switch p {
	case UVUnion:
		return "union"
	case UVStrict:
		return "strict"
	default:
		return fmt.Sprintf("UVPolicy(%d)", int(p))
	}
}

// ParseUVPolicy maps a configuration name to a UVPolicy.
func ParseUVPolicy(name string) (UVPolicy, error) {
	switch name {
	case "", "union":
		return UVUnion, nil
	case "strict":
		return UVStrict, nil
	}
	return 0, fmt.Errorf("merge: unknown uv policy %q, expected union or strict", name)
}

// Settings configure a merge.
type Settings struct {
	// MergeMaterials collapses all inputs into one polygon group. When false
	// each input keeps its own group, named after the input.
	MergeMaterials bool
	// GenerateLightmapUV is passed through to the utility. Combiner does not
	// unwrap UVs and ignores it.
	GenerateLightmapUV bool
	// PivotAtOrigin keeps world positions so the pivot is the world origin.
	// When false the result is recentred on its bounding-box centre.
	PivotAtOrigin bool
	LODSelection  LODSelection
	// BakeVertexDataToMesh keeps the inputs' vertex colors. When false every
	// color is reset to opaque white.
	BakeVertexDataToMesh bool
	UVPolicy             UVPolicy
}

// DefaultSettings returns the settings used by the editor command.
func DefaultSettings() Settings {
	return Settings{
		MergeMaterials:       true,
		GenerateLightmapUV:   true,
		PivotAtOrigin:        true,
		LODSelection:         AllLODs,
		BakeVertexDataToMesh: true,
		UVPolicy:             UVUnion,
	}
}

// Utility combines several meshes into one. Implementations own the merge
// semantics, including how differing UV layouts are reconciled.
type Utility interface {
	MergeToSingleMesh(ctx context.Context, srcs []mesh.Source, settings Settings) (*mesh.LocalMesh, error)
}
