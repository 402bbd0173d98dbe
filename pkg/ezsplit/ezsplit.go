// Package ezsplit splits meshes into their loose parts and merges meshes back
// together, and carries the results through an asset store and a scene.
//
// SplitMesh and MergeMeshes are pure: they read sources and return new
// meshes. Session adds the bookkeeping around them: relocating originals,
// committing parts, cleaning up intermediate merges and replacing actors.
package ezsplit

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/chazu/ezsplit/pkg/builder"
	"github.com/chazu/ezsplit/pkg/connectivity"
	"github.com/chazu/ezsplit/pkg/merge"
	"github.com/chazu/ezsplit/pkg/mesh"
	"github.com/chazu/ezsplit/pkg/naming"
	"github.com/chazu/ezsplit/pkg/scene"
)

// AssetStore persists meshes under asset paths.
type AssetStore interface {
	Load(assetPath string) (mesh.Source, error)
	Exists(assetPath string) bool
	Commit(ctx context.Context, assetPath string, m *mesh.LocalMesh) error
	Rename(from, to string) error
	Delete(assetPath string) error
	EnsureFolder(folder string) error
}

// Scene places actors that render stored meshes.
type Scene interface {
	Get(id scene.ActorID) *scene.Actor
	Spawn(label, folder, meshPath string) (scene.ActorID, error)
	Destroy(id scene.ActorID) error
	MeshActors() []*scene.Actor
	SetMesh(id scene.ActorID, meshPath string) error
}

// Options configure a split.
type Options struct {
	Strategy connectivity.Strategy
	// Folder receives the parts. Empty means the Split folder next to the
	// source asset.
	Folder string
}

// Part is one loose part of a split mesh.
type Part struct {
	Index       int
	Mesh        *mesh.LocalMesh
	Destination string // asset path the part should be committed to
}

// SplitMesh decomposes src into its connected components and rebuilds each
// one as a compact mesh named <name>_<index>. Any failure aborts the split and
// no parts are returned.
func SplitMesh(ctx context.Context, src mesh.Source, opts Options) ([]Part, error) {
	b, err := mesh.Extract(src)
	if err != nil {
		return nil, err
	}
	base := src.Name()

	comps, err := connectivity.Analyzer{Strategy: opts.Strategy}.Components(ctx, b.Positions, b.Indices)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", base, err)
	}

	meshes, err := builder.BuildAll(ctx, comps, b, func(i int) string {
		return naming.SplitPartName(base, i)
	})
	if err != nil {
		var be *mesh.BuilderError
		if errors.As(err, &be) && be.Mesh == "" {
			be.Mesh = base
		}
		return nil, fmt.Errorf("split %q: %w", base, err)
	}

	folder := opts.Folder
	if folder == "" {
		basePath, _ := naming.Split(src.Path())
		folder = naming.SplitFolder(basePath, base)
	}
	parts := make([]Part, len(meshes))
	for i, m := range meshes {
		parts[i] = Part{Index: i, Mesh: m, Destination: path.Join(folder, m.Name)}
	}
	return parts, nil
}

// MergeMeshes combines srcs into one mesh with util. At least two sources are
// required. A nil util uses merge.Combiner.
func MergeMeshes(ctx context.Context, srcs []mesh.Source, util merge.Utility, settings merge.Settings) (*mesh.LocalMesh, error) {
	if len(srcs) < 2 {
		return nil, &SelectionError{Reason: fmt.Sprintf("merge needs at least two meshes, got %d", len(srcs))}
	}
	if util == nil {
		util = merge.Combiner{}
	}
	m, err := util.MergeToSingleMesh(ctx, srcs, settings)
	if err != nil {
		return nil, err
	}
	if m == nil || m.IsEmpty() {
		return nil, fmt.Errorf("merge: utility produced no mesh")
	}
	return m, nil
}
