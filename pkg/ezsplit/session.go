package ezsplit

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/chazu/ezsplit/pkg/logging"
	"github.com/chazu/ezsplit/pkg/merge"
	"github.com/chazu/ezsplit/pkg/mesh"
	"github.com/chazu/ezsplit/pkg/naming"
	"github.com/chazu/ezsplit/pkg/scene"
)

// Config holds the settings a Session applies to every operation.
type Config struct {
	Split   Options
	Merge   merge.Settings
	Utility merge.Utility // nil uses merge.Combiner
}

// DefaultConfig returns the indexed split strategy and the default merge
// settings.
func DefaultConfig() Config {
	return Config{Merge: merge.DefaultSettings()}
}

// Report describes what an operation changed. Errors holds failures that did
// not stop the operation, such as one part that could not be saved.
type Report struct {
	Created    []string          // committed asset paths
	Moved      map[string]string // original asset path -> new path
	Deleted    []string          // removed asset paths
	Spawned    []scene.ActorID
	Destroyed  []scene.ActorID
	Retargeted []scene.ActorID // actors repointed at a moved asset
	Errors     []error
}

func newReport() *Report {
	return &Report{Moved: make(map[string]string)}
}

func (r *Report) fail(err error) {
	logging.Warn("%v", err)
	r.Errors = append(r.Errors, err)
}

func (r *Report) err() error {
	return errors.Join(r.Errors...)
}

// Session runs split and merge operations against one store and scene. Its
// methods are safe for concurrent use; operations run one at a time.
type Session struct {
	mu    sync.Mutex
	store AssetStore
	scene Scene
	cfg   Config
}

// NewSession returns a Session over store and sc.
func NewSession(store AssetStore, sc Scene, cfg Config) *Session {
	return &Session{store: store, scene: sc, cfg: cfg}
}

// Split replaces each target mesh actor by one actor per loose part of its
// mesh. The original asset moves to <folder>/<name>/<name>, the parts are
// written to <folder>/<name>/Split, and the new actors are placed in the
// outliner folder <actor folder>/<name>/Split. Other actors that render the
// original asset are repointed at its new path.
//
// A target that cannot be resolved or split is reported and skipped. A part
// that cannot be saved or placed is reported while its siblings continue.
// The returned error joins everything reported; the Report is always
// non-nil.
func (s *Session) Split(ctx context.Context, targets []scene.ActorID) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := newReport()
	if len(targets) == 0 {
		r.fail(&SelectionError{Reason: "no actors selected to split"})
		return r, r.err()
	}
	for _, id := range targets {
		if err := ctx.Err(); err != nil {
			r.Errors = append(r.Errors, err)
			return r, r.err()
		}
		a, meshPath, err := s.meshActor(id)
		if err != nil {
			r.fail(err)
			continue
		}
		s.splitActor(ctx, a, meshPath, r)
	}
	return r, r.err()
}

func (s *Session) splitActor(ctx context.Context, a *scene.Actor, meshPath string, r *Report) {
	src, err := s.store.Load(meshPath)
	if err != nil {
		r.fail(&mesh.ExtractionError{Mesh: meshPath, Reason: "load", Err: err})
		return
	}
	parts, err := SplitMesh(ctx, src, s.cfg.Split)
	if err != nil {
		r.fail(err)
		return
	}
	basePath, base := naming.Split(meshPath)
	logging.Info("split %s into %d parts", meshPath, len(parts))

	splitFolder := naming.SplitFolder(basePath, base)
	if s.cfg.Split.Folder != "" {
		splitFolder = s.cfg.Split.Folder
	}
	if err := s.store.EnsureFolder(splitFolder); err != nil {
		r.fail(&PersistenceError{Mesh: base, Component: -1, Path: splitFolder, Err: err})
		return
	}
	relocated := naming.RelocatedOriginal(basePath, base)
	if err := s.store.Rename(meshPath, relocated); err != nil {
		r.fail(&PersistenceError{Mesh: base, Component: -1, Path: relocated, Err: err})
	} else {
		r.Moved[meshPath] = relocated
		logging.Info("moved original static mesh %s to %s", meshPath, relocated)
		s.retarget(meshPath, relocated, a.ID, base, r)
	}

	var committed []Part
	for _, p := range parts {
		if err := s.store.Commit(ctx, p.Destination, p.Mesh); err != nil {
			r.fail(&PersistenceError{Mesh: base, Component: p.Index, Path: p.Destination, Err: err})
			continue
		}
		r.Created = append(r.Created, p.Destination)
		committed = append(committed, p)
		logging.Info("created new static mesh: %s", p.Destination)
	}

	if err := s.scene.Destroy(a.ID); err != nil {
		r.fail(&PlacementError{Mesh: base, Component: -1, Err: err})
	} else {
		r.Destroyed = append(r.Destroyed, a.ID)
	}

	folder := naming.SplitActorFolder(a.Folder, base)
	for _, p := range committed {
		id, err := s.scene.Spawn(p.Mesh.Name, folder, p.Destination)
		if err != nil {
			r.fail(&PlacementError{Mesh: base, Component: p.Index, Err: err})
			continue
		}
		r.Spawned = append(r.Spawned, id)
		logging.Info("spawned new actor: %s in folder %s", p.Mesh.Name, folder)
	}
}

// retarget points every mesh actor other than skip that renders from at to.
func (s *Session) retarget(from, to string, skip scene.ActorID, base string, r *Report) {
	for _, other := range s.scene.MeshActors() {
		if other.ID == skip {
			continue
		}
		if p, _ := other.MeshPath(); p != from {
			continue
		}
		if err := s.scene.SetMesh(other.ID, to); err != nil {
			r.fail(&PlacementError{Mesh: base, Component: -1, Err: err})
			continue
		}
		r.Retargeted = append(r.Retargeted, other.ID)
		logging.Info("actor %s now references %s", other.Label, to)
	}
}

// referencedOutside reports whether a mesh actor not in ids renders
// meshPath.
func (s *Session) referencedOutside(meshPath string, ids map[scene.ActorID]bool) bool {
	for _, a := range s.scene.MeshActors() {
		if p, _ := a.MeshPath(); p == meshPath && !ids[a.ID] {
			return true
		}
	}
	return false
}

// Merge combines the meshes of the target actors into one asset and replaces
// the actors by a single actor rendering it.
//
// The merged asset is written to the Merged folder beside the first target's
// mesh folder, named <base>_<n> with the lowest free n, where base is the
// first mesh's name without its last _suffix. Inputs that were themselves
// stored in a Merged folder are deleted unless an actor outside the merge
// still renders them. The new actor goes to the first
// target's outliner folder with one trailing /Split removed.
//
// Fewer than two mesh actors is a SelectionError. Failures before the merged
// asset is committed leave the store and scene untouched.
func (s *Session) Merge(ctx context.Context, targets []scene.ActorID) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := newReport()
	var (
		actors []*scene.Actor
		paths  []string
	)
	for _, id := range targets {
		a, meshPath, err := s.meshActor(id)
		if err != nil {
			logging.Warn("skipping %s: %v", id, err)
			continue
		}
		actors = append(actors, a)
		paths = append(paths, meshPath)
	}
	if len(actors) < 2 {
		r.fail(&SelectionError{Reason: "select at least two static mesh actors to merge"})
		return r, r.err()
	}

	srcs := make([]mesh.Source, len(paths))
	for i, p := range paths {
		src, err := s.store.Load(p)
		if err != nil {
			r.fail(&mesh.ExtractionError{Mesh: p, Reason: "load", Err: err})
			return r, r.err()
		}
		srcs[i] = src
	}

	firstFolder, firstName := naming.Split(paths[0])
	mergedFolder := naming.MergedFolder(firstFolder)
	logging.Info("merged folder path: %s", mergedFolder)
	name := naming.NextFreeName(mergedFolder, naming.MergeBaseName(firstName), s.store.Exists)
	dest := path.Join(mergedFolder, name)

	m, err := MergeMeshes(ctx, srcs, s.cfg.Utility, s.cfg.Merge)
	if err != nil {
		r.fail(fmt.Errorf("merge %s: %w", dest, err))
		return r, r.err()
	}
	m.Name = name

	if err := s.store.EnsureFolder(mergedFolder); err != nil {
		r.fail(&PersistenceError{Mesh: name, Component: -1, Path: mergedFolder, Err: err})
		return r, r.err()
	}
	if err := s.store.Commit(ctx, dest, m); err != nil {
		r.fail(&PersistenceError{Mesh: name, Component: -1, Path: dest, Err: err})
		return r, r.err()
	}
	r.Created = append(r.Created, dest)
	logging.Info("merged static mesh created at %s", dest)

	merging := make(map[scene.ActorID]bool, len(actors))
	for _, a := range actors {
		merging[a.ID] = true
	}
	deleted := make(map[string]bool)
	for _, p := range paths {
		folder, _ := naming.Split(p)
		if !naming.IsMergedFolder(folder) || p == dest || deleted[p] {
			continue
		}
		if s.referencedOutside(p, merging) {
			logging.Info("keeping %s: still placed by other actors", p)
			continue
		}
		deleted[p] = true
		if err := s.store.Delete(p); err != nil {
			r.fail(&PersistenceError{Mesh: name, Component: -1, Path: p, Err: err})
			continue
		}
		r.Deleted = append(r.Deleted, p)
	}

	for _, a := range actors {
		if err := s.scene.Destroy(a.ID); err != nil {
			r.fail(&PlacementError{Mesh: name, Component: -1, Err: err})
			continue
		}
		r.Destroyed = append(r.Destroyed, a.ID)
	}

	folder := naming.MergedActorFolder(actors[0].Folder)
	id, err := s.scene.Spawn(name, folder, dest)
	if err != nil {
		r.fail(&PlacementError{Mesh: name, Component: -1, Err: err})
		return r, r.err()
	}
	r.Spawned = append(r.Spawned, id)
	logging.Info("placed merged mesh actor: %s in folder: %s", name, folder)
	return r, r.err()
}

// meshActor resolves id to an actor that renders a mesh.
func (s *Session) meshActor(id scene.ActorID) (*scene.Actor, string, error) {
	a := s.scene.Get(id)
	if a == nil {
		return nil, "", &SelectionError{Reason: fmt.Sprintf("no actor %s", id)}
	}
	p, ok := a.MeshPath()
	if !ok || p == "" {
		return nil, "", &SelectionError{Reason: fmt.Sprintf("%q is a %s actor, not a static mesh actor", a.Label, a.Kind)}
	}
	return a, p, nil
}
