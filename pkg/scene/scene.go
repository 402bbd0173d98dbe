// Package scene is an in-memory placement host: a flat list of actors
// organised into outliner folders. It can be saved to and loaded from JSON.
package scene

import (
	"fmt"
	"strings"
)

// Scene holds actors in spawn order.
type Scene struct {
	actors map[ActorID]*Actor
	order  []ActorID
}

// New creates an empty Scene.
func New() *Scene {
	return &Scene{actors: make(map[ActorID]*Actor)}
}

// Add inserts a. An actor without an ID is given one. Adding an ID that is
// already present is an error.
func (s *Scene) Add(a *Actor) error {
	if a.ID == "" {
		a.ID = NewActorID()
	}
	if _, exists := s.actors[a.ID]; exists {
		return fmt.Errorf("scene: actor %s already exists", a.ID)
	}
	a.Folder = strings.Trim(a.Folder, "/")
	s.actors[a.ID] = a
	s.order = append(s.order, a.ID)
	return nil
}

// Spawn places a new static mesh actor rendering meshPath.
func (s *Scene) Spawn(label, folder, meshPath string) (ActorID, error) {
	if meshPath == "" {
		return "", fmt.Errorf("scene: spawn %q: empty mesh path", label)
	}
	a := &Actor{
		Kind:   KindStaticMesh,
		Label:  label,
		Folder: folder,
		Data:   StaticMeshData{Mesh: meshPath},
	}
	if err := s.Add(a); err != nil {
		return "", err
	}
	return a.ID, nil
}

// Destroy removes the actor with the given ID.
func (s *Scene) Destroy(id ActorID) error {
	if _, ok := s.actors[id]; !ok {
		return fmt.Errorf("scene: no actor %s", id)
	}
	delete(s.actors, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetMesh points a static mesh actor at a different asset.
func (s *Scene) SetMesh(id ActorID, meshPath string) error {
	a, ok := s.actors[id]
	if !ok {
		return fmt.Errorf("scene: no actor %s", id)
	}
	if _, ok := a.Data.(StaticMeshData); !ok {
		return fmt.Errorf("scene: actor %q is a %s actor, not a static mesh actor", a.Label, a.Kind)
	}
	if meshPath == "" {
		return fmt.Errorf("scene: set mesh of %q: empty mesh path", a.Label)
	}
	a.Data = StaticMeshData{Mesh: meshPath}
	return nil
}

// Get returns the actor with the given ID, or nil.
func (s *Scene) Get(id ActorID) *Actor {
	return s.actors[id]
}

// Lookup returns the first actor, in spawn order, with the given label, or
// nil.
func (s *Scene) Lookup(label string) *Actor {
	for _, id := range s.order {
		if a := s.actors[id]; a.Label == label {
			return a
		}
	}
	return nil
}

// Actors returns every actor in spawn order.
func (s *Scene) Actors() []*Actor {
	out := make([]*Actor, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.actors[id])
	}
	return out
}

// InFolder returns the actors directly inside folder, in spawn order.
func (s *Scene) InFolder(folder string) []*Actor {
	folder = strings.Trim(folder, "/")
	var out []*Actor
	for _, id := range s.order {
		if a := s.actors[id]; a.Folder == folder {
			out = append(out, a)
		}
	}
	return out
}

// MeshActors returns every actor whose payload bears a mesh.
func (s *Scene) MeshActors() []*Actor {
	var out []*Actor
	for _, id := range s.order {
		if a := s.actors[id]; a.Data != nil {
			if _, ok := a.MeshPath(); ok {
				out = append(out, a)
			}
		}
	}
	return out
}

// Len returns the number of actors.
func (s *Scene) Len() int {
	return len(s.order)
}
