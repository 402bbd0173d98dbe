package scene

import "github.com/google/uuid"

// ActorID identifies an actor. IDs are opaque to everything but the scene.
type ActorID string

// NewActorID returns a fresh random ActorID.
func NewActorID() ActorID {
	return ActorID(uuid.NewString())
}

// ActorKind enumerates the types of actors a scene holds.
type ActorKind int

const (
	KindStaticMesh ActorKind = iota // renders a mesh asset
	KindGroup                       // organisational, no geometry
	KindLight                       // light source
)

func (k ActorKind) String() string {
	switch k {
	case KindStaticMesh:
		return "static-mesh"
	case KindGroup:
		return "group"
	case KindLight:
		return "light"
	default:
		return "unknown"
	}
}

// Actor is an object placed in the scene. Folder is a slash-separated outliner
// path relative to the scene root; "" is the root.
type Actor struct {
	ID     ActorID   `json:"id"`
	Kind   ActorKind `json:"kind"`
	Label  string    `json:"label"`
	Folder string    `json:"folder,omitempty"`
	Data   ActorData `json:"data"`
}

// ActorData is the interface for kind-specific actor payloads.
type ActorData interface {
	actorData() // marker method restricting implementations to this package
}

// MeshBearer is implemented by actor payloads that reference a mesh asset.
type MeshBearer interface {
	MeshPath() string
}

// StaticMeshData references the mesh asset an actor renders.
type StaticMeshData struct {
	Mesh string `json:"mesh"` // asset path, e.g. "/Game/Props/Rock"
}

func (StaticMeshData) actorData() {}

// MeshPath implements MeshBearer.
func (d StaticMeshData) MeshPath() string { return d.Mesh }

// GroupData describes a grouping actor.
type GroupData struct {
	Description string `json:"description,omitempty"`
}

func (GroupData) actorData() {}

// LightData describes a point light.
type LightData struct {
	Intensity float64 `json:"intensity"`
	Radius    float64 `json:"radius,omitempty"`
}

func (LightData) actorData() {}

// MeshPath returns the mesh asset the actor renders, if its payload bears
// one.
func (a *Actor) MeshPath() (string, bool) {
	mb, ok := a.Data.(MeshBearer)
	if !ok {
		return "", false
	}
	return mb.MeshPath(), true
}
