package scene

import "fmt"

// ValidationError represents a problem with one actor.
type ValidationError struct {
	Code    string
	Message string
	ActorID ActorID
}

func (e ValidationError) Error() string {
	context := ""
	if e.ActorID != "" {
		context = fmt.Sprintf(" (actor: %s)", e.ActorID)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, context)
}

// Validate checks that every actor's payload matches its kind and that mesh
// actors reference an asset.
func (s *Scene) Validate() []ValidationError {
	var errs []ValidationError
	for _, a := range s.Actors() {
		if a.Label == "" {
			errs = append(errs, ValidationError{
				Code:    "EMPTY_LABEL",
				Message: "actor has no label",
				ActorID: a.ID,
			})
		}
		if !dataMatchesKind(a) {
			errs = append(errs, ValidationError{
				Code:    "KIND_MISMATCH",
				Message: fmt.Sprintf("%s actor carries %T", a.Kind, a.Data),
				ActorID: a.ID,
			})
			continue
		}
		if p, ok := a.MeshPath(); ok && p == "" {
			errs = append(errs, ValidationError{
				Code:    "MISSING_MESH",
				Message: fmt.Sprintf("mesh actor %q references no asset", a.Label),
				ActorID: a.ID,
			})
		}
	}
	return errs
}

func dataMatchesKind(a *Actor) bool {
	switch a.Data.(type) {
	case StaticMeshData:
		return a.Kind == KindStaticMesh
	case GroupData:
		return a.Kind == KindGroup
	case LightData:
		return a.Kind == KindLight
	case nil:
		return a.Kind == KindGroup
	}
	return false
}
