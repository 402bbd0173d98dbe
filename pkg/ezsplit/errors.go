package ezsplit

import "fmt"

// SelectionError reports a selection the operation cannot act on.
type SelectionError struct {
	Reason string
}

func (e *SelectionError) Error() string {
	return "selection: " + e.Reason
}

// PersistenceError reports a failed write, rename or delete of one asset.
// Component is -1 when the asset is not a split part.
type PersistenceError struct {
	Mesh      string
	Component int
	Path      string
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.Component >= 0 {
		return fmt.Sprintf("persist %q component %d at %s: %v", e.Mesh, e.Component, e.Path, e.Err)
	}
	return fmt.Sprintf("persist %q at %s: %v", e.Mesh, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PlacementError reports a failed spawn or destroy of a scene actor.
// Component is -1 when the actor is not a split part.
type PlacementError struct {
	Mesh      string
	Component int
	Err       error
}

func (e *PlacementError) Error() string {
	if e.Component >= 0 {
		return fmt.Sprintf("place %q component %d: %v", e.Mesh, e.Component, e.Err)
	}
	return fmt.Sprintf("place %q: %v", e.Mesh, e.Err)
}

func (e *PlacementError) Unwrap() error { return e.Err }
