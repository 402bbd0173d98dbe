package mesh

import "fmt"

// ExtractionError reports a mesh whose LOD 0 buffers cannot be read: no
// renderable geometry, or malformed buffers such as an index referencing a
// vertex out of range.
type ExtractionError struct {
	Mesh   string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extract %q: %s", e.Mesh, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// BuilderError reports a component that cannot be rebuilt into a LocalMesh,
// typically because the UV channel count is not uniform across vertices.
type BuilderError struct {
	Mesh      string
	Component int // -1 when not tied to one component
	Reason    string
}

func (e *BuilderError) Error() string {
	if e.Component >= 0 {
		return fmt.Sprintf("build %q component %d: %s", e.Mesh, e.Component, e.Reason)
	}
	return fmt.Sprintf("build %q: %s", e.Mesh, e.Reason)
}
