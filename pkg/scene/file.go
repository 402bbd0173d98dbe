package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// actorJSON is the on-disk form of an Actor. Data is decoded according to
// Kind.
type actorJSON struct {
	ID     ActorID         `json:"id"`
	Kind   string          `json:"kind"`
	Label  string          `json:"label"`
	Folder string          `json:"folder,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type sceneJSON struct {
	Actors []*Actor `json:"actors"`
}

// MarshalJSON writes the kind by name so scene files stay readable.
func (a *Actor) MarshalJSON() ([]byte, error) {
	var data json.RawMessage
	if a.Data != nil {
		b, err := json.Marshal(a.Data)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(actorJSON{
		ID:     a.ID,
		Kind:   a.Kind.String(),
		Label:  a.Label,
		Folder: a.Folder,
		Data:   data,
	})
}

// UnmarshalJSON decodes the payload into the data type of the actor's kind.
func (a *Actor) UnmarshalJSON(b []byte) error {
	var raw actorJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	kind, err := parseKind(raw.Kind)
	if err != nil {
		return err
	}

	var data ActorData
	switch kind {
	case KindStaticMesh:
		var d StaticMeshData
		err = decodeData(raw.Data, &d)
		data = d
	case KindGroup:
		var d GroupData
		err = decodeData(raw.Data, &d)
		data = d
	case KindLight:
		var d LightData
		err = decodeData(raw.Data, &d)
		data = d
	}
	if err != nil {
		return fmt.Errorf("actor %q: %w", raw.Label, err)
	}

	*a = Actor{ID: raw.ID, Kind: kind, Label: raw.Label, Folder: raw.Folder, Data: data}
	return nil
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func parseKind(s string) (ActorKind, error) {
	for _, k := range []ActorKind{KindStaticMesh, KindGroup, KindLight} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown actor kind %q", s)
}

// MarshalJSON writes the actors in spawn order.
func (s *Scene) MarshalJSON() ([]byte, error) {
	return json.Marshal(sceneJSON{Actors: s.Actors()})
}

// UnmarshalJSON replaces the scene's contents.
func (s *Scene) UnmarshalJSON(b []byte) error {
	var raw sceneJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = *New()
	for _, a := range raw.Actors {
		if err := s.Add(a); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a scene file. A file holding actors that fail Validate is
// rejected.
func Load(path string) (*Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	s := New()
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("scene: parse %s: %w", path, err)
	}
	if verrs := s.Validate(); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return nil, fmt.Errorf("scene: invalid %s: %w", path, errors.Join(errs...))
	}
	return s, nil
}

// Save writes the scene to path, replacing any existing file.
func (s *Scene) Save(path string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	return nil
}
