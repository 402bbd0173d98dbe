package scene

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewScene(t *testing.T) {
	s := New()
	if s.Len() != 0 {
		t.Errorf("empty scene should have 0 actors, got %d", s.Len())
	}
	if s.Lookup("anything") != nil {
		t.Error("Lookup on empty scene should return nil")
	}
}

func TestSpawnAndLookup(t *testing.T) {
	s := New()
	id, err := s.Spawn("Rock", "/Level/Props/", "/Game/Props/Rock")
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if id == "" {
		t.Fatal("Spawn() returned empty ID")
	}

	a := s.Get(id)
	if a == nil {
		t.Fatal("Get() returned nil for spawned actor")
	}
	if a.Kind != KindStaticMesh || a.Label != "Rock" {
		t.Errorf("actor = %+v, want static mesh labelled Rock", a)
	}
	if a.Folder != "Level/Props" {
		t.Errorf("Folder = %q, want Level/Props", a.Folder)
	}
	if p, ok := a.MeshPath(); !ok || p != "/Game/Props/Rock" {
		t.Errorf("MeshPath() = %q, %v", p, ok)
	}
	if s.Lookup("Rock") != a {
		t.Error("Lookup(Rock) returned wrong actor")
	}
	if got := s.InFolder("Level/Props"); len(got) != 1 || got[0] != a {
		t.Errorf("InFolder() = %v, want the spawned actor", got)
	}
}

func TestSpawnRejectsEmptyMesh(t *testing.T) {
	if _, err := New().Spawn("Rock", "", ""); err == nil {
		t.Error("Spawn() with empty mesh path should fail")
	}
}

func TestDestroy(t *testing.T) {
	s := New()
	a, _ := s.Spawn("A", "", "/Game/A")
	b, _ := s.Spawn("B", "", "/Game/B")
	if err := s.Destroy(a); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if s.Get(a) != nil {
		t.Error("destroyed actor is still reachable")
	}
	if got := s.Actors(); len(got) != 1 || got[0].ID != b {
		t.Errorf("Actors() = %v, want only B", got)
	}
	if err := s.Destroy(a); err == nil {
		t.Error("destroying a missing actor should fail")
	}
}

func TestAddDuplicateID(t *testing.T) {
	s := New()
	if err := s.Add(&Actor{ID: "x", Kind: KindGroup, Label: "g"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(&Actor{ID: "x", Kind: KindGroup, Label: "h"}); err == nil {
		t.Error("Add() with duplicate ID should fail")
	}
}

func TestMeshBearerCapability(t *testing.T) {
	s := New()
	mesh, _ := s.Spawn("Rock", "", "/Game/Rock")
	s.Add(&Actor{Kind: KindGroup, Label: "Props", Data: GroupData{}})
	s.Add(&Actor{Kind: KindLight, Label: "Sun", Data: LightData{Intensity: 10}})

	got := s.MeshActors()
	if len(got) != 1 || got[0].ID != mesh {
		t.Errorf("MeshActors() = %v, want only Rock", got)
	}
	if _, ok := s.Lookup("Sun").MeshPath(); ok {
		t.Error("light actor should not bear a mesh")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New()
	rock, _ := s.Spawn("Rock", "Props", "/Game/Props/Rock")
	s.Add(&Actor{Kind: KindLight, Label: "Sun", Data: LightData{Intensity: 3, Radius: 100}})
	s.Add(&Actor{Kind: KindGroup, Label: "Empty"})

	path := filepath.Join(t.TempDir(), "level.json")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Len() != 3 {
		t.Fatalf("loaded %d actors, want 3", loaded.Len())
	}
	a := loaded.Get(rock)
	if a == nil || a.Folder != "Props" {
		t.Fatalf("Rock not restored: %+v", a)
	}
	if p, _ := a.MeshPath(); p != "/Game/Props/Rock" {
		t.Errorf("MeshPath() = %q", p)
	}
	sun := loaded.Lookup("Sun")
	if d, ok := sun.Data.(LightData); !ok || d.Intensity != 3 || d.Radius != 100 {
		t.Errorf("Sun data = %#v", sun.Data)
	}
	if loaded.Actors()[2].Label != "Empty" {
		t.Error("spawn order not preserved")
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	s := New()
	if err := s.UnmarshalJSON([]byte(`{"actors":[{"id":"a","kind":"camera","label":"Cam"}]}`)); err == nil {
		t.Error("UnmarshalJSON() with unknown kind should fail")
	}
}

func TestValidate(t *testing.T) {
	s := New()
	s.Spawn("Good", "", "/Game/Good")
	s.Add(&Actor{ID: "bad-kind", Kind: KindLight, Label: "Bad", Data: GroupData{}})
	s.Add(&Actor{ID: "no-mesh", Kind: KindStaticMesh, Label: "Hollow", Data: StaticMeshData{}})
	s.Add(&Actor{ID: "no-label", Kind: KindGroup})

	errs := s.Validate()
	codes := make(map[string]ActorID)
	for _, e := range errs {
		codes[e.Code] = e.ActorID
	}
	want := map[string]ActorID{
		"KIND_MISMATCH": "bad-kind",
		"MISSING_MESH":  "no-mesh",
		"EMPTY_LABEL":   "no-label",
	}
	if len(errs) != len(want) {
		t.Errorf("Validate() returned %d errors, want %d: %v", len(errs), len(want), errs)
	}
	for code, id := range want {
		if codes[code] != id {
			t.Errorf("%s reported for %q, want %q", code, codes[code], id)
		}
	}
}

func TestLoadRejectsInvalidScene(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.json")
	body := `{"actors":[{"id":"a","kind":"static-mesh","label":"Rock","data":{"mesh":""}}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "MISSING_MESH") {
		t.Errorf("Load() error = %v, want MISSING_MESH", err)
	}
}

func TestSetMesh(t *testing.T) {
	s := New()
	rock, _ := s.Spawn("Rock", "", "/Game/Rock")
	sun := NewActorID()
	s.Add(&Actor{ID: sun, Kind: KindLight, Label: "Sun", Data: LightData{Intensity: 1}})

	if err := s.SetMesh(rock, "/Game/Rock/Rock"); err != nil {
		t.Fatalf("SetMesh() error = %v", err)
	}
	if p, _ := s.Get(rock).MeshPath(); p != "/Game/Rock/Rock" {
		t.Errorf("MeshPath() = %q, want /Game/Rock/Rock", p)
	}

	tests := []struct {
		name string
		id   ActorID
		path string
	}{
		{"missing actor", "ghost", "/Game/X"},
		{"light actor", sun, "/Game/X"},
		{"empty path", rock, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.SetMesh(tt.id, tt.path); err == nil {
				t.Error("SetMesh() error = nil, want error")
			}
		})
	}
}
