package ezsplit_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chazu/ezsplit/pkg/assets"
	"github.com/chazu/ezsplit/pkg/connectivity"
	"github.com/chazu/ezsplit/pkg/ezsplit"
	"github.com/chazu/ezsplit/pkg/merge"
	"github.com/chazu/ezsplit/pkg/mesh"
	"github.com/chazu/ezsplit/pkg/scene"
)

// tetras returns n disjoint tetrahedra, tetra i offset by 10*i along X, with
// two UV channels.
func tetras(n int) *mesh.Buffers {
	b := &mesh.Buffers{UVs: make([][]mesh.Vec2, 2)}
	for i := 0; i < n; i++ {
		o := uint32(len(b.Positions))
		x := float32(10 * i)
		b.Positions = append(b.Positions,
			mesh.Vec3{x, 0, 0}, mesh.Vec3{x + 1, 0, 0}, mesh.Vec3{x, 1, 0}, mesh.Vec3{x, 0, 1})
		for v := 0; v < 4; v++ {
			b.UVs[0] = append(b.UVs[0], mesh.Vec2{float32(v), 0})
			b.UVs[1] = append(b.UVs[1], mesh.Vec2{0, float32(i)})
		}
		b.Indices = append(b.Indices, o, o+1, o+2, o, o+1, o+3, o, o+2, o+3, o+1, o+2, o+3)
	}
	return b
}

type fixture struct {
	store *assets.MemoryStore
	scene *scene.Scene
	sess  *ezsplit.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: assets.NewMemoryStore(), scene: scene.New()}
	f.sess = ezsplit.NewSession(f.store, f.scene, ezsplit.DefaultConfig())
	return f
}

func (f *fixture) place(t *testing.T, label, folder, assetPath string, b *mesh.Buffers) scene.ActorID {
	t.Helper()
	if err := f.store.Put(assetPath, b); err != nil {
		t.Fatalf("Put(%s) error = %v", assetPath, err)
	}
	id, err := f.scene.Spawn(label, folder, assetPath)
	if err != nil {
		t.Fatalf("Spawn(%s) error = %v", label, err)
	}
	return id
}

func TestSplitMesh(t *testing.T) {
	src := mesh.NewStaticSource("/Game/Props/Rock", tetras(3))
	parts, err := ezsplit.SplitMesh(context.Background(), src, ezsplit.Options{})
	if err != nil {
		t.Fatalf("SplitMesh() error = %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}
	for i, p := range parts {
		if p.Index != i {
			t.Errorf("part %d Index = %d", i, p.Index)
		}
		wantName := fmt.Sprintf("Rock_%d", i)
		if p.Mesh.Name != wantName {
			t.Errorf("part %d name = %q, want %q", i, p.Mesh.Name, wantName)
		}
		if want := "/Game/Props/Rock/Split/" + wantName; p.Destination != want {
			t.Errorf("part %d destination = %q, want %q", i, p.Destination, want)
		}
		if p.Mesh.VertexCount() != 4 || p.Mesh.TriangleCount() != 4 {
			t.Errorf("part %d has %d vertices, %d triangles, want 4, 4", i, p.Mesh.VertexCount(), p.Mesh.TriangleCount())
		}
		if p.Mesh.NumUVChannels() != 2 {
			t.Errorf("part %d has %d uv channels, want 2", i, p.Mesh.NumUVChannels())
		}
		if x := p.Mesh.Vertices.Positions[0][0]; x != float32(10*i) {
			t.Errorf("part %d first vertex x = %v, want %d", i, x, 10*i)
		}
	}
}

func TestSplitMeshScanStrategy(t *testing.T) {
	src := mesh.NewStaticSource("/Game/Rock", tetras(2))
	parts, err := ezsplit.SplitMesh(context.Background(), src, ezsplit.Options{Strategy: connectivity.StrategyScan, Folder: "/Game/Out"})
	if err != nil {
		t.Fatalf("SplitMesh() error = %v", err)
	}
	if len(parts) != 2 || parts[1].Destination != "/Game/Out/Rock_1" {
		t.Errorf("parts = %+v", parts)
	}
}

func TestSplitMeshErrors(t *testing.T) {
	_, err := ezsplit.SplitMesh(context.Background(), mesh.NewStaticSource("/Game/Empty"), ezsplit.Options{})
	var ee *mesh.ExtractionError
	if !errors.As(err, &ee) || ee.Mesh != "Empty" {
		t.Errorf("error = %v, want ExtractionError naming Empty", err)
	}

	ragged := tetras(1)
	ragged.UVs[1] = ragged.UVs[1][:2]
	_, err = ezsplit.SplitMesh(context.Background(), mesh.NewStaticSource("/Game/Ragged", ragged), ezsplit.Options{})
	var be *mesh.BuilderError
	if !errors.As(err, &be) || be.Mesh != "Ragged" {
		t.Errorf("error = %v, want BuilderError naming Ragged", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	parts, err := ezsplit.SplitMesh(ctx, mesh.NewStaticSource("/Game/Rock", tetras(2)), ezsplit.Options{})
	if !errors.Is(err, context.Canceled) || parts != nil {
		t.Errorf("SplitMesh(cancelled) = %v, %v", parts, err)
	}
}

func TestMergeMeshesNeedsTwo(t *testing.T) {
	one := []mesh.Source{mesh.NewStaticSource("/Game/A", tetras(1))}
	_, err := ezsplit.MergeMeshes(context.Background(), one, nil, merge.DefaultSettings())
	var se *ezsplit.SelectionError
	if !errors.As(err, &se) {
		t.Errorf("error = %v, want *SelectionError", err)
	}
}

func TestSessionSplit(t *testing.T) {
	f := newFixture(t)
	rock := f.place(t, "Rock", "Level/Props", "/Game/Props/Rock", tetras(3))
	tree := f.place(t, "Tree", "Level", "/Game/Tree", tetras(1))

	r, err := f.sess.Split(context.Background(), []scene.ActorID{rock})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if f.store.Exists("/Game/Props/Rock") || !f.store.Exists("/Game/Props/Rock/Rock") {
		t.Error("original was not relocated to /Game/Props/Rock/Rock")
	}
	if r.Moved["/Game/Props/Rock"] != "/Game/Props/Rock/Rock" {
		t.Errorf("Moved = %v", r.Moved)
	}
	if len(r.Created) != 3 || len(r.Spawned) != 3 {
		t.Fatalf("created %d assets, spawned %d actors, want 3, 3", len(r.Created), len(r.Spawned))
	}
	if f.scene.Get(rock) != nil {
		t.Error("original actor still in scene")
	}
	if f.scene.Get(tree) == nil {
		t.Error("unselected actor was removed")
	}

	got := f.scene.InFolder("Level/Props/Rock/Split")
	if len(got) != 3 {
		t.Fatalf("got %d actors in split folder, want 3", len(got))
	}
	for i, a := range got {
		want := fmt.Sprintf("Rock_%d", i)
		if a.Label != want {
			t.Errorf("actor %d label = %q, want %q", i, a.Label, want)
		}
		if p, _ := a.MeshPath(); p != "/Game/Props/Rock/Split/"+want {
			t.Errorf("actor %d mesh = %q", i, p)
		}
	}
}

func TestSessionSplitSkipsInvalidTargets(t *testing.T) {
	f := newFixture(t)
	f.scene.Add(&scene.Actor{ID: "sun", Kind: scene.KindLight, Label: "Sun", Data: scene.LightData{Intensity: 1}})
	rock := f.place(t, "Rock", "", "/Game/Rock", tetras(2))

	r, err := f.sess.Split(context.Background(), []scene.ActorID{"missing", "sun", rock})
	var se *ezsplit.SelectionError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want a SelectionError", err)
	}
	if len(r.Errors) != 2 {
		t.Errorf("got %d reported errors, want 2", len(r.Errors))
	}
	if len(r.Spawned) != 2 {
		t.Errorf("valid target produced %d actors, want 2", len(r.Spawned))
	}
	if got := f.scene.InFolder("Rock/Split"); len(got) != 2 {
		t.Errorf("got %d actors in Rock/Split, want 2", len(got))
	}
}

func TestSessionSplitNothingSelected(t *testing.T) {
	f := newFixture(t)
	r, err := f.sess.Split(context.Background(), nil)
	var se *ezsplit.SelectionError
	if !errors.As(err, &se) || r == nil {
		t.Errorf("Split(nil) = %v, %v, want report and SelectionError", r, err)
	}
}

// flakyStore fails commits to paths containing failOn.
type flakyStore struct {
	*assets.MemoryStore
	failOn string
}

func (s *flakyStore) Commit(ctx context.Context, assetPath string, m *mesh.LocalMesh) error {
	if strings.Contains(assetPath, s.failOn) {
		return errors.New("disk full")
	}
	return s.MemoryStore.Commit(ctx, assetPath, m)
}

func TestSessionSplitPartFailureKeepsSiblings(t *testing.T) {
	mem := assets.NewMemoryStore()
	sc := scene.New()
	mem.Put("/Game/Rock", tetras(3))
	rock, _ := sc.Spawn("Rock", "", "/Game/Rock")
	sess := ezsplit.NewSession(&flakyStore{MemoryStore: mem, failOn: "Rock_1"}, sc, ezsplit.DefaultConfig())

	r, err := sess.Split(context.Background(), []scene.ActorID{rock})
	var pe *ezsplit.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *PersistenceError", err)
	}
	if pe.Mesh != "Rock" || pe.Component != 1 || pe.Path != "/Game/Rock/Split/Rock_1" {
		t.Errorf("PersistenceError = %+v", pe)
	}
	if len(r.Spawned) != 2 {
		t.Errorf("spawned %d actors, want 2", len(r.Spawned))
	}
	if !mem.Exists("/Game/Rock/Split/Rock_0") || !mem.Exists("/Game/Rock/Split/Rock_2") {
		t.Error("sibling parts were not saved")
	}
}

func TestSessionMerge(t *testing.T) {
	f := newFixture(t)
	rock := f.place(t, "Rock", "Level", "/Game/Rock", tetras(3))
	if _, err := f.sess.Split(context.Background(), []scene.ActorID{rock}); err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	parts := f.scene.InFolder("Level/Rock/Split")
	ids := []scene.ActorID{parts[0].ID, parts[2].ID}

	r, err := f.sess.Merge(context.Background(), ids)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(r.Created) != 1 || r.Created[0] != "/Game/Rock/Merged/Rock_0" {
		t.Fatalf("Created = %v, want [/Game/Rock/Merged/Rock_0]", r.Created)
	}
	src, err := f.store.Load("/Game/Rock/Merged/Rock_0")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	b, _ := mesh.Extract(src)
	if b.TriangleCount() != 8 {
		t.Errorf("merged mesh has %d triangles, want 8", b.TriangleCount())
	}

	if f.scene.Get(ids[0]) != nil || f.scene.Get(ids[1]) != nil {
		t.Error("merged actors still in scene")
	}
	merged := f.scene.InFolder("Level/Rock")
	if len(merged) != 1 || merged[0].Label != "Rock_0" {
		t.Fatalf("actors in Level/Rock = %v, want one labelled Rock_0", merged)
	}
	if len(f.scene.InFolder("Level/Rock/Split")) != 1 {
		t.Error("unmerged part should stay in the split folder")
	}
	if len(r.Deleted) != 0 {
		t.Errorf("deleted %v, want nothing: inputs were not in a Merged folder", r.Deleted)
	}
}

func TestSessionMergeCleansUpIntermediateMerges(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, "Rock_0", "Props", "/Game/Rock/Merged/Rock_0", tetras(1))
	b := f.place(t, "Rock_1", "Props", "/Game/Rock/Split/Rock_1", tetras(1))

	r, err := f.sess.Merge(context.Background(), []scene.ActorID{a, b})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	// Rock_0 is taken by the first input until the merge commits.
	if r.Created[0] != "/Game/Rock/Merged/Rock_1" {
		t.Errorf("Created = %v", r.Created)
	}
	if f.store.Exists("/Game/Rock/Merged/Rock_0") {
		t.Error("intermediate merged input was not deleted")
	}
	if !f.store.Exists("/Game/Rock/Split/Rock_1") {
		t.Error("split input should be kept")
	}
	if len(r.Deleted) != 1 {
		t.Errorf("Deleted = %v", r.Deleted)
	}
}

func TestSessionMergeNextFreeName(t *testing.T) {
	f := newFixture(t)
	f.store.Put("/Game/Rock/Merged/Rock_0", tetras(1))
	a := f.place(t, "A", "", "/Game/Rock/Split/Rock_0", tetras(1))
	b := f.place(t, "B", "", "/Game/Rock/Split/Rock_1", tetras(1))

	r, err := f.sess.Merge(context.Background(), []scene.ActorID{a, b})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if r.Created[0] != "/Game/Rock/Merged/Rock_1" {
		t.Errorf("Created = %v, want /Game/Rock/Merged/Rock_1", r.Created)
	}
}

func TestSessionMergeSelection(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, "A", "", "/Game/A", tetras(1))
	f.scene.Add(&scene.Actor{ID: "group", Kind: scene.KindGroup, Label: "G", Data: scene.GroupData{}})

	r, err := f.sess.Merge(context.Background(), []scene.ActorID{a, "group"})
	var se *ezsplit.SelectionError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *SelectionError", err)
	}
	if len(r.Created) != 0 || f.scene.Get(a) == nil {
		t.Error("rejected merge changed the store or scene")
	}
}

func TestSessionMergeStrictUVs(t *testing.T) {
	f := newFixture(t)
	three := tetras(1)
	three.UVs = append(three.UVs, three.UVs[0])
	four := tetras(1)
	four.UVs = append(four.UVs, four.UVs[0], four.UVs[1])
	a := f.place(t, "A", "", "/Game/A_0", three)
	b := f.place(t, "B", "", "/Game/B_0", four)

	cfg := ezsplit.DefaultConfig()
	cfg.Merge.UVPolicy = merge.UVStrict
	sess := ezsplit.NewSession(f.store, f.scene, cfg)
	_, err := sess.Merge(context.Background(), []scene.ActorID{a, b})
	var be *mesh.BuilderError
	if !errors.As(err, &be) {
		t.Fatalf("error = %v, want *mesh.BuilderError", err)
	}
	if f.store.Exists("/Merged/A_0") || f.scene.Get(a) == nil {
		t.Error("failed merge changed the store or scene")
	}

	r, err := f.sess.Merge(context.Background(), []scene.ActorID{a, b})
	if err != nil {
		t.Fatalf("Merge(union) error = %v", err)
	}
	src, _ := f.store.Load(r.Created[0])
	if buf, _ := mesh.Extract(src); buf.NumUVChannels() != 4 {
		t.Errorf("union merge has %d uv channels, want 4", buf.NumUVChannels())
	}
}

func TestSessionSplitRetargetsSharedAsset(t *testing.T) {
	f := newFixture(t)
	rockA := f.place(t, "RockA", "Level", "/Game/Props/Rock", tetras(2))
	rockB, err := f.scene.Spawn("RockB", "Level", "/Game/Props/Rock")
	if err != nil {
		t.Fatal(err)
	}

	r, err := f.sess.Split(context.Background(), []scene.ActorID{rockA})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(r.Retargeted) != 1 || r.Retargeted[0] != rockB {
		t.Errorf("Retargeted = %v, want [%s]", r.Retargeted, rockB)
	}
	p, _ := f.scene.Get(rockB).MeshPath()
	if p != "/Game/Props/Rock/Rock" || !f.store.Exists(p) {
		t.Fatalf("RockB references %s (exists=%v), want the relocated original", p, f.store.Exists(p))
	}

	// The remaining instance can still be split.
	r, err = f.sess.Split(context.Background(), []scene.ActorID{rockB})
	if err != nil {
		t.Fatalf("second Split() error = %v", err)
	}
	if len(r.Spawned) != 2 {
		t.Errorf("second Split() spawned %d actors, want 2", len(r.Spawned))
	}
}

func TestSessionMergeKeepsInputPlacedElsewhere(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, "Rock_0", "Props", "/Game/Rock/Merged/Rock_0", tetras(1))
	b := f.place(t, "Rock_1", "Props", "/Game/Rock/Split/Rock_1", tetras(1))
	f.scene.Spawn("Rock_0 copy", "Elsewhere", "/Game/Rock/Merged/Rock_0")

	r, err := f.sess.Merge(context.Background(), []scene.ActorID{a, b})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(r.Deleted) != 0 || !f.store.Exists("/Game/Rock/Merged/Rock_0") {
		t.Errorf("input still placed by another actor was deleted: %v", r.Deleted)
	}
}
