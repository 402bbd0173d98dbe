package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/ezsplit/pkg/mesh"
)

// writeConfig writes a config file pointing into a temp dir and returns the
// flags that select it.
func writeConfig(t *testing.T) (args []string, dir string) {
	t.Helper()
	dir = t.TempDir()
	body := fmt.Sprintf("[store]\nroot = %q\nscene = %q\n\n[engine]\ntimeout = \"60s\"\nmesh_cells = 64\n",
		filepath.Join(dir, "assets"), filepath.Join(dir, "scene.json"))
	path := filepath.Join(dir, "ezsplit.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return []string{"-config", path}, dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestCLINoCommand(t *testing.T) {
	cfgArgs, _ := writeConfig(t)
	if _, err := runCLI(t, cfgArgs...); err == nil {
		t.Error("expected an error with no command")
	}
}

func TestCLIUnknownCommand(t *testing.T) {
	cfgArgs, _ := writeConfig(t)
	_, err := runCLI(t, append(cfgArgs, "explode")...)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("err = %v, want unknown command", err)
	}
}

func TestCLIBadFlagValue(t *testing.T) {
	cfgArgs, _ := writeConfig(t)
	_, err := runCLI(t, append(cfgArgs, "-strategy", "bfs", "actors")...)
	if err == nil {
		t.Error("expected an error for an unknown strategy")
	}
}

func TestCLIRunSplitAndActors(t *testing.T) {
	cfgArgs, dir := writeConfig(t)
	script := filepath.Join(dir, "pair.ezs")
	os.WriteFile(script, []byte(`(spawn "pair" (box 10 10 10) (box 10 10 10 :at (vec3 40 0 0)))`), 0o644)

	out, err := runCLI(t, append(cfgArgs, "run", script)...)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if !strings.Contains(out, `(actor "pair")`) {
		t.Errorf("run output = %q", out)
	}

	out, err = runCLI(t, append(cfgArgs, "split", "pair")...)
	if err != nil {
		t.Fatalf("split error = %v", err)
	}
	if !strings.Contains(out, "created /Game/pair/Split/pair_0") {
		t.Errorf("split output = %q", out)
	}
	if !strings.Contains(out, "moved /Game/pair -> /Game/pair/pair") {
		t.Errorf("split output missing relocation: %q", out)
	}

	out, err = runCLI(t, append(cfgArgs, "actors")...)
	if err != nil {
		t.Fatalf("actors error = %v", err)
	}
	if !strings.Contains(out, "pair_0\tstatic-mesh\tpair/Split\t/Game/pair/Split/pair_0") {
		t.Errorf("actors output = %q", out)
	}
	if strings.Contains(out, "pair\tstatic-mesh\t\t") {
		t.Error("original actor still listed after split")
	}
}

func TestCLIRunScriptError(t *testing.T) {
	cfgArgs, dir := writeConfig(t)
	script := filepath.Join(dir, "bad.ezs")
	os.WriteFile(script, []byte(`(split "ghost")`), 0o644)

	_, err := runCLI(t, append(cfgArgs, "run", script)...)
	if err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Errorf("err = %v, want an error naming ghost", err)
	}
}

func TestCLIMergeNeedsTwo(t *testing.T) {
	cfgArgs, _ := writeConfig(t)
	if _, err := runCLI(t, append(cfgArgs, "merge", "ghost")...); err == nil {
		t.Error("expected an error merging an unknown actor")
	}
}

func TestImportSplitsInboxFile(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	two := twoTriangles()
	if err := app.store.Put("/Inbox/Debris", two); err != nil {
		t.Fatal(err)
	}
	file, err := app.store.File("/Inbox/Debris")
	if err != nil {
		t.Fatal(err)
	}

	if err := app.Import(ctx, file); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	for _, label := range []string{"Debris_0", "Debris_1"} {
		a := app.scene.Lookup(label)
		if a == nil {
			t.Fatalf("expected actor %s", label)
		}
		if a.Folder != "Inbox/Debris/Split" {
			t.Errorf("%s folder = %q", label, a.Folder)
		}
	}
	if !app.store.Exists("/Inbox/Debris/Debris") {
		t.Error("imported file should be relocated")
	}
}

func TestImportOutsideStore(t *testing.T) {
	app := newTestApp(t)
	outside := filepath.Join(t.TempDir(), "x.glb")
	if err := app.Import(context.Background(), outside); err == nil {
		t.Error("expected an error for a file outside the store")
	}
}

// twoTriangles is two disjoint triangles.
func twoTriangles() *mesh.Buffers {
	pos := []mesh.Vec3{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
		{5, 0, 0}, {6, 0, 0}, {5, 1, 0},
	}
	n := len(pos)
	up := make([]mesh.Vec3, n)
	colors := make([]mesh.Color, n)
	uv := make([]mesh.Vec2, n)
	for i := range up {
		up[i] = mesh.Vec3{0, 0, 1}
		colors[i] = mesh.Color{255, 255, 255, 255}
		uv[i] = mesh.Vec2{pos[i][0], pos[i][1]}
	}
	return &mesh.Buffers{
		Positions: pos,
		Normals:   up,
		Tangents:  make([]mesh.Vec3, n),
		Colors:    colors,
		UVs:       [][]mesh.Vec2{uv},
		Indices:   []uint32{0, 1, 2, 3, 4, 5},
	}
}
