// Package assets persists meshes under slash-separated asset paths such as
// "/Game/Props/Rock". DiskStore writes binary glTF files below a root
// directory; MemoryStore keeps everything in memory.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/qmuntal/gltf"

	"github.com/chazu/ezsplit/pkg/kernel/sdfx"
	"github.com/chazu/ezsplit/pkg/logging"
	"github.com/chazu/ezsplit/pkg/mesh"
)

// Ext is the file extension of stored meshes.
const Ext = ".glb"

// ErrNotFound is returned for asset paths that hold no mesh.
var ErrNotFound = errors.New("asset not found")

// DiskStore stores meshes as .glb files below Root. When STL is set every
// commit also writes an .stl next to the .glb.
type DiskStore struct {
	Root string
	STL  bool
}

// NewDiskStore returns a store rooted at root.
func NewDiskStore(root string, stl bool) *DiskStore {
	return &DiskStore{Root: root, STL: stl}
}

// File returns the .glb file that holds assetPath.
func (s *DiskStore) File(assetPath string) (string, error) {
	clean, err := cleanPath(assetPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean)) + Ext, nil
}

// AssetPath maps a .glb file below Root back to its asset path.
func (s *DiskStore) AssetPath(file string) (string, error) {
	rel, err := filepath.Rel(s.Root, file)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("assets: %s is outside %s", file, s.Root)
	}
	if filepath.Ext(rel) != Ext {
		return "", fmt.Errorf("assets: %s is not a %s file", file, Ext)
	}
	return "/" + filepath.ToSlash(strings.TrimSuffix(rel, Ext)), nil
}

// Exists reports whether a mesh is stored at assetPath.
func (s *DiskStore) Exists(assetPath string) bool {
	file, err := s.File(assetPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(file)
	return err == nil
}

// Load reads the mesh at assetPath. The returned source has one LOD.
func (s *DiskStore) Load(assetPath string) (mesh.Source, error) {
	file, err := s.File(assetPath)
	if err != nil {
		return nil, err
	}
	doc, err := gltf.Open(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("assets: %s: %w", assetPath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("assets: open %s: %w", assetPath, err)
	}
	b, err := decode(doc)
	if err != nil {
		return nil, fmt.Errorf("assets: decode %s: %w", assetPath, err)
	}
	return mesh.NewStaticSource(assetPath, b), nil
}

// GUID returns the identifier stamped into the asset when it was first
// committed. Renames keep it.
func (s *DiskStore) GUID(assetPath string) (string, error) {
	file, err := s.File(assetPath)
	if err != nil {
		return "", err
	}
	doc, err := gltf.Open(file)
	if err != nil {
		return "", fmt.Errorf("assets: open %s: %w", assetPath, err)
	}
	return guidOf(doc), nil
}

// Commit writes m's render buffers to assetPath, creating folders as needed.
func (s *DiskStore) Commit(ctx context.Context, assetPath string, m *mesh.LocalMesh) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Put(assetPath, m.RenderBuffers())
}

// Put writes b to assetPath.
func (s *DiskStore) Put(assetPath string, b *mesh.Buffers) error {
	file, err := s.File(assetPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	guid := uuid.NewString()
	if doc, err := gltf.Open(file); err == nil {
		if g := guidOf(doc); g != "" {
			guid = g
		}
	}
	if err := gltf.SaveBinary(encode(path.Base(assetPath), guid, b), file); err != nil {
		return fmt.Errorf("assets: save %s: %w", assetPath, err)
	}
	logging.Debug("saved %s (%d vertices, %d triangles) to %s", assetPath, b.VertexCount(), b.TriangleCount(), file)

	if s.STL {
		stl := strings.TrimSuffix(file, Ext) + ".stl"
		if err := sdfx.SaveSTL(stl, b); err != nil {
			return fmt.Errorf("assets: export %s: %w", assetPath, err)
		}
	}
	return nil
}

// Rename moves the mesh at from to to. The destination must not exist.
func (s *DiskStore) Rename(from, to string) error {
	src, err := s.File(from)
	if err != nil {
		return err
	}
	dst, err := s.File(to)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("assets: rename %s: %w", from, ErrNotFound)
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("assets: rename %s: %s already exists", from, to)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("assets: rename %s: %w", from, err)
	}
	stlFrom, stlTo := strings.TrimSuffix(src, Ext)+".stl", strings.TrimSuffix(dst, Ext)+".stl"
	if _, err := os.Stat(stlFrom); err == nil {
		if err := os.Rename(stlFrom, stlTo); err != nil {
			return fmt.Errorf("assets: rename %s: %w", from, err)
		}
	}
	return nil
}

// Delete removes the mesh at assetPath.
func (s *DiskStore) Delete(assetPath string) error {
	file, err := s.File(assetPath)
	if err != nil {
		return err
	}
	if err := os.Remove(file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("assets: delete %s: %w", assetPath, ErrNotFound)
		}
		return fmt.Errorf("assets: delete %s: %w", assetPath, err)
	}
	stl := strings.TrimSuffix(file, Ext) + ".stl"
	if err := os.Remove(stl); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("assets: delete %s: leaving %s: %v", assetPath, stl, err)
	}
	return nil
}

// EnsureFolder creates folder and its parents.
func (s *DiskStore) EnsureFolder(folder string) error {
	clean, err := cleanPath(folder)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.Root, filepath.FromSlash(clean)), 0o755); err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	return nil
}

// cleanPath normalises an asset path. Paths must be absolute and may not
// climb out of the root.
func cleanPath(assetPath string) (string, error) {
	if !strings.HasPrefix(assetPath, "/") {
		return "", fmt.Errorf("assets: path %q is not absolute", assetPath)
	}
	for _, elem := range strings.Split(assetPath, "/") {
		if elem == ".." {
			return "", fmt.Errorf("assets: path %q leaves the root", assetPath)
		}
	}
	clean := path.Clean(assetPath)
	if clean == "/" {
		return "", fmt.Errorf("assets: empty path")
	}
	return clean, nil
}
