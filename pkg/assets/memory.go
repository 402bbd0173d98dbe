package assets

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/chazu/ezsplit/pkg/mesh"
)

// MemoryStore keeps meshes in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	meshes  map[string]*mesh.Buffers
	folders map[string]bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		meshes:  make(map[string]*mesh.Buffers),
		folders: make(map[string]bool),
	}
}

// Put stores a copy of b at assetPath.
func (s *MemoryStore) Put(assetPath string, b *mesh.Buffers) error {
	clean, err := cleanPath(assetPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshes[clean] = b.Clone()
	s.folders[path.Dir(clean)] = true
	return nil
}

// Commit stores m's render buffers at assetPath.
func (s *MemoryStore) Commit(ctx context.Context, assetPath string, m *mesh.LocalMesh) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Put(assetPath, m.RenderBuffers())
}

// Load returns the mesh at assetPath.
func (s *MemoryStore) Load(assetPath string) (mesh.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.meshes[path.Clean(assetPath)]
	if !ok {
		return nil, fmt.Errorf("assets: %s: %w", assetPath, ErrNotFound)
	}
	return mesh.NewStaticSource(assetPath, b.Clone()), nil
}

// Exists reports whether a mesh is stored at assetPath.
func (s *MemoryStore) Exists(assetPath string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.meshes[path.Clean(assetPath)]
	return ok
}

// Rename moves the mesh at from to to. The destination must not exist.
func (s *MemoryStore) Rename(from, to string) error {
	dst, err := cleanPath(to)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src := path.Clean(from)
	b, ok := s.meshes[src]
	if !ok {
		return fmt.Errorf("assets: rename %s: %w", from, ErrNotFound)
	}
	if _, exists := s.meshes[dst]; exists {
		return fmt.Errorf("assets: rename %s: %s already exists", from, to)
	}
	delete(s.meshes, src)
	s.meshes[dst] = b
	s.folders[path.Dir(dst)] = true
	return nil
}

// Delete removes the mesh at assetPath.
func (s *MemoryStore) Delete(assetPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := path.Clean(assetPath)
	if _, ok := s.meshes[p]; !ok {
		return fmt.Errorf("assets: delete %s: %w", assetPath, ErrNotFound)
	}
	delete(s.meshes, p)
	return nil
}

// EnsureFolder records folder.
func (s *MemoryStore) EnsureFolder(folder string) error {
	clean, err := cleanPath(folder)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[clean] = true
	return nil
}

// HasFolder reports whether folder was created or holds a mesh.
func (s *MemoryStore) HasFolder(folder string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.folders[path.Clean(folder)]
}

// List returns the asset paths stored below prefix, sorted.
func (s *MemoryStore) List(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for p := range s.meshes {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
