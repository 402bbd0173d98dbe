package mesh

import (
	"fmt"
	"path"
)

// StaticSource is a Source backed by buffers held in memory.
type StaticSource struct {
	AssetPath string
	LODs      []*Buffers
}

// NewStaticSource returns a Source for the asset at assetPath with the given
// LOD buffers, most detailed first.
func NewStaticSource(assetPath string, lods ...*Buffers) *StaticSource {
	return &StaticSource{AssetPath: assetPath, LODs: lods}
}

// Name returns the last element of the asset path.
func (s *StaticSource) Name() string {
	return path.Base(s.AssetPath)
}

// Path returns the asset path.
func (s *StaticSource) Path() string {
	return s.AssetPath
}

// NumLODs returns the number of LOD levels.
func (s *StaticSource) NumLODs() int {
	return len(s.LODs)
}

// LOD returns the buffers of level i.
func (s *StaticSource) LOD(i int) (*Buffers, error) {
	if i < 0 || i >= len(s.LODs) {
		return nil, fmt.Errorf("LOD %d out of range (have %d)", i, len(s.LODs))
	}
	return s.LODs[i], nil
}
