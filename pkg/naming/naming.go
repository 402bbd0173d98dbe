// Package naming derives asset paths, folders and labels for split parts and
// merge results. Asset paths are slash-separated ("/Game/Props/Rock") and
// never carry a file extension.
package naming

import (
	"fmt"
	"path"
	"strings"
)

const (
	splitDir  = "Split"
	mergedDir = "Merged"
)

// SplitPartName returns the name of the i-th part split from base.
func SplitPartName(base string, i int) string {
	return fmt.Sprintf("%s_%d", base, i)
}

// SplitFolder returns the folder that receives the parts split from the
// asset base living in basePath.
func SplitFolder(basePath, base string) string {
	return path.Join(basePath, base, splitDir)
}

// RelocatedOriginal returns the path an original asset is moved to before
// its parts are written: a folder named after it, next to the Split folder.
func RelocatedOriginal(basePath, base string) string {
	return path.Join(basePath, base, base)
}

// MergedFolder returns the folder for a merge result: the parent of the first
// input's folder, plus Merged.
func MergedFolder(firstMeshFolder string) string {
	return path.Join(path.Dir(path.Clean(firstMeshFolder)), mergedDir)
}

// IsMergedFolder reports whether folder is a Merged folder.
func IsMergedFolder(folder string) bool {
	return path.Base(path.Clean(folder)) == mergedDir
}

// MergeBaseName strips the last "_<suffix>" from name. A name without an
// underscore is returned unchanged.
func MergeBaseName(name string) string {
	if i := strings.LastIndexByte(name, '_'); i >= 0 {
		return name[:i]
	}
	return name
}

// NextFreeName returns the lowest base_<i> (i >= 0) whose path in folder does
// not exist.
func NextFreeName(folder, base string, exists func(assetPath string) bool) string {
	for i := 0; ; i++ {
		name := SplitPartName(base, i)
		if !exists(path.Join(folder, name)) {
			return name
		}
	}
}

// SplitActorFolder returns the scene folder for the actors of parts split
// from base, relative to the original actor's folder.
func SplitActorFolder(actorFolder, base string) string {
	return joinFolder(actorFolder, base, splitDir)
}

// MergedActorFolder returns the scene folder for a merged actor: the first
// input's folder with one trailing /Split removed.
func MergedActorFolder(actorFolder string) string {
	if actorFolder == splitDir {
		return ""
	}
	return strings.TrimSuffix(actorFolder, "/"+splitDir)
}

// Split separates an asset path into its folder and name.
func Split(assetPath string) (folder, name string) {
	clean := path.Clean(assetPath)
	return path.Dir(clean), path.Base(clean)
}

// joinFolder joins scene folder elements. Scene folders are relative, so an
// empty parent yields a relative result.
func joinFolder(elem ...string) string {
	var parts []string
	for _, e := range elem {
		if e = strings.Trim(e, "/"); e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "/")
}
