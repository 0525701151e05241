package merge

import (
	"path/filepath"
	"strings"
)

// RelativePath returns a path that names path relative to relativeTo.
// Both are taken relative to the current directory; if exactly one of them
// is absolute, both are made absolute first.
func RelativePath(path, relativeTo string) string {
	if filepath.IsAbs(path) != filepath.IsAbs(relativeTo) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if abs, err := filepath.Abs(relativeTo); err == nil {
			relativeTo = abs
		}
	} else {
		path = filepath.Clean(path)
		relativeTo = filepath.Clean(relativeTo)
	}

	pathSplit := splitPath(path)
	relSplit := splitPath(relativeTo)

	prefix := 0
	for prefix < len(pathSplit) && prefix < len(relSplit) && pathSplit[prefix] == relSplit[prefix] {
		prefix++
	}

	parts := make([]string, 0, len(relSplit)-prefix+len(pathSplit)-prefix)
	for range relSplit[prefix:] {
		parts = append(parts, "..")
	}
	parts = append(parts, pathSplit[prefix:]...)
	if len(parts) == 0 {
		return "."
	}
	return filepath.Join(parts...)
}

// splitPath breaks a cleaned path into components; "." is the empty path.
// Absolute paths keep their leading empty component.
func splitPath(p string) []string {
	if p == "." || p == "" {
		return nil
	}
	return strings.Split(p, string(filepath.Separator))
}
