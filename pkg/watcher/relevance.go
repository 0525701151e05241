package watcher

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// fileSet tracks the unit and include files read by the last resolution.
// Missing files are tracked too, so creating one triggers a re-run.
type fileSet struct {
	files map[string]bool
	dirs  map[string]bool
}

func newFileSet(paths []string) *fileSet {
	fs := &fileSet{
		files: make(map[string]bool, len(paths)),
		dirs:  make(map[string]bool),
	}
	for _, p := range paths {
		abs := absolute(p)
		fs.files[abs] = true
		fs.dirs[filepath.Dir(abs)] = true
	}
	return fs
}

// relevant reports whether ev touches a tracked file. Chmod alone never
// changes content, so it is ignored.
func (fs *fileSet) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	return fs.files[absolute(ev.Name)]
}

func absolute(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
