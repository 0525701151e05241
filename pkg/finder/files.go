package finder

import (
	"io/fs"
	"path/filepath"
)

// FindUnitFiles returns the files in dir ending in ext, in lexical order.
// Subdirectories are not searched: units elsewhere are reached through
// dependencies.
func FindUnitFiles(dir, ext string) ([]string, error) {
	var units []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == dir {
				return nil
			}
			return filepath.SkipDir
		}

		if filepath.Ext(path) == ext {
			units = append(units, path)
		}

		return nil
	})

	return units, err
}
