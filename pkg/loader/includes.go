package loader

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/sloanyang/gyp/pkg/gyperr"
	"github.com/sloanyang/gyp/pkg/merge"
	"github.com/sloanyang/gyp/pkg/model"
	"github.com/sloanyang/gyp/pkg/value"
)

// IncludeFunc loads an included file in full, its own includes and
// conditions already resolved
type IncludeFunc func(path string) (*value.Map, error)

// ResolveIncludes removes every includes key in tree and merges the listed
// files into the mapping that declared them, in list order. Include paths
// are relative to the directory of path, the unit tree was read from.
func ResolveIncludes(tree *value.Map, path string, load IncludeFunc) error {
	err := visitMaps(tree, func(m *value.Map) error {
		return includeInto(m, path, load)
	})
	if err != nil {
		return fmt.Errorf("while reading includes of %s: %w", path, err)
	}
	return nil
}

func includeInto(m *value.Map, path string, load IncludeFunc) error {
	v, ok := m.Delete(model.KeyIncludes)
	if !ok {
		return nil
	}
	list, ok := v.(*value.List)
	if !ok {
		return &gyperr.ParseError{Path: path, Err: fmt.Errorf("includes is a %s, not a list", v.Kind())}
	}

	for i, item := range list.Values() {
		rel, ok := item.(value.String)
		if !ok {
			return &gyperr.ParseError{Path: path, Err: fmt.Errorf("includes[%d] is a %s, not a string", i, item.Kind())}
		}
		incPath := model.ResolvePath(path, string(rel))

		included, err := load(incPath)
		if err != nil {
			var unresolved *gyperr.UnresolvedReferenceError
			if errors.Is(err, fs.ErrNotExist) && !errors.As(err, &unresolved) {
				return &gyperr.UnresolvedReferenceError{Ref: incPath, From: path, Err: err}
			}
			return err
		}
		if err := merge.Merge(m, included, path, incPath); err != nil {
			return fmt.Errorf("merging %s: %w", incPath, err)
		}
	}
	return nil
}
