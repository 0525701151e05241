// Package merge implements the type-directed deep merge used for includes,
// conditional overlays, file-wide settings and dependent settings.
package merge

import (
	"path/filepath"
	"slices"

	"github.com/sloanyang/gyp/pkg/gyperr"
	"github.com/sloanyang/gyp/pkg/value"
)

// PathKeys are the list keys whose string items are paths relative to the
// unit they were written in
var PathKeys = []string{"include_dirs", "sources", "xcode_framework_dirs"}

// IsPathKey reports whether items under key get rewritten across units
func IsPathKey(key string) bool {
	return slices.Contains(PathKeys, key)
}

// Merge merges from into to in place.
//
// toOrigin and fromOrigin are the unit paths the two trees were read from.
// Scalars overwrite, maps merge recursively and lists append. Nothing in to
// ends up sharing structure with from.
func Merge(to, from *value.Map, toOrigin, fromOrigin string) error {
	var err error
	from.Range(func(k string, v value.Value) bool {
		err = mergeKey(to, k, v, toOrigin, fromOrigin)
		return err == nil
	})
	return err
}

func mergeKey(to *value.Map, k string, v value.Value, toOrigin, fromOrigin string) error {
	if v == nil {
		return &gyperr.MergeTypeError{Key: k, From: "nil"}
	}
	if existing, ok := to.Get(k); ok && existing.Kind() != v.Kind() {
		return &gyperr.MergeTypeError{Key: k, From: v.Kind().String(), To: existing.Kind().String()}
	}

	switch fv := v.(type) {
	case value.String, value.Int:
		to.Set(k, fv)
	case *value.Map:
		dst, ok := to.GetMap(k)
		if !ok {
			dst = value.NewMap()
			to.Set(k, dst)
		}
		return Merge(dst, fv, toOrigin, fromOrigin)
	case *value.List:
		dst, ok := to.GetList(k)
		if !ok {
			dst = value.NewList()
			to.Set(k, dst)
		}
		return MergeLists(dst, fv, toOrigin, fromOrigin, IsPathKey(k))
	default:
		return &gyperr.MergeTypeError{Key: k, From: v.Kind().String()}
	}
	return nil
}

// MergeLists appends copies of the items of from onto to. When isPaths is set
// and the origins differ, string items are rewritten so they stay relative
// to the directory of toOrigin.
func MergeLists(to, from *value.List, toOrigin, fromOrigin string, isPaths bool) error {
	rewrite := isPaths && toOrigin != fromOrigin
	var prefix string
	if rewrite {
		prefix = RelativePath(filepath.Dir(fromOrigin), filepath.Dir(toOrigin))
	}

	for _, item := range from.Values() {
		switch iv := item.(type) {
		case value.String:
			if rewrite {
				to.Append(value.String(rebase(prefix, string(iv))))
			} else {
				to.Append(iv)
			}
		case value.Int:
			to.Append(iv)
		case *value.Map, *value.List:
			to.Append(iv.Clone())
		default:
			kind := "nil"
			if item != nil {
				kind = item.Kind().String()
			}
			return &gyperr.MergeTypeError{Key: "list item", From: kind}
		}
	}
	return nil
}

func rebase(prefix, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(prefix, path))
}
