// Package settings runs the passes that move settings between targets once
// the dependency graph is final: unit-wide settings, one-hop dependent
// settings and static library link flattening.
package settings

import (
	"fmt"

	"github.com/sloanyang/gyp/pkg/graph"
	"github.com/sloanyang/gyp/pkg/gyperr"
	"github.com/sloanyang/gyp/pkg/logging"
	"github.com/sloanyang/gyp/pkg/merge"
	"github.com/sloanyang/gyp/pkg/model"
	"github.com/sloanyang/gyp/pkg/value"
)

// ApplyFileSettings merges each unit's top-level settings into every target
// the unit declares
func ApplyFileSettings(units []*model.Unit, table *model.TargetTable) error {
	for _, u := range units {
		settings, ok := u.Settings()
		if !ok {
			continue
		}
		records, err := u.Targets()
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := merge.Merge(rec, settings, u.Path, u.Path); err != nil {
				name, _ := rec.GetString(model.KeyName)
				return fmt.Errorf("applying settings of %s to %s: %w", u.Path, name, err)
			}
		}
	}
	return nil
}

// ApplyDependentSettings merges the dependent_settings of each direct
// dependency into the target depending on it, walking targets in order.
//
// Propagation stops after one hop: a target does not pass on what it
// received unless it declares its own dependent_settings.
func ApplyDependentSettings(order []string, table *model.TargetTable) error {
	for _, ref := range order {
		t, ok := table.Get(ref)
		if !ok {
			return fmt.Errorf("target %s missing from table", ref)
		}
		for _, depRef := range t.Dependencies() {
			dep, ok := table.Get(depRef)
			if !ok {
				// only a reference added after graph.Build can miss here
				return &gyperr.UnresolvedReferenceError{Ref: depRef, From: ref}
			}
			ds, ok := dep.Record.GetMap(model.KeyDependentSettings)
			if !ok {
				continue
			}
			if err := merge.Merge(t.Record, ds, t.Unit, dep.Unit); err != nil {
				return fmt.Errorf("applying dependent settings of %s to %s: %w", depRef, ref, err)
			}
		}
	}
	return nil
}

// FlattenStaticLibraries hoists every static library, and the external
// libraries it links, into each non-static target that reaches it. The
// library itself then drops its dependencies and libraries, since only
// final link targets enumerate the closure. Running it again changes nothing.
func FlattenStaticLibraries(order []string, table *model.TargetTable, g *graph.Graph) error {
	log := logging.New("settings")

	for _, ref := range order {
		lib, ok := table.Get(ref)
		if !ok || !lib.IsStaticLibrary() {
			continue
		}
		node, ok := g.Node(ref)
		if !ok {
			return fmt.Errorf("static library %s missing from graph", ref)
		}

		libLibraries := lib.StringList(model.KeyLibraries)
		for _, dependentRef := range node.DeepDependents() {
			dependent, ok := table.Get(dependentRef)
			if !ok || dependent.IsStaticLibrary() {
				continue
			}
			addedDeps, err := appendMissing(dependent.Record, model.KeyDependencies, []string{ref})
			if err != nil {
				return fmt.Errorf("flattening %s into %s: %w", ref, dependentRef, err)
			}
			addedLibs, err := appendMissing(dependent.Record, model.KeyLibraries, libLibraries)
			if err != nil {
				return fmt.Errorf("flattening %s into %s: %w", ref, dependentRef, err)
			}
			if added := addedDeps + addedLibs; added > 0 {
				log.Debug("hoisted static library", "library", ref, "into", dependentRef, "entries", added)
			}
		}

		lib.Record.Delete(model.KeyDependencies)
		lib.Record.Delete(model.KeyLibraries)
	}
	return nil
}

// appendMissing appends each item not yet present in rec[key], creating the
// list when needed, and returns how many were appended
func appendMissing(rec *value.Map, key string, items []string) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	var list *value.List
	switch v, _ := rec.Get(key); existing := v.(type) {
	case nil:
		list = value.NewList()
		rec.Set(key, list)
	case *value.List:
		list = existing
	default:
		return 0, &gyperr.MergeTypeError{Key: key, From: value.KindList.String(), To: existing.Kind().String()}
	}
	added := 0
	for _, item := range items {
		s := value.String(item)
		if list.Contains(s) {
			continue
		}
		list.Append(s)
		added++
	}
	return added, nil
}
