package loader

import "github.com/sloanyang/gyp/pkg/value"

// visitMaps calls fn on m and then on every mapping below it, including
// mappings held in lists. fn runs before the children are listed, so
// anything it merges into m is visited as well.
func visitMaps(m *value.Map, fn func(*value.Map) error) error {
	if err := fn(m); err != nil {
		return err
	}
	var err error
	m.Range(func(_ string, v value.Value) bool {
		err = visitValue(v, fn)
		return err == nil
	})
	return err
}

func visitValue(v value.Value, fn func(*value.Map) error) error {
	switch t := v.(type) {
	case *value.Map:
		return visitMaps(t, fn)
	case *value.List:
		for _, item := range t.Values() {
			if err := visitValue(item, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// containsKey reports whether any mapping in the tree has key
func containsKey(v value.Value, key string) bool {
	switch t := v.(type) {
	case *value.Map:
		if t.Has(key) {
			return true
		}
		found := false
		t.Range(func(_ string, child value.Value) bool {
			found = containsKey(child, key)
			return !found
		})
		return found
	case *value.List:
		for _, item := range t.Values() {
			if containsKey(item, key) {
				return true
			}
		}
	}
	return false
}
