package loader

import (
	"fmt"
	"slices"

	"github.com/sloanyang/gyp/pkg/gyperr"
	"github.com/sloanyang/gyp/pkg/merge"
	"github.com/sloanyang/gyp/pkg/model"
	"github.com/sloanyang/gyp/pkg/value"
)

// Variables is the set of active tokens a condition expression is tested against
type Variables struct {
	set map[string]struct{}
}

// NewVariables creates a set holding tokens
func NewVariables(tokens ...string) Variables {
	v := Variables{set: make(map[string]struct{}, len(tokens))}
	for _, t := range tokens {
		v.set[t] = struct{}{}
	}
	return v
}

// Has reports whether expr is an active token
func (v Variables) Has(expr string) bool {
	_, ok := v.set[expr]
	return ok
}

// With returns a copy of the set extended by tokens
func (v Variables) With(tokens ...string) Variables {
	out := NewVariables(tokens...)
	for t := range v.set {
		out.set[t] = struct{}{}
	}
	return out
}

// Sorted returns the tokens in lexical order
func (v Variables) Sorted() []string {
	out := make([]string, 0, len(v.set))
	for t := range v.set {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// EvaluateConditions removes every conditions key in tree. Each entry is an
// [expression, overlay] pair; the overlay of every active expression is
// merged into the enclosing mapping, in order. Overlays may carry further
// conditions, which are evaluated in turn.
func EvaluateConditions(tree *value.Map, path string, vars Variables) error {
	return visitMaps(tree, func(m *value.Map) error {
		for {
			v, ok := m.Delete(model.KeyConditions)
			if !ok {
				return nil
			}
			if err := applyConditions(m, v, path, vars); err != nil {
				return err
			}
		}
	})
}

func applyConditions(m *value.Map, v value.Value, path string, vars Variables) error {
	list, ok := v.(*value.List)
	if !ok {
		return &gyperr.ParseError{Path: path, Err: fmt.Errorf("conditions is a %s, not a list", v.Kind())}
	}

	for i, entry := range list.Values() {
		expr, overlay, err := conditionPair(entry)
		if err != nil {
			return &gyperr.ParseError{Path: path, Err: fmt.Errorf("conditions[%d]: %w", i, err)}
		}
		if !vars.Has(expr) {
			continue
		}
		if err := merge.Merge(m, overlay, "", ""); err != nil {
			return fmt.Errorf("condition %q in %s: %w", expr, path, err)
		}
	}
	return nil
}

func conditionPair(entry value.Value) (string, *value.Map, error) {
	pair, ok := entry.(*value.List)
	if !ok || pair.Len() != 2 {
		return "", nil, fmt.Errorf("expected an [expression, overlay] pair")
	}
	expr, ok := pair.At(0).(value.String)
	if !ok {
		return "", nil, fmt.Errorf("expression is a %s, not a string", pair.At(0).Kind())
	}
	overlay, ok := pair.At(1).(*value.Map)
	if !ok {
		return "", nil, fmt.Errorf("overlay is a %s, not a mapping", pair.At(1).Kind())
	}
	return string(expr), overlay, nil
}
