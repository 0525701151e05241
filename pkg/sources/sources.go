// Package sources applies a target's source_excludes and source_patterns to
// its sources list.
package sources

import (
	"fmt"
	"regexp"

	"github.com/sloanyang/gyp/pkg/gyperr"
	"github.com/sloanyang/gyp/pkg/logging"
	"github.com/sloanyang/gyp/pkg/model"
	"github.com/sloanyang/gyp/pkg/value"
)

// ActionExclude is the only defined source_patterns action
const ActionExclude = "exclude"

// Process filters the sources of every target in order. Literal
// source_excludes go first, then each exclude pattern in turn removes the
// sources it matches anywhere in the text.
func Process(order []string, table *model.TargetTable) error {
	log := logging.New("sources")

	for _, ref := range order {
		t, ok := table.Get(ref)
		if !ok {
			return fmt.Errorf("target %s missing from table", ref)
		}
		srcs, ok := t.Record.GetList(model.KeySources)
		if !ok {
			continue
		}

		if excludes := t.StringList(model.KeySourceExcludes); len(excludes) > 0 {
			drop := make(map[string]bool, len(excludes))
			for _, e := range excludes {
				drop[e] = true
			}
			removed := srcs.RemoveFunc(func(v value.Value) bool {
				s, ok := v.(value.String)
				return ok && drop[string(s)]
			})
			log.Debug("applied source excludes", "target", ref, "removed", removed)
		}

		patterns, err := patternPairs(t)
		if err != nil {
			return err
		}
		for _, p := range patterns {
			if p.action != ActionExclude {
				log.Warn("ignoring unknown source pattern action", "target", ref, "action", p.action)
				continue
			}
			removed := srcs.RemoveFunc(func(v value.Value) bool {
				s, ok := v.(value.String)
				return ok && p.re.MatchString(string(s))
			})
			log.Debug("applied source pattern", "target", ref, "pattern", p.re.String(), "removed", removed)
		}
	}
	return nil
}

type patternPair struct {
	action string
	re     *regexp.Regexp
}

func patternPairs(t *model.Target) ([]patternPair, error) {
	v, ok := t.Record.Get(model.KeySourcePatterns)
	if !ok {
		return nil, nil
	}
	fail := func(format string, args ...any) error {
		return &gyperr.ParseError{Path: t.Unit, Err: fmt.Errorf("%s: source_patterns"+format, append([]any{t.Name}, args...)...)}
	}

	list, ok := v.(*value.List)
	if !ok {
		return nil, fail(" is a %s, not a list", v.Kind())
	}
	out := make([]patternPair, 0, list.Len())
	for i, item := range list.Values() {
		pair, ok := item.(*value.List)
		if !ok || pair.Len() != 2 {
			return nil, fail("[%d] is not an [action, pattern] pair", i)
		}
		action, okAction := pair.At(0).(value.String)
		pattern, okPattern := pair.At(1).(value.String)
		if !okAction || !okPattern {
			return nil, fail("[%d] must hold two strings", i)
		}
		re, err := regexp.Compile(string(pattern))
		if err != nil {
			return nil, fail("[%d]: %w", i, err)
		}
		out = append(out, patternPair{action: string(action), re: re})
	}
	return out, nil
}
