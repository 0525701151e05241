// Package loader reads unit files, expands their includes and conditions
// and follows target dependencies to every unit they reach.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"

	"github.com/sloanyang/gyp/pkg/gyperr"
	"github.com/sloanyang/gyp/pkg/logging"
	"github.com/sloanyang/gyp/pkg/model"
	"github.com/sloanyang/gyp/pkg/value"
)

// Loader loads units against one variable set
type Loader struct {
	vars   Variables
	reader FileReader
	parses *ParseCache
	log    *slog.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithReader sets where unit files are read from
func WithReader(r FileReader) Option {
	return func(l *Loader) { l.reader = r }
}

// WithParseCache reuses parsed trees from earlier runs
func WithParseCache(c *ParseCache) Option {
	return func(l *Loader) { l.parses = c }
}

// WithLogger sets the logger used for load tracing
func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// New creates a loader evaluating conditions against vars
func New(vars Variables, opts ...Option) *Loader {
	l := &Loader{
		vars:   vars,
		reader: OSReader{},
		log:    logging.New("loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads the unit at path into cache, then every unit reachable through
// target dependencies. Units already in cache are not read again.
func (l *Loader) Load(ctx context.Context, path string, cache *Cache) error {
	return l.load(ctx, model.Normalize(path), "", cache)
}

func (l *Loader) load(ctx context.Context, path, from string, cache *Cache) error {
	if _, ok := cache.Get(path); ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tree, err := l.readResolved(path, nil, cache)
	if err != nil {
		var unresolved *gyperr.UnresolvedReferenceError
		if errors.Is(err, fs.ErrNotExist) && !errors.As(err, &unresolved) {
			if from == "" {
				from = "command line"
			}
			return &gyperr.UnresolvedReferenceError{Ref: path, From: from, Err: err}
		}
		return err
	}

	u := &model.Unit{Path: path, Data: tree}
	cache.add(u)
	l.log.Debug("loaded unit", "path", path, "units", cache.Len())

	records, err := u.Targets()
	if err != nil {
		return err
	}
	for i, rec := range records {
		refs, err := dependencyRefs(rec)
		if err != nil {
			return &gyperr.ParseError{Path: path, Err: fmt.Errorf("targets[%d]: %w", i, err)}
		}
		for _, ref := range refs {
			depUnit, _, _ := model.SplitReference(path, ref)
			if err := l.load(ctx, depUnit, path, cache); err != nil {
				return fmt.Errorf("loading dependency %q of %s: %w", ref, path, err)
			}
		}
	}
	return nil
}

// readResolved reads one file and resolves its includes and conditions
// until neither directive is left. stack holds the include chain for cycle
// detection.
func (l *Loader) readResolved(path string, stack []string, cache *Cache) (*value.Map, error) {
	if slices.Contains(stack, path) {
		return nil, &gyperr.IncludeCycleError{Chain: append(slices.Clone(stack), path)}
	}
	stack = append(slices.Clone(stack), path)

	// recorded before reading so watch mode also notices a missing file appearing
	cache.recordFile(path)
	tree, err := l.readFile(path)
	if err != nil {
		return nil, err
	}

	include := func(incPath string) (*value.Map, error) {
		return l.readResolved(incPath, stack, cache)
	}
	for {
		if err := ResolveIncludes(tree, path, include); err != nil {
			return nil, err
		}
		if err := EvaluateConditions(tree, path, l.vars); err != nil {
			return nil, err
		}
		// an active overlay may have brought in new includes
		if !containsKey(tree, model.KeyIncludes) {
			return tree, nil
		}
	}
}

// readFile reads and parses the file at path. Read failures are wrapped so
// callers can test for fs.ErrNotExist.
func (l *Loader) readFile(path string) (*value.Map, error) {
	data, err := l.reader.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if l.parses == nil {
		return Parse(path, data)
	}
	tree, hit, err := l.parses.parse(path, data)
	if err != nil {
		return nil, err
	}
	logging.Trace("read file", "path", path, "cached", hit)
	return tree, nil
}

func dependencyRefs(rec *value.Map) ([]string, error) {
	v, ok := rec.Get(model.KeyDependencies)
	if !ok {
		return nil, nil
	}
	list, ok := v.(*value.List)
	if !ok {
		return nil, fmt.Errorf("dependencies is a %s, not a list", v.Kind())
	}
	refs := make([]string, 0, list.Len())
	for i, item := range list.Values() {
		s, ok := item.(value.String)
		if !ok {
			return nil, fmt.Errorf("dependencies[%d] is a %s, not a string", i, item.Kind())
		}
		refs = append(refs, string(s))
	}
	return refs, nil
}
