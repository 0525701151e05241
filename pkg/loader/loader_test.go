package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sloanyang/gyp/pkg/gyperr"
	"github.com/sloanyang/gyp/pkg/value"
)

func loadAll(t *testing.T, fsys MemFS, vars Variables, roots ...string) *Cache {
	t.Helper()
	cache := NewCache()
	l := New(vars, WithReader(fsys))
	for _, r := range roots {
		require.NoError(t, l.Load(context.Background(), r, cache))
	}
	return cache
}

func TestParseKeepsOrderAndScalars(t *testing.T) {
	m, err := Parse("x.gyp", []byte(`
zeta: 1
alpha: two
flag: true
ratio: 0.5
hex: 0x10
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "flag", "ratio", "hex"}, m.Keys())

	z, _ := m.Get("zeta")
	assert.Equal(t, value.Int(1), z)
	flag, _ := m.Get("flag")
	assert.Equal(t, value.String("true"), flag)
	ratio, _ := m.Get("ratio")
	assert.Equal(t, value.String("0.5"), ratio)
	hex, _ := m.Get("hex")
	assert.Equal(t, value.Int(16), hex)
}

func TestParseFlowStyleLiteral(t *testing.T) {
	m, err := Parse("x.gyp", []byte(`
# comment
{'targets': [{'name': 'base', 'type': 'static_library', 'sources': ['a.cc', 'b.cc']}]}
`))
	require.NoError(t, err)
	targets, ok := m.GetList("targets")
	require.True(t, ok)
	require.Equal(t, 1, targets.Len())
	sources, _ := targets.At(0).(*value.Map).GetList("sources")
	assert.Equal(t, []string{"a.cc", "b.cc"}, sources.Strings())
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"not yaml":      "targets: [a, b",
		"top level":     "- a\n- b\n",
		"null value":    "name: ~\n",
		"int key":       "1: a\n",
		"duplicate key": "a: 1\na: 2\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("bad.gyp", []byte(content))
			var pe *gyperr.ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, "bad.gyp", pe.Path)
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	m, err := Parse("empty.gyp", []byte("# nothing here\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestParseFollowsAliases(t *testing.T) {
	m, err := Parse("a.gyp", []byte(`
common: &common [a.cc, b.cc]
sources: *common
`))
	require.NoError(t, err)
	sources, ok := m.GetList("sources")
	require.True(t, ok)
	assert.Equal(t, []string{"a.cc", "b.cc"}, sources.Strings())
}

func TestParseRejectsRecursiveAlias(t *testing.T) {
	for name, content := range map[string]string{
		"sequence": "a: &x [1, *x]\n",
		"mapping":  "a: &x {b: *x}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("cyc.gyp", []byte(content))
			var pe *gyperr.ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, "cyc.gyp", pe.Path)
			assert.Contains(t, err.Error(), "refers to itself")
		})
	}
}

func TestParseReusesAliasInSiblings(t *testing.T) {
	m, err := Parse("a.gyp", []byte(`
common: &c [x.cc]
both: [*c, *c]
`))
	require.NoError(t, err)
	both, ok := m.GetList("both")
	require.True(t, ok)
	assert.Equal(t, 2, both.Len())
}

func TestParseLimitsAliasExpansion(t *testing.T) {
	// each level holds ten aliases to the previous one: 10^6 values
	var b strings.Builder
	b.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= 5; i++ {
		refs := strings.TrimSuffix(strings.Repeat(fmt.Sprintf("*l%d, ", i-1), 10), ", ")
		fmt.Fprintf(&b, "l%d: &l%d [%s]\n", i, i, refs)
	}

	_, err := Parse("laughs.gyp", []byte(b.String()))
	var pe *gyperr.ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "laughs.gyp", pe.Path)
	assert.Contains(t, err.Error(), "alias expansion exceeds")
}

func TestEvaluateConditionsMergesEveryActiveOverlay(t *testing.T) {
	tree, err := Parse("a.gyp", []byte(`
targets:
  - name: app
    sources: [main.cc]
    conditions:
      - ['OS==mac', {sources: [mac.cc]}]
      - ['OS==linux', {sources: [linux.cc]}]
      - ['OS==mac', {defines: [MAC]}]
`))
	require.NoError(t, err)

	require.NoError(t, EvaluateConditions(tree, "a.gyp", NewVariables("OS==mac")))

	targets, _ := tree.GetList("targets")
	app := targets.At(0).(*value.Map)
	assert.False(t, app.Has("conditions"))
	sources, _ := app.GetList("sources")
	assert.Equal(t, []string{"main.cc", "mac.cc"}, sources.Strings())
	defines, _ := app.GetList("defines")
	assert.Equal(t, []string{"MAC"}, defines.Strings())
}

func TestEvaluateConditionsNestedInOverlay(t *testing.T) {
	tree := value.MapOf("conditions", value.ListOf(
		value.ListOf("a", value.MapOf(
			"x", 1,
			"conditions", value.ListOf(value.ListOf("b", value.MapOf("y", 2))),
		)),
	))

	require.NoError(t, EvaluateConditions(tree, "t.gyp", NewVariables("a", "b")))
	assert.True(t, value.Equal(value.MapOf("x", 1, "y", 2), tree))
}

func TestEvaluateConditionsMalformed(t *testing.T) {
	tree := value.MapOf("conditions", value.ListOf(value.ListOf("only-expression")))

	err := EvaluateConditions(tree, "t.gyp", NewVariables())
	var pe *gyperr.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "t.gyp", pe.Path)
}

func TestResolutionIsIdentityWithoutDirectives(t *testing.T) {
	tree := value.MapOf(
		"targets", value.ListOf(value.MapOf("name", "a", "sources", []string{"a.cc"})),
		"settings", value.MapOf("defines", []string{"X"}),
	)
	snapshot := tree.Clone()

	require.NoError(t, ResolveIncludes(tree, "a.gyp", func(string) (*value.Map, error) {
		t.Fatal("no include expected")
		return nil, nil
	}))
	require.NoError(t, EvaluateConditions(tree, "a.gyp", NewVariables("OS==mac")))
	assert.True(t, value.Equal(snapshot, tree))
}

func TestIncludeRewritesPathsRelativeToIncludingUnit(t *testing.T) {
	fsys := MemFS{
		"sub/dir/a.gyp": `
includes: [../shared.gypi]
targets:
  - name: a
`,
		"sub/shared.gypi": `
settings:
  sources: [x.cc]
`,
	}

	cache := loadAll(t, fsys, NewVariables(), "sub/dir/a.gyp")

	u, ok := cache.Get("sub/dir/a.gyp")
	require.True(t, ok)
	assert.False(t, u.Data.Has("includes"))
	settings, ok := u.Settings()
	require.True(t, ok)
	sources, _ := settings.GetList("sources")
	assert.Equal(t, []string{"../x.cc"}, sources.Strings())
}

func TestIncludeInsideTargetAndNestedInclude(t *testing.T) {
	fsys := MemFS{
		"app/app.gyp": `
targets:
  - name: app
    includes: [../common/target.gypi]
    sources: [main.cc]
`,
		"common/target.gypi": `
includes: [deeper/more.gypi]
conditions:
  - ['OS==linux', {sources: [linux.cc]}]
`,
		"common/deeper/more.gypi": `
sources: [more.cc]
`,
	}

	cache := loadAll(t, fsys, NewVariables("OS==linux"), "app/app.gyp")

	u, _ := cache.Get("app/app.gyp")
	targets, _ := u.Targets()
	require.Len(t, targets, 1)
	sources, _ := targets[0].GetList("sources")
	assert.Equal(t, []string{"main.cc", "../common/deeper/more.cc", "../common/linux.cc"}, sources.Strings())
	assert.Equal(t, []string{"app/app.gyp", "common/target.gypi", "common/deeper/more.gypi"}, cache.Files())
}

func TestConditionCanAddIncludes(t *testing.T) {
	fsys := MemFS{
		"a.gyp": `
conditions:
  - ['OS==win', {includes: [win.gypi]}]
`,
		"win.gypi": `
settings: {defines: [WIN]}
`,
	}

	cache := loadAll(t, fsys, NewVariables("OS==win"), "a.gyp")
	u, _ := cache.Get("a.gyp")
	settings, ok := u.Settings()
	require.True(t, ok)
	defines, _ := settings.GetList("defines")
	assert.Equal(t, []string{"WIN"}, defines.Strings())
}

func TestIncludeCycle(t *testing.T) {
	fsys := MemFS{
		"a.gyp":  "includes: [b.gypi]\n",
		"b.gypi": "includes: [c.gypi]\n",
		"c.gypi": "includes: [b.gypi]\n",
	}

	err := New(NewVariables(), WithReader(fsys)).Load(context.Background(), "a.gyp", NewCache())
	var cycle *gyperr.IncludeCycleError
	require.True(t, errors.As(err, &cycle), "got %v", err)
	assert.Equal(t, []string{"a.gyp", "b.gypi", "c.gypi", "b.gypi"}, cycle.Chain)
	assert.Contains(t, err.Error(), "while reading includes of a.gyp")
}

func TestMissingInclude(t *testing.T) {
	fsys := MemFS{"a.gyp": "includes: [gone.gypi]\n"}

	err := New(NewVariables(), WithReader(fsys)).Load(context.Background(), "a.gyp", NewCache())
	var unresolved *gyperr.UnresolvedReferenceError
	require.True(t, errors.As(err, &unresolved), "got %v", err)
	assert.Equal(t, "gone.gypi", unresolved.Ref)
	assert.Equal(t, "a.gyp", unresolved.From)
}

func TestLoaderFollowsDependencies(t *testing.T) {
	fsys := MemFS{
		"app/app.gyp": `
targets:
  - name: app
    dependencies: ['../lib/lib.gyp:base', 'helper']
  - name: helper
`,
		"lib/lib.gyp": `
targets:
  - name: base
    dependencies: ['../app/app.gyp:helper', 'third.gyp:t']
`,
		"lib/third.gyp": `
targets:
  - name: t
`,
	}

	cache := loadAll(t, fsys, NewVariables(), "app/app.gyp", "lib/lib.gyp")

	var paths []string
	for _, u := range cache.Units() {
		paths = append(paths, u.Path)
	}
	assert.Equal(t, []string{"app/app.gyp", "lib/lib.gyp", "lib/third.gyp"}, paths)
}

func TestLoaderMissingDependencyUnit(t *testing.T) {
	fsys := MemFS{
		"app.gyp": `
targets:
  - name: app
    dependencies: ['missing/m.gyp:x']
`,
	}

	err := New(NewVariables(), WithReader(fsys)).Load(context.Background(), "app.gyp", NewCache())
	var unresolved *gyperr.UnresolvedReferenceError
	require.True(t, errors.As(err, &unresolved), "got %v", err)
	assert.Equal(t, "missing/m.gyp", unresolved.Ref)
	assert.Equal(t, "app.gyp", unresolved.From)
}

func TestLoaderMissingRootUnit(t *testing.T) {
	err := New(NewVariables(), WithReader(MemFS{})).Load(context.Background(), "nope.gyp", NewCache())
	var unresolved *gyperr.UnresolvedReferenceError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "command line", unresolved.From)
}

func TestLoaderRejectsNonStringDependency(t *testing.T) {
	fsys := MemFS{"a.gyp": "targets:\n  - name: a\n    dependencies: [1]\n"}

	err := New(NewVariables(), WithReader(fsys)).Load(context.Background(), "a.gyp", NewCache())
	var pe *gyperr.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestLoaderHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(NewVariables(), WithReader(MemFS{"a.gyp": ""})).Load(ctx, "a.gyp", NewCache())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVariables(t *testing.T) {
	v := NewVariables("OS==mac", "a")
	w := v.With("b")

	assert.True(t, w.Has("OS==mac"))
	assert.True(t, w.Has("b"))
	assert.False(t, v.Has("b"))
	assert.Equal(t, []string{"OS==mac", "a", "b"}, w.Sorted())
}

func TestParseCacheAcrossRuns(t *testing.T) {
	fsys := MemFS{
		"a.gyp":  "includes: [b.gypi]\ntargets:\n  - name: a\n    sources: [a.cc]\n",
		"b.gypi": "sources: [b.cc]\n",
	}
	parses, err := NewParseCache(16)
	require.NoError(t, err)

	run := func() *value.Map {
		cache := NewCache()
		require.NoError(t, New(NewVariables(), WithReader(fsys), WithParseCache(parses)).Load(context.Background(), "a.gyp", cache))
		u, ok := cache.Get("a.gyp")
		require.True(t, ok)
		return u.Data
	}

	first := run()
	assert.Equal(t, 2, parses.Len())

	// resolution mutates the loaded tree; the cached copy must not see it
	second := run()
	assert.True(t, value.Equal(first, second))
	assert.Equal(t, []string{"targets", "sources"}, second.Keys())

	fsys["b.gypi"] = "sources: [c.cc]\n"
	third := run()
	sources, _ := third.GetList("sources")
	assert.Equal(t, []string{"c.cc"}, sources.Strings())
	assert.Equal(t, 3, parses.Len())
}
