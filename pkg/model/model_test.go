package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sloanyang/gyp/pkg/gyperr"
	"github.com/sloanyang/gyp/pkg/value"
)

func target(name string, kv ...any) *value.Map {
	m := value.MapOf("name", name)
	extra := value.MapOf(kv...)
	extra.Range(func(k string, v value.Value) bool {
		m.Set(k, v)
		return true
	})
	return m
}

func unit(path string, targets ...*value.Map) *Unit {
	list := value.NewList()
	for _, t := range targets {
		list.Append(t)
	}
	return &Unit{Path: path, Data: value.MapOf("targets", list)}
}

func TestSplitReference(t *testing.T) {
	tests := []struct {
		unitPath, ref              string
		wantUnit, wantName, wantQN string
	}{
		{"a/x.gyp", "base", "a/x.gyp", "base", "a/x.gyp:base"},
		{"a/x.gyp", "../b/y.gyp:lib", "b/y.gyp", "lib", "b/y.gyp:lib"},
		{"x.gyp", "sub/z.gyp:t", "sub/z.gyp", "t", "sub/z.gyp:t"},
		{"a/x.gyp", "/abs/u.gyp:t", "/abs/u.gyp", "t", "/abs/u.gyp:t"},
		{"a/x.gyp", "./x.gyp:self", "a/x.gyp", "self", "a/x.gyp:self"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			u, n, q := SplitReference(tt.unitPath, tt.ref)
			assert.Equal(t, tt.wantUnit, u)
			assert.Equal(t, tt.wantName, n)
			assert.Equal(t, tt.wantQN, q)
		})
	}
}

func TestBuildTargetTableOrder(t *testing.T) {
	units := []*Unit{
		unit("b.gyp", target("z"), target("a")),
		unit("a.gyp", target("m")),
	}

	table, err := BuildTargetTable(units)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.gyp:z", "b.gyp:a", "a.gyp:m"}, table.Names())

	tgt, ok := table.Get("b.gyp:a")
	require.True(t, ok)
	assert.Equal(t, "a", tgt.Name)
	assert.Equal(t, "b.gyp", tgt.Unit)
}

func TestBuildTargetTableSameNameInDifferentUnits(t *testing.T) {
	table, err := BuildTargetTable([]*Unit{
		unit("a.gyp", target("base")),
		unit("b.gyp", target("base")),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestBuildTargetTableDuplicate(t *testing.T) {
	_, err := BuildTargetTable([]*Unit{unit("a.gyp", target("base"), target("base"))})

	var dup *gyperr.DuplicateTargetError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "a.gyp", dup.Unit)
	assert.Equal(t, "base", dup.Name)
}

func TestBuildTargetTableMissingName(t *testing.T) {
	u := &Unit{Path: "a.gyp", Data: value.MapOf("targets", value.ListOf(value.MapOf("type", "executable")))}
	_, err := BuildTargetTable([]*Unit{u})

	var pe *gyperr.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "a.gyp", pe.Path)
}

func TestUnitTargetsRejectsNonList(t *testing.T) {
	u := &Unit{Path: "a.gyp", Data: value.MapOf("targets", "nope")}
	_, err := u.Targets()

	var pe *gyperr.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestTargetAccessors(t *testing.T) {
	tgt := &Target{Record: target("lib", "type", "static_library", "dependencies", []string{"a", "b"})}
	assert.True(t, tgt.IsStaticLibrary())
	assert.Equal(t, []string{"a", "b"}, tgt.Dependencies())
	assert.Nil(t, tgt.StringList("libraries"))

	plain := &Target{Record: target("app")}
	assert.False(t, plain.IsStaticLibrary())
	assert.Equal(t, TargetType(""), plain.Type())
}

func TestExportGraphAndUnitDependencies(t *testing.T) {
	table, err := BuildTargetTable([]*Unit{
		unit("app.gyp", target("app", "dependencies", []string{"lib.gyp:base", "app.gyp:util"}), target("util")),
		unit("lib.gyp", target("base", "type", "static_library")),
	})
	require.NoError(t, err)

	g := ExportGraph(table)
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, "app.gyp", g.Nodes[0].Parent)
	assert.Equal(t, TypeStaticLibrary, g.Nodes[2].Type)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, &Edge{Source: "app.gyp:app", Target: "lib.gyp:base"}, g.Edges[0])

	uds := UnitDependencies(table)
	require.Len(t, uds, 1)
	assert.Equal(t, "app.gyp", uds[0].From)
	assert.Equal(t, "lib.gyp", uds[0].To)
	assert.Len(t, uds[0].Edges, 1)
}
