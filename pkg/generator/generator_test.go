package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sloanyang/gyp/pkg/loader"
	"github.com/sloanyang/gyp/pkg/resolve"
)

func resolved(t *testing.T) *resolve.Result {
	t.Helper()
	fsys := loader.MemFS{
		"app.gyp": `
targets:
  - name: app
    type: executable
    dependencies: ['lib/lib.gyp:base']
    sources: [main.cc]
`,
		"lib/lib.gyp": `
targets:
  - name: base
    type: static_library
    libraries: [-lm]
    sources: [a.cc, b.cc]
`,
	}
	res, err := resolve.Resolve(context.Background(), resolve.Options{
		Units:     []string{"app.gyp"},
		Variables: loader.NewVariables(),
		Reader:    fsys,
	})
	require.NoError(t, err)
	return res
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"dump", "json", "summary"}, Names())

	g, err := Lookup("json")
	require.NoError(t, err)
	assert.Equal(t, "json", g.Name())

	_, err = Lookup("xcode")
	assert.Error(t, err)
}

func TestPlatformVariable(t *testing.T) {
	assert.Equal(t, "OS==mac", PlatformVariable("darwin"))
	assert.Equal(t, "OS==win", PlatformVariable("windows"))
	assert.Equal(t, "OS==linux", PlatformVariable("linux"))
	assert.Equal(t, "OS==freebsd", PlatformVariable("freebsd"))

	for _, name := range Names() {
		g, _ := Lookup(name)
		assert.Len(t, g.Variables(), 1, name)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSON{}).GenerateOutput(context.Background(), resolved(t), &buf))

	// key order is part of the output contract
	out := buf.String()
	assert.Less(t, strings.Index(out, `"lib/lib.gyp:base": {`), strings.Index(out, `"app.gyp:app": {`))

	var doc struct {
		Order   []string                  `json:"order"`
		Targets map[string]map[string]any `json:"targets"`
		Units   map[string]any            `json:"units"`
		Graph   struct {
			Nodes []map[string]any `json:"nodes"`
			Edges []map[string]any `json:"edges"`
		} `json:"graph"`
		UnitDependencies []map[string]any `json:"unitDependencies"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, []string{"lib/lib.gyp:base", "app.gyp:app"}, doc.Order)
	assert.Equal(t, []any{"lib/lib.gyp:base"}, doc.Targets["app.gyp:app"]["dependencies"])
	assert.Equal(t, []any{"-lm"}, doc.Targets["app.gyp:app"]["libraries"])
	assert.Len(t, doc.Units, 2)
	assert.Len(t, doc.Graph.Nodes, 2)
	assert.Len(t, doc.Graph.Edges, 1)
	assert.Len(t, doc.UnitDependencies, 1)
}

func TestSummaryOutput(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	require.NoError(t, (&Summary{}).GenerateOutput(context.Background(), resolved(t), &buf))

	out := buf.String()
	assert.Contains(t, out, "Units: 2")
	assert.Contains(t, out, "  1. lib/lib.gyp:base [static_library]")
	assert.Contains(t, out, "  2. app.gyp:app [executable]")
	assert.Contains(t, out, "Libraries: -lm")
	assert.Contains(t, out, "Sources: 2")
	assert.Contains(t, out, "Resolved 2 targets from 2 units")
}

func TestDumpOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&Dump{}).GenerateOutput(context.Background(), resolved(t), &buf))

	out := buf.String()
	assert.Contains(t, out, "## lib/lib.gyp:base")
	assert.Contains(t, out, "## app.gyp:app")
	assert.Contains(t, out, "main.cc")
}
