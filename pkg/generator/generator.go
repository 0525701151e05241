// Package generator holds the backends that turn a resolved target model
// into output.
package generator

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"

	"github.com/sloanyang/gyp/pkg/resolve"
)

// Generator is one output backend. Variables are the condition tokens the
// backend makes active; the caller may add more before resolving.
type Generator interface {
	Name() string
	Variables() []string
	GenerateOutput(ctx context.Context, res *resolve.Result, w io.Writer) error
}

var registry = map[string]Generator{}

func register(g Generator) {
	registry[g.Name()] = g
}

func init() {
	register(&JSON{})
	register(&Summary{})
	register(&Dump{})
}

// Lookup returns the generator registered under name
func Lookup(name string) (Generator, error) {
	g, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (available: %v)", name, Names())
	}
	return g, nil
}

// Names lists the registered generators, sorted
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PlatformVariable returns the OS condition token for a GOOS value
func PlatformVariable(goos string) string {
	switch goos {
	case "darwin":
		return "OS==mac"
	case "windows":
		return "OS==win"
	default:
		return "OS==" + goos
	}
}

func hostVariables() []string {
	return []string{PlatformVariable(runtime.GOOS)}
}
