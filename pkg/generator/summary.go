package generator

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/sloanyang/gyp/pkg/model"
	"github.com/sloanyang/gyp/pkg/resolve"
)

// Summary prints a colored human-readable report of the resolved targets
type Summary struct{}

func (*Summary) Name() string { return "summary" }
func (*Summary) Variables() []string { return hostVariables() }

func (*Summary) GenerateOutput(ctx context.Context, res *resolve.Result, w io.Writer) error {
	// Color definitions
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "gyp - Resolution Summary")
	bold.Fprintln(w, "========================")
	fmt.Fprintf(w, "Units: %d\n", len(res.Units))
	for _, u := range res.Units {
		cyan.Fprintf(w, "  %s\n", u.Path)
	}
	fmt.Fprintln(w)

	bold.Fprintf(w, "Targets in build order (%d):\n", len(res.Order))
	for i, ref := range res.Order {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok := res.Targets.Get(ref)
		if !ok {
			continue
		}

		typ := string(t.Type())
		if typ == "" {
			typ = "-"
		}
		typeColor := green
		if t.Type() == model.TypeStaticLibrary {
			typeColor = yellow
		}

		fmt.Fprintf(w, "%3d. ", i+1)
		bold.Fprint(w, ref)
		fmt.Fprint(w, " ")
		typeColor.Fprintf(w, "[%s]\n", typ)

		if deps := t.Dependencies(); len(deps) > 0 {
			fmt.Fprintf(w, "     Dependencies: %s\n", strings.Join(deps, ", "))
		}
		if libs := t.StringList(model.KeyLibraries); len(libs) > 0 {
			fmt.Fprintf(w, "     Libraries: %s\n", strings.Join(libs, " "))
		}
		fmt.Fprintf(w, "     Sources: %d\n", len(t.StringList(model.KeySources)))
	}

	fmt.Fprintln(w)
	green.Fprintf(w, "✓ Resolved %d targets from %d units\n", res.Targets.Len(), len(res.Units))
	return nil
}
