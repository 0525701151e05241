package generator

import (
	"context"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"

	"github.com/sloanyang/gyp/pkg/resolve"
)

// Dump writes a go-spew dump of every target record, for debugging merges
type Dump struct{}

func (*Dump) Name() string { return "dump" }
func (*Dump) Variables() []string { return hostVariables() }

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          true,
}

func (*Dump) GenerateOutput(ctx context.Context, res *resolve.Result, w io.Writer) error {
	fmt.Fprintf(w, "# run %s: %d targets\n", res.RunID, len(res.Order))
	for _, ref := range res.Order {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok := res.Targets.Get(ref)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "\n## %s\n", ref)
		dumpConfig.Fdump(w, t.Record)
	}
	return nil
}
