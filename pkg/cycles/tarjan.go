package cycles

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/graph"
)

// visit is the per-node bookkeeping of one Tarjan walk
type visit struct {
	order   int // discovery number
	low     int
	onStack bool
}

// sccFinder walks a directed graph in ascending ID order so that the
// components it reports do not depend on map iteration
type sccFinder struct {
	g       graph.Directed
	counter int
	visits  map[int64]*visit
	stack   []int64
	found   [][]int64
}

// stronglyConnected returns the components of g that contain more than one
// node. Each component lists its IDs ascending; components are ordered by
// their smallest ID.
func stronglyConnected(g graph.Directed) [][]int64 {
	f := &sccFinder{g: g, visits: make(map[int64]*visit)}
	for _, id := range ascending(g.Nodes()) {
		if f.visits[id] == nil {
			f.connect(id)
		}
	}
	slices.SortFunc(f.found, func(a, b []int64) int { return cmp.Compare(a[0], b[0]) })
	return f.found
}

func (f *sccFinder) connect(id int64) *visit {
	f.counter++
	v := &visit{order: f.counter, low: f.counter, onStack: true}
	f.visits[id] = v
	f.stack = append(f.stack, id)

	for _, next := range ascending(f.g.From(id)) {
		w := f.visits[next]
		switch {
		case w == nil:
			v.low = min(v.low, f.connect(next).low)
		case w.onStack:
			v.low = min(v.low, w.order)
		}
	}

	if v.low != v.order {
		return v
	}

	// id roots a component; everything above it on the stack belongs to it
	i := slices.Index(f.stack, id)
	members := slices.Clone(f.stack[i:])
	f.stack = f.stack[:i]
	for _, m := range members {
		f.visits[m].onStack = false
	}
	if len(members) > 1 {
		slices.Sort(members)
		f.found = append(f.found, members)
	}
	return v
}

func ascending(it graph.Nodes) []int64 {
	var ids []int64
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	slices.Sort(ids)
	return ids
}
