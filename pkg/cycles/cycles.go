// Package cycles reports the circular dependencies among named nodes.
package cycles

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
)

// NameGraph is a directed graph over string names backed by gonum.
// IDs are handed out in insertion order, which keeps results deterministic.
type NameGraph struct {
	graph     *simple.DirectedGraph
	ids       map[string]int64
	names     []string
	selfLoops map[string]bool
}

// NewNameGraph creates an empty graph
func NewNameGraph() *NameGraph {
	return &NameGraph{
		graph:     simple.NewDirectedGraph(),
		ids:       make(map[string]int64),
		selfLoops: make(map[string]bool),
	}
}

// AddNode adds name if it is not present yet
func (ng *NameGraph) AddNode(name string) {
	if _, exists := ng.ids[name]; exists {
		return
	}
	id := int64(len(ng.names))
	ng.ids[name] = id
	ng.names = append(ng.names, name)
	ng.graph.AddNode(simple.Node(id))
}

// AddEdge adds an edge from one name to another, adding both nodes as needed
func (ng *NameGraph) AddEdge(from, to string) {
	ng.AddNode(from)
	ng.AddNode(to)

	// simple graphs reject self edges
	if from == to {
		ng.selfLoops[from] = true
		return
	}

	fromID, toID := ng.ids[from], ng.ids[to]
	if !ng.graph.HasEdgeFromTo(fromID, toID) {
		ng.graph.SetEdge(ng.graph.NewEdge(ng.graph.Node(fromID), ng.graph.Node(toID)))
	}
}

// Len returns the number of nodes
func (ng *NameGraph) Len() int { return len(ng.names) }

// FindCycles returns every strongly connected component with more than one
// node, and every other node depending on itself, as lists of names in insertion
// order. Components are ordered by their earliest inserted member.
func FindCycles(ng *NameGraph) [][]string {
	type component struct {
		first int64
		names []string
	}
	var comps []component
	inComponent := make(map[string]bool)

	for _, scc := range stronglyConnected(ng.graph) {
		names := make([]string, 0, len(scc))
		for _, id := range scc {
			names = append(names, ng.names[id])
			inComponent[ng.names[id]] = true
		}
		comps = append(comps, component{first: scc[0], names: names})
	}
	// a self edge inside a larger component is already reported there
	for name := range ng.selfLoops {
		if inComponent[name] {
			continue
		}
		comps = append(comps, component{first: ng.ids[name], names: []string{name}})
	}

	sort.Slice(comps, func(i, j int) bool { return comps[i].first < comps[j].first })
	cycles := make([][]string, 0, len(comps))
	for _, c := range comps {
		cycles = append(cycles, c.names)
	}
	return cycles
}
