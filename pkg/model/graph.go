package model

import (
	"sort"
)

// Graph is a plain node/edge view of the resolved targets.
// It is what the JSON backend and the inspection server hand out.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Node represents one target in the exported graph
type Node struct {
	ID     string     `json:"id"` // qualified name
	Label  string     `json:"label"`
	Type   TargetType `json:"type,omitempty"`
	Parent string     `json:"parent"` // owning unit path
}

// Edge points from a target to one of its dependencies
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// UnitDependency aggregates the target edges crossing from one unit into another
type UnitDependency struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Edges []*Edge `json:"edges"`
}

// ExportGraph builds the node/edge view of table. Dependencies must already be
// qualified; references not present in the table are skipped.
func ExportGraph(table *TargetTable) *Graph {
	g := &Graph{
		Nodes: make([]*Node, 0, table.Len()),
		Edges: make([]*Edge, 0),
	}
	for _, t := range table.All() {
		g.Nodes = append(g.Nodes, &Node{
			ID:     t.Qualified,
			Label:  t.Name,
			Type:   t.Type(),
			Parent: t.Unit,
		})
		for _, dep := range t.Dependencies() {
			if _, ok := table.Get(dep); !ok {
				continue
			}
			g.Edges = append(g.Edges, &Edge{Source: t.Qualified, Target: dep})
		}
	}
	return g
}

// UnitDependencies returns unit-to-unit dependencies, sorted by unit pair.
// Edges within a single unit are not included.
func UnitDependencies(table *TargetTable) []UnitDependency {
	byPair := make(map[[2]string]*UnitDependency)

	for _, e := range ExportGraph(table).Edges {
		from, _ := table.Get(e.Source)
		to, _ := table.Get(e.Target)
		if from.Unit == to.Unit {
			continue
		}

		key := [2]string{from.Unit, to.Unit}
		ud, exists := byPair[key]
		if !exists {
			ud = &UnitDependency{From: from.Unit, To: to.Unit}
			byPair[key] = ud
		}
		ud.Edges = append(ud.Edges, e)
	}

	result := make([]UnitDependency, 0, len(byPair))
	for _, ud := range byPair {
		result = append(result, *ud)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].From != result[j].From {
			return result[i].From < result[j].From
		}
		return result[i].To < result[j].To
	})
	return result
}
