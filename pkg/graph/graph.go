// Package graph builds the target dependency graph and flattens it into a
// build order.
package graph

import (
	"fmt"
	"slices"

	"github.com/sloanyang/gyp/pkg/cycles"
	"github.com/sloanyang/gyp/pkg/gyperr"
	"github.com/sloanyang/gyp/pkg/model"
	"github.com/sloanyang/gyp/pkg/value"
)

// Node is one target in the dependency graph. The root node has an empty Ref.
// Dependencies and Dependents are kept as inverses of each other.
type Node struct {
	Ref          string
	Dependencies []*Node
	Dependents   []*Node
}

// IsRoot reports whether n is the synthetic root
func (n *Node) IsRoot() bool { return n.Ref == "" }

// DeepDependents returns every node that depends on n directly or
// indirectly, depth first in edge order
func (n *Node) DeepDependents() []string {
	var out []string
	seen := make(map[*Node]bool)
	var walk func(*Node)
	walk = func(node *Node) {
		for _, d := range node.Dependents {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d.Ref)
			walk(d)
		}
	}
	walk(n)
	return out
}

// Graph holds one node per target plus the root, which every target
// without dependencies hangs under
type Graph struct {
	Root  *Node
	nodes map[string]*Node
	order []string
}

// Node returns the node for a qualified target name
func (g *Graph) Node(ref string) (*Node, bool) {
	n, ok := g.nodes[ref]
	return n, ok
}

// Len returns the number of target nodes, the root excluded
func (g *Graph) Len() int { return len(g.order) }

// Build creates the graph for table. Each dependency reference is qualified
// against its target's unit and written back into the record, so later
// stages only ever see qualified names.
func Build(table *model.TargetTable) (*Graph, error) {
	g := &Graph{
		Root:  &Node{},
		nodes: make(map[string]*Node, table.Len()),
		order: table.Names(),
	}
	for _, ref := range g.order {
		g.nodes[ref] = &Node{Ref: ref}
	}

	for _, t := range table.All() {
		node := g.nodes[t.Qualified]

		deps, err := dependencyList(t)
		if err != nil {
			return nil, err
		}
		if deps == nil || deps.Len() == 0 {
			link(node, g.Root)
			continue
		}

		for i, item := range deps.Values() {
			ref, ok := item.(value.String)
			if !ok {
				return nil, &gyperr.ParseError{Path: t.Unit, Err: fmt.Errorf("%s: dependencies[%d] is a %s, not a string", t.Name, i, item.Kind())}
			}
			_, _, qualified := model.SplitReference(t.Unit, string(ref))
			deps.SetAt(i, value.String(qualified))

			dep, ok := g.nodes[qualified]
			if !ok {
				return nil, &gyperr.UnresolvedReferenceError{Ref: qualified, From: t.Qualified}
			}
			link(node, dep)
		}
	}
	return g, nil
}

func dependencyList(t *model.Target) (*value.List, error) {
	v, ok := t.Record.Get(model.KeyDependencies)
	if !ok {
		return nil, nil
	}
	list, ok := v.(*value.List)
	if !ok {
		return nil, &gyperr.ParseError{Path: t.Unit, Err: fmt.Errorf("%s: dependencies is a %s, not a list", t.Name, v.Kind())}
	}
	return list, nil
}

// link records that dependent requires dependency. Repeated edges collapse.
func link(dependent, dependency *Node) {
	if slices.Contains(dependent.Dependencies, dependency) {
		return
	}
	dependent.Dependencies = append(dependent.Dependencies, dependency)
	dependency.Dependents = append(dependency.Dependents, dependent)
}

// Flatten returns the targets in dependency order: every target comes after
// all of its dependencies. Targets on or behind a cycle are never reached,
// which is reported as a CircularDependencyError.
func (g *Graph) Flatten() ([]string, error) {
	flat := make([]string, 0, len(g.order))
	done := make(map[*Node]bool, len(g.order))

	queue := slices.Clone(g.Root.Dependents)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		flat = append(flat, node.Ref)
		done[node] = true

		for _, dependent := range node.Dependents {
			ready := true
			for _, dep := range dependent.Dependencies {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				queue = append(queue, dependent)
			}
		}
	}

	if len(flat) < len(g.order) {
		return nil, g.cycleError(done)
	}
	return flat, nil
}

func (g *Graph) cycleError(done map[*Node]bool) *gyperr.CircularDependencyError {
	err := &gyperr.CircularDependencyError{}
	ng := cycles.NewNameGraph()
	for _, ref := range g.order {
		node := g.nodes[ref]
		if done[node] {
			continue
		}
		err.Unvisited = append(err.Unvisited, ref)
		ng.AddNode(ref)
		for _, dep := range node.Dependencies {
			if !done[dep] && !dep.IsRoot() {
				ng.AddEdge(ref, dep.Ref)
			}
		}
	}
	err.Cycles = cycles.FindCycles(ng)
	return err
}
