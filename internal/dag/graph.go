package dag

import "sort"

// Node is a Step augmented with its computed dependency set and resource
// locks. Nodes are immutable once the graph is built.
type Node struct {
	Step

	// Deps is the union of explicit and inferred dependency step ids.
	Deps map[string]struct{}
}

// DependsOnNode reports whether the node has a direct edge to the given step id.
func (n *Node) DependsOnNode(id string) bool {
	_, ok := n.Deps[id]
	return ok
}

// DepIDs returns the node's dependency ids in sorted order.
func (n *Node) DepIDs() []string {
	ids := make([]string, 0, len(n.Deps))
	for id := range n.Deps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Graph is a schedulable dependency graph over plan steps.
// It is acyclic by construction; Build fails loudly on cyclic input.
type Graph struct {
	// Nodes indexes every node by step id.
	Nodes map[string]*Node

	// Order preserves submission order of the step ids.
	Order []string
}

// Node returns the node for a step id, or nil if absent.
func (g *Graph) Node(id string) *Node {
	if g.Nodes == nil {
		return nil
	}
	return g.Nodes[id]
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// DependsOnTransitively reports whether step `from` depends on step `to`
// directly or through intermediate nodes.
func (g *Graph) DependsOnTransitively(from, to string) bool {
	seen := make(map[string]bool)
	var walk func(id string) bool
	walk = func(id string) bool {
		if seen[id] {
			return false
		}
		seen[id] = true

		node := g.Node(id)
		if node == nil {
			return false
		}
		for dep := range node.Deps {
			if dep == to || walk(dep) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

// TopologicalOrder returns a dependency-respecting ordering of all step ids.
// Ties are broken by submission order, so a plan whose inferred edges already
// serialize it sorts identically to its declaration.
func (g *Graph) TopologicalOrder() []string {
	indegree := make(map[string]int, len(g.Nodes))
	dependents := make(map[string][]string, len(g.Nodes))

	for id, node := range g.Nodes {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for dep := range node.Deps {
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	position := make(map[string]int, len(g.Order))
	for i, id := range g.Order {
		position[id] = i
	}

	var frontier []string
	for _, id := range g.Order {
		if indegree[id] == 0 {
			frontier = append(frontier, id)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(frontier) > 0 {
		sort.Slice(frontier, func(i, j int) bool {
			return position[frontier[i]] < position[frontier[j]]
		})

		next := frontier[0]
		frontier = frontier[1:]
		order = append(order, next)

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				frontier = append(frontier, dependent)
			}
		}
	}

	return order
}
