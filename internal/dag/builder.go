package dag

import (
	"fmt"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// Build converts a flat, ordered step list into a schedulable dependency graph.
//
// Inference rules enforce read/write isolation on the shared document:
//   - a write step takes a direct edge to every previously declared step, so
//     writes are globally serialized against everything before them;
//   - a read step takes an edge only to the most recent preceding write, so
//     sibling reads between two writes run concurrently.
//
// Explicit DependsOn entries and resource locks are unioned with the inferred
// edges, never subtracted. Cyclic input fails loudly with DAG_CYCLE_DETECTED:
// it is a programming error, not a recoverable runtime condition, and no
// partial graph is returned.
func Build(steps []Step) (*Graph, error) {
	if len(steps) == 0 {
		return nil, types.NewError(types.DAG_UNKNOWN_DEPENDENCY, "cannot build a graph from an empty step list")
	}

	graph := &Graph{
		Nodes: make(map[string]*Node, len(steps)),
		Order: make([]string, 0, len(steps)),
	}

	for _, step := range steps {
		if step.ID == "" {
			return nil, types.NewError(types.DAG_DUPLICATE_STEP, "step must have an id")
		}
		if _, exists := graph.Nodes[step.ID]; exists {
			return nil, types.NewError(types.DAG_DUPLICATE_STEP,
				fmt.Sprintf("duplicate step id %q", step.ID))
		}

		graph.Nodes[step.ID] = &Node{
			Step: step,
			Deps: make(map[string]struct{}),
		}
		graph.Order = append(graph.Order, step.ID)
	}

	// Explicit dependencies must reference steps in this plan.
	for _, id := range graph.Order {
		node := graph.Nodes[id]
		for _, dep := range node.DependsOn {
			if _, exists := graph.Nodes[dep]; !exists {
				return nil, types.NewError(types.DAG_UNKNOWN_DEPENDENCY,
					fmt.Sprintf("step %q depends on unknown step %q", id, dep))
			}
			if dep == id {
				return nil, types.NewError(types.DAG_CYCLE_DETECTED,
					fmt.Sprintf("step %q depends on itself", id))
			}
			node.Deps[dep] = struct{}{}
		}
	}

	// Inferred read/write edges.
	lastWrite := ""
	for i, id := range graph.Order {
		node := graph.Nodes[id]
		switch node.Kind() {
		case OpWrite:
			for _, prev := range graph.Order[:i] {
				node.Deps[prev] = struct{}{}
			}
			lastWrite = id
		case OpRead:
			if lastWrite != "" {
				node.Deps[lastWrite] = struct{}{}
			}
		}
	}

	if cycle := findCycle(graph); cycle != nil {
		return nil, types.NewError(types.DAG_CYCLE_DETECTED,
			fmt.Sprintf("cyclic dependency: %v", cycle))
	}

	return graph, nil
}

// findCycle runs a depth-first search over dependency edges using three
// colors: white (unvisited), gray (visiting), black (visited). It returns the
// offending path when a back edge is found, nil otherwise.
func findCycle(graph *Graph) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int, len(graph.Nodes))

	var dfs func(id string, path []string) []string
	dfs = func(id string, path []string) []string {
		color[id] = gray
		path = append(path, id)

		for _, dep := range graph.Nodes[id].DepIDs() {
			if color[dep] == gray {
				return append(path, dep)
			}
			if color[dep] == white {
				if cycle := dfs(dep, path); cycle != nil {
					return cycle
				}
			}
		}

		color[id] = black
		return nil
	}

	for _, id := range graph.Order {
		if color[id] == white {
			if cycle := dfs(id, nil); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}
