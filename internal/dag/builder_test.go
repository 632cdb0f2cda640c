package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

func TestBuild_WriteReadReadWrite(t *testing.T) {
	graph, err := Build([]Step{
		{ID: "write-1", Tool: "apply_edit", Op: OpWrite},
		{ID: "read-1", Tool: "inspect_timeline", Op: OpRead},
		{ID: "read-2", Tool: "inspect_timeline", Op: OpRead},
		{ID: "write-2", Tool: "apply_edit", Op: OpWrite},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"write-1"}, graph.Node("read-1").DepIDs())
	assert.Equal(t, []string{"write-1"}, graph.Node("read-2").DepIDs())
	assert.Equal(t, []string{"read-1", "read-2", "write-1"}, graph.Node("write-2").DepIDs())
	assert.Empty(t, graph.Node("write-1").DepIDs())

	assert.Equal(t, []string{"write-1", "read-1", "read-2", "write-2"}, graph.TopologicalOrder())
}

func TestBuild_SiblingReadsHaveNoEdgeBetweenEachOther(t *testing.T) {
	graph, err := Build([]Step{
		{ID: "w1", Tool: "apply_edit", Op: OpWrite},
		{ID: "r1", Tool: "inspect_timeline", Op: OpRead},
		{ID: "r2", Tool: "inspect_timeline", Op: OpRead},
		{ID: "w2", Tool: "apply_edit", Op: OpWrite},
	})
	require.NoError(t, err)

	assert.False(t, graph.Node("r1").DependsOnNode("r2"))
	assert.False(t, graph.Node("r2").DependsOnNode("r1"))
	assert.False(t, graph.DependsOnTransitively("r1", "r2"))
	assert.False(t, graph.DependsOnTransitively("r2", "r1"))
}

func TestBuild_WritePrecedingStepIsAlwaysADependency(t *testing.T) {
	steps := []Step{
		{ID: "w1", Tool: "apply_edit", Op: OpWrite},
		{ID: "r1", Tool: "inspect_timeline", Op: OpRead},
		{ID: "w2", Tool: "apply_edit", Op: OpWrite},
		{ID: "r2", Tool: "inspect_timeline", Op: OpRead},
		{ID: "w3", Tool: "apply_edit", Op: OpWrite},
	}
	graph, err := Build(steps)
	require.NoError(t, err)

	// For write step A preceding step B in submission order, B depends on A
	// directly or transitively.
	for i, a := range steps {
		if a.Kind() != OpWrite {
			continue
		}
		for _, b := range steps[i+1:] {
			assert.True(t, graph.DependsOnTransitively(b.ID, a.ID),
				"%s should depend on write %s", b.ID, a.ID)
		}
	}
}

func TestBuild_ReadsWithNoPrecedingWriteAreIndependent(t *testing.T) {
	graph, err := Build([]Step{
		{ID: "r1", Tool: "inspect_timeline", Op: OpRead},
		{ID: "r2", Tool: "inspect_timeline", Op: OpRead},
	})
	require.NoError(t, err)

	assert.Empty(t, graph.Node("r1").DepIDs())
	assert.Empty(t, graph.Node("r2").DepIDs())
}

func TestBuild_ExplicitDependenciesAreUnioned(t *testing.T) {
	graph, err := Build([]Step{
		{ID: "r1", Tool: "inspect_timeline", Op: OpRead},
		{ID: "r2", Tool: "inspect_timeline", Op: OpRead, DependsOn: []string{"r1"}},
	})
	require.NoError(t, err)

	assert.True(t, graph.Node("r2").DependsOnNode("r1"),
		"explicit edges are added, never subtracted")
}

func TestBuild_EmptyOpDefaultsToWrite(t *testing.T) {
	graph, err := Build([]Step{
		{ID: "s1", Tool: "apply_edit"},
		{ID: "s2", Tool: "apply_edit"},
	})
	require.NoError(t, err)

	assert.True(t, graph.Node("s2").DependsOnNode("s1"))
}

func TestBuild_TopologicalOrderVisitsEveryNodeExactlyOnce(t *testing.T) {
	graph, err := Build([]Step{
		{ID: "a", Op: OpWrite},
		{ID: "b", Op: OpRead},
		{ID: "c", Op: OpRead},
		{ID: "d", Op: OpWrite},
		{ID: "e", Op: OpRead},
	})
	require.NoError(t, err)

	order := graph.TopologicalOrder()
	require.Len(t, order, 5)

	seen := make(map[string]int)
	position := make(map[string]int)
	for i, id := range order {
		seen[id]++
		position[id] = i
	}
	for _, id := range graph.Order {
		assert.Equal(t, 1, seen[id], "node %s visited exactly once", id)
	}

	// Every edge points backward in the ordering.
	for id, node := range graph.Nodes {
		for dep := range node.Deps {
			assert.Less(t, position[dep], position[id],
				"%s must sort after its dependency %s", id, dep)
		}
	}
}

func TestBuild_CycleFailsLoudly(t *testing.T) {
	_, err := Build([]Step{
		{ID: "a", Op: OpRead, DependsOn: []string{"b"}},
		{ID: "b", Op: OpRead, DependsOn: []string{"a"}},
	})
	require.Error(t, err)
	assert.Equal(t, types.DAG_CYCLE_DETECTED, types.CodeOf(err))
}

func TestBuild_SelfDependencyFails(t *testing.T) {
	_, err := Build([]Step{
		{ID: "a", Op: OpRead, DependsOn: []string{"a"}},
	})
	require.Error(t, err)
	assert.Equal(t, types.DAG_CYCLE_DETECTED, types.CodeOf(err))
}

func TestBuild_DuplicateStepID(t *testing.T) {
	_, err := Build([]Step{
		{ID: "a", Op: OpRead},
		{ID: "a", Op: OpRead},
	})
	require.Error(t, err)
	assert.Equal(t, types.DAG_DUPLICATE_STEP, types.CodeOf(err))
}

func TestBuild_UnknownExplicitDependency(t *testing.T) {
	_, err := Build([]Step{
		{ID: "a", Op: OpRead, DependsOn: []string{"ghost"}},
	})
	require.Error(t, err)
	assert.Equal(t, types.DAG_UNKNOWN_DEPENDENCY, types.CodeOf(err))
}

func TestBuild_EmptyStepList(t *testing.T) {
	_, err := Build(nil)
	assert.Error(t, err)
}

func TestBuild_NoPartialGraphOnCycle(t *testing.T) {
	graph, err := Build([]Step{
		{ID: "a", Op: OpRead, DependsOn: []string{"b"}},
		{ID: "b", Op: OpRead, DependsOn: []string{"a"}},
	})
	require.Error(t, err)
	assert.Nil(t, graph)
}

func TestBuild_ResourceLocksCarriedOntoNodes(t *testing.T) {
	graph, err := Build([]Step{
		{ID: "a", Op: OpRead, ResourceLocks: []string{"lock-x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"lock-x"}, graph.Node("a").ResourceLocks)
}

func TestBuild_ErrorsAreCoreErrors(t *testing.T) {
	_, err := Build([]Step{{ID: ""}})
	var coreErr *types.CoreError
	assert.True(t, errors.As(err, &coreErr))
}
