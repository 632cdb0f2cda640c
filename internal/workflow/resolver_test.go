package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/dag"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

func newBuiltinResolver(t *testing.T) *Resolver {
	t.Helper()
	resolver, err := NewResolver(BuiltinDefinitions()...)
	require.NoError(t, err)
	return resolver
}

func TestResolver_UnknownWorkflow(t *testing.T) {
	resolver := newBuiltinResolver(t)

	_, err := resolver.Resolve("no-such-workflow", nil)
	require.Error(t, err)
	assert.Equal(t, types.WORKFLOW_NOT_FOUND, types.CodeOf(err))
}

func TestResolver_DefaultsWithoutOverrides(t *testing.T) {
	resolver := newBuiltinResolver(t)

	steps, err := resolver.Resolve("podcast-to-clips", nil)
	require.NoError(t, err)
	require.Len(t, steps, 6)

	var plan dag.Step
	for _, step := range steps {
		if step.ID == "generate-plan" {
			plan = step
		}
	}
	assert.Equal(t, 60, plan.Args["targetDuration"])
	assert.Equal(t, 3, plan.Args["clipCount"])
}

func TestResolver_OverrideMergesOntoDefaults(t *testing.T) {
	resolver := newBuiltinResolver(t)

	steps, err := resolver.Resolve("podcast-to-clips", []Override{
		{StepID: "generate-plan", Args: map[string]any{"targetDuration": 90}},
	})
	require.NoError(t, err)

	for _, step := range steps {
		if step.ID == "generate-plan" {
			assert.Equal(t, 90, step.Args["targetDuration"])
			assert.Equal(t, 3, step.Args["clipCount"], "untouched defaults are preserved")
		}
	}
}

func TestResolver_OverrideAboveMaxNamesFieldAndBound(t *testing.T) {
	resolver := newBuiltinResolver(t)

	_, err := resolver.Resolve("podcast-to-clips", []Override{
		{StepID: "generate-plan", Args: map[string]any{"targetDuration": 999}},
	})
	require.Error(t, err)
	assert.Equal(t, types.WORKFLOW_OVERRIDE_INVALID, types.CodeOf(err))
	assert.Contains(t, err.Error(), "targetDuration")
	assert.Contains(t, err.Error(), "180")
}

func TestResolver_InvalidOverrideAppliesNothing(t *testing.T) {
	resolver := newBuiltinResolver(t)

	_, err := resolver.Resolve("podcast-to-clips", []Override{
		{StepID: "generate-plan", Args: map[string]any{"clipCount": 5}},
		{StepID: "generate-plan", Args: map[string]any{"targetDuration": 999}},
	})
	require.Error(t, err)

	steps, err := resolver.Resolve("podcast-to-clips", nil)
	require.NoError(t, err)
	for _, step := range steps {
		if step.ID == "generate-plan" {
			assert.Equal(t, 3, step.Args["clipCount"], "failed resolution leaves the template untouched")
		}
	}
}

func TestResolver_OverrideUnknownStep(t *testing.T) {
	resolver := newBuiltinResolver(t)

	_, err := resolver.Resolve("podcast-to-clips", []Override{
		{StepID: "no-such-step", Args: map[string]any{"x": 1}},
	})
	require.Error(t, err)
	assert.Equal(t, types.WORKFLOW_OVERRIDE_INVALID, types.CodeOf(err))
	assert.Contains(t, err.Error(), "no-such-step")
}

func TestResolver_OverrideUnknownArgument(t *testing.T) {
	resolver := newBuiltinResolver(t)

	_, err := resolver.Resolve("podcast-to-clips", []Override{
		{StepID: "generate-plan", Args: map[string]any{"mystery": 1}},
	})
	require.Error(t, err)
	assert.Equal(t, types.WORKFLOW_OVERRIDE_INVALID, types.CodeOf(err))
	assert.Contains(t, err.Error(), "mystery")
}

func TestResolver_OverrideByPosition(t *testing.T) {
	resolver := newBuiltinResolver(t)

	pos := 2
	steps, err := resolver.Resolve("podcast-to-clips", []Override{
		{Position: &pos, Args: map[string]any{"clipCount": 7}},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, steps[2].Args["clipCount"])

	bad := 42
	_, err = resolver.Resolve("podcast-to-clips", []Override{
		{Position: &bad, Args: map[string]any{"clipCount": 7}},
	})
	require.Error(t, err)
	assert.Equal(t, types.WORKFLOW_OVERRIDE_INVALID, types.CodeOf(err))
}

func TestResolver_EnumAndTypeValidation(t *testing.T) {
	resolver := newBuiltinResolver(t)

	_, err := resolver.Resolve("podcast-to-clips", []Override{
		{StepID: "export-clips", Args: map[string]any{"format": "avi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "avi")

	_, err = resolver.Resolve("podcast-to-clips", []Override{
		{StepID: "generate-plan", Args: map[string]any{"targetDuration": "long"}},
	})
	require.Error(t, err)
	assert.Equal(t, types.WORKFLOW_OVERRIDE_INVALID, types.CodeOf(err))

	_, err = resolver.Resolve("podcast-to-clips", []Override{
		{StepID: "generate-plan", Args: map[string]any{"targetDuration": 60.5}},
	})
	require.Error(t, err, "int arguments reject fractional values")
}

func TestResolver_ResolvedStepsCarryStructure(t *testing.T) {
	resolver := newBuiltinResolver(t)

	steps, err := resolver.Resolve("rough-cut", nil)
	require.NoError(t, err)
	require.Len(t, steps, 4)

	assert.Equal(t, dag.OpRead, steps[0].Kind())
	assert.Equal(t, []string{"timeline"}, steps[1].ResourceLocks)
}

func TestResolver_ResolvedStepsBuildValidGraph(t *testing.T) {
	resolver := newBuiltinResolver(t)

	for _, name := range resolver.Names() {
		steps, err := resolver.Resolve(name, nil)
		require.NoError(t, err)
		_, err = dag.Build(steps)
		require.NoError(t, err, "workflow %q must resolve to a buildable graph", name)
	}
}

func TestResolver_RegisterRejectsInvalidDefinition(t *testing.T) {
	resolver := newBuiltinResolver(t)

	err := resolver.Register(Definition{Name: "broken"})
	require.Error(t, err)
	assert.Equal(t, types.CONFIG_VALIDATION_FAILED, types.CodeOf(err))
}

func TestResolver_Names(t *testing.T) {
	resolver := newBuiltinResolver(t)
	assert.Equal(t, []string{"podcast-to-clips", "rough-cut"}, resolver.Names())
}
