package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSetFlags(t *testing.T) {
	overrides, err := parseSetFlags([]string{
		"generate-plan.targetDuration=90",
		"generate-plan.style=teaser",
		"smart-cut.preserveSentences=false",
	})
	require.NoError(t, err)
	require.Len(t, overrides, 2)

	assert.Equal(t, "generate-plan", overrides[0].StepID)
	assert.Equal(t, 90, overrides[0].Args["targetDuration"])
	assert.Equal(t, "teaser", overrides[0].Args["style"])

	assert.Equal(t, "smart-cut", overrides[1].StepID)
	assert.Equal(t, false, overrides[1].Args["preserveSentences"])
}

func TestParseSetFlags_Invalid(t *testing.T) {
	_, err := parseSetFlags([]string{"no-equals"})
	assert.Error(t, err)

	_, err = parseSetFlags([]string{"nostep=value"})
	assert.Error(t, err)

	_, err = parseSetFlags([]string{".key=value"})
	assert.Error(t, err)
}

func TestCoerceValue(t *testing.T) {
	assert.Equal(t, true, coerceValue("true"))
	assert.Equal(t, 42, coerceValue("42"))
	assert.Equal(t, 1.5, coerceValue("1.5"))
	assert.Equal(t, "mp4", coerceValue("mp4"))
}
