package workflow

import "github.com/ybwbqg9379/hyper-cut-sub001/internal/dag"

func floatPtr(v float64) *float64 { return &v }

// BuiltinDefinitions returns the workflow templates that ship with the
// binary. Loaded definitions with the same name take precedence.
func BuiltinDefinitions() []Definition {
	return []Definition{
		{
			Name:        "podcast-to-clips",
			Description: "Turn a long-form recording into short highlight clips.",
			Steps: []StepDefinition{
				{
					ID:   "analyze-media",
					Tool: "analyze_media",
					Op:   dag.OpRead,
				},
				{
					ID:   "generate-captions",
					Tool: "generate_captions",
					Op:   dag.OpWrite,
				},
				{
					ID:   "generate-plan",
					Tool: "generate_plan",
					Op:   dag.OpRead,
					DefaultArgs: map[string]any{
						"targetDuration": 60,
						"clipCount":      3,
					},
					Schema: []ArgSpec{
						{Key: "targetDuration", Type: ArgTypeInt, Min: floatPtr(5), Max: floatPtr(180), Default: 60},
						{Key: "clipCount", Type: ArgTypeInt, Min: floatPtr(1), Max: floatPtr(10), Default: 3},
						{Key: "style", Type: ArgTypeString, Enum: []string{"highlights", "chapters", "teaser"}},
					},
				},
				{
					ID:   "smart-cut",
					Tool: "smart_cut",
					Op:   dag.OpWrite,
					DefaultArgs: map[string]any{
						"preserveSentences": true,
					},
					Schema: []ArgSpec{
						{Key: "preserveSentences", Type: ArgTypeBool, Default: true},
					},
					ResourceLocks: []string{"timeline"},
				},
				{
					ID:   "add-captions",
					Tool: "burn_captions",
					Op:   dag.OpWrite,
					DefaultArgs: map[string]any{
						"position": "bottom",
					},
					Schema: []ArgSpec{
						{Key: "position", Type: ArgTypeString, Enum: []string{"top", "bottom"}, Default: "bottom"},
					},
					ResourceLocks: []string{"timeline"},
				},
				{
					ID:   "export-clips",
					Tool: "export_video",
					Op:   dag.OpRead,
					DefaultArgs: map[string]any{
						"format": "mp4",
					},
					Schema: []ArgSpec{
						{Key: "format", Type: ArgTypeString, Enum: []string{"mp4", "mov", "webm"}, Default: "mp4"},
					},
					RequiresConfirmation: true,
				},
			},
		},
		{
			Name:        "rough-cut",
			Description: "Remove silence and filler words, then tighten pacing.",
			Steps: []StepDefinition{
				{
					ID:   "analyze-media",
					Tool: "analyze_media",
					Op:   dag.OpRead,
				},
				{
					ID:   "remove-silence",
					Tool: "remove_silence",
					Op:   dag.OpWrite,
					DefaultArgs: map[string]any{
						"minGapSeconds": 0.75,
					},
					Schema: []ArgSpec{
						{Key: "minGapSeconds", Type: ArgTypeFloat, Min: floatPtr(0.1), Max: floatPtr(5), Default: 0.75},
					},
					ResourceLocks: []string{"timeline"},
				},
				{
					ID:   "remove-fillers",
					Tool: "remove_fillers",
					Op:   dag.OpWrite,
					ResourceLocks: []string{"timeline"},
				},
				{
					ID:   "tighten-pacing",
					Tool: "smart_cut",
					Op:   dag.OpWrite,
					DefaultArgs: map[string]any{
						"aggressiveness": "medium",
					},
					Schema: []ArgSpec{
						{Key: "aggressiveness", Type: ArgTypeString, Enum: []string{"low", "medium", "high"}, Default: "medium"},
					},
					ResourceLocks: []string{"timeline"},
				},
			},
		},
	}
}
