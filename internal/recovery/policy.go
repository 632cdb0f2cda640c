package recovery

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/types"
)

// WildcardTool matches any tool name in a policy key.
const WildcardTool = "*"

// Call names a tool invocation with its arguments.
type Call struct {
	Tool string         `json:"tool" yaml:"tool"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
}

// Policy maps a failure signature to a retry strategy.
// A policy matches a failed call when its Tool equals the call's tool name
// (or the wildcard) and its ErrorCode equals the failure's code.
type Policy struct {
	// Tool is the tool name this policy applies to, or "*" for any tool.
	Tool string `yaml:"tool"`

	// ErrorCode is the machine-readable failure code this policy recovers.
	ErrorCode types.ErrorCode `yaml:"error_code"`

	// Prerequisites are calls to run, in order, before retrying.
	Prerequisites []Call `yaml:"prerequisites,omitempty"`

	// Delay is an optional wait before the retry call.
	Delay time.Duration `yaml:"delay,omitempty"`

	// Retry optionally substitutes the retried call. A nil Retry repeats the
	// original call unchanged; a Retry with empty Args keeps the original
	// arguments.
	Retry *Call `yaml:"retry,omitempty"`

	// MaxRetries bounds how many times this policy may fire for a given call.
	MaxRetries int `yaml:"max_retries"`
}

// Decision is a concrete recovery plan for one failed call.
type Decision struct {
	// PolicyID identifies the matched policy, for telemetry.
	PolicyID string `json:"policy_id"`

	// Prerequisites are run in order before the retry; any failure aborts
	// recovery and surfaces as a recovery-prerequisite failure.
	Prerequisites []Call `json:"prerequisites,omitempty"`

	// Delay is waited (context-aware) between prerequisites and the retry.
	Delay time.Duration `json:"delay,omitempty"`

	// RetryCall is the call to execute next.
	RetryCall Call `json:"retry_call"`

	// MaxRetries echoes the policy bound.
	MaxRetries int `json:"max_retries"`
}

// Table holds recovery policies keyed by (tool-or-wildcard, error code).
// It is externally extensible through YAML and safe to share once built.
type Table struct {
	policies map[policyKey]Policy
}

type policyKey struct {
	tool string
	code types.ErrorCode
}

// NewTable builds a Table from a policy list. A later policy with the same
// (tool, error code) key replaces an earlier one.
func NewTable(policies []Policy) *Table {
	table := &Table{policies: make(map[policyKey]Policy, len(policies))}
	for _, p := range policies {
		table.policies[policyKey{tool: p.Tool, code: p.ErrorCode}] = p
	}
	return table
}

// policyFile is the YAML document shape for an external policy table.
type policyFile struct {
	Policies []policyEntry `yaml:"policies"`
}

type policyEntry struct {
	Tool          string          `yaml:"tool"`
	ErrorCode     types.ErrorCode `yaml:"error_code"`
	Prerequisites []Call          `yaml:"prerequisites"`
	DelayMs       int             `yaml:"delay_ms"`
	Retry         *Call           `yaml:"retry"`
	MaxRetries    int             `yaml:"max_retries"`
}

// LoadTable reads a policy table from a YAML file and merges it over the
// built-in defaults, so operators extend rather than replace the defaults.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED,
			fmt.Sprintf("cannot read recovery policy file %s", path), err)
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED,
			fmt.Sprintf("cannot parse recovery policy file %s", path), err)
	}

	policies := DefaultPolicies()
	for _, entry := range file.Policies {
		if entry.Tool == "" || entry.ErrorCode == "" {
			return nil, types.NewError(types.CONFIG_VALIDATION_FAILED,
				"recovery policy requires both tool and error_code")
		}
		if entry.MaxRetries < 1 {
			return nil, types.NewError(types.CONFIG_VALIDATION_FAILED,
				fmt.Sprintf("recovery policy (%s, %s) must allow at least one retry", entry.Tool, entry.ErrorCode))
		}
		policies = append(policies, Policy{
			Tool:          entry.Tool,
			ErrorCode:     entry.ErrorCode,
			Prerequisites: entry.Prerequisites,
			Delay:         time.Duration(entry.DelayMs) * time.Millisecond,
			Retry:         entry.Retry,
			MaxRetries:    entry.MaxRetries,
		})
	}

	return NewTable(policies), nil
}

// DefaultPolicies returns the built-in recovery paths for the video domain.
func DefaultPolicies() []Policy {
	return []Policy{
		{
			// A missing transcript recovers by generating captions first,
			// then retrying the original call.
			Tool:          WildcardTool,
			ErrorCode:     "NO_TRANSCRIPT",
			Prerequisites: []Call{{Tool: "generate_captions"}},
			MaxRetries:    1,
		},
		{
			Tool:          WildcardTool,
			ErrorCode:     "MEDIA_NOT_ANALYZED",
			Prerequisites: []Call{{Tool: "analyze_media"}},
			MaxRetries:    1,
		},
		{
			// Timeouts are never retried by the timeout mechanism itself,
			// but a policy may define a bounded delayed retry like any code.
			Tool:       WildcardTool,
			ErrorCode:  types.TOOL_TIMEOUT,
			Delay:      2 * time.Second,
			MaxRetries: 1,
		},
	}
}

// Lookup returns the Decision for a failed call, or nil when no recovery
// path exists. An exact tool match takes precedence over the wildcard.
// A retryCount at or beyond the policy's MaxRetries yields no decision so
// the original failure surfaces.
func (t *Table) Lookup(toolName string, code types.ErrorCode, retryCount int) *Decision {
	policy, ok := t.policies[policyKey{tool: toolName, code: code}]
	if !ok {
		policy, ok = t.policies[policyKey{tool: WildcardTool, code: code}]
	}
	if !ok {
		return nil
	}
	if retryCount >= policy.MaxRetries {
		return nil
	}

	retry := Call{Tool: toolName}
	if policy.Retry != nil {
		if policy.Retry.Tool != "" {
			retry.Tool = policy.Retry.Tool
		}
		retry.Args = policy.Retry.Args
	}

	return &Decision{
		PolicyID:      fmt.Sprintf("%s/%s", policy.Tool, policy.ErrorCode),
		Prerequisites: policy.Prerequisites,
		Delay:         policy.Delay,
		RetryCall:     retry,
		MaxRetries:    policy.MaxRetries,
	}
}

// Policies returns all policies in the table, for display.
func (t *Table) Policies() []Policy {
	out := make([]Policy, 0, len(t.policies))
	for _, p := range t.policies {
		out = append(out, p)
	}
	return out
}
