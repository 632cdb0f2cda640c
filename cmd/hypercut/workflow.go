package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/dag"
	"github.com/ybwbqg9379/hyper-cut-sub001/internal/workflow"
)

var (
	setFlags     []string
	confirmSteps []string
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Inspect and run workflow templates",
	Long: `Workflow templates expand into dependency graphs of tool calls.
Built-in templates can be extended with YAML definitions from the
configured workflows directory; a loaded definition shadows a
builtin of the same name.`,
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available workflows",
	RunE:  runWorkflowList,
}

var workflowShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a workflow's steps, arguments, and schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowShow,
}

var workflowRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Resolve a workflow and print its execution plan",
	Long: `Resolve a workflow with the given overrides, build its dependency
graph, and print the execution plan: topological order, inferred
dependencies, and resource locks. Resolution failures name the
offending argument and its violated bound.`,
	Example: `  # Plan the podcast-to-clips workflow with defaults
  hypercut workflow run podcast-to-clips

  # Override the target clip duration
  hypercut workflow run podcast-to-clips --set generate-plan.targetDuration=90

  # Pre-confirm the export step's confirmation gate
  hypercut workflow run podcast-to-clips --confirm export-clips`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflowRun,
}

// newResolver builds the resolver from builtins plus the configured
// workflows directory.
func newResolver() (*workflow.Resolver, error) {
	resolver, err := workflow.NewResolver(workflow.BuiltinDefinitions()...)
	if err != nil {
		return nil, err
	}
	if cfg != nil && cfg.Workflows.Dir != "" {
		loaded, err := workflow.LoadDir(cfg.Workflows.Dir)
		if err != nil {
			return nil, err
		}
		for _, def := range loaded {
			if err := resolver.Register(def); err != nil {
				return nil, err
			}
		}
	}
	return resolver, nil
}

func runWorkflowList(cmd *cobra.Command, args []string) error {
	resolver, err := newResolver()
	if err != nil {
		return err
	}

	cmd.Println(titleStyle.Render("Workflows"))
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, headerStyle.Render("NAME")+"\t"+headerStyle.Render("STEPS")+"\t"+headerStyle.Render("DESCRIPTION"))
	for _, name := range resolver.Names() {
		def, err := resolver.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", def.Name, len(def.Steps), def.Description)
	}
	return w.Flush()
}

func runWorkflowShow(cmd *cobra.Command, args []string) error {
	resolver, err := newResolver()
	if err != nil {
		return err
	}
	def, err := resolver.Get(args[0])
	if err != nil {
		return err
	}

	cmd.Println(titleStyle.Render(def.Name))
	if def.Description != "" {
		cmd.Println(subtleStyle.Render(def.Description))
	}
	cmd.Println()

	for i, step := range def.Steps {
		gate := ""
		if step.RequiresConfirmation {
			gate = " " + warnStyle.Render("[requires confirmation]")
		}
		cmd.Printf("%d. %s  %s%s\n", i+1, headerStyle.Render(step.ID),
			subtleStyle.Render(fmt.Sprintf("tool=%s op=%s", step.Tool, dag.Step{Op: step.Op}.Kind())), gate)

		if len(step.ResourceLocks) > 0 {
			cmd.Printf("   locks: %s\n", strings.Join(step.ResourceLocks, ", "))
		}
		for _, spec := range step.Schema {
			bounds := describeBounds(spec)
			cmd.Printf("   --set %s.%s=<%s>%s\n", step.ID, spec.Key, spec.Type, bounds)
		}
	}
	return nil
}

func describeBounds(spec workflow.ArgSpec) string {
	var parts []string
	if spec.Min != nil {
		parts = append(parts, fmt.Sprintf("min %v", *spec.Min))
	}
	if spec.Max != nil {
		parts = append(parts, fmt.Sprintf("max %v", *spec.Max))
	}
	if len(spec.Enum) > 0 {
		parts = append(parts, "one of "+strings.Join(spec.Enum, "|"))
	}
	if spec.Default != nil {
		parts = append(parts, fmt.Sprintf("default %v", spec.Default))
	}
	if len(parts) == 0 {
		return ""
	}
	return subtleStyle.Render("  (" + strings.Join(parts, ", ") + ")")
}

func runWorkflowRun(cmd *cobra.Command, args []string) error {
	resolver, err := newResolver()
	if err != nil {
		return err
	}
	overrides, err := parseSetFlags(setFlags)
	if err != nil {
		return err
	}

	steps, err := resolver.Resolve(args[0], overrides)
	if err != nil {
		return err
	}
	graph, err := dag.Build(steps)
	if err != nil {
		return err
	}

	confirmed := make(map[string]bool, len(confirmSteps))
	for _, id := range confirmSteps {
		confirmed[id] = true
	}

	cmd.Println(titleStyle.Render("Execution plan: " + args[0]))
	for i, id := range graph.TopologicalOrder() {
		node := graph.Node(id)
		step := node.Step

		line := fmt.Sprintf("%d. %s  %s", i+1, headerStyle.Render(id),
			subtleStyle.Render("tool="+step.Tool))
		if deps := node.DepIDs(); len(deps) > 0 {
			line += subtleStyle.Render(" after " + strings.Join(deps, ", "))
		}
		if len(step.ResourceLocks) > 0 {
			line += subtleStyle.Render(" locks " + strings.Join(step.ResourceLocks, ", "))
		}
		if step.RequiresConfirmation {
			if confirmed[id] {
				line += " " + successStyle.Render("[confirmed]")
			} else {
				line += " " + warnStyle.Render("[pauses for confirmation]")
			}
		}
		if len(step.Args) > 0 {
			line += "\n   " + subtleStyle.Render(formatArgs(step.Args))
		}
		cmd.Println(line)
	}
	return nil
}

func formatArgs(args map[string]any) string {
	parts := make([]string, 0, len(args))
	for key, value := range args {
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// parseSetFlags turns --set step.key=value flags into overrides, coercing
// values to bool or number when they parse as one.
func parseSetFlags(flags []string) ([]workflow.Override, error) {
	byStep := make(map[string]map[string]any)
	var order []string

	for _, flag := range flags {
		target, raw, found := strings.Cut(flag, "=")
		if !found {
			return nil, fmt.Errorf("invalid --set %q: expected step.key=value", flag)
		}
		stepID, key, found := strings.Cut(target, ".")
		if !found || stepID == "" || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected step.key=value", flag)
		}

		if byStep[stepID] == nil {
			byStep[stepID] = make(map[string]any)
			order = append(order, stepID)
		}
		byStep[stepID][key] = coerceValue(raw)
	}

	overrides := make([]workflow.Override, 0, len(order))
	for _, stepID := range order {
		overrides = append(overrides, workflow.Override{StepID: stepID, Args: byStep[stepID]})
	}
	return overrides, nil
}

func coerceValue(raw string) any {
	// Numbers before booleans: ParseBool also accepts "1" and "0".
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func init() {
	workflowRunCmd.Flags().StringArrayVar(&setFlags, "set", nil,
		"Override a step argument as step.key=value (repeatable)")
	workflowRunCmd.Flags().StringArrayVar(&confirmSteps, "confirm", nil,
		"Pre-confirm a step's confirmation gate (repeatable)")

	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowShowCmd)
	workflowCmd.AddCommand(workflowRunCmd)
}
