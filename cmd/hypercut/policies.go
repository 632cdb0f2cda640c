package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ybwbqg9379/hyper-cut-sub001/internal/recovery"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Show the active error recovery policies",
	Long: `Show the recovery policy table: which failure codes are repaired,
the prerequisite calls that run first, retry delays, and retry
bounds. The configured policy file is merged over the builtins.`,
	RunE: runPolicies,
}

func runPolicies(cmd *cobra.Command, args []string) error {
	table := recovery.NewTable(recovery.DefaultPolicies())
	if cfg != nil && cfg.Recovery.PolicyFile != "" {
		loaded, err := recovery.LoadTable(cfg.Recovery.PolicyFile)
		if err != nil {
			return err
		}
		table = loaded
	}

	policies := table.Policies()
	sort.Slice(policies, func(i, j int) bool {
		if policies[i].Tool != policies[j].Tool {
			return policies[i].Tool < policies[j].Tool
		}
		return policies[i].ErrorCode < policies[j].ErrorCode
	})

	cmd.Println(titleStyle.Render("Recovery policies"))
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, headerStyle.Render("TOOL")+"\t"+
		headerStyle.Render("ERROR CODE")+"\t"+
		headerStyle.Render("PREREQUISITES")+"\t"+
		headerStyle.Render("DELAY")+"\t"+
		headerStyle.Render("RETRIES"))

	for _, p := range policies {
		prereqs := make([]string, 0, len(p.Prerequisites))
		for _, call := range p.Prerequisites {
			prereqs = append(prereqs, call.Tool)
		}
		prereqCol := strings.Join(prereqs, ", ")
		if prereqCol == "" {
			prereqCol = "-"
		}
		delayCol := "-"
		if p.Delay > 0 {
			delayCol = p.Delay.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", p.Tool, p.ErrorCode, prereqCol, delayCol, p.MaxRetries)
	}
	return w.Flush()
}
